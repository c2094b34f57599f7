package main

// General API documentation for swaggo. The served document lives in
// internal/httpapi/swagger.go.
//
// @title           modelconsole API
// @version         1.0
// @description     Console for a local Ollama daemon: inference, model management, usage stats and shell commands.
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
