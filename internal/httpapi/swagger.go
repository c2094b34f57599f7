package httpapi

import (
	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "modelconsole API",
	Description:      "Console for a local Ollama daemon: inference, model management, usage stats and shell commands.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// MountSwagger serves the UI under /swagger/ and the document at /swagger/doc.json.
func MountSwagger(r chi.Router) {
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/test-model": {
            "post": {
                "summary": "Run one prompt against a model",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.TestModelRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.TestModelResponse"}},
                    "400": {"description": "Invalid request", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "404": {"description": "Model not found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "502": {"description": "Transport failure", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "503": {"description": "Daemon not running", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "504": {"description": "Timed out", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/api/models": {
            "get": {
                "summary": "List installed models",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelsResponse"}}}
            }
        },
        "/api/current-model": {
            "get": {
                "summary": "Default model",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.CurrentModelResponse"}}}
            }
        },
        "/api/set-default-model": {
            "post": {
                "summary": "Set the default model",
                "consumes": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.ModelActionRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ActionResponse"}}}
            }
        },
        "/api/download-model": {
            "post": {
                "summary": "Pull a model into the daemon",
                "consumes": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.ModelActionRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ActionResponse"}}}
            }
        },
        "/api/delete-model": {
            "post": {
                "summary": "Delete a model from the daemon",
                "consumes": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.ModelActionRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ActionResponse"}}}
            }
        },
        "/api/stats/inference-history": {
            "get": {
                "summary": "Recorded runs, newest first",
                "parameters": [{"in": "query", "name": "model", "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.HistoryResponse"}}}
            }
        },
        "/api/stats/model-usage": {
            "get": {
                "summary": "Usage per model",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.UsageResponse"}}}
            }
        },
        "/api/stats/performance": {
            "get": {
                "summary": "Speed per model",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.PerformanceResponse"}}}
            }
        },
        "/api/gpu-info": {
            "get": {
                "summary": "Visible GPUs from nvidia-smi",
                "responses": {"200": {"description": "OK; error is set when the query failed", "schema": {"$ref": "#/definitions/types.GPUInfoResponse"}}}
            }
        },
        "/execute": {
            "post": {
                "summary": "Run a shell command",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.ExecuteRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ExecuteResponse"}}}
            }
        },
        "/execute_interactive": {
            "post": {
                "summary": "Run a shell command with stdin input",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/types.ExecuteRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ExecuteResponse"}}}
            }
        },
        "/readyz": {
            "get": {
                "summary": "Daemon reachability",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.PingResponse"}},
                    "503": {"description": "Daemon unreachable", "schema": {"$ref": "#/definitions/types.PingResponse"}}
                }
            }
        }
    },
    "definitions": {
        "types.TestModelRequest": {
            "type": "object",
            "required": ["prompt"],
            "properties": {
                "model": {"type": "string", "example": "llama3"},
                "prompt": {"type": "string", "example": "Write a haiku about the ocean."},
                "temperature": {"type": "number", "example": 0.7},
                "max_tokens": {"type": "integer", "example": 500},
                "stream": {"type": "boolean"}
            }
        },
        "types.TestModelResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "response": {"type": "string"},
                "model": {"type": "string", "example": "llama3"},
                "tokens": {"type": "integer", "example": 42},
                "execution_time": {"type": "number", "example": 3.14},
                "transport": {"type": "string", "example": "api"}
            }
        },
        "types.ErrorResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "error": {"type": "string", "example": "invalid JSON body"},
                "code": {"type": "integer", "example": 400},
                "kind": {"type": "string", "example": "model_not_found"}
            }
        },
        "types.Model": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "llama3:latest"},
                "size": {"type": "integer"},
                "size_human": {"type": "string", "example": "4.7 GB"},
                "digest": {"type": "string"},
                "modified_at": {"type": "string"},
                "default": {"type": "boolean"}
            }
        },
        "types.ModelsResponse": {
            "type": "object",
            "properties": {"models": {"type": "array", "items": {"$ref": "#/definitions/types.Model"}}}
        },
        "types.CurrentModelResponse": {
            "type": "object",
            "properties": {"current": {"type": "string", "example": "llama3"}}
        },
        "types.ModelActionRequest": {
            "type": "object",
            "required": ["model"],
            "properties": {"model": {"type": "string", "example": "llama3"}}
        },
        "types.ActionResponse": {
            "type": "object",
            "properties": {"success": {"type": "boolean"}, "message": {"type": "string"}}
        },
        "types.ExecuteRequest": {
            "type": "object",
            "required": ["command"],
            "properties": {"command": {"type": "string", "example": "ollama list"}, "input_text": {"type": "string"}}
        },
        "types.ExecuteResponse": {
            "type": "object",
            "properties": {"stdout": {"type": "string"}, "stderr": {"type": "string"}, "returncode": {"type": "integer"}}
        },
        "stats.Record": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "timestamp": {"type": "number"},
                "date": {"type": "string"},
                "model": {"type": "string"},
                "prompt_length": {"type": "integer"},
                "max_tokens": {"type": "integer"},
                "output_length": {"type": "integer"},
                "execution_time": {"type": "number"}
            }
        },
        "types.HistoryResponse": {
            "type": "object",
            "properties": {"history": {"type": "array", "items": {"$ref": "#/definitions/stats.Record"}}}
        },
        "types.UsageResponse": {
            "type": "object",
            "properties": {"models": {"type": "array", "items": {"type": "object"}}}
        },
        "types.PerformanceResponse": {
            "type": "object",
            "properties": {
                "models": {"type": "array", "items": {"type": "object"}},
                "gpu_metrics": {"$ref": "#/definitions/types.GPU"}
            }
        },
        "types.GPU": {
            "type": "object",
            "properties": {
                "index": {"type": "string", "example": "0"},
                "name": {"type": "string", "example": "NVIDIA GeForce RTX 3090"},
                "utilization": {"type": "string", "example": "37"},
                "memory_used": {"type": "string", "example": "5120"},
                "memory_total": {"type": "string", "example": "24576"}
            }
        },
        "types.GPUInfoResponse": {
            "type": "object",
            "properties": {
                "gpus": {"type": "array", "items": {"$ref": "#/definitions/types.GPU"}},
                "error": {"type": "string"}
            }
        },
        "types.PingResponse": {
            "type": "object",
            "properties": {"status": {"type": "string", "example": "ok"}, "daemon": {"type": "string"}, "error": {"type": "string"}}
        }
    }
}`
