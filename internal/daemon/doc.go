// Package daemon talks to the local inference daemon (an Ollama-compatible
// HTTP service) and keeps it running. It is structured by concern:
//
//   - client.go: HTTP client for health, generate (blocking and NDJSON stream), pull and delete.
//   - errors.go: classification of daemon failures (IsModelNotFound, IsUnavailable, IsDecode).
//   - probe.go: availability probing with fixed-interval retries and on-demand start.
//   - launcher.go: detached, de-duplicated daemon process launch.
//
// Nothing here caches daemon state between calls; every probe hits the daemon.
package daemon
