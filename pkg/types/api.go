package types

import "modelconsole/internal/stats"

// TestModelRequest is the body of POST /api/test-model.
type TestModelRequest struct {
	// Model to run. Empty means the configured default.
	// example: llama3
	Model string `json:"model,omitempty" example:"llama3"`
	// Required prompt text.
	// example: Write a haiku about the ocean.
	Prompt string `json:"prompt" example:"Write a haiku about the ocean."`
	// Sampling temperature in [0, 1]. Defaults to 0.7.
	// example: 0.7
	Temperature *float64 `json:"temperature,omitempty" example:"0.7"`
	// Maximum tokens to generate in [1, 4000]. Defaults to 500.
	// example: 500
	MaxTokens *int `json:"max_tokens,omitempty" example:"500"`
	// Stream from the daemon internally; the HTTP answer is still one JSON object.
	Stream bool `json:"stream,omitempty"`
}

// TestModelResponse is the successful answer of POST /api/test-model.
type TestModelResponse struct {
	Success bool `json:"success"`
	// Generated text.
	Response string `json:"response"`
	// example: llama3
	Model string `json:"model" example:"llama3"`
	// Whitespace-split token estimate.
	// example: 42
	Tokens int `json:"tokens" example:"42"`
	// Seconds, rounded to two decimals.
	// example: 3.14
	ExecutionTime float64 `json:"execution_time" example:"3.14"`
	// Transport that produced the text (api or cli).
	// example: api
	Transport string `json:"transport" example:"api"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	Success bool `json:"success"`
	// Error message.
	// example: invalid JSON body
	Error string `json:"error" example:"invalid JSON body"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
	// Error class when known (invalid_request, service_unavailable, model_not_found, timeout, transport_failure).
	// example: model_not_found
	Kind string `json:"kind,omitempty" example:"model_not_found"`
}

// ModelsResponse wraps the list returned by GET /api/models.
type ModelsResponse struct {
	Models []Model `json:"models"`
}

// CurrentModelResponse is returned by GET /api/current-model.
type CurrentModelResponse struct {
	// example: llama3
	Current string `json:"current" example:"llama3"`
}

// ModelActionRequest names the model for download, delete and set-default.
type ModelActionRequest struct {
	// example: llama3
	Model string `json:"model" example:"llama3"`
}

// ActionResponse reports the outcome of a model action.
type ActionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ExecuteRequest is the body of POST /execute and /execute_interactive.
type ExecuteRequest struct {
	// example: ollama list
	Command string `json:"command" example:"ollama list"`
	// Only used by /execute_interactive.
	InputText string `json:"input_text,omitempty"`
}

// ExecuteResponse mirrors the shell result.
type ExecuteResponse struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ReturnCode int    `json:"returncode"`
}

// HistoryResponse is returned by GET /api/stats/inference-history.
type HistoryResponse struct {
	History []stats.Record `json:"history"`
}

// UsageResponse is returned by GET /api/stats/model-usage.
type UsageResponse struct {
	Models []stats.ModelUsage `json:"models"`
}

// PerformanceResponse is returned by GET /api/stats/performance.
type PerformanceResponse struct {
	Models []stats.ModelPerformance `json:"models"`
	// First GPU at the time of the request; empty when none is visible.
	GPUMetrics GPU `json:"gpu_metrics"`
}

// PingResponse is printed by `modelconsole ping --json` and served by /readyz.
type PingResponse struct {
	// ok or unreachable.
	// example: ok
	Status string `json:"status" example:"ok"`
	// example: http://localhost:11434
	Daemon string `json:"daemon" example:"http://localhost:11434"`
	Error  string `json:"error,omitempty"`
}

// GPUInfoResponse lists the visible GPUs. A failed query still answers 200
// with an empty list and the reason in Error.
type GPUInfoResponse struct {
	GPUs  []GPU  `json:"gpus"`
	Error string `json:"error,omitempty" example:"nvidia-smi not available"`
}
