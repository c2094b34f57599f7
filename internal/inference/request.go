package inference

import (
	"fmt"
	"math"
	"strings"
)

// MaxTokensLimit is the largest generation length a caller may ask for.
const MaxTokensLimit = 4000

// Request is a single generation request. It is passed by value and never
// mutated once built.
type Request struct {
	Model       string
	Prompt      string
	Temperature float64
	MaxTokens   int
	Streaming   bool
}

// Result is produced exactly once per successful run.
type Result struct {
	Text               string  `json:"text"`
	TokenCountEstimate int     `json:"token_count_estimate"`
	ElapsedSeconds     float64 `json:"elapsed_seconds"`
	Model              string  `json:"model"`
	Transport          string  `json:"transport"`
}

// EstimateTokens approximates a token count by splitting on whitespace.
func EstimateTokens(s string) int { return len(strings.Fields(s)) }

// ValidModelName reports whether name is non-empty and uses only letters,
// digits and ':', '.', '_', '-'.
func ValidModelName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == ':' || r == '.' || r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}

// Validate checks the request before any network call.
func (r Request) Validate() error {
	if !ValidModelName(r.Model) {
		return invalid(r.Model, fmt.Sprintf("invalid model name %q", r.Model))
	}
	if strings.TrimSpace(r.Prompt) == "" {
		return invalid(r.Model, "prompt is empty")
	}
	if math.IsNaN(r.Temperature) || r.Temperature < 0 || r.Temperature > 1 {
		return invalid(r.Model, fmt.Sprintf("temperature %v out of range [0, 1]", r.Temperature))
	}
	if r.MaxTokens < 1 || r.MaxTokens > MaxTokensLimit {
		return invalid(r.Model, fmt.Sprintf("max tokens %d out of range [1, %d]", r.MaxTokens, MaxTokensLimit))
	}
	return nil
}
