// Package stats records completed inferences and derives the usage and
// performance views served by the console.
package stats

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultLimit is the number of records kept on disk.
const DefaultLimit = 200

// Record is one completed inference. Lengths are word counts.
type Record struct {
	ID            string  `json:"id,omitempty"`
	Timestamp     float64 `json:"timestamp"`
	Date          string  `json:"date"`
	Model         string  `json:"model"`
	PromptLength  int     `json:"prompt_length"`
	MaxTokens     int     `json:"max_tokens"`
	OutputLength  int     `json:"output_length"`
	ExecutionTime float64 `json:"execution_time"`
	Transport     string  `json:"transport,omitempty"`
	Streaming     bool    `json:"streaming"`
}

// NewRecord stamps a record for an inference that finished at now.
func NewRecord(now time.Time, model, prompt string, maxTokens int, output string, elapsed time.Duration) Record {
	return Record{
		ID:            uuid.NewString(),
		Timestamp:     float64(now.UnixNano()) / 1e9,
		Date:          now.Format("2006-01-02 15:04:05"),
		Model:         model,
		PromptLength:  len(strings.Fields(prompt)),
		MaxTokens:     maxTokens,
		OutputLength:  len(strings.Fields(output)),
		ExecutionTime: elapsed.Seconds(),
	}
}

// Sink receives completed inference records.
type Sink interface {
	Record(ctx context.Context, r Record) error
}

// Source lists stored records in insertion order.
type Source interface {
	Records(ctx context.Context) ([]Record, error)
}

// Store is both ends of the stats file.
type Store interface {
	Sink
	Source
}

// NopSink discards records.
type NopSink struct{}

func (NopSink) Record(context.Context, Record) error { return nil }
