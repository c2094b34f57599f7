package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmorganca/ollama/api"

	"modelconsole/internal/daemon"
	"modelconsole/internal/retry"
	"modelconsole/internal/stats"
)

// fakeProbe answers EnsureAvailable with a fixed value and counts calls.
type fakeProbe struct {
	ok    bool
	calls atomic.Int32
}

func (p *fakeProbe) EnsureAvailable(ctx context.Context, maxAttempts int) bool {
	p.calls.Add(1)
	return p.ok
}

// fakeTransport delegates to fn and counts calls.
type fakeTransport struct {
	name  string
	fn    func(ctx context.Context, req Request, progress ProgressFunc) (Result, error)
	calls atomic.Int32
}

func (t *fakeTransport) Name() string { return t.name }

func (t *fakeTransport) Execute(ctx context.Context, req Request, progress ProgressFunc) (Result, error) {
	t.calls.Add(1)
	return t.fn(ctx, req, progress)
}

func okTransport(name, text string) *fakeTransport {
	return &fakeTransport{name: name, fn: func(ctx context.Context, req Request, _ ProgressFunc) (Result, error) {
		return Result{Text: text, Transport: name}, nil
	}}
}

func failingTransport(name string, err error) *fakeTransport {
	return &fakeTransport{name: name, fn: func(context.Context, Request, ProgressFunc) (Result, error) {
		return Result{}, err
	}}
}

func validRequest() Request {
	return Request{Model: "llama3", Prompt: "hello", Temperature: 0.7, MaxTokens: 50}
}

func newTestOrchestrator(probe Prober, primary, fallback Transport, sink stats.Sink) *Orchestrator {
	cfg := Config{Probe: probe, Primary: primary, Sink: sink, DaemonAddr: "localhost:11434", Deadline: 5 * time.Second}
	if fallback != nil {
		cfg.Fallback = fallback
	}
	return NewWithConfig(cfg)
}

func records(t *testing.T, s *stats.MemorySink) []stats.Record {
	t.Helper()
	recs, err := s.Records(context.Background())
	if err != nil {
		t.Fatalf("Records() error: %v", err)
	}
	return recs
}

// newFakeDaemon answers /api/generate with fragments: one object when
// stream is false, one NDJSON line per fragment plus a done line otherwise.
func newFakeDaemon(t *testing.T, fragments []string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"models":[]}`))
	})
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		var req api.GenerateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		enc := json.NewEncoder(w)
		if req.Stream != nil && !*req.Stream {
			full := ""
			for _, f := range fragments {
				full += f
			}
			_ = enc.Encode(api.GenerateResponse{Model: req.Model, Response: full, Done: true})
			return
		}
		for _, f := range fragments {
			_ = enc.Encode(api.GenerateResponse{Model: req.Model, Response: f})
			if fl, ok := w.(http.Flusher); ok {
				fl.Flush()
			}
		}
		_ = enc.Encode(api.GenerateResponse{Model: req.Model, Done: true})
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

func newTestAPITransport(url string) *APITransport {
	return NewAPITransport(daemon.NewClient(url, time.Second), APITransportConfig{Backoff: retry.ExponentialFrom(time.Millisecond)})
}

// progressLog records progress callbacks.
type progressLog struct {
	mu    sync.Mutex
	calls []Progress
}

func (p *progressLog) fn(pr Progress) {
	p.mu.Lock()
	p.calls = append(p.calls, pr)
	p.mu.Unlock()
}

func (p *progressLog) snapshot() []Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Progress(nil), p.calls...)
}
