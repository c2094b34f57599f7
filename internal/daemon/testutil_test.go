package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

// ndjsonWriter writes one JSON object per line and flushes.
type ndjsonWriter struct{ w http.ResponseWriter }

func (nw ndjsonWriter) line(v any) {
	b, _ := json.Marshal(v)
	nw.raw(string(b))
}

func (nw ndjsonWriter) raw(s string) {
	nw.w.Write([]byte(s))
	nw.w.Write([]byte("\n"))
	if f, ok := nw.w.(http.Flusher); ok {
		f.Flush()
	}
}

func fragment(s string, done bool) map[string]any {
	return map[string]any{"model": "llama3", "response": s, "done": done}
}

// newFakeDaemon serves /api/tags plus whatever the test registers on mux.
func newFakeDaemon(t *testing.T, register func(mux *http.ServeMux)) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"models": []map[string]any{
			{"name": "llama3:latest", "size": 4661224676, "digest": "365c0bd3c000"},
		}})
	})
	if register != nil {
		register(mux)
	}
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

// deadURL returns a URL nothing listens on.
func deadURL(t *testing.T) string {
	t.Helper()
	ts := httptest.NewServer(http.NotFoundHandler())
	u := ts.URL
	ts.Close()
	return u
}
