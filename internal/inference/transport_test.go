package inference

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jmorganca/ollama/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelconsole/internal/daemon"
	"modelconsole/internal/retry"
)

// flakyClient fails with a connectivity error for the first failures calls.
type flakyClient struct {
	failures int32
	calls    atomic.Int32
}

func (c *flakyClient) Addr() string { return "http://localhost:11434" }

func (c *flakyClient) Generate(ctx context.Context, req *api.GenerateRequest) (api.GenerateResponse, error) {
	if c.calls.Add(1) <= c.failures {
		return api.GenerateResponse{}, daemon.ErrUnavailable(c.Addr(), errors.New("connection refused"))
	}
	return api.GenerateResponse{Response: "recovered", Done: true}, nil
}

func (c *flakyClient) GenerateStream(ctx context.Context, req *api.GenerateRequest, fn func(api.GenerateResponse) error) error {
	if c.calls.Add(1) <= c.failures {
		return daemon.ErrUnavailable(c.Addr(), errors.New("connection refused"))
	}
	if err := fn(api.GenerateResponse{Response: "recovered"}); err != nil {
		return err
	}
	return fn(api.GenerateResponse{Done: true})
}

func TestAPITransport_RetriesConnectivityFailures(t *testing.T) {
	c := &flakyClient{failures: 1}
	tr := NewAPITransport(c, APITransportConfig{Attempts: 2, Backoff: retry.ExponentialFrom(time.Millisecond)})
	res, err := tr.RunBlocking(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, "recovered", res.Text)
	assert.EqualValues(t, 2, c.calls.Load())
}

func TestAPITransport_ExhaustedRetriesAreServiceUnavailable(t *testing.T) {
	c := &flakyClient{failures: 10}
	tr := NewAPITransport(c, APITransportConfig{Attempts: 2, Backoff: retry.ExponentialFrom(time.Millisecond)})
	req := validRequest()
	req.Streaming = true
	_, err := tr.Execute(context.Background(), req, nil)
	require.True(t, IsServiceUnavailable(err), "got %v", err)
	assert.EqualValues(t, 2, c.calls.Load())
}

func TestAPITransport_StreamDecodeFailureIsTransportFailure(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{\"response\":\"ok\",\"done\":false}\n{garbage\n"))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	req := validRequest()
	req.Streaming = true
	_, err := newTestAPITransport(ts.URL).Execute(context.Background(), req, nil)
	require.True(t, IsTransportFailure(err), "got %v", err)
	assert.True(t, daemon.IsDecode(err))
}

func TestAPITransport_ModelNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model 'ghost' not found, try pulling it first"}`))
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	req := validRequest()
	req.Model = "ghost"
	_, err := newTestAPITransport(ts.URL).RunBlocking(context.Background(), req)
	require.True(t, IsModelNotFound(err), "got %v", err)
}

func TestAPITransport_ProgressCadence(t *testing.T) {
	frags := make([]string, 12)
	for i := range frags {
		frags[i] = "w "
	}
	ts := newFakeDaemon(t, frags)
	var pl progressLog
	res, err := newTestAPITransport(ts.URL).RunStreaming(context.Background(), validRequest(), pl.fn)
	require.NoError(t, err)
	assert.Equal(t, 12, res.TokenCountEstimate)
	calls := pl.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, 5, calls[0].Fragments)
	assert.Equal(t, 10, calls[1].Fragments)
}
