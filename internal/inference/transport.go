package inference

import (
	"context"
	"errors"
	"time"

	"github.com/jmorganca/ollama/api"
	"github.com/rs/zerolog"

	"modelconsole/internal/daemon"
	"modelconsole/internal/retry"
)

// progressEvery is the fragment cadence at which streaming progress is reported.
const progressEvery = 5

// Progress is reported to the caller while a streaming run is in flight.
type Progress struct {
	Fragments int    // fragments received so far
	Fragment  string // the fragment that triggered this report
	Text      string // text accumulated so far
}

// ProgressFunc receives progress reports. It runs off the read loop and must not block for long.
type ProgressFunc func(Progress)

// Transport obtains a generation result for a request.
type Transport interface {
	Name() string
	Execute(ctx context.Context, req Request, progress ProgressFunc) (Result, error)
}

// DaemonClient is the subset of *daemon.Client the API transport needs.
type DaemonClient interface {
	Addr() string
	Generate(ctx context.Context, req *api.GenerateRequest) (api.GenerateResponse, error)
	GenerateStream(ctx context.Context, req *api.GenerateRequest, fn func(api.GenerateResponse) error) error
}

// APITransportConfig tunes retries of connectivity failures.
type APITransportConfig struct {
	Attempts int           // default 2
	Backoff  retry.Backoff // default retry.Exponential()
	Logger   zerolog.Logger
}

// APITransport calls the daemon's generate endpoint directly.
type APITransport struct {
	client   DaemonClient
	attempts int
	backoff  retry.Backoff
	log      zerolog.Logger
}

// NewAPITransport builds the direct transport around client.
func NewAPITransport(client DaemonClient, cfg APITransportConfig) *APITransport {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 2
	}
	if cfg.Backoff == nil {
		cfg.Backoff = retry.Exponential()
	}
	return &APITransport{client: client, attempts: cfg.Attempts, backoff: cfg.Backoff, log: cfg.Logger}
}

func (t *APITransport) Name() string { return "api" }

// Execute dispatches on req.Streaming.
func (t *APITransport) Execute(ctx context.Context, req Request, progress ProgressFunc) (Result, error) {
	if req.Streaming {
		return t.RunStreaming(ctx, req, progress)
	}
	return t.RunBlocking(ctx, req)
}

// RunBlocking sends the request and waits for the single complete response.
func (t *APITransport) RunBlocking(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	var text string
	err := retry.Do(ctx, t.attempts, t.backoff, func(ctx context.Context, attempt int) error {
		resp, err := t.client.Generate(ctx, daemon.NewGenerateRequest(req.Model, req.Prompt, req.Temperature, req.MaxTokens, false))
		if err != nil {
			return t.markRetryable(err, attempt)
		}
		text = resp.Response
		return nil
	})
	if err != nil {
		return Result{}, t.translate(req.Model, err)
	}
	return t.result(req, text, start), nil
}

// RunStreaming reads the NDJSON stream into an Accumulator. Every fifth
// fragment a Progress is handed to a notifier goroutine; the read loop never
// waits on it. All notifications are delivered before RunStreaming returns.
func (t *APITransport) RunStreaming(ctx context.Context, req Request, progress ProgressFunc) (Result, error) {
	start := time.Now()
	n := newNotifier(progress)
	defer n.close()

	var acc *Accumulator
	err := retry.Do(ctx, t.attempts, t.backoff, func(ctx context.Context, attempt int) error {
		acc = &Accumulator{}
		err := t.client.GenerateStream(ctx, daemon.NewGenerateRequest(req.Model, req.Prompt, req.Temperature, req.MaxTokens, true), func(r api.GenerateResponse) error {
			before := acc.Count()
			if c := acc.Add(r.Response); c != before && c%progressEvery == 0 {
				n.send(Progress{Fragments: c, Fragment: r.Response, Text: acc.Text()})
			}
			if r.Done {
				acc.MarkDone()
			}
			return nil
		})
		// a stream that already produced text is not replayed
		if err != nil && acc.Count() == 0 {
			return t.markRetryable(err, attempt)
		}
		return err
	})
	if err != nil {
		return Result{}, t.translate(req.Model, err)
	}
	return t.result(req, acc.Text(), start), nil
}

func (t *APITransport) markRetryable(err error, attempt int) error {
	if daemon.IsUnavailable(err) {
		t.log.Warn().Err(err).Int("attempt", attempt+1).Int("max_attempts", t.attempts).Msg("daemon call failed; will retry")
		return retry.Retryable(err)
	}
	return err
}

// translate maps daemon failures onto the taxonomy. Context errors pass
// through untouched so the deadline guard can report them.
func (t *APITransport) translate(model string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case daemon.IsModelNotFound(err):
		return notFound(model, err)
	case daemon.IsUnavailable(err):
		return unavailable(model, t.client.Addr(), err)
	default:
		return transportFailure(model, err)
	}
}

func (t *APITransport) result(req Request, text string, start time.Time) Result {
	return Result{
		Text:               text,
		TokenCountEstimate: EstimateTokens(text),
		ElapsedSeconds:     time.Since(start).Seconds(),
		Model:              req.Model,
		Transport:          t.Name(),
	}
}

// notifier forwards progress to the callback on its own goroutine.
type notifier struct {
	ch   chan Progress
	done chan struct{}
}

func newNotifier(fn ProgressFunc) *notifier {
	if fn == nil {
		return nil
	}
	n := &notifier{ch: make(chan Progress, 64), done: make(chan struct{})}
	go func() {
		defer close(n.done)
		for p := range n.ch {
			fn(p)
		}
	}()
	return n
}

// send drops the report when the callback is too far behind.
func (n *notifier) send(p Progress) {
	if n == nil {
		return
	}
	select {
	case n.ch <- p:
	default:
	}
}

func (n *notifier) close() {
	if n == nil {
		return
	}
	close(n.ch)
	<-n.done
}
