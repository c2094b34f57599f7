package inference

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"modelconsole/internal/guard"
	"modelconsole/internal/stats"
)

// Defaults applied when Config fields are unset.
const (
	defaultProbeAttempts = 3
	defaultDeadline      = 60 * time.Second
)

// Prober ensures the daemon is reachable; *daemon.Probe satisfies it.
type Prober interface {
	EnsureAvailable(ctx context.Context, maxAttempts int) bool
}

// Config holds everything an Orchestrator needs. It is read once by
// NewWithConfig and never consulted again.
type Config struct {
	Probe         Prober
	Primary       Transport
	Fallback      Transport // nil disables the fallback path
	Sink          stats.Sink
	ProbeAttempts int
	Deadline      time.Duration // per transport attempt
	DaemonAddr    string        // used in "not running" messages
	Logger        zerolog.Logger
	Publisher     EventPublisher
}

// Orchestrator runs requests end to end. It keeps no state between runs and
// is safe for concurrent use.
type Orchestrator struct {
	probe         Prober
	primary       Transport
	fallback      Transport
	sink          stats.Sink
	probeAttempts int
	deadline      time.Duration
	daemonAddr    string
	log           zerolog.Logger
	publisher     EventPublisher
}

// NewWithConfig constructs an Orchestrator from cfg, applying defaults.
func NewWithConfig(cfg Config) *Orchestrator {
	o := &Orchestrator{
		probe:         cfg.Probe,
		primary:       cfg.Primary,
		fallback:      cfg.Fallback,
		sink:          cfg.Sink,
		probeAttempts: cfg.ProbeAttempts,
		deadline:      cfg.Deadline,
		daemonAddr:    cfg.DaemonAddr,
		log:           cfg.Logger,
		publisher:     cfg.Publisher,
	}
	if o.probeAttempts <= 0 {
		o.probeAttempts = defaultProbeAttempts
	}
	if o.deadline <= 0 {
		o.deadline = defaultDeadline
	}
	if o.sink == nil {
		o.sink = stats.NopSink{}
	}
	if o.publisher == nil {
		o.publisher = noopPublisher{}
	}
	return o
}

type runOptions struct {
	deadline time.Duration
	progress ProgressFunc
}

// RunOption adjusts a single Run.
type RunOption func(*runOptions)

// WithProgress receives streaming progress. It is never called after Run returns.
func WithProgress(fn ProgressFunc) RunOption {
	return func(o *runOptions) { o.progress = fn }
}

// WithDeadline overrides the configured deadline for one run.
func WithDeadline(d time.Duration) RunOption {
	return func(o *runOptions) {
		if d > 0 {
			o.deadline = d
		}
	}
}

// Run validates req, makes sure the daemon is up, runs the primary transport
// under the deadline and, on a transport failure, the fallback exactly once.
// A successful run is recorded to the stats sink exactly once. Every error
// returned is an *Error.
func (o *Orchestrator) Run(ctx context.Context, req Request, opts ...RunOption) (Result, error) {
	ro := runOptions{deadline: o.deadline}
	for _, opt := range opts {
		opt(&ro)
	}
	log := o.log.With().Str("model", req.Model).Bool("streaming", req.Streaming).Logger()

	if err := req.Validate(); err != nil {
		return o.fail(log, req, err)
	}
	o.publisher.Publish(Event{Name: EventStart, Model: req.Model, Fields: map[string]any{"streaming": req.Streaming}})

	if !o.probe.EnsureAvailable(ctx, o.probeAttempts) {
		if ctx.Err() != nil {
			return o.fail(log, req, cancelled(req.Model, context.Cause(ctx)))
		}
		return o.fail(log, req, unavailable(req.Model, o.daemonAddr, nil))
	}

	gate := &progressGate{fn: ro.progress}
	var progress ProgressFunc
	if ro.progress != nil {
		progress = gate.emit
	}
	start := time.Now()
	res, err := o.attempt(ctx, o.primary, req, ro.deadline, progress)
	if err != nil && IsTransportFailure(err) && o.fallback != nil {
		log.Warn().Err(err).Str("fallback", o.fallback.Name()).Msg("primary transport failed, trying fallback")
		fallbacksTotal.Inc()
		o.publisher.Publish(Event{Name: EventFallback, Model: req.Model, Fields: map[string]any{"cause": err.Error()}})
		fb := req
		fb.Streaming = false
		res, err = o.attempt(ctx, o.fallback, fb, ro.deadline, nil)
	}
	gate.close()
	if err != nil {
		return o.fail(log, req, err)
	}

	elapsed := time.Since(start)
	res.Model = req.Model
	res.TokenCountEstimate = EstimateTokens(res.Text)
	res.ElapsedSeconds = elapsed.Seconds()

	rec := stats.NewRecord(time.Now(), req.Model, req.Prompt, req.MaxTokens, res.Text, elapsed)
	rec.Transport = res.Transport
	rec.Streaming = req.Streaming
	// the record must land even if the caller has gone away
	if err := o.sink.Record(context.WithoutCancel(ctx), rec); err != nil {
		log.Error().Err(err).Msg("failed to record inference stats")
	}

	runsTotal.WithLabelValues("success").Inc()
	runDuration.WithLabelValues(res.Transport, strconv.FormatBool(req.Streaming)).Observe(res.ElapsedSeconds)
	o.publisher.Publish(Event{Name: EventSuccess, Model: req.Model, Fields: map[string]any{
		"transport": res.Transport,
		"tokens":    res.TokenCountEstimate,
		"elapsed":   res.ElapsedSeconds,
	}})
	log.Info().Str("transport", res.Transport).Int("tokens", res.TokenCountEstimate).Float64("elapsed_s", res.ElapsedSeconds).Msg("inference complete")
	return res, nil
}

// attempt runs one transport under the deadline and normalises its error.
func (o *Orchestrator) attempt(ctx context.Context, t Transport, req Request, d time.Duration, progress ProgressFunc) (Result, error) {
	res, err := guard.RunWithDeadline(ctx, d, func(ctx context.Context) (Result, error) {
		return t.Execute(ctx, req, progress)
	})
	if err == nil {
		if res.Transport == "" {
			res.Transport = t.Name()
		}
		return res, nil
	}
	switch {
	case guard.IsTimeout(err):
		return Result{}, timedOut(req.Model, d.String(), err)
	case ctx.Err() != nil:
		return Result{}, cancelled(req.Model, context.Cause(ctx))
	case errors.Is(err, guard.ErrCancelled),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Result{}, timedOut(req.Model, d.String(), err)
	case KindOf(err) != KindUnknown:
		return Result{}, err
	default:
		return Result{}, transportFailure(req.Model, err)
	}
}

func (o *Orchestrator) fail(log zerolog.Logger, req Request, err error) (Result, error) {
	kind := KindOf(err)
	runsTotal.WithLabelValues(kind.String()).Inc()
	o.publisher.Publish(Event{Name: EventFailure, Model: req.Model, Fields: map[string]any{"kind": kind.String()}})
	ev := log.Warn()
	if kind == TransportFailure {
		ev = log.Error()
	}
	ev.Err(err).Str("kind", kind.String()).Msg("inference failed")
	return Result{}, err
}

// progressGate forwards progress until closed. close waits for an in-flight
// callback, so nothing is delivered after Run returns.
type progressGate struct {
	mu     sync.Mutex
	closed bool
	fn     ProgressFunc
}

func (g *progressGate) emit(p Progress) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed || g.fn == nil {
		return
	}
	g.fn(p)
}

func (g *progressGate) close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}
