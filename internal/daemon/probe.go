package daemon

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"modelconsole/internal/retry"
)

// MaxProbeInterval caps the pause between probes.
const MaxProbeInterval = 5 * time.Second

var errNotReady = errors.New("daemon not ready")

// Pinger is the health check the probe relies on; *Client satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Probe checks daemon reachability and starts the daemon when it is down.
// It never caches the outcome: each call hits the daemon again.
type Probe struct {
	pinger   Pinger
	launcher Launcher
	interval time.Duration
	timeout  time.Duration
	log      zerolog.Logger
}

// ProbeConfig configures a Probe. Zero values take defaults.
type ProbeConfig struct {
	Interval    time.Duration // pause between attempts; default 1s, capped at MaxProbeInterval
	PingTimeout time.Duration // per-probe bound; default 2s
	Launcher    Launcher      // nil disables auto-start
	Logger      zerolog.Logger
}

// NewProbe builds a probe around pinger.
func NewProbe(pinger Pinger, cfg ProbeConfig) *Probe {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.Interval > MaxProbeInterval {
		cfg.Interval = MaxProbeInterval
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = 2 * time.Second
	}
	return &Probe{
		pinger:   pinger,
		launcher: cfg.Launcher,
		interval: cfg.Interval,
		timeout:  cfg.PingTimeout,
		log:      cfg.Logger,
	}
}

// IsAvailable performs one health check bounded by timeout.
func (p *Probe) IsAvailable(ctx context.Context, timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = p.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.pinger.Ping(ctx) == nil
}

// EnsureAvailable probes up to maxAttempts times, launching the daemon after
// each failed probe. It returns false once attempts are exhausted or ctx ends.
func (p *Probe) EnsureAvailable(ctx context.Context, maxAttempts int) bool {
	err := retry.Do(ctx, maxAttempts, retry.Fixed(p.interval), func(ctx context.Context, attempt int) error {
		if p.IsAvailable(ctx, p.timeout) {
			return nil
		}
		p.log.Warn().Int("attempt", attempt+1).Int("max_attempts", maxAttempts).Msg("daemon not reachable")
		if p.launcher != nil && ctx.Err() == nil {
			if err := p.launcher.Launch(ctx); err != nil {
				p.log.Warn().Err(err).Msg("daemon launch failed")
			}
		}
		return retry.Retryable(errNotReady)
	})
	if err != nil {
		p.log.Error().Err(err).Msg("daemon unavailable")
		return false
	}
	return true
}
