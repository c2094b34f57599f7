package console

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"modelconsole/internal/config"
	"modelconsole/internal/daemon"
	"modelconsole/internal/gpu"
	"modelconsole/internal/inference"
	"modelconsole/internal/settings"
	"modelconsole/internal/shell"
	"modelconsole/internal/stats"
)

// Build wires a Service from cfg: daemon client, probe with auto-start,
// API transport, CLI fallback, stats file, settings file and GPU query.
// cfg is expected to have defaults applied and paths expanded.
func Build(cfg config.Config, log zerolog.Logger, pub inference.EventPublisher) (*Service, error) {
	client := daemon.NewClient(daemon.BaseURL(cfg.DaemonHost, cfg.DaemonPort), 5*time.Second)

	var launcher daemon.Launcher
	if !cfg.DisableAutoStart {
		launcher = &daemon.ProcessLauncher{Bin: cfg.DaemonBin, Logger: log.With().Str("component", "launcher").Logger()}
	}
	probe := daemon.NewProbe(client, daemon.ProbeConfig{
		Interval: cfg.ProbeInterval(),
		Launcher: launcher,
		Logger:   log.With().Str("component", "probe").Logger(),
	})

	primary := inference.NewAPITransport(client, inference.APITransportConfig{
		Attempts: cfg.TransportAttempts,
		Logger:   log.With().Str("component", "api").Logger(),
	})
	var fallback inference.Transport
	if !cfg.DisableFallback {
		cli, err := inference.NewCLITransport(inference.CLIConfig{
			Bin:        cfg.FallbackBin,
			Args:       cfg.FallbackArgs,
			DaemonHost: cfg.DaemonHost,
			DaemonPort: cfg.DaemonPort,
			ConfigFile: cfg.Source,
			Logger:     log.With().Str("component", "cli").Logger(),
		})
		if err != nil {
			return nil, fmt.Errorf("fallback transport: %w", err)
		}
		fallback = cli
	}

	store := stats.NewFileSink(cfg.StatsFile, cfg.StatsLimit)
	var sink stats.Sink = store
	if cfg.DisableStats {
		sink = stats.NopSink{}
	}
	orch := inference.NewWithConfig(inference.Config{
		Probe:         probe,
		Primary:       primary,
		Fallback:      fallback,
		Sink:          sink,
		ProbeAttempts: cfg.ProbeAttempts,
		Deadline:      cfg.APITimeout(),
		DaemonAddr:    client.Addr(),
		Logger:        log.With().Str("component", "orchestrator").Logger(),
		Publisher:     pub,
	})

	return New(Options{
		Runner:   orch,
		Daemon:   client,
		Probe:    probe,
		Settings: settings.NewStore(cfg.SettingsFile, cfg.DefaultModel),
		Stats:    store,
		Shell:    shell.Runner{Logger: log.With().Str("component", "shell").Logger()},
		GPU:      gpu.Querier{
			Bin:     cfg.GPUQueryBin,
			Timeout: cfg.GPUTimeout(),
			Logger:  log.With().Str("component", "gpu").Logger(),
		},
		Timeouts: Timeouts{
			API:         cfg.APITimeout(),
			CLI:         cfg.CLITimeout(),
			Shell:       cfg.ShellTimeout(),
			Interactive: cfg.InteractiveTimeout(),
			Pull:        cfg.PullTimeout(),
		},
		Logger: log,
	}), nil
}
