package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"modelconsole/internal/console"
	"modelconsole/internal/inference"
)

type runOptions struct {
	model       string
	noStream    bool
	temperature float64
	maxTokens   int
	timeout     int
	noFallback  bool
	noStats     bool
	noAutoStart bool
	listModels  bool
}

func newRunCommand() *cobra.Command {
	var o runOptions
	cmd := &cobra.Command{
		Use:   "run [flags] [--] <prompt...>",
		Short: "Run one prompt and print the generated text",
		Long: "Run one prompt against the daemon. Progress goes to stderr; stdout gets\n" +
			"a \"" + inference.GeneratedTextMarker + "\" line followed by the text.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if o.timeout > 0 {
				cfg.CLITimeoutSeconds = o.timeout
			}
			cfg.DisableFallback = cfg.DisableFallback || o.noFallback
			cfg.DisableStats = cfg.DisableStats || o.noStats
			cfg.DisableAutoStart = cfg.DisableAutoStart || o.noAutoStart
			svc, err := console.Build(cfg, log.Logger, inference.LogPublisher{Logger: log.Logger})
			if err != nil {
				return err
			}
			if o.listModels {
				return printModels(cmd.Context(), cmd.OutOrStdout(), svc)
			}
			prompt := strings.TrimSpace(strings.Join(args, " "))
			if prompt == "" {
				return errors.New("a prompt is required")
			}
			return runPrompt(cmd.Context(), svc, o, prompt, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.model, "model", "", "Model to run (default: the configured default model)")
	f.BoolVar(&o.noStream, "no-stream", false, "Wait for the whole answer instead of streaming")
	f.Float64Var(&o.temperature, "temperature", console.DefaultTemperature, "Sampling temperature in [0, 1]")
	f.IntVar(&o.maxTokens, "max-tokens", console.DefaultMaxTokens, "Maximum tokens to generate")
	f.IntVar(&o.timeout, "timeout", 0, "Seconds before giving up (default 120)")
	f.BoolVar(&o.noFallback, "no-fallback", false, "Do not retry through the command-line fallback")
	f.BoolVar(&o.noStats, "no-stats", false, "Do not record this run in the stats file")
	f.BoolVar(&o.noAutoStart, "no-auto-start", false, "Never start the daemon")
	f.BoolVar(&o.listModels, "list-models", false, "List installed models and exit")
	_ = f.MarkHidden("no-stats")
	_ = f.MarkHidden("no-auto-start")
	return cmd
}

type generator interface {
	BuildRequest(model, prompt string, temperature *float64, maxTokens *int, stream bool) (inference.Request, error)
	Generate(ctx context.Context, req inference.Request, progress inference.ProgressFunc) (inference.Result, error)
}

func runPrompt(ctx context.Context, g generator, o runOptions, prompt string, stdout, stderr io.Writer) error {
	req, err := g.BuildRequest(o.model, prompt, &o.temperature, &o.maxTokens, !o.noStream)
	if err != nil {
		return err
	}
	var progress inference.ProgressFunc
	if req.Streaming {
		progress = func(p inference.Progress) {
			fmt.Fprintf(stderr, "Generating token %d...\n", p.Fragments)
		}
	}
	res, err := g.Generate(ctx, req, progress)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, inference.GeneratedTextMarker)
	fmt.Fprintln(stdout, res.Text)
	log.Info().
		Str("model", res.Model).
		Str("transport", res.Transport).
		Int("tokens", res.TokenCountEstimate).
		Float64("seconds", res.ElapsedSeconds).
		Msg("generation finished")
	return nil
}
