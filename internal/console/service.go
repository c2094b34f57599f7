// Package console is the application layer shared by the HTTP API and the
// CLI: inference, the model catalog, the default-model setting, usage stats
// and shell commands.
package console

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmorganca/ollama/api"
	"github.com/rs/zerolog"

	"modelconsole/internal/daemon"
	"modelconsole/internal/guard"
	"modelconsole/internal/inference"
	"modelconsole/internal/registry"
	"modelconsole/internal/shell"
	"modelconsole/internal/stats"
	"modelconsole/pkg/types"
)

// Request defaults when the caller leaves them out.
const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 500
)

// Daemon is the subset of *daemon.Client the service uses.
type Daemon interface {
	registry.TagLister
	Ping(ctx context.Context) error
	Pull(ctx context.Context, name string, fn func(api.ProgressResponse)) error
	Delete(ctx context.Context, name string) error
	Addr() string
}

// Runner runs inference requests; *inference.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, req inference.Request, opts ...inference.RunOption) (inference.Result, error)
}

// SettingsStore persists the default model; *settings.Store satisfies it.
type SettingsStore interface {
	DefaultModel() (string, error)
	SetDefaultModel(name string) error
}

// GPUQuerier reports visible GPUs; gpu.Querier satisfies it.
type GPUQuerier interface {
	Query(ctx context.Context) ([]types.GPU, error)
}

// Timeouts bounds each kind of operation.
type Timeouts struct {
	API         time.Duration
	CLI         time.Duration
	Shell       time.Duration
	Interactive time.Duration
	Pull        time.Duration
}

// Service implements every console operation.
type Service struct {
	runner   Runner
	daemon   Daemon
	probe    inference.Prober
	settings SettingsStore
	stats    stats.Source
	shell    shell.Runner
	gpu      GPUQuerier
	timeouts Timeouts
	log      zerolog.Logger
}

// Options wires a Service.
type Options struct {
	Runner   Runner
	Daemon   Daemon
	Probe    inference.Prober
	Settings SettingsStore
	Stats    stats.Source
	Shell    shell.Runner
	GPU      GPUQuerier // nil reports no GPUs
	Timeouts Timeouts
	Logger   zerolog.Logger
}

// New builds a Service.
func New(o Options) *Service {
	t := o.Timeouts
	if t.API <= 0 {
		t.API = 60 * time.Second
	}
	if t.CLI <= 0 {
		t.CLI = 120 * time.Second
	}
	if t.Shell <= 0 {
		t.Shell = 30 * time.Second
	}
	if t.Interactive <= 0 {
		t.Interactive = 15 * time.Second
	}
	if t.Pull <= 0 {
		t.Pull = 60 * time.Second
	}
	return &Service{
		runner:   o.Runner,
		daemon:   o.Daemon,
		probe:    o.Probe,
		settings: o.Settings,
		stats:    o.Stats,
		shell:    o.Shell,
		gpu:      o.GPU,
		timeouts: t,
		log:      o.Logger,
	}
}

// TestModel runs one prompt on behalf of the HTTP API with the API deadline.
func (s *Service) TestModel(ctx context.Context, in types.TestModelRequest) (inference.Result, error) {
	req, err := s.BuildRequest(in.Model, in.Prompt, in.Temperature, in.MaxTokens, in.Stream)
	if err != nil {
		return inference.Result{}, err
	}
	return s.runner.Run(ctx, req, inference.WithDeadline(s.timeouts.API))
}

// Generate runs a request on behalf of the CLI with the CLI deadline.
func (s *Service) Generate(ctx context.Context, req inference.Request, progress inference.ProgressFunc) (inference.Result, error) {
	opts := []inference.RunOption{inference.WithDeadline(s.timeouts.CLI)}
	if progress != nil {
		opts = append(opts, inference.WithProgress(progress))
	}
	return s.runner.Run(ctx, req, opts...)
}

// BuildRequest fills defaults: the stored default model, temperature 0.7 and 500 tokens.
func (s *Service) BuildRequest(model, prompt string, temperature *float64, maxTokens *int, stream bool) (inference.Request, error) {
	if model == "" {
		m, err := s.storedModel()
		if err != nil {
			return inference.Request{}, err
		}
		if m == "" {
			return inference.Request{}, &inference.Error{Kind: inference.InvalidRequest, Detail: "no model given and no default model configured"}
		}
		model = m
	}
	req := inference.Request{Model: model, Prompt: prompt, Temperature: DefaultTemperature, MaxTokens: DefaultMaxTokens, Streaming: stream}
	if temperature != nil {
		req.Temperature = *temperature
	}
	if maxTokens != nil {
		req.MaxTokens = *maxTokens
	}
	return req, nil
}

// Models lists installed models with the default flagged.
func (s *Service) Models(ctx context.Context) ([]types.Model, error) {
	def, _ := s.storedModel()
	models, err := registry.Load(ctx, s.daemon, def)
	if err != nil {
		return nil, s.classify("", err)
	}
	return models, nil
}

// CurrentModel returns the default model. When the stored default is not
// installed the first installed model takes its place and is persisted. With
// the daemon unreachable the stored value is returned as is.
func (s *Service) CurrentModel(ctx context.Context) (string, error) {
	cur, err := s.storedModel()
	if err != nil {
		return "", err
	}
	models, err := registry.Load(ctx, s.daemon, "")
	if err != nil || len(models) == 0 || (cur != "" && registry.Contains(models, cur)) {
		return cur, nil
	}
	next := models[0].Name
	if err := s.settings.SetDefaultModel(next); err != nil {
		return "", err
	}
	s.log.Info().Str("previous", cur).Str("model", next).Msg("default model not installed; switched")
	return next, nil
}

func (s *Service) storedModel() (string, error) {
	m, err := s.settings.DefaultModel()
	if err != nil {
		return "", fmt.Errorf("read default model: %w", err)
	}
	return m, nil
}

// SetDefaultModel stores name after checking the daemon has it.
func (s *Service) SetDefaultModel(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	models, err := registry.Load(ctx, s.daemon, "")
	if err != nil {
		return s.classify(name, err)
	}
	if !registry.Contains(models, name) {
		return &inference.Error{Kind: inference.ModelNotFound, Model: name}
	}
	if err := s.settings.SetDefaultModel(name); err != nil {
		return err
	}
	s.log.Info().Str("model", name).Msg("default model updated")
	return nil
}

// PullModel downloads name under the pull deadline. When no default model is
// set the pulled model becomes the default.
func (s *Service) PullModel(ctx context.Context, name string, progress func(api.ProgressResponse)) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := s.ensureDaemon(ctx); err != nil {
		return err
	}
	_, err := guard.RunWithDeadline(ctx, s.timeouts.Pull, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.daemon.Pull(ctx, name, progress)
	})
	if err != nil {
		return s.classify(name, err)
	}
	s.log.Info().Str("model", name).Msg("model pulled")
	if cur, err := s.storedModel(); err == nil && cur == "" {
		if err := s.settings.SetDefaultModel(name); err != nil {
			s.log.Warn().Err(err).Msg("could not store default model")
		}
	}
	return nil
}

// DeleteModel removes name. Deleting the default moves the default to the
// first remaining model, or clears it.
func (s *Service) DeleteModel(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := s.ensureDaemon(ctx); err != nil {
		return err
	}
	cur, _ := s.storedModel()
	if err := s.daemon.Delete(ctx, name); err != nil {
		return s.classify(name, err)
	}
	s.log.Info().Str("model", name).Msg("model deleted")
	if cur == "" || !registry.SameModel(cur, name) {
		return nil
	}
	next := ""
	if models, err := registry.Load(ctx, s.daemon, ""); err == nil && len(models) > 0 {
		next = models[0].Name
	}
	if err := s.settings.SetDefaultModel(next); err != nil {
		s.log.Warn().Err(err).Msg("could not update default model")
	}
	return nil
}

// Ping checks the daemon once.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.daemon.Ping(ctx); err != nil {
		return s.classify("", err)
	}
	return nil
}

// DaemonAddr is the daemon base URL.
func (s *Service) DaemonAddr() string { return s.daemon.Addr() }

// History returns stored records newest first.
func (s *Service) History(ctx context.Context, model string) ([]stats.Record, error) {
	recs, err := s.stats.Records(ctx)
	if err != nil {
		return nil, err
	}
	return stats.History(recs, model), nil
}

// Usage aggregates stored records per model.
func (s *Service) Usage(ctx context.Context) ([]stats.ModelUsage, error) {
	recs, err := s.stats.Records(ctx)
	if err != nil {
		return nil, err
	}
	return stats.Usage(recs), nil
}

// Performance reports speed per model.
func (s *Service) Performance(ctx context.Context) ([]stats.ModelPerformance, error) {
	recs, err := s.stats.Records(ctx)
	if err != nil {
		return nil, err
	}
	return stats.Performance(recs), nil
}

// errNoGPUQuery is returned by GPUs when no querier is wired.
var errNoGPUQuery = errors.New("gpu query not configured")

// GPUs lists the visible GPUs.
func (s *Service) GPUs(ctx context.Context) ([]types.GPU, error) {
	if s.gpu == nil {
		return nil, errNoGPUQuery
	}
	return s.gpu.Query(ctx)
}

// RecommendedModels is the suggested-models table.
func (s *Service) RecommendedModels() []types.RecommendedModel {
	return registry.Recommended()
}

// Execute runs a shell command under the shell deadline.
func (s *Service) Execute(ctx context.Context, command string) (shell.Result, error) {
	return s.shell.Run(ctx, command, s.timeouts.Shell)
}

// ExecuteInteractive runs a shell command with stdin input under the interactive deadline.
func (s *Service) ExecuteInteractive(ctx context.Context, command, input string) (shell.Result, error) {
	return s.shell.RunInteractive(ctx, command, input, s.timeouts.Interactive)
}

func (s *Service) ensureDaemon(ctx context.Context) error {
	if s.probe == nil || s.probe.EnsureAvailable(ctx, 3) {
		return nil
	}
	return &inference.Error{Kind: inference.ServiceUnavailable, Detail: s.daemon.Addr()}
}

func checkName(name string) error {
	if !inference.ValidModelName(name) {
		return &inference.Error{Kind: inference.InvalidRequest, Model: name, Detail: fmt.Sprintf("invalid model name %q", name)}
	}
	return nil
}

// classify maps daemon and guard failures onto the inference error kinds so
// every surface reports them the same way.
func (s *Service) classify(model string, err error) error {
	var ie *inference.Error
	switch {
	case errors.As(err, &ie):
		return err
	case daemon.IsModelNotFound(err):
		return &inference.Error{Kind: inference.ModelNotFound, Model: model, Err: err}
	case daemon.IsUnavailable(err):
		return &inference.Error{Kind: inference.ServiceUnavailable, Model: model, Detail: s.daemon.Addr(), Err: err}
	case guard.IsTimeout(err):
		return &inference.Error{Kind: inference.Timeout, Model: model, Detail: s.timeouts.Pull.String(), Err: err}
	case errors.Is(err, guard.ErrCancelled), errors.Is(err, context.Canceled):
		return &inference.Error{Kind: inference.Timeout, Model: model, Err: err}
	default:
		return &inference.Error{Kind: inference.TransportFailure, Model: model, Err: err}
	}
}
