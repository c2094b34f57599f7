// Package config holds the console's runtime parameters.
package config

import (
	"fmt"
	"strings"
	"time"

	"modelconsole/internal/common/fsutil"
)

// Config holds runtime parameters. Zero values mean "unspecified" and are
// replaced by ApplyDefaults. Durations are whole seconds.
type Config struct {
	Addr string `json:"addr" yaml:"addr" toml:"addr"`

	DaemonHost       string `json:"daemon_host" yaml:"daemon_host" toml:"daemon_host"`
	DaemonPort       int    `json:"daemon_port" yaml:"daemon_port" toml:"daemon_port"`
	DaemonBin        string `json:"daemon_bin" yaml:"daemon_bin" toml:"daemon_bin"`
	DisableAutoStart bool   `json:"disable_auto_start" yaml:"disable_auto_start" toml:"disable_auto_start"`

	ProbeAttempts        int `json:"probe_attempts" yaml:"probe_attempts" toml:"probe_attempts"`
	ProbeIntervalSeconds int `json:"probe_interval_seconds" yaml:"probe_interval_seconds" toml:"probe_interval_seconds"`
	TransportAttempts    int `json:"transport_attempts" yaml:"transport_attempts" toml:"transport_attempts"`

	CLITimeoutSeconds         int `json:"cli_timeout_seconds" yaml:"cli_timeout_seconds" toml:"cli_timeout_seconds"`
	APITimeoutSeconds         int `json:"api_timeout_seconds" yaml:"api_timeout_seconds" toml:"api_timeout_seconds"`
	ShellTimeoutSeconds       int `json:"shell_timeout_seconds" yaml:"shell_timeout_seconds" toml:"shell_timeout_seconds"`
	InteractiveTimeoutSeconds int `json:"interactive_timeout_seconds" yaml:"interactive_timeout_seconds" toml:"interactive_timeout_seconds"`
	PullTimeoutSeconds        int `json:"pull_timeout_seconds" yaml:"pull_timeout_seconds" toml:"pull_timeout_seconds"`

	FallbackBin     string   `json:"fallback_bin" yaml:"fallback_bin" toml:"fallback_bin"`
	FallbackArgs    []string `json:"fallback_args" yaml:"fallback_args" toml:"fallback_args"`
	DisableFallback bool     `json:"disable_fallback" yaml:"disable_fallback" toml:"disable_fallback"`

	StatsFile    string `json:"stats_file" yaml:"stats_file" toml:"stats_file"`
	StatsLimit   int    `json:"stats_limit" yaml:"stats_limit" toml:"stats_limit"`
	DisableStats bool   `json:"disable_stats" yaml:"disable_stats" toml:"disable_stats"`
	SettingsFile string `json:"settings_file" yaml:"settings_file" toml:"settings_file"`
	DefaultModel string `json:"default_model" yaml:"default_model" toml:"default_model"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`
	LogFile   string `json:"log_file" yaml:"log_file" toml:"log_file"`

	GPUQueryBin       string `json:"gpu_query_bin" yaml:"gpu_query_bin" toml:"gpu_query_bin"`
	GPUTimeoutSeconds int    `json:"gpu_timeout_seconds" yaml:"gpu_timeout_seconds" toml:"gpu_timeout_seconds"`

	MaxBodyBytes int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORSEnabled  bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSOrigins  []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`

	// Source is the absolute path of the file Load read, empty for defaults.
	Source string `json:"-" yaml:"-" toml:"-"`
}

// Default returns a Config with every default applied.
func Default() Config {
	var c Config
	c.ApplyDefaults()
	return c
}

// ApplyDefaults fills unset fields.
func (c *Config) ApplyDefaults() {
	setStr := func(p *string, v string) {
		if strings.TrimSpace(*p) == "" {
			*p = v
		}
	}
	setInt := func(p *int, v int) {
		if *p <= 0 {
			*p = v
		}
	}
	setStr(&c.Addr, ":8080")
	setStr(&c.DaemonHost, "localhost")
	setInt(&c.DaemonPort, 11434)
	setStr(&c.DaemonBin, "ollama")
	setInt(&c.ProbeAttempts, 3)
	setInt(&c.ProbeIntervalSeconds, 3)
	setInt(&c.TransportAttempts, 2)
	setInt(&c.CLITimeoutSeconds, 120)
	setInt(&c.APITimeoutSeconds, 60)
	setInt(&c.ShellTimeoutSeconds, 30)
	setInt(&c.InteractiveTimeoutSeconds, 15)
	setInt(&c.PullTimeoutSeconds, 60)
	setStr(&c.StatsFile, "~/.modelconsole/stats/inference_stats.json")
	setInt(&c.StatsLimit, 200)
	setStr(&c.SettingsFile, "~/.modelconsole/settings.json")
	setStr(&c.DefaultModel, "llama3")
	setStr(&c.GPUQueryBin, "nvidia-smi")
	setInt(&c.GPUTimeoutSeconds, 5)
	setStr(&c.LogLevel, "info")
	setStr(&c.LogFormat, "console")
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 1 << 20
	}
}

// Validate rejects values the rest of the program cannot work with.
func (c Config) Validate() error {
	if c.DaemonPort <= 0 || c.DaemonPort > 65535 {
		return fmt.Errorf("daemon_port %d out of range", c.DaemonPort)
	}
	if c.ProbeIntervalSeconds > 5 {
		return fmt.Errorf("probe_interval_seconds %d exceeds 5", c.ProbeIntervalSeconds)
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		return fmt.Errorf("log_format must be console or json, got %q", c.LogFormat)
	}
	if c.StatsLimit <= 0 {
		return fmt.Errorf("stats_limit must be positive")
	}
	return nil
}

// ExpandPaths resolves a leading '~' in the file paths.
func (c *Config) ExpandPaths() error {
	for _, p := range []*string{&c.StatsFile, &c.SettingsFile, &c.LogFile} {
		v, err := fsutil.ExpandHome(*p)
		if err != nil {
			return err
		}
		*p = v
	}
	return nil
}

func seconds(n int) time.Duration { return time.Duration(n) * time.Second }

func (c Config) ProbeInterval() time.Duration      { return seconds(c.ProbeIntervalSeconds) }
func (c Config) CLITimeout() time.Duration         { return seconds(c.CLITimeoutSeconds) }
func (c Config) APITimeout() time.Duration         { return seconds(c.APITimeoutSeconds) }
func (c Config) ShellTimeout() time.Duration       { return seconds(c.ShellTimeoutSeconds) }
func (c Config) InteractiveTimeout() time.Duration { return seconds(c.InteractiveTimeoutSeconds) }
func (c Config) PullTimeout() time.Duration        { return seconds(c.PullTimeoutSeconds) }
func (c Config) GPUTimeout() time.Duration         { return seconds(c.GPUTimeoutSeconds) }
