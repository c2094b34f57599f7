package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return p
}

func TestLoadYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "addr: :9999\ndaemon_host: 10.0.0.5\ndaemon_port: 11500\ndefault_model: mistral\nfallback_args: [run, --no-stream]\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9999" || cfg.DaemonHost != "10.0.0.5" || cfg.DaemonPort != 11500 || cfg.DefaultModel != "mistral" {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
	if len(cfg.FallbackArgs) != 2 || cfg.FallbackArgs[1] != "--no-stream" {
		t.Fatalf("fallback args: %v", cfg.FallbackArgs)
	}
	// unset fields take defaults
	if cfg.APITimeout() != 60*time.Second || cfg.StatsLimit != 200 {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Source != p {
		t.Fatalf("source: got %q want %q", cfg.Source, p)
	}
}

func TestLoadJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.json", `{"addr":":7070","api_timeout_seconds":10,"probe_attempts":5,"cors_enabled":true,"cors_origins":["http://localhost:3000"]}`)
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":7070" || cfg.APITimeout() != 10*time.Second || cfg.ProbeAttempts != 5 || !cfg.CORSEnabled || len(cfg.CORSOrigins) != 1 {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.toml", "addr=\":8081\"\nlog_format=\"json\"\nstats_limit=50\ndisable_fallback=true\n")
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":8081" || cfg.LogFormat != "json" || cfg.StatsLimit != 50 || !cfg.DisableFallback {
		t.Fatalf("unexpected cfg: %+v", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error on empty path")
	}
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.txt", "not supported")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected unsupported extension error")
	}
}
