package main

import (
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"modelconsole/internal/config"
	"modelconsole/internal/logging"
)

func init() { configureViper() }

func configureViper() {
	viper.SetEnvPrefix("modelconsole")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	// keys with no flag still come from MODELCONSOLE_* variables
	for _, k := range []string{"addr", "default-model", "stats-file", "settings-file", "daemon-bin", "cors-origins"} {
		_ = viper.BindEnv(k)
	}
}

// loadConfig reads --config (or defaults) and applies flag and environment
// overrides on top. Flags win over the environment, which wins over the file.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if p := viper.GetString("config"); p != "" {
		loaded, err := config.Load(p)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	overrideString(&cfg.LogLevel, "log-level")
	overrideString(&cfg.LogFormat, "log-format")
	overrideString(&cfg.LogFile, "log-file")
	overrideString(&cfg.DaemonHost, "host")
	if viper.IsSet("port") && viper.GetInt("port") > 0 {
		cfg.DaemonPort = viper.GetInt("port")
	}
	overrideString(&cfg.Addr, "addr")
	overrideString(&cfg.DefaultModel, "default-model")
	overrideString(&cfg.StatsFile, "stats-file")
	overrideString(&cfg.SettingsFile, "settings-file")
	overrideString(&cfg.DaemonBin, "daemon-bin")
	if viper.IsSet("cors-origins") {
		cfg.CORSOrigins = splitCSV(viper.GetString("cors-origins"))
		cfg.CORSEnabled = len(cfg.CORSOrigins) > 0
	}
	cfg.ApplyDefaults()
	if err := cfg.ExpandPaths(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func overrideString(dst *string, key string) {
	if viper.IsSet(key) {
		if v := strings.TrimSpace(viper.GetString(key)); v != "" {
			*dst = v
		}
	}
}

func setupLogger(cfg config.Config, out io.Writer) (zerolog.Logger, error) {
	return logging.Setup(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Out:    out,
	})
}

// splitCSV splits a comma-separated list, trimming blanks and dropping empty items.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
