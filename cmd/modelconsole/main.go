package main

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "modelconsole",
		Short:         "Console for a local Ollama daemon",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if _, err := setupLogger(cfg, cmd.ErrOrStderr()); err != nil {
				return err
			}
			log.Debug().Str("config", viper.GetString("config")).Msg("configuration loaded")
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Path to a config file (.yaml, .json or .toml)")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.String("log-format", "", "Log format: console or json")
	pf.String("log-file", "", "Also write logs to this file, rotated")
	pf.String("host", "", "Daemon host (default localhost)")
	pf.Int("port", 0, "Daemon port (default 11434)")
	cobra.CheckErr(viper.BindPFlags(pf))

	root.AddCommand(
		newServeCommand(),
		newRunCommand(),
		newModelsCommand(),
		newPingCommand(),
		newGPUCommand(),
	)
	return root
}
