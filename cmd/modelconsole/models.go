package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/jmorganca/ollama/api"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"modelconsole/internal/console"
	"modelconsole/internal/registry"
	"modelconsole/pkg/types"
)

func newModelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage the daemon's models",
	}
	cmd.AddCommand(
		newModelsListCommand(),
		&cobra.Command{
			Use:   "pull <model>",
			Short: "Download a model",
			Args:  cobra.ExactArgs(1),
			RunE: withService(func(cmd *cobra.Command, svc *console.Service, args []string) error {
				last := ""
				err := svc.PullModel(cmd.Context(), args[0], func(p api.ProgressResponse) {
					if p.Status != last {
						last = p.Status
						fmt.Fprintln(cmd.ErrOrStderr(), p.Status)
					}
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "model %s downloaded\n", args[0])
				return nil
			}),
		},
		&cobra.Command{
			Use:   "delete <model>",
			Short: "Delete a model",
			Args:  cobra.ExactArgs(1),
			RunE: withService(func(cmd *cobra.Command, svc *console.Service, args []string) error {
				if err := svc.DeleteModel(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "model %s deleted\n", args[0])
				return nil
			}),
		},
		&cobra.Command{
			Use:   "set-default <model>",
			Short: "Set the default model",
			Args:  cobra.ExactArgs(1),
			RunE: withService(func(cmd *cobra.Command, svc *console.Service, args []string) error {
				if err := svc.SetDefaultModel(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "default model set to %s\n", args[0])
				return nil
			}),
		},
		newModelsCurrentCommand(),
		&cobra.Command{
			Use:   "info",
			Short: "Show recommended models",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return printRecommended(cmd.OutOrStdout(), registry.Recommended())
			},
		},
	)
	return cmd
}

func newModelsListCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List installed models",
		Args:  cobra.NoArgs,
		RunE: withService(func(cmd *cobra.Command, svc *console.Service, _ []string) error {
			if asJSON {
				models, err := svc.Models(cmd.Context())
				if err != nil {
					return err
				}
				if models == nil {
					models = []types.Model{}
				}
				return writeJSON(cmd.OutOrStdout(), types.ModelsResponse{Models: models})
			}
			return printModels(cmd.Context(), cmd.OutOrStdout(), svc)
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func newModelsCurrentCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "current",
		Short: "Print the default model",
		Args:  cobra.NoArgs,
		RunE: withService(func(cmd *cobra.Command, svc *console.Service, _ []string) error {
			cur, err := svc.CurrentModel(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), types.CurrentModelResponse{Current: cur})
			}
			if cur == "" {
				cur = "(none)"
			}
			fmt.Fprintln(cmd.OutOrStdout(), cur)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

// withService loads the configuration and builds the console service before fn.
func withService(fn func(cmd *cobra.Command, svc *console.Service, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		svc, err := console.Build(cfg, log.Logger, nil)
		if err != nil {
			return err
		}
		return fn(cmd, svc, args)
	}
}

type modelLister interface {
	Models(ctx context.Context) ([]types.Model, error)
}

func printModels(ctx context.Context, w io.Writer, l modelLister) error {
	models, err := l.Models(ctx)
	if err != nil {
		return err
	}
	if len(models) == 0 {
		fmt.Fprintln(w, "no models installed")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tDIGEST\tMODIFIED\tDEFAULT")
	for _, m := range models {
		def := ""
		if m.Default {
			def = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.Name, m.SizeHuman, m.Digest, m.ModifiedAt.Format("2006-01-02 15:04"), def)
	}
	return tw.Flush()
}

func printRecommended(w io.Writer, models []types.RecommendedModel) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tDESCRIPTION")
	for _, m := range models {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", m.Name, m.Size, m.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "\nDownload one with: modelconsole models pull <name>")
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
