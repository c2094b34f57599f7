package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"modelconsole/internal/console"
	"modelconsole/pkg/types"
)

func newGPUCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "gpu",
		Short: "Show GPU utilisation and memory",
		Args:  cobra.NoArgs,
		RunE: withService(func(cmd *cobra.Command, svc *console.Service, _ []string) error {
			gpus, err := svc.GPUs(cmd.Context())
			if asJSON {
				resp := types.GPUInfoResponse{GPUs: gpus}
				if resp.GPUs == nil {
					resp.GPUs = []types.GPU{}
				}
				if err != nil {
					resp.Error = err.Error()
				}
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			if err != nil {
				return err
			}
			return printGPUs(cmd.OutOrStdout(), gpus)
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}

func printGPUs(w io.Writer, gpus []types.GPU) error {
	if len(gpus) == 0 {
		fmt.Fprintln(w, "no GPUs found")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tNAME\tUTIL %\tMEM USED MiB\tMEM TOTAL MiB")
	for _, g := range gpus {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", g.Index, g.Name, g.Utilization, g.MemoryUsed, g.MemoryTotal)
	}
	return tw.Flush()
}
