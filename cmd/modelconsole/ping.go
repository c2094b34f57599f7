package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"modelconsole/internal/console"
	"modelconsole/pkg/types"
)

func newPingCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check the daemon answers",
		Args:  cobra.NoArgs,
		RunE: withService(func(cmd *cobra.Command, svc *console.Service, _ []string) error {
			resp := types.PingResponse{Status: "ok", Daemon: svc.DaemonAddr()}
			pingErr := svc.Ping(cmd.Context())
			if pingErr != nil {
				resp.Status = "unreachable"
				resp.Error = pingErr.Error()
			}
			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
					return err
				}
			} else if pingErr == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "daemon at %s is running\n", resp.Daemon)
			}
			return pingErr
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")
	return cmd
}
