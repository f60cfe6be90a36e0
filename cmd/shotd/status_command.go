package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tools.zach/dev/shotd/internal/pidfile"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the daemon is running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if alive, pid := pidfile.Running(ctx.dataPaths().PID()); alive {
				fmt.Fprintf(out, "shotd is running (pid %d)\n", pid)
				return nil
			}
			fmt.Fprintln(out, "shotd is not running")
			return nil
		},
	}
}
