package main

import (
	"github.com/spf13/cobra"
)

// newReloadCmd sends SIGHUP to the running daemon, triggering a config
// reload (spec.md §9 "global mutable config + listeners").
func newReloadCmd() *cobra.Command {
	var pidFile string

	cmd := &cobra.Command{
		Use:   "reload",
		Short: "Trigger the running daemon to reload its configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return sendSIGHUP(pidFile)
		},
	}

	cmd.Flags().StringVar(&pidFile, "pid-file", defaultPIDPath, "PID file path of the running daemon")

	return cmd
}
