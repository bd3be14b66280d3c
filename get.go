package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/edgeshadow/syncagent/internal/shadow"
)

// newGetCmd reads a shadow document's current local state (spec.md §4.10
// HandleGet).
func newGetCmd() *cobra.Command {
	var shadowName string

	cmd := &cobra.Command{
		Use:   "get <thing-name>",
		Short: "Print a shadow document's current local state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			comps, shutdown, err := buildComponents(cmd.Context(), cc, "", "", "")
			if err != nil {
				return err
			}
			defer shutdown()

			key := shadow.ShadowKey{ThingName: args[0], ShadowName: shadowName}

			payload, err := comps.ipc.HandleGet(cmd.Context(), key)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(payload))

			return nil
		},
	}

	cmd.Flags().StringVar(&shadowName, "shadow-name", "", "named shadow (omit for the classic shadow)")

	return cmd
}
