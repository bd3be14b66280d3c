package main

import (
	"github.com/spf13/cobra"
)

// newListCmd paginates a thing's named shadows (spec.md §4.10
// HandleListNamedShadowsForThing).
func newListCmd() *cobra.Command {
	var (
		pageSize  int
		nextToken string
	)

	cmd := &cobra.Command{
		Use:   "list <thing-name>",
		Short: "List the named shadows configured for a thing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			comps, shutdown, err := buildComponents(cmd.Context(), cc, "", "", "")
			if err != nil {
				return err
			}
			defer shutdown()

			resp, err := comps.ipc.HandleListNamedShadowsForThing(cmd.Context(), args[0], pageSize, nextToken)
			if err != nil {
				return err
			}

			for _, name := range resp.ShadowNames {
				cmd.Println(name)
			}

			if resp.NextToken != "" {
				cc.Statusf("next-token: %s\n", resp.NextToken)
			}

			return nil
		},
	}

	cmd.Flags().IntVar(&pageSize, "page-size", 50, "maximum shadow names per page")
	cmd.Flags().StringVar(&nextToken, "next-token", "", "pagination token from a previous page")

	return cmd
}
