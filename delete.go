package main

import (
	"github.com/spf13/cobra"

	"github.com/edgeshadow/syncagent/internal/ipc"
	"github.com/edgeshadow/syncagent/internal/shadow"
)

// newDeleteCmd removes a local shadow document and propagates the delete
// toward the cloud (spec.md §4.10 HandleDelete).
func newDeleteCmd() *cobra.Command {
	var (
		shadowName string
		version    int64
		hasVersion bool
	)

	cmd := &cobra.Command{
		Use:   "delete <thing-name>",
		Short: "Delete a shadow document and propagate the delete to the cloud",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			comps, shutdown, err := buildComponents(cmd.Context(), cc, flagCloudEndpoint, flagTokenFile, "")
			if err != nil {
				return err
			}
			defer shutdown()

			req := ipc.DeleteRequest{Key: shadow.ShadowKey{ThingName: args[0], ShadowName: shadowName}}
			if hasVersion {
				req.Version = &version
			}

			if err := comps.ipc.HandleDelete(cmd.Context(), req, "cli"); err != nil {
				return err
			}

			cc.Statusf("Deleted %s\n", req.Key)

			return nil
		},
	}

	cmd.Flags().StringVar(&shadowName, "shadow-name", "", "named shadow (omit for the classic shadow)")
	cmd.Flags().Int64Var(&version, "version", 0, "expected current version (optimistic concurrency)")
	cmd.Flags().BoolVar(&hasVersion, "check-version", false, "reject the delete if --version doesn't match the current version")

	cmd.Flags().StringVar(&flagCloudEndpoint, "cloud-endpoint", "", "base URL of the cloud shadow service (omit to delete local state only)")
	cmd.Flags().StringVar(&flagTokenFile, "token-file", "/var/lib/edgeshadow/token.json", "path to the cached cloud bearer token")

	return cmd
}
