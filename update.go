package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/edgeshadow/syncagent/internal/ipc"
	"github.com/edgeshadow/syncagent/internal/shadow"
)

// newUpdateCmd applies a local shadow mutation and propagates it toward
// the cloud (spec.md §4.10 HandleUpdate). The payload is read from stdin.
func newUpdateCmd() *cobra.Command {
	var (
		shadowName string
		version    int64
		hasVersion bool
	)

	cmd := &cobra.Command{
		Use:   "update <thing-name>",
		Short: "Apply a shadow update read from stdin and propagate it to the cloud",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc := mustCLIContext(cmd.Context())

			payload, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("reading update payload from stdin: %w", err)
			}

			comps, shutdown, err := buildComponents(cmd.Context(), cc, flagCloudEndpoint, flagTokenFile, "")
			if err != nil {
				return err
			}
			defer shutdown()

			req := ipc.UpdateRequest{
				Key:     shadow.ShadowKey{ThingName: args[0], ShadowName: shadowName},
				Payload: payload,
			}
			if hasVersion {
				req.Version = &version
			}

			resp, err := comps.ipc.HandleUpdate(cmd.Context(), req, "cli")
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), string(resp.Payload))

			return nil
		},
	}

	cmd.Flags().StringVar(&shadowName, "shadow-name", "", "named shadow (omit for the classic shadow)")
	cmd.Flags().Int64Var(&version, "version", 0, "expected current version (optimistic concurrency)")
	cmd.Flags().BoolVar(&hasVersion, "check-version", false, "reject the update if --version doesn't match the current version")

	cmd.Flags().StringVar(&flagCloudEndpoint, "cloud-endpoint", "", "base URL of the cloud shadow service (omit to update local state only)")
	cmd.Flags().StringVar(&flagTokenFile, "token-file", "/var/lib/edgeshadow/token.json", "path to the cached cloud bearer token")

	return cmd
}
