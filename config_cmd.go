package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// newConfigCmd groups configuration-inspection subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the resolved sync configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigValidateCmd())

	return cmd
}

// newConfigShowCmd prints the fully-resolved config snapshot as JSON,
// defaults included (spec.md §3 Config Snapshot).
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the fully-resolved configuration snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")

			return enc.Encode(cc.ConfigHolder.Snapshot())
		},
	}
}

// newConfigValidateCmd loads and validates the recipe without starting the
// daemon, surfacing every problem PersistentPreRunE's config.Load already
// found (config.Validate accumulates all errors in one pass).
func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration recipe",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid\n", cc.ConfigHolder.Path())

			return nil
		},
	}
}
