package main

import (
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// newStatusCmd prints the synchronization state of every configured shadow
// (thing, shadow name, local/cloud version, last sync time).
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show synchronization status for every configured shadow",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc := mustCLIContext(cmd.Context())

			comps, shutdown, err := buildComponents(cmd.Context(), cc, "", "", "")
			if err != nil {
				return err
			}
			defer shutdown()

			keys, err := comps.store.ListSyncedShadows(cmd.Context())
			if err != nil {
				return err
			}

			headers := []string{"THING", "SHADOW", "LOCAL VERSION", "CLOUD VERSION", "LAST SYNC"}
			rows := make([][]string, 0, len(keys))

			for _, key := range keys {
				info, err := comps.store.GetShadowSyncInformation(cmd.Context(), key)
				if err != nil {
					return err
				}

				shadowName := key.ShadowName
				if shadowName == "" {
					shadowName = "(classic)"
				}

				row := []string{key.ThingName, shadowName, "-", "-", "-"}

				if info != nil {
					row[2] = strconv.FormatInt(info.LocalVersion, 10)
					row[3] = strconv.FormatInt(info.CloudVersion, 10)

					if info.LastSyncTime > 0 {
						row[4] = formatTime(time.Unix(info.LastSyncTime, 0))
					}
				}

				rows = append(rows, row)
			}

			printTable(os.Stdout, headers, rows)

			return nil
		},
	}
}
