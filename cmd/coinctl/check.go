package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func checkCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run a full integrity check and print ledger statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			container, _, err := a.openContainer(ctx)
			if err != nil {
				return err
			}
			defer container.Close()

			out := cmd.OutOrStdout()
			for _, db := range container.Databases() {
				if err := db.HealthCheck(ctx); err != nil {
					return err
				}
				stats, err := db.GetStats()
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: ok (%d pages, %d free, %d bytes WAL)\n",
					db.Name(), stats.PageCount, stats.FreelistCount, stats.WALSizeBytes)
			}
			return nil
		},
	}
}
