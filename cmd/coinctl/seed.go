package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func seedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert any missing default categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			container, _, err := a.openContainer(ctx)
			if err != nil {
				return err
			}
			defer container.Close()

			added, err := container.CategoryRepo.SeedDefaults(ctx)
			if err != nil {
				return err
			}
			defaults, err := container.CategoryRepo.FindDefaults(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seeded %d default categories (%d total)\n", added, len(defaults))
			return nil
		},
	}
}
