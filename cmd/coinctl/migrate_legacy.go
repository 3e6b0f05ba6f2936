package main

import (
	"context"

	"github.com/Ahmed-aleryani/coinmind/internal/modules/transactions"
	"github.com/spf13/cobra"
)

func migrateLegacyCmd(a *app) *cobra.Command {
	var (
		user string
		all  bool
	)

	cmd := &cobra.Command{
		Use:   "migrate-legacy",
		Short: "Move legacy single-amount rows into the multi-currency ledger",
		Long: `Migrate-legacy copies rows from the legacy transactions table into the
current ledger, recording each amount in its own currency. Rows already
migrated are skipped, so the command is safe to repeat.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := selectScope(user, all); err != nil {
				return err
			}
			return a.runReport(cmd, func(ctx context.Context, store *transactions.Store) (transactions.MigrationReport, error) {
				if all {
					return store.MigrateAllLegacy(ctx)
				}
				return store.MigrateLegacy(ctx, user)
			})
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "migrate a single user's legacy rows")
	cmd.Flags().BoolVar(&all, "all", false, "migrate every user's legacy rows")

	return cmd
}
