package main

import (
	"context"
	"errors"

	"github.com/Ahmed-aleryani/coinmind/internal/modules/transactions"
	"github.com/spf13/cobra"
)

var errUserOrAll = errors.New("exactly one of --user or --all is required")

func selectScope(user string, all bool) error {
	if (user == "") == !all {
		return errUserOrAll
	}
	return nil
}

func reconvertCmd(a *app) *cobra.Command {
	var (
		user string
		all  bool
	)

	cmd := &cobra.Command{
		Use:   "reconvert",
		Short: "Recompute converted amounts in each user's default currency",
		Long: `Reconvert re-runs currency normalization for stored transactions so their
converted amounts match the owner's current default currency. Rows whose
rate cannot be fetched are reported and left untouched.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := selectScope(user, all); err != nil {
				return err
			}
			return a.runReport(cmd, func(ctx context.Context, store *transactions.Store) (transactions.MigrationReport, error) {
				if all {
					return store.ReconvertAll(ctx)
				}
				return store.Reconvert(ctx, user)
			})
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "reconvert a single user's transactions")
	cmd.Flags().BoolVar(&all, "all", false, "reconvert every user's transactions")

	return cmd
}

// runReport opens the ledger, runs fn against the transaction store and prints its report
func (a *app) runReport(cmd *cobra.Command, fn func(context.Context, *transactions.Store) (transactions.MigrationReport, error)) error {
	ctx := cmd.Context()
	container, _, err := a.openContainer(ctx)
	if err != nil {
		return err
	}
	defer container.Close()

	report, err := fn(ctx, container.TransactionStore)
	if err != nil {
		return err
	}

	ev := a.log.Info()
	if report.Failed > 0 {
		ev = a.log.Warn()
	}
	ev.Str("command", cmd.Name()).
		Int("scanned", report.Scanned).
		Int("updated", report.Updated).
		Int("failed", report.Failed).
		Msg("Run complete")

	return printJSON(cmd.OutOrStdout(), report)
}
