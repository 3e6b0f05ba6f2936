package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func rateCmd(a *app) *cobra.Command {
	var amount float64

	cmd := &cobra.Command{
		Use:   "rate FROM TO",
		Short: "Show the live exchange rate between two currencies",
		Example: `  coinctl rate USD EUR
  coinctl rate gbp jpy --amount 250`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			container, _, err := a.openContainer(ctx)
			if err != nil {
				return err
			}
			defer container.Close()

			quote, err := container.Normalizer.Convert(ctx, amount, args[0], args[1])
			if err != nil {
				return fmt.Errorf("failed to convert %s to %s: %w", args[0], args[1], err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "1 %s = %s %s\n", quote.From, strconv.FormatFloat(quote.Rate, 'f', -1, 64), quote.To)
			if amount != 1 {
				fmt.Fprintf(out, "%s %s = %.2f %s\n", strconv.FormatFloat(quote.Amount, 'f', -1, 64), quote.From, quote.Converted, quote.To)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&amount, "amount", 1, "amount to convert")

	return cmd
}
