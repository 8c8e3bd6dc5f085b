package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pricewatch/internal/notifier"
	"pricewatch/internal/store"
)

// NewTopCommand creates the top command.
func NewTopCommand(rootOpts *RootOptions) *cobra.Command {
	var n int

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Print the most valuable records in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := rootOpts.cfg
			if err := cfg.ValidateStore(); err != nil {
				return err
			}

			if n <= 0 {
				n = cfg.Notify.TopN
			}

			ctx := cmd.Context()

			st, err := store.Open(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Init(ctx); err != nil {
				return err
			}

			totals, err := st.Totals(ctx)
			if err != nil {
				return err
			}

			top, err := st.TopByPrice(ctx, n)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			fmt.Fprintf(out, "Total: %s across %d priced items\n", totals.TotalPrice.Dollars(), totals.Count)

			for _, line := range notifier.RecordTable(top) {
				fmt.Fprintln(out, line)
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&n, "limit", "n", 0, "number of records (default notify.top_n)")

	return cmd
}
