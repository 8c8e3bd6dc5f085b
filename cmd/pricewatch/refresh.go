package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pricewatch/internal/crawler"
	"pricewatch/internal/notifier"
	"pricewatch/internal/pipeline"
	"pricewatch/internal/store"
)

// NewRefreshCommand creates the refresh command.
func NewRefreshCommand(rootOpts *RootOptions) *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "refresh",
		Short: "Run one full price refresh",
		Long: `Load the workbook, fetch every linked item, upsert the results into the
store, write the workbook and export back, and send the summary.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := rootOpts.cfg
			if concurrency > 0 {
				cfg.Batch.Concurrency = concurrency
			}

			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}

			ctx := cmd.Context()
			log := rootOpts.log

			st, err := store.Open(ctx, cfg.Store)
			if err != nil {
				return err
			}
			defer st.Close()

			var opts []pipeline.Option
			if cfg.Logging.ShowProgress {
				opts = append(opts, pipeline.WithProgressWriter(cmd.ErrOrStderr()))
			}

			runner := pipeline.NewRunner(
				cfg,
				crawler.NewClient(cfg, log),
				st,
				notifier.New(cfg.Notify, cmd.OutOrStdout(), log),
				log,
				opts...,
			)

			report, err := runner.Run(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"Run %s: %d scheduled, %d succeeded, %d failed, %d store errors in %s\n",
				report.RunID, report.Scheduled, report.Succeeded, report.Failed, report.StoreErrors,
				report.Elapsed.Round(time.Millisecond))

			return nil
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "override batch.concurrency")

	return cmd
}
