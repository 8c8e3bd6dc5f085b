package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pricewatch/internal/crawler"
	"pricewatch/internal/models"
)

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	var retry bool

	cmd := &cobra.Command{
		Use:   "check <url>",
		Short: "Fetch one reference and print the parsed fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := rootOpts.cfg
			if err := cfg.ValidateFetch(); err != nil {
				return err
			}

			client := crawler.NewClient(cfg, rootOpts.log)
			ref := models.ItemReference(args[0])

			var res models.FetchResult
			if retry {
				res = client.FetchWithRetry(cmd.Context(), ref)
			} else {
				res = client.Fetch(cmd.Context(), ref)
			}

			printResult(cmd, res)

			if !res.OK() {
				return fmt.Errorf("%s: %s", ref, res.Status)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&retry, "retry", false, "apply the retry policy")

	return cmd
}

func printResult(cmd *cobra.Command, res models.FetchResult) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Status: %s\n", res.Status)

	if res.StatusCode != 0 {
		fmt.Fprintf(out, "HTTP:   %d\n", res.StatusCode)
	}

	fmt.Fprintf(out, "Title:  %s\n", orDash(res.Title))
	fmt.Fprintf(out, "Set:    %s\n", orDash(res.Group))

	price := "-"
	if res.Price != nil {
		price = res.Price.Dollars()
	}

	fmt.Fprintf(out, "Price:  %s\n", price)

	if res.Err != nil {
		fmt.Fprintf(out, "Error:  %v\n", res.Err)
	}
}

func orDash(s *string) string {
	if s == nil {
		return "-"
	}

	return *s
}
