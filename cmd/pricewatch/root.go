package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pricewatch/internal/config"
	"pricewatch/internal/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	LogFormat  string

	cfg *config.Config
	log *logger.Logger
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "pricewatch",
		Short:         "Refresh catalog prices from PriceCharting",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override logging.level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "override logging.format (text|json)")

	cmd.AddCommand(NewRefreshCommand(opts))
	cmd.AddCommand(NewTopCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))

	return cmd
}

// load reads configuration without validating it; each command validates
// the parts it needs.
func (o *RootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Read(o.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}

	if o.LogFormat != "" {
		cfg.Logging.Format = o.LogFormat
	}

	o.cfg = cfg
	o.log = logger.New(logger.Options{
		Writer: cmd.ErrOrStderr(),
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	return nil
}
