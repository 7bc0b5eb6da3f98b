package main

import (
	"github.com/spf13/cobra"

	"github.com/t0mer/wa-llm-exporter/config"
)

// cliOptions holds the flags that are not exporter settings
type cliOptions struct {
	ShowVersion bool
	Validate    bool
}

func newRootCommand() *cobra.Command {
	opts := &cliOptions{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Prometheus exporter for the WhatsApp LLM bot",
		Long: `Exposes the state of the WhatsApp LLM bot as Prometheus metrics.

Every scrape of /metrics reads the bot database and the WhatsApp HTTP API.
Each setting can be given as a flag or through the environment variable
named in its usage; flags win.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, opts)
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().BoolVar(&opts.ShowVersion, "version", false, "Show version information")
	cmd.Flags().BoolVar(&opts.Validate, "validate", false, "Validate configuration and exit")

	return cmd
}
