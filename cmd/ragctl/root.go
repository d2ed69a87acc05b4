package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kirillkom/agrisense-rag/internal/bootstrap"
	"github.com/kirillkom/agrisense-rag/internal/config"
	"github.com/kirillkom/agrisense-rag/internal/observability/logging"
)

const serviceName = "ragctl"

func newRootCmd() *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "ragctl",
		Short:         "Query the agricultural policy corpus from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			slog.SetDefault(logging.NewWithWriter(os.Stderr, serviceName, logLevel, "pretty"))
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(
		newSearchCmd(),
		newAskCmd(),
		newTokenizeCmd(),
		newChunksCmd(),
		newEventsCmd(),
	)
	return root
}

// openApp loads configuration and wires the query side for one command run.
func openApp(ctx context.Context) (*bootstrap.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return bootstrap.New(ctx, cfg, serviceName)
}
