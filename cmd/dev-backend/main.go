package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/outbreak-reporting/report-client/internal/config"
	"github.com/outbreak-reporting/report-client/internal/devbackend"
	"github.com/outbreak-reporting/report-client/internal/logging"
)

func main() {
	var (
		configFile string
		seed       bool
	)

	cmd := &cobra.Command{
		Use:           "dev-backend",
		Short:         "Run an in-memory outbreak reporting backend for local development",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := config.NewManager(configFile)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if err := manager.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			logger := logging.New(manager.GetConfig().Logging)

			store := devbackend.NewStore()
			if seed {
				devbackend.Seed(store)
			}

			server, err := devbackend.NewServer(*manager.GetServerConfig(), store, logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := server.Start(ctx); err != nil {
				return err
			}
			logger.Info("Development backend stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "path to config file")
	cmd.Flags().BoolVar(&seed, "seed", true, "load one sample report per status")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
