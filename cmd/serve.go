// File: cmd/serve.go
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/smishguard/internal/observability"
	"github.com/xkilldash9x/smishguard/internal/server"
)

// newServeCmd creates the `serve` command.
func newServeCmd() *cobra.Command {
	var listen string

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts the HTTP analysis API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := configFromContext(ctx)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Server.ListenAddr = listen
			}

			logger := observability.GetLogger()
			c, err := initializeComponents(ctx, cfg, logger)
			if err != nil {
				return fmt.Errorf("failed to initialize analysis pipeline: %w", err)
			}
			defer c.Shutdown()

			handlers := server.NewHandlers(logger, c.Analyzer, c.reportStore(), c.Health, server.Limits{
				MaxTextLength: cfg.Server.MaxTextLength,
				MaxURLs:       cfg.Server.MaxURLs,
			})
			srv, err := server.New(cfg.Server, handlers, logger)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}

			logger.Info("Analysis API ready",
				zap.String("address", cfg.Server.ListenAddr),
				zap.Bool("reputation_configured", c.Checker.Configured()),
				zap.Bool("model_loaded", c.Classifier.IsLoaded()),
				zap.Bool("history", c.Store != nil))

			if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	serveCmd.Flags().StringVarP(&listen, "listen", "l", "", "Address to listen on. (Overrides config/env)")
	return serveCmd
}
