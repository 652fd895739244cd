package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/biodoia/contentfactory/internal/factory"
	"github.com/biodoia/contentfactory/internal/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// ServeCmd rappresenta il comando serve
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Content Factory HTTP server",
	Long: `Start the HTTP server that exposes the content pipeline.

POST /v1/generate runs the pipeline on a topic; add ?download=1 to receive
the markdown document as an attachment.`,
	Example: `  # Start server with default settings
  factory serve

  # Start in development mode with verbose logging
  factory serve --dev --verbose

  # Start with custom config
  factory serve -c /path/to/config.yaml`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log.Info().Msg("Starting Content Factory")

	svc, err := factory.New(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	defer svc.Close()

	srv := server.New(cfg, svc)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	log.Info().Msgf("Server running on http://%s", cfg.Server.Addr())
	log.Info().Msgf("Health check: http://%s/health", cfg.Server.Addr())
	if cfg.Monitoring.Prometheus.Enabled {
		log.Info().Msgf("Metrics: http://%s/metrics", cfg.Server.Addr())
	}
	log.Info().Msg("Press Ctrl+C to stop")

	return waitForShutdown(srv, errCh)
}

func waitForShutdown(srv *server.Server, errCh <-chan error) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	log.Info().Msg("Shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
		return err
	}

	log.Info().Msg("Content Factory stopped cleanly")
	return nil
}
