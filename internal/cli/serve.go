package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fluxbase-eu/pageweight/internal/api"
	"github.com/fluxbase-eu/pageweight/internal/config"
	"github.com/fluxbase-eu/pageweight/internal/fetch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP analysis API",
	Long: `Serve starts the HTTP server exposing the analysis pipeline. Clients
POST design snapshots to /api/v1/analyze and manage manual estimates under
/api/v1/manual-estimates. Prometheus metrics are served on /metrics.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fetch.InitVips()
	defer fetch.ShutdownVips()

	server := api.NewServer(cfg)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
		return err
	}
	log.Info().Msg("Server stopped")
	return nil
}
