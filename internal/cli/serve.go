package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/khanglvm/hybrid-rank/internal/app"
	"github.com/khanglvm/hybrid-rank/internal/server"
	"github.com/khanglvm/hybrid-rank/internal/version"
)

// NewServeCmd creates the 'serve' command for running the HTTP API.
func NewServeCmd() *cobra.Command {
	var (
		addr    string
		noWatch bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ranking HTTP API",
		Long: `Start the hybrid-rank HTTP API.

Endpoints:
  GET  /health                   Liveness and storage state
  GET  /status                   Catalog, index, rules and learning status
  GET  /metrics                  Prometheus metrics
  GET  /api/rank?q=...           Rank items (budget, category, brand, min_rating, limit, user)
  POST /api/items/{id}/like      Like an item
  GET  /api/preferences          Show preferences
  PUT  /api/preferences/tuning   Set price_sensitivity and rating_weight
  POST /api/preferences/reset    Reset preferences
  GET  /api/rules                List and check rules

The rules file is reloaded when it changes on disk.`,
		Example: `  # Listen on the configured address
  hybrid-rank serve

  # Listen on all interfaces
  hybrid-rank serve --addr 0.0.0.0:8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(commandContext(cmd), addr, !noWatch)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")
	cmd.Flags().BoolVar(&noWatch, "no-watch", false, "Do not reload rules on change")

	return cmd
}

// runServe starts the HTTP server and shuts down on SIGINT/SIGTERM.
func runServe(parent context.Context, addr string, watch bool) error {
	a, err := openApp(parent, app.Options{WatchRules: watch})
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn().Err(err).Msg("error during shutdown")
		}
	}()

	if addr == "" {
		addr = a.Config().Server.Addr
	}
	if err := a.PruneHistory(app.HistoryRetention); err != nil {
		log.Warn().Err(err).Msg("failed to prune history")
	}

	srv, err := server.New(a)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("version", version.Version).Str("addr", addr).Msg("hybrid-rank serving")
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	log.Info().Msg("shutdown complete")
	return nil
}
