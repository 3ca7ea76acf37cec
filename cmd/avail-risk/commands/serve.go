package commands

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"avail-risk/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the MCP tools over stdio",
	Long:  `Serve the engine as MCP tools over stdio. When AVR_METRICS_ADDR is set, Prometheus metrics and a health check are exposed on that address.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(parent context.Context) error {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := mcp.NewServer(eng, Version)

	g, gctx := errgroup.WithContext(ctx)
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.MetricsAddr)
		})
	}
	g.Go(func() error {
		// The client closing stdio ends the session; stop the metrics listener with it.
		defer stop()
		return server.Serve(gctx)
	})

	err := g.Wait()
	log.Info().Msg("MCP server stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
