package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/ecotrack/internal/binstore"
	"github.com/pscheid92/ecotrack/internal/broadcast"
	"github.com/pscheid92/ecotrack/internal/httpserver"
	"github.com/pscheid92/ecotrack/internal/metrics"
	"github.com/pscheid92/ecotrack/internal/platform/config"
	"github.com/pscheid92/ecotrack/internal/platform/logging"
	"github.com/pscheid92/ecotrack/internal/platform/version"
	"golang.org/x/sync/errgroup"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

// serve runs the HTTP server until ctx is cancelled or the listener fails, then shuts the
// server down and stops the hub. Hijacked WebSocket connections outlive Shutdown; the hub
// closes them.
func serve(ctx context.Context, cfg *config.Config, srv *httpserver.Server, hub *broadcast.Hub) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		hub.Stop()
		return err
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func main() {
	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

	info := version.Get()
	metrics.BuildInfo.WithLabelValues(info.Labels()...).Set(1)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", info.Version, "commit", info.Commit)

	store := binstore.New()
	hub := broadcast.NewHub(store, clockwork.NewRealClock(), cfg.ClientBufferSize)

	srv := httpserver.NewServer(cfg, store, hub, []httpserver.HealthCheck{
		{Name: "hub", Check: hub.Ready},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := serve(ctx, cfg, srv, hub)
	stop()

	if err != nil {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}
}
