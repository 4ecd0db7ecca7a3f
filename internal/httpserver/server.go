package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/ecotrack/internal/broadcast"
	"github.com/pscheid92/ecotrack/internal/domain"
	"github.com/pscheid92/ecotrack/internal/platform/config"
)

type binReader interface {
	Snapshot() []domain.Bin
	Get(id int64) (domain.Bin, bool)
	Len() int
}

type connectionHub interface {
	Register(ctx context.Context, conn broadcast.Conn) error
	Unregister(conn broadcast.Conn)
	HandleMessage(ctx context.Context, conn broadcast.Conn, data []byte)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	store binReader
	hub   connectionHub

	upgrader     *websocket.Upgrader
	limits       *ConnectionLimits
	healthChecks []HealthCheck
	startTime    time.Time
}

func NewServer(cfg *config.Config, store binReader, hub connectionHub, healthChecks []HealthCheck) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:   e,
		config: cfg,
		store:  store,
		hub:    hub,
		limits: NewConnectionLimits(
			int64(cfg.MaxWebSocketConnections),
			cfg.MaxWebSocketConnectionsPerIP,
			cfg.WebSocketConnectRate,
			cfg.WebSocketConnectBurst,
		),
		healthChecks: healthChecks,
		startTime:    time.Now(),
	}

	srv.upgrader = srv.newUpgrader()
	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
