package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/ecotrack/internal/metrics"
	"github.com/pscheid92/ecotrack/internal/platform/correlation"
	apperrors "github.com/pscheid92/ecotrack/internal/platform/errors"
)

// pongWait must exceed the hub writer's ping interval.
const pongWait = 60 * time.Second

func (s *Server) newUpgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     newCheckOrigin(s.config.AllowedOrigins(), s.config.AppEnv == "development"),
	}
}

// handleRoot serves WebSocket upgrades on the root path and a plain banner otherwise.
func (s *Server) handleRoot(c echo.Context) error {
	if websocket.IsWebSocketUpgrade(c.Request()) {
		return s.handleWebSocket(c)
	}
	if err := c.String(http.StatusOK, "EcoTrack Server is running"); err != nil {
		return fmt.Errorf("failed to write banner: %w", err)
	}
	return nil
}

func (s *Server) handleWebSocket(c echo.Context) error {
	ip := c.RealIP()
	ctx := c.Request().Context()

	if ok, reason := s.limits.Acquire(ip); !ok {
		metrics.WebSocketConnectionsRejected.WithLabelValues(string(reason)).Inc()
		metrics.WebSocketConnectionsTotal.WithLabelValues("rejected").Inc()
		slog.WarnContext(ctx, "WebSocket connection rejected", "ip", ip, "reason", reason)
		if reason == LimitReasonRate {
			return &apperrors.Error{Type: apperrors.TypeRateLimited, Message: "too many connection attempts"}
		}
		return apperrors.UnavailableError("connection limit reached", nil)
	}
	defer s.limits.Release(ip)

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already written the HTTP error.
		metrics.WebSocketConnectionsTotal.WithLabelValues("error").Inc()
		slog.WarnContext(ctx, "WebSocket upgrade failed", "ip", ip, "error", err)
		return nil
	}
	defer func() { _ = conn.Close() }()

	ctx = correlation.WithID(ctx, correlation.NewID())

	conn.SetReadLimit(s.config.WebSocketMaxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	if err := s.hub.Register(ctx, conn); err != nil {
		metrics.WebSocketConnectionsTotal.WithLabelValues("error").Inc()
		slog.ErrorContext(ctx, "Failed to register WebSocket connection", "error", err)
		return nil
	}
	metrics.WebSocketConnectionsTotal.WithLabelValues("success").Inc()

	connectedAt := time.Now()
	defer func() {
		s.hub.Unregister(conn)
		metrics.WebSocketConnectionDuration.Observe(time.Since(connectedAt).Seconds())
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				slog.WarnContext(ctx, "WebSocket read failed", "error", err)
			}
			return nil
		}
		s.hub.HandleMessage(ctx, conn, data)
	}
}
