package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"3000"`
	StaticDir string `env:"STATIC_DIR" default:"public"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" default:"*"`

	MaxWebSocketConnections      int     `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`
	MaxWebSocketConnectionsPerIP int     `env:"MAX_WEBSOCKET_CONNECTIONS_PER_IP" default:"100"`
	WebSocketConnectRate         float64 `env:"WEBSOCKET_CONNECT_RATE" default:"10"`
	WebSocketConnectBurst        int     `env:"WEBSOCKET_CONNECT_BURST" default:"20"`
	WebSocketMaxMessageBytes     int64   `env:"WS_MAX_MESSAGE_BYTES" default:"4096"`
	ClientBufferSize             int     `env:"CLIENT_BUFFER_SIZE" default:"64"`

	APIRateLimit float64 `env:"API_RATE_LIMIT" default:"20"`
	APIRateBurst int     `env:"API_RATE_BURST" default:"40"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS on commas, dropping blanks.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSAllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", cfg.Port)
	}

	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", cfg.LogLevel)
	}

	switch cfg.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	positive := map[string]float64{
		"MAX_WEBSOCKET_CONNECTIONS":        float64(cfg.MaxWebSocketConnections),
		"MAX_WEBSOCKET_CONNECTIONS_PER_IP": float64(cfg.MaxWebSocketConnectionsPerIP),
		"WEBSOCKET_CONNECT_RATE":           cfg.WebSocketConnectRate,
		"WEBSOCKET_CONNECT_BURST":          float64(cfg.WebSocketConnectBurst),
		"WS_MAX_MESSAGE_BYTES":             float64(cfg.WebSocketMaxMessageBytes),
		"CLIENT_BUFFER_SIZE":               float64(cfg.ClientBufferSize),
		"API_RATE_LIMIT":                   cfg.APIRateLimit,
		"API_RATE_BURST":                   float64(cfg.APIRateBurst),
	}
	for name, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	if cfg.MaxWebSocketConnectionsPerIP > cfg.MaxWebSocketConnections {
		return errors.New("MAX_WEBSOCKET_CONNECTIONS_PER_IP must not exceed MAX_WEBSOCKET_CONNECTIONS")
	}

	if cfg.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}

	if len(cfg.AllowedOrigins()) == 0 {
		return errors.New("CORS_ALLOWED_ORIGINS must list at least one origin")
	}

	return nil
}
