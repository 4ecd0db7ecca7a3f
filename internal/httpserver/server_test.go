package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/ecotrack/internal/binstore"
	"github.com/pscheid92/ecotrack/internal/broadcast"
	"github.com/pscheid92/ecotrack/internal/platform/config"
)

type testEnv struct {
	srv   *Server
	store *binstore.Store
	hub   *broadcast.Hub
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		AppEnv:                       "test",
		Port:                         "3000",
		StaticDir:                    t.TempDir(),
		LogLevel:                     "info",
		LogFormat:                    "text",
		CORSAllowedOrigins:           "*",
		MaxWebSocketConnections:      100,
		MaxWebSocketConnectionsPerIP: 100,
		WebSocketConnectRate:         1000,
		WebSocketConnectBurst:        1000,
		WebSocketMaxMessageBytes:     4096,
		ClientBufferSize:             16,
		APIRateLimit:                 1000,
		APIRateBurst:                 1000,
	}
}

func newTestEnv(t *testing.T, cfg *config.Config, checks ...HealthCheck) *testEnv {
	t.Helper()
	store := binstore.New()
	hub := broadcast.NewHub(store, clockwork.NewRealClock(), cfg.ClientBufferSize)
	t.Cleanup(hub.Stop)

	return &testEnv{
		srv:   NewServer(cfg, store, hub, checks),
		store: store,
		hub:   hub,
	}
}

func (env *testEnv) do(method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	env.srv.echo.ServeHTTP(rec, req)
	return rec
}

// listen serves the echo instance on a real socket and returns its ws:// base URL.
func (env *testEnv) listen(t *testing.T) string {
	t.Helper()
	ts := httptest.NewServer(env.srv.echo)
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}
