package httpserver

import (
	"log/slog"
	"net/http"
	"net/url"
	"slices"
)

// newCheckOrigin returns the upgrader's CheckOrigin. Empty origins (non-browser clients)
// and origins in allowed pass; "*" allows everything. In development localhost is allowed too.
func newCheckOrigin(allowed []string, isDevelopment bool) func(r *http.Request) bool {
	allowAll := slices.Contains(allowed, "*")

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")

		if allowAll || origin == "" || slices.Contains(allowed, origin) {
			return true
		}

		if isDevelopment && isLocalhostOrigin(origin) {
			return true
		}

		slog.Warn("WebSocket origin rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}

func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1"
}
