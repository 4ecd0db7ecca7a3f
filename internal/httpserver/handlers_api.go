package httpserver

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	apperrors "github.com/pscheid92/ecotrack/internal/platform/errors"
)

func (s *Server) registerAPIRoutes() {
	api := s.echo.Group("/api", newRateLimiter(s.config.APIRateLimit, s.config.APIRateBurst))
	api.GET("/bins", s.handleListBins)
	api.GET("/bins/:id", s.handleGetBin)
}

func (s *Server) handleListBins(c echo.Context) error {
	if err := c.JSON(http.StatusOK, s.store.Snapshot()); err != nil {
		return fmt.Errorf("failed to write bins response: %w", err)
	}
	return nil
}

func (s *Server) handleGetBin(c echo.Context) error {
	raw := c.Param("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return apperrors.ValidationError("invalid bin id").WithField("id", raw)
	}

	bin, ok := s.store.Get(id)
	if !ok {
		return apperrors.NotFoundError("bin not found").WithField("bin_id", id)
	}

	if err := c.JSON(http.StatusOK, bin); err != nil {
		return fmt.Errorf("failed to write bin response: %w", err)
	}
	return nil
}
