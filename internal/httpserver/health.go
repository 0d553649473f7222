package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/logging"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type HealthHTTP struct {
	DB    Pinger
	Cache Pinger
}

func (h *HealthHTTP) Live(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func (h *HealthHTTP) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := echo.Map{"db": "ok", "cache": "ok"}
	code := http.StatusOK
	if err := h.DB.Ping(ctx); err != nil {
		status["db"] = "unavailable"
		code = http.StatusServiceUnavailable
	}
	if h.Cache != nil {
		if err := h.Cache.Ping(ctx); err != nil {
			status["cache"] = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}
	return c.JSON(code, status)
}

func (h *HealthHTTP) DBStatus(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := h.DB.Ping(ctx); err != nil {
		logging.FromContext(ctx).Error("db_status_failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "database connection failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "database connection ok"})
}
