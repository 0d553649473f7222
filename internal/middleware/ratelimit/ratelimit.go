package ratelimitmw

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/auth_service/internal/logging"
	"github.com/Skotchmaster/auth_service/internal/metrics"
	"github.com/Skotchmaster/auth_service/internal/ratelimit"
)

type Counter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (ratelimit.Decision, error)
}

type Guard struct {
	Counter Counter
	Window  time.Duration
}

// Limit allows limit requests per window for each client address on route.
// When the counter store is unreachable requests pass through.
func (g *Guard) Limit(route string, limit int) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			ip := c.RealIP()

			d, err := g.Counter.Allow(ctx, route+":"+ip, limit, g.Window)
			if err != nil {
				logging.FromContext(ctx).Warn("rate_limit_unavailable", "route", route, "error", err)
				return next(c)
			}
			if !d.Allowed {
				metrics.RateLimitedTotal.WithLabelValues(route).Inc()
				logging.FromContext(ctx).Warn("rate_limited", "route", route, "remote_ip", ip, "count", d.Count, "limit", d.Limit)
				secs := int(math.Ceil(d.RetryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests")
			}
			return next(c)
		}
	}
}
