package httpserver

import (
	"log/slog"
	"net"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Skotchmaster/auth_service/internal/config"
	authmw "github.com/Skotchmaster/auth_service/internal/middleware/auth"
	"github.com/Skotchmaster/auth_service/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/auth_service/internal/middleware/logging"
	ratelimitmw "github.com/Skotchmaster/auth_service/internal/middleware/ratelimit"
	"github.com/Skotchmaster/auth_service/internal/service"
)

type Deps struct {
	Logger *slog.Logger

	AuthHandler      *AuthHTTP
	RolesHandler     *RolesHTTP
	TranslateHandler *TranslateHTTP
	HealthHandler    *HealthHTTP

	Sessions authmw.Authenticator
	Perms    authmw.Authorizer
	Guard    *ratelimitmw.Guard
	Limits   config.RateLimits

	// CSRF enables double-submit checks for cookie-authenticated writes.
	CSRF         bool
	CookieSecure bool
	// TrustedProxies are CIDRs allowed to set X-Forwarded-For. Empty means
	// the peer address is the client address.
	TrustedProxies []string
}

func New(d *Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = ErrorHandler
	e.IPExtractor = ipExtractor(d.TrustedProxies)

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(loggingmw.RequestLogger(d.Logger))
	if d.CSRF {
		e.Use(csrf.Middleware(csrf.Config{
			Secure:    d.CookieSecure,
			SkipPaths: []string{"/login", "/registration", "/translate"},
		}))
	}

	Register(e, d)
	return e
}

// ipExtractor decides what c.RealIP returns, and so which rate-limit bucket a
// request lands in. Forwarding headers are only read from listed proxies.
func ipExtractor(cidrs []string) echo.IPExtractor {
	if len(cidrs) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range cidrs {
		if _, ipNet, err := net.ParseCIDR(cidr); err == nil {
			opts = append(opts, echo.TrustIPRange(ipNet))
		}
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", d.HealthHandler.Live)
	e.GET("/health/ready", d.HealthHandler.Ready)
	e.GET("/db-status", d.HealthHandler.DBStatus)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	limit := d.Guard.Limit
	requireUser := authmw.RequireUser(d.Sessions)

	e.POST("/registration", d.AuthHandler.Register, limit("registration", d.Limits.Register))
	e.POST("/login", d.AuthHandler.Login, limit("login", d.Limits.Login))
	e.POST("/refresh", d.AuthHandler.Refresh, limit("refresh", d.Limits.Refresh))
	e.POST("/logout", d.AuthHandler.Logout, limit("logout", d.Limits.Default))
	e.GET("/get_tokens", d.AuthHandler.GetTokens, limit("get_tokens", d.Limits.Default))
	e.GET("/me", d.AuthHandler.Me, limit("me", d.Limits.Default), requireUser)
	e.PUT("/me", d.AuthHandler.UpdateMe, limit("me", d.Limits.Default), requireUser)

	e.POST("/translate", d.TranslateHandler.Translate, limit("translate", d.Limits.Default))

	manage := authmw.RequirePermission(d.Perms, service.PermManageUsers)
	read := []echo.MiddlewareFunc{limit("roles_read", d.Limits.RolesRead), requireUser, manage}
	write := []echo.MiddlewareFunc{limit("roles_write", d.Limits.RolesWrite), requireUser, manage}

	e.GET("/roles", d.RolesHandler.List, read...)
	e.GET("/roles/:id", d.RolesHandler.Get, read...)
	e.POST("/roles", d.RolesHandler.Create, write...)
	e.PUT("/roles/:id", d.RolesHandler.Update, write...)
	e.DELETE("/roles/:id", d.RolesHandler.Delete, write...)
	e.POST("/roles/:id/permissions", d.RolesHandler.AddPermission, write...)
	e.DELETE("/roles/:id/permissions/:permission", d.RolesHandler.RemovePermission, write...)
	e.PUT("/roles/:id/users/:user_id", d.RolesHandler.AssignRole, write...)
}
