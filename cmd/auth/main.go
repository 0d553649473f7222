package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Skotchmaster/auth_service/internal/cache"
	"github.com/Skotchmaster/auth_service/internal/config"
	"github.com/Skotchmaster/auth_service/internal/db"
	"github.com/Skotchmaster/auth_service/internal/events"
	"github.com/Skotchmaster/auth_service/internal/httpserver"
	"github.com/Skotchmaster/auth_service/internal/logging"
	ratelimitmw "github.com/Skotchmaster/auth_service/internal/middleware/ratelimit"
	"github.com/Skotchmaster/auth_service/internal/ratelimit"
	"github.com/Skotchmaster/auth_service/internal/repo"
	"github.com/Skotchmaster/auth_service/internal/service"
	"github.com/Skotchmaster/auth_service/internal/tokens"
	"github.com/Skotchmaster/auth_service/internal/translate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.IntoContext(ctx, logger)

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	if err == nil {
		err = db.Migrate(initCtx, gdb)
	}
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close(gdb)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis url error: %v", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	issuer, err := tokens.NewIssuer(cfg.SecretKey, cfg.Algorithm, cfg.AccessTTL)
	if err != nil {
		log.Fatalf("token issuer error: %v", err)
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	}
	defer publisher.Close()

	store := repo.New(gdb)
	authSvc := &service.AuthService{
		Users:      store,
		Sessions:   store,
		Tokens:     issuer,
		RefreshTTL: cfg.RefreshTTL,
		Events:     publisher,
	}
	translateSvc := &service.TranslateService{
		Vendor: translate.NewClient(cfg.TranslateURL, cfg.TranslateAPIKey, cfg.TranslateFolderID),
		Cache:  cache.New(rdb, "translate:", cfg.TranslateCacheTTL),
	}

	e := httpserver.New(&httpserver.Deps{
		Logger: logger,
		AuthHandler: &httpserver.AuthHTTP{
			Svc:        authSvc,
			Cookies:    httpserver.CookieFactory{Secure: cfg.CookieSecure},
			AccessTTL:  cfg.AccessTTL,
			RefreshTTL: cfg.RefreshTTL,
		},
		RolesHandler:     &httpserver.RolesHTTP{Svc: &service.RoleService{Roles: store, Events: publisher}},
		TranslateHandler: &httpserver.TranslateHTTP{Svc: translateSvc},
		HealthHandler: &httpserver.HealthHTTP{
			DB:    httpserver.PingFunc(func(ctx context.Context) error { return db.Ping(ctx, gdb) }),
			Cache: httpserver.PingFunc(func(ctx context.Context) error { return rdb.Ping(ctx).Err() }),
		},
		Sessions: &service.SessionValidator{Users: store, Tokens: issuer},
		Perms:    &service.PermissionEvaluator{Roles: store},
		Guard:    &ratelimitmw.Guard{Counter: ratelimit.New(rdb, "rl"), Window: cfg.RateLimits.Window},
		Limits:   cfg.RateLimits,

		CSRF:         cfg.CSRFProtection,
		CookieSecure: cfg.CookieSecure,

		TrustedProxies: cfg.TrustedProxies,
	})
	e.Server.ReadTimeout = 10 * time.Second
	e.Server.WriteTimeout = 15 * time.Second
	e.Server.ReadHeaderTimeout = 3 * time.Second

	go authSvc.RunSweeper(ctx, cfg.RefreshSweepInterval)

	go func() {
		logger.Info("http_server_starting", "addr", cfg.Addr)
		if err := e.Start(cfg.Addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("echo start: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo_shutdown_failed", "error", err)
	}
	translateSvc.Wait()
	logger.Info("http_server_stopped")
}
