package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/crewdesk/crewdesk/pkg/api"
	"github.com/crewdesk/crewdesk/pkg/audit"
	"github.com/crewdesk/crewdesk/pkg/auth"
	"github.com/crewdesk/crewdesk/pkg/calendar"
	"github.com/crewdesk/crewdesk/pkg/cli"
	"github.com/crewdesk/crewdesk/pkg/config"
	"github.com/crewdesk/crewdesk/pkg/departments"
	"github.com/crewdesk/crewdesk/pkg/jobs"
	"github.com/crewdesk/crewdesk/pkg/kvp"
	"github.com/crewdesk/crewdesk/pkg/middleware"
	"github.com/crewdesk/crewdesk/pkg/notifications"
	"github.com/crewdesk/crewdesk/pkg/observability"
	"github.com/crewdesk/crewdesk/pkg/shifts"
	"github.com/crewdesk/crewdesk/pkg/storage"
	"github.com/crewdesk/crewdesk/pkg/surveys"
	"github.com/crewdesk/crewdesk/pkg/tenants"
	"github.com/crewdesk/crewdesk/pkg/users"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "crewdesk: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	log := observability.NewLogger(observability.ParseLogLevel(cfg.LogLevel), os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	if err := cli.MigrateAll(ctx, db); err != nil {
		return err
	}

	// Redis is optional: without it, throttling state is process-local.
	var counter auth.AttemptCounter
	var redisClient *redis.Client
	memCounter := auth.NewMemoryCounter()
	counter = memCounter
	if cfg.Redis.URL != "" {
		redisClient, err = storage.OpenRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer redisClient.Close()
		counter = auth.NewRedisCounter(redisClient, "crewdesk")
	}

	tenantStore := tenants.NewStore(db)
	userStore := users.NewStore(db)
	sessionStore := auth.NewSessionStore(db)
	auditLog := audit.NewDBLogger(db, log)

	authSvc := auth.NewService(
		userStore, sessionStore, tenantStore,
		auth.NewTokenIssuer([]byte(cfg.Auth.JWTSecret), cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL),
		counter,
		auditLog,
		log,
		auth.ServiceConfig{
			MaxLoginAttempts: int64(cfg.Auth.MaxLoginAttempts),
			AttemptWindow:    cfg.Auth.AttemptWindow,
			SessionTTL:       cfg.Auth.SessionTTL,
		},
	)

	metrics := observability.InitMetrics()
	health := observability.NewHealthChecker(db, redisClient)

	var limiter *middleware.RateLimiter
	if cfg.Server.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(counter, 300, time.Minute, log)
	}

	server := api.NewServer(cfg, api.Deps{
		Auth:          authSvc,
		Tenants:       tenantStore,
		Users:         userStore,
		Departments:   departments.NewStore(db),
		KVP:           kvp.NewStore(db),
		Calendar:      calendar.NewStore(db),
		Surveys:       surveys.NewStore(db),
		Notifications: notifications.NewStore(db),
		Shifts:        shifts.NewStore(db),
		Audit:         auditLog,
		AuditLog:      auditLog,
		Resolver:      middleware.NewTenantResolver(tenantStore, 1024, time.Minute),
		Limiter:       limiter,
		Metrics:       metrics,
		Health:        health,
		Log:           log,
	})

	scheduler, err := jobs.NewScheduler(jobs.Deps{
		DB:                 db,
		Sessions:           sessionStore,
		Tenants:            tenantStore,
		Users:              userStore,
		Audit:              auditLog,
		Counter:            memCounter,
		Metrics:            metrics,
		Log:                log,
		AuditRetentionDays: cfg.Audit.RetentionDays,
	})
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
