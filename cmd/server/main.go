package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crossingdelta/timeline/internal/featureflags"
	"github.com/crossingdelta/timeline/internal/handler"
	"github.com/crossingdelta/timeline/internal/infrastructure/logger"
	"github.com/crossingdelta/timeline/internal/infrastructure/redis"
	"github.com/crossingdelta/timeline/internal/observability/tracing"
	"github.com/crossingdelta/timeline/internal/repository"
	"github.com/crossingdelta/timeline/internal/security/audit"
	"github.com/crossingdelta/timeline/internal/security/auth"
	"github.com/crossingdelta/timeline/internal/security/ratelimit"
	"github.com/crossingdelta/timeline/internal/service"
	"github.com/crossingdelta/timeline/internal/worker"
	"github.com/crossingdelta/timeline/pkg/config"
	"github.com/crossingdelta/timeline/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting timeline server", slog.String("environment", cfg.Environment))
	if cfg.UsingDevSecret() {
		log.Warn("JWT_SECRET not set, signing tokens with the development secret")
	}

	if err := run(cfg, log); err != nil {
		log.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Tracing
	shutdownTracing, err := tracing.Init(ctx, log, cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	// 4. Database
	pool, err := database.NewConnectionPool(ctx, &cfg.Database, log)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	// 5. Repositories and cache
	accountRepo := repository.NewSQLAccountRepository(pool, log)
	taskRepo := repository.NewSQLTaskRepository(pool, log)

	checks := map[string]handler.CheckFunc{"database": pool.Health}
	var taskCache service.TaskListCache
	if featureflags.Enabled(featureflags.TaskCache) {
		var closeCache func()
		taskCache, closeCache, err = newTaskCache(ctx, cfg, log, checks)
		if err != nil {
			return err
		}
		defer closeCache()
	}

	// 6. Services
	tokenManager := auth.NewTokenManager(cfg.JWTSecret, "timeline")
	auditLogger := audit.NewLogger(log)
	authService := service.NewAuthService(accountRepo, tokenManager, cfg.TokenTTL, log)
	taskService := service.NewTaskService(taskRepo, taskCache, auditLogger, log)

	if !featureflags.Enabled(featureflags.SkipBootstrap) {
		if err := authService.Bootstrap(ctx, service.DefaultBootstrapAccounts()); err != nil {
			return fmt.Errorf("bootstrap accounts: %w", err)
		}
	}

	if cfg.StatsInterval > 0 {
		go worker.NewStatsWorker(taskRepo, pool.GetDB().Stats, log, cfg.StatsInterval).Start(ctx)
	}

	// 7. HTTP
	tenantLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	defer tenantLimiter.Stop()
	loginThrottle := ratelimit.NewLimiter(cfg.LoginAttemptsPerMinute, time.Minute)
	defer loginThrottle.Stop()

	server := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: handler.NewRouter(handler.RouterConfig{
			Auth:               authService,
			Tasks:              taskService,
			Tokens:             tokenManager,
			TenantLimiter:      tenantLimiter,
			LoginThrottle:      loginThrottle,
			Audit:              auditLogger,
			Checks:             checks,
			CORSAllowedOrigins: cfg.CORSAllowedOrigins,
			Logger:             log,
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("db_driver", cfg.Database.Driver),
		slog.Bool("task_cache", taskCache != nil),
		slog.Int("rate_limit", cfg.RateLimitPerMinute),
		slog.String("rate_limit_window", "1m"),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
	return nil
}

// newTaskCache prefers Redis when REDIS_URL is set and falls back to an
// in-process cache otherwise.
func newTaskCache(ctx context.Context, cfg *config.Config, log *slog.Logger, checks map[string]handler.CheckFunc) (service.TaskListCache, func(), error) {
	if cfg.RedisURL == "" {
		log.Info("task cache enabled", slog.String("backend", "memory"))
		return repository.NewMemoryTaskCache(cfg.TaskCacheTTL), func() {}, nil
	}

	client, err := redis.NewClient(ctx, cfg.RedisURL, log)
	if err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	checks["redis"] = client.Ping
	log.Info("task cache enabled", slog.String("backend", "redis"))
	return repository.NewRedisTaskCache(client, cfg.TaskCacheTTL, log), func() { client.Close() }, nil
}
