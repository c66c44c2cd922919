package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smsbot_backend/internal/bot"
	"smsbot_backend/internal/calendly"
	"smsbot_backend/internal/closeio"
	"smsbot_backend/internal/health"
	apphttp "smsbot_backend/internal/http"
	"smsbot_backend/internal/http/router"
	"smsbot_backend/internal/jobs"
	"smsbot_backend/internal/learning"
	"smsbot_backend/internal/webhook"
	"smsbot_backend/migrations"
	"smsbot_backend/platform/config"
	"smsbot_backend/platform/db"
	"smsbot_backend/platform/logger"
	"smsbot_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting api", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Shared validator instance for dependency injection
	val := validator.New()

	jobsClient := jobs.NewClient(cfg)
	defer func() {
		_ = jobsClient.Close()
	}()

	closeClient := closeio.NewClient(cfg, log)
	calendlyClient := calendly.NewClient(cfg, log)

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.GetRedisPassword(),
		DB:       cfg.GetRedisDB(),
	})
	defer func() {
		_ = rdb.Close()
	}()

	// ========================================================================
	// Modules
	// ========================================================================

	botModule := bot.NewModule(pool, log)
	webhookModule := webhook.NewModule(pool, jobsClient, cfg, val, log)

	var crm learning.CRM
	if closeClient != nil {
		crm = closeClient
	}
	learningModule := learning.NewModule(pool, crm, log)

	checks := []health.Check{
		{Name: "database", Pinger: db.NewPoolAdapter(pool)},
		{Name: "redis", Pinger: health.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})},
	}
	if closeClient != nil {
		checks = append(checks, health.Check{Name: "close", Pinger: closeClient})
	}
	if calendlyClient != nil {
		checks = append(checks, health.Check{Name: "calendly", Pinger: calendlyClient})
	}
	healthModule := health.NewModule(botModule.Repository(), log, checks...)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: db.NewPoolAdapter(pool),
		Modules: []apphttp.Module{
			webhookModule,
			botModule,
			learningModule,
			healthModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
