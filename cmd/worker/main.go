package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smsbot_backend/internal/booking"
	"smsbot_backend/internal/bot"
	"smsbot_backend/internal/calendly"
	"smsbot_backend/internal/closeio"
	"smsbot_backend/internal/conversation"
	"smsbot_backend/internal/jobs"
	"smsbot_backend/internal/leads"
	"smsbot_backend/internal/learning"
	"smsbot_backend/internal/responder"
	"smsbot_backend/internal/sms"
	"smsbot_backend/internal/webhook"
	"smsbot_backend/platform/ai/anthropic"
	"smsbot_backend/platform/config"
	"smsbot_backend/platform/db"
	"smsbot_backend/platform/events"
	"smsbot_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

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

	bus := events.NewInMemoryBus(log)

	closeClient := closeio.NewClient(cfg, log)
	calendlyClient := calendly.NewClient(cfg, log)

	var llm *anthropic.Client
	if cfg.IsLLMEnabled() {
		llm = anthropic.NewClient(anthropic.Config{
			APIKey:  cfg.GetAnthropicAPIKey(),
			BaseURL: cfg.GetAnthropicBaseURL(),
			Model:   cfg.GetAnthropicModel(),
		})
		log.Info("llm client configured", "model", llm.Name())
	} else {
		log.Warn("llm disabled, responses fall back to scripted and learned replies")
	}

	loc, err := time.LoadLocation(cfg.GetBookingTimezone())
	if err != nil {
		log.Warn("invalid booking timezone, using UTC", "timezone", cfg.GetBookingTimezone(), "error", err)
		loc = time.UTC
	}

	// ========================================================================
	// Domain Layer
	// ========================================================================

	leadRepo := leads.NewRepository(pool)
	var crm leads.CRMClient
	if closeClient != nil {
		crm = closeClient
	}
	leadSvc := leads.NewService(leadRepo, crm, log)

	convRepo := conversation.NewRepository(pool)
	msgRepo := conversation.NewMessageRepository(pool)

	rules := booking.DefaultSlotRules(loc)
	if h := cfg.GetBookingDayStartHour(); h > 0 {
		rules.DayStartHour = h
	}
	if h := cfg.GetBookingDayEndHour(); h > 0 {
		rules.DayEndHour = h
	}
	if d := cfg.GetBookingMinLeadTime(); d > 0 {
		rules.MinLeadTime = d
	}

	var calendar booking.Calendar
	if calendlyClient != nil {
		calendar = calendlyClient
	}
	bookingRepo := booking.NewRepository(pool)
	bookingSvc := booking.NewService(bookingRepo, convRepo, leadSvc, calendar, bus, rules, log)

	learningSvc := learning.NewService(learning.NewRepository(pool), log)

	templates := responder.NewTemplateRepository(pool)
	strategies := []responder.Strategy{responder.NewPatternStrategy(learningSvc)}
	if llm != nil {
		strategies = append(strategies, responder.NewLLMStrategy(templates, llm))
	}
	chain := responder.NewChain(log, strategies...)

	var messenger sms.Messenger
	if closeClient != nil {
		messenger = closeClient
	}

	processor := sms.NewProcessor(
		bot.NewRepository(pool),
		leadSvc,
		convRepo,
		msgRepo,
		bookingSvc,
		chain,
		messenger,
		log,
	)

	sms.NewSubscriber(leadRepo, convRepo, msgRepo, learningSvc, messenger, log).Register(bus)

	calendlyProc := booking.NewCalendlyProcessor(bookingRepo, leadRepo, convRepo, bus, log)

	// ========================================================================
	// Queue Consumer
	// ========================================================================

	worker := jobs.NewWorker(cfg, webhook.NewRepository(pool), processor, calendlyProc, log)

	log.Info("worker listening", "redis", cfg.GetRedisAddr())
	worker.Run(ctx)

	log.Info("worker stopped")
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
