// Package webhook provides the inbound webhook bounded context: signature
// verification, durable event storage, and job enqueueing for Close and
// Calendly deliveries.
package webhook

import (
	apphttp "smsbot_backend/internal/http"
	"smsbot_backend/platform/config"
	"smsbot_backend/platform/logger"
	"smsbot_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ModuleConfig combines the config interfaces the webhook module needs.
type ModuleConfig interface {
	config.CloseConfig
	config.CalendlyConfig
}

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	repo    *Repository
	cfg     ModuleConfig
}

// NewModule creates and initializes the webhook module with all its dependencies.
func NewModule(pool *pgxpool.Pool, enqueuer Enqueuer, cfg ModuleConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := NewRepository(pool)
	handler := NewHandler(repo, enqueuer, val, log)

	return &Module{
		handler: handler,
		repo:    repo,
		cfg:     cfg,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// Repository exposes the event store for the worker's processors.
func (m *Module) Repository() *Repository {
	return m.repo
}

// RegisterRoutes mounts webhook routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Webhooks.POST("/close", VerifyCloseSignature(m.cfg.GetCloseWebhookSecret()), m.handler.HandleClose)

	if m.cfg.GetCalendlyWebhookSecret() != "" {
		ctx.Webhooks.POST("/calendly", VerifyCalendlySignature(m.cfg.GetCalendlyWebhookSecret()), m.handler.HandleCalendly)
	}
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
