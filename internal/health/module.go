// Package health aggregates readiness checks for the API surface.
package health

import (
	"context"
	"net/http"
	"time"

	"smsbot_backend/internal/bot"
	apphttp "smsbot_backend/internal/http"
	"smsbot_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

// checkTimeout bounds each dependency probe.
const checkTimeout = 5 * time.Second

// Pinger is any dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to the Pinger interface.
type PingFunc func(ctx context.Context) error

// Ping implements Pinger.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Check is one named dependency probe.
type Check struct {
	Name   string
	Pinger Pinger
}

// Module serves the aggregated health report.
type Module struct {
	checks []Check
	toggle *bot.Repository
	log    *logger.Logger
}

// NewModule creates the health module. Nil pingers are skipped so optional
// integrations do not degrade the report.
func NewModule(toggle *bot.Repository, log *logger.Logger, checks ...Check) *Module {
	active := make([]Check, 0, len(checks))
	for _, c := range checks {
		if c.Pinger != nil {
			active = append(active, c)
		}
	}
	return &Module{checks: active, toggle: toggle, log: log}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "health"
}

// RegisterRoutes mounts the health report.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Engine.GET("/api/health", m.handleHealth)
}

type checkResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (m *Module) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), checkTimeout)
	defer cancel()

	results := make([]checkResult, len(m.checks))
	g, gctx := errgroup.WithContext(ctx)
	for i, check := range m.checks {
		g.Go(func() error {
			if err := check.Pinger.Ping(gctx); err != nil {
				results[i] = checkResult{Status: "down", Error: err.Error()}
				return nil
			}
			results[i] = checkResult{Status: "ok"}
			return nil
		})
	}
	_ = g.Wait()

	healthy := true
	checks := make(map[string]checkResult, len(m.checks)+1)
	for i, check := range m.checks {
		checks[check.Name] = results[i]
		if results[i].Status != "ok" {
			healthy = false
		}
	}

	botEnabled := false
	if status, err := m.toggle.GetStatus(ctx); err == nil {
		botEnabled = status.Enabled
		checks["bot"] = checkResult{Status: "ok"}
	} else {
		checks["bot"] = checkResult{Status: "down", Error: err.Error()}
		healthy = false
	}

	statusCode := http.StatusOK
	overall := "ok"
	if !healthy {
		statusCode = http.StatusServiceUnavailable
		overall = "degraded"
	}

	c.JSON(statusCode, gin.H{
		"status":     overall,
		"botEnabled": botEnabled,
		"checks":     checks,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

var _ apphttp.Module = (*Module)(nil)
