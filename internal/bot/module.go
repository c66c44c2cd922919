package bot

import (
	"net/http"
	"time"

	apphttp "smsbot_backend/internal/http"
	"smsbot_backend/platform/httpkit"
	"smsbot_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module exposes the bot toggle over the admin API.
type Module struct {
	repo *Repository
	log  *logger.Logger
}

// NewModule creates the bot module.
func NewModule(pool *pgxpool.Pool, log *logger.Logger) *Module {
	return &Module{repo: NewRepository(pool), log: log}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "bot"
}

// Repository exposes the toggle store for the worker's enabled check.
func (m *Module) Repository() *Repository {
	return m.repo
}

// RegisterRoutes mounts the admin toggle endpoints.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Admin.Group("/bot")
	group.GET("/status", m.handleStatus)
	group.POST("/enable", m.handleEnable)
	group.POST("/disable", m.handleDisable)
}

type statusResponse struct {
	Enabled     bool   `json:"enabled"`
	LastUpdated string `json:"lastUpdated,omitempty"`
	Message     string `json:"message"`
}

func (m *Module) handleStatus(c *gin.Context) {
	status, err := m.repo.GetStatus(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	c.JSON(http.StatusOK, toStatusResponse(status, statusMessage(status.Enabled)))
}

func (m *Module) handleEnable(c *gin.Context) {
	m.setEnabled(c, true)
}

func (m *Module) handleDisable(c *gin.Context) {
	m.setEnabled(c, false)
}

func (m *Module) setEnabled(c *gin.Context, enabled bool) {
	status, err := m.repo.SetEnabled(c.Request.Context(), enabled)
	if httpkit.HandleError(c, err) {
		return
	}

	m.log.Info("bot toggle changed", "enabled", enabled)

	message := "Bot has been disabled"
	if enabled {
		message = "Bot has been enabled"
	}
	c.JSON(http.StatusOK, toStatusResponse(status, message))
}

func toStatusResponse(status Status, message string) statusResponse {
	resp := statusResponse{Enabled: status.Enabled, Message: message}
	if status.LastUpdated != nil {
		resp.LastUpdated = status.LastUpdated.UTC().Format(time.RFC3339)
	}
	return resp
}

func statusMessage(enabled bool) string {
	if enabled {
		return "Bot is currently enabled"
	}
	return "Bot is currently disabled"
}

var _ apphttp.Module = (*Module)(nil)
