package learning

import (
	"net/http"
	"time"

	apphttp "smsbot_backend/internal/http"
	"smsbot_backend/platform/httpkit"
	"smsbot_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Module exposes the pattern ingest trigger on the admin API.
type Module struct {
	service *Service
	crm     CRM
	log     *logger.Logger
}

// NewModule creates the learning module. crm may be nil when Close is not
// configured; the ingest endpoint then reports unavailable.
func NewModule(pool *pgxpool.Pool, crm CRM, log *logger.Logger) *Module {
	return &Module{
		service: NewService(NewRepository(pool), log),
		crm:     crm,
		log:     log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "learning"
}

// Service exposes the pattern service for the responder chain.
func (m *Module) Service() *Service {
	return m.service
}

// RegisterRoutes mounts the admin ingest endpoint.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Admin.POST("/learn", m.handleIngest)
}

func (m *Module) handleIngest(c *gin.Context) {
	if m.crm == nil {
		httpkit.Error(c, http.StatusServiceUnavailable, "close api not configured", nil)
		return
	}

	recorded, err := m.service.IngestFromCRM(c.Request.Context(), m.crm, time.Now())
	if httpkit.HandleError(c, err) {
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "recordedExchanges": recorded})
}

var _ apphttp.Module = (*Module)(nil)
