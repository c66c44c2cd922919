package webhook

import (
	"context"
	"encoding/json"
	"net/http"

	"smsbot_backend/platform/logger"
	"smsbot_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Enqueuer schedules background processing for stored webhook events.
// Implemented by the jobs client; injected so the HTTP layer never touches
// Redis directly.
type Enqueuer interface {
	EnqueueSMSProcess(ctx context.Context, eventID uuid.UUID) error
	EnqueueCalendlyProcess(ctx context.Context, eventID uuid.UUID) error
}

// WebhookResponse is the acknowledgement returned to webhook providers.
type WebhookResponse struct {
	Success bool   `json:"success"`
	EventID string `json:"eventId"`
}

// Handler handles inbound webhook HTTP requests.
type Handler struct {
	repo     *Repository
	enqueuer Enqueuer
	val      *validator.Validator
	log      *logger.Logger
}

// NewHandler creates a new webhook handler.
func NewHandler(repo *Repository, enqueuer Enqueuer, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{repo: repo, enqueuer: enqueuer, val: val, log: log}
}

// HandleClose processes a Close CRM webhook delivery.
// POST /webhooks/close
//
// Every delivery is persisted and acknowledged with 200 so Close does not
// retry; only inbound SMS events are queued for processing.
func (h *Handler) HandleClose(c *gin.Context) {
	var payload ClosePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := h.val.Struct(payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	externalID := payload.Event.Data.ID
	if externalID == "" {
		externalID = payload.Event.ID
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	ev, created, err := h.repo.FindOrCreate(c.Request.Context(), SourceClose, payload.Event.ObjectType, externalID, raw)
	if err != nil {
		h.log.Error("failed to store close webhook event", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	h.log.WebhookReceived(SourceClose, payload.Event.ObjectType, externalID, !created)

	// Duplicate deliveries and non-inbound events are acknowledged without
	// queueing work.
	if created && payload.IsInboundSMS() {
		if err := h.enqueuer.EnqueueSMSProcess(c.Request.Context(), ev.ID); err != nil {
			h.log.JobError("sms:process", ev.ID.String(), err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
	}

	c.JSON(http.StatusOK, WebhookResponse{Success: true, EventID: ev.ID.String()})
}

// HandleCalendly processes a Calendly webhook delivery.
// POST /webhooks/calendly
func (h *Handler) HandleCalendly(c *gin.Context) {
	var payload CalendlyPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if err := h.val.Struct(payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	externalID := ""
	if payload.Payload.Invitee != nil {
		externalID = payload.Payload.Invitee.URI
	}
	if externalID == "" && payload.Payload.Event != nil {
		externalID = payload.Payload.Event.URI
	}
	if externalID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	ev, created, err := h.repo.FindOrCreate(c.Request.Context(), SourceCalendly, payload.Event, externalID, raw)
	if err != nil {
		h.log.Error("failed to store calendly webhook event", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	h.log.WebhookReceived(SourceCalendly, payload.Event, externalID, !created)

	if created && (payload.Event == CalendlyInviteeCreated || payload.Event == CalendlyInviteeCanceled) {
		if err := h.enqueuer.EnqueueCalendlyProcess(c.Request.Context(), ev.ID); err != nil {
			h.log.JobError("calendly:process", ev.ID.String(), err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
	}

	c.JSON(http.StatusOK, WebhookResponse{Success: true, EventID: ev.ID.String()})
}
