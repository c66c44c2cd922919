package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"smsbot_backend/internal/webhook"
	"smsbot_backend/platform/config"
	"smsbot_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// SMSProcessor runs the conversation pipeline for one inbound SMS.
type SMSProcessor interface {
	ProcessInboundSMS(ctx context.Context, payload webhook.ClosePayload) error
}

// CalendlyProcessor applies a Calendly booking or cancellation.
type CalendlyProcessor interface {
	ProcessCalendlyEvent(ctx context.Context, payload webhook.CalendlyPayload) error
}

// Worker consumes webhook processing tasks from Redis.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	events    *webhook.Repository
	sms       SMSProcessor
	calendly  CalendlyProcessor
	leadLocks *KeyedMutex
	log       *logger.Logger
}

// NewWorker creates the asynq server with the SMS and Calendly queues and
// registers the task handlers.
func NewWorker(cfg config.QueueConfig, events *webhook.Repository, sms SMSProcessor, calendly CalendlyProcessor, log *logger.Logger) *Worker {
	concurrency := cfg.GetQueueConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(redisClientOpt(cfg), asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			QueueSMS:      cfg.GetSMSQueueConcurrency(),
			QueueCalendly: cfg.GetCalendlyQueueConcurrency(),
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:    server,
		mux:       mux,
		events:    events,
		sms:       sms,
		calendly:  calendly,
		leadLocks: NewKeyedMutex(),
		log:       log,
	}

	mux.HandleFunc(TaskSMSProcess, w.handleSMSProcess)
	mux.HandleFunc(TaskCalendlyProcess, w.handleCalendlyProcess)

	return w
}

// Run blocks until the context is canceled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("job worker stopped", "error", err)
	}
}

func (w *Worker) handleSMSProcess(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseSMSProcessPayload(task)
	if err != nil {
		return fmt.Errorf("parse sms task payload: %w", err)
	}

	ev, ok, err := w.loadEvent(ctx, payload.WebhookEventID, TaskSMSProcess)
	if err != nil || !ok {
		return err
	}

	var inbound webhook.ClosePayload
	if err := json.Unmarshal(ev.Payload, &inbound); err != nil {
		w.fail(ctx, ev.ID, err)
		return nil
	}

	// Serialize per lead so a burst of texts from one person is handled in
	// arrival order.
	lockKey := inbound.Event.Data.LeadID
	if lockKey == "" {
		lockKey = inbound.Event.Data.RemotePhone
	}
	unlock := w.leadLocks.Lock(lockKey)
	defer unlock()

	w.log.JobEvent("started", TaskSMSProcess, ev.ID.String())
	if err := w.sms.ProcessInboundSMS(ctx, inbound); err != nil {
		return w.retryOrFail(ctx, ev.ID, TaskSMSProcess, err)
	}

	w.markProcessed(ctx, ev.ID, TaskSMSProcess)
	return nil
}

func (w *Worker) handleCalendlyProcess(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCalendlyProcessPayload(task)
	if err != nil {
		return fmt.Errorf("parse calendly task payload: %w", err)
	}

	ev, ok, err := w.loadEvent(ctx, payload.WebhookEventID, TaskCalendlyProcess)
	if err != nil || !ok {
		return err
	}

	var cal webhook.CalendlyPayload
	if err := json.Unmarshal(ev.Payload, &cal); err != nil {
		w.fail(ctx, ev.ID, err)
		return nil
	}

	w.log.JobEvent("started", TaskCalendlyProcess, ev.ID.String())
	if err := w.calendly.ProcessCalendlyEvent(ctx, cal); err != nil {
		return w.retryOrFail(ctx, ev.ID, TaskCalendlyProcess, err)
	}

	w.markProcessed(ctx, ev.ID, TaskCalendlyProcess)
	return nil
}

// loadEvent fetches the stored webhook event. A missing event or one that
// already completed is skipped without retrying.
func (w *Worker) loadEvent(ctx context.Context, rawID, taskType string) (webhook.Event, bool, error) {
	eventID, err := uuid.Parse(rawID)
	if err != nil {
		w.log.JobError(taskType, rawID, err)
		return webhook.Event{}, false, nil
	}

	ev, err := w.events.GetByID(ctx, eventID)
	if errors.Is(err, webhook.ErrEventNotFound) {
		w.log.JobError(taskType, rawID, err)
		return webhook.Event{}, false, nil
	}
	if err != nil {
		return webhook.Event{}, false, err
	}

	if ev.Status == webhook.StatusProcessed {
		return webhook.Event{}, false, nil
	}
	return ev, true, nil
}

// retryOrFail returns the error so asynq retries, marking the event failed
// once retries are exhausted.
func (w *Worker) retryOrFail(ctx context.Context, eventID uuid.UUID, taskType string, procErr error) error {
	w.log.JobError(taskType, eventID.String(), procErr)

	retried, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	if retried >= maxRetry {
		w.fail(ctx, eventID, procErr)
	}
	return procErr
}

func (w *Worker) fail(ctx context.Context, eventID uuid.UUID, cause error) {
	if err := w.events.MarkFailed(ctx, eventID, cause.Error()); err != nil {
		w.log.DatabaseError("update_webhook_events", err)
	}
	w.log.JobEvent("failed", "", eventID.String())
}

func (w *Worker) markProcessed(ctx context.Context, eventID uuid.UUID, taskType string) {
	if err := w.events.MarkProcessed(ctx, eventID); err != nil {
		w.log.DatabaseError("update_webhook_events", err)
	}
	w.log.JobEvent("completed", taskType, eventID.String())
}
