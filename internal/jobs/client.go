package jobs

import (
	"context"
	"errors"

	"smsbot_backend/platform/config"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Client enqueues webhook processing tasks. A nil Client drops all work,
// which keeps webhook intake alive when Redis is not configured.
type Client struct {
	client     *asynq.Client
	maxRetries int
}

// NewClient creates the task producer.
func NewClient(cfg config.QueueConfig) *Client {
	return &Client{
		client:     asynq.NewClient(redisClientOpt(cfg)),
		maxRetries: cfg.GetJobMaxRetries(),
	}
}

// Close releases the underlying Redis connection.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueSMSProcess schedules processing of a stored Close webhook event.
func (c *Client) EnqueueSMSProcess(ctx context.Context, eventID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewSMSProcessTask(SMSProcessPayload{WebhookEventID: eventID.String()})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueSMS),
		asynq.MaxRetry(c.maxRetries),
		asynq.TaskID(TaskSMSProcess+":"+eventID.String()),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// EnqueueCalendlyProcess schedules processing of a stored Calendly webhook event.
func (c *Client) EnqueueCalendlyProcess(ctx context.Context, eventID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewCalendlyProcessTask(CalendlyProcessPayload{WebhookEventID: eventID.String()})
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task,
		asynq.Queue(QueueCalendly),
		asynq.MaxRetry(c.maxRetries),
		asynq.TaskID(TaskCalendlyProcess+":"+eventID.String()),
	)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

func redisClientOpt(cfg config.QueueConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.GetRedisAddr(),
		Password: cfg.GetRedisPassword(),
		DB:       cfg.GetRedisDB(),
	}
}
