// Package jobs provides the asynq task definitions, producer client, and
// worker that drive background processing of stored webhook events.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskSMSProcess = "sms:process"

const TaskCalendlyProcess = "calendly:process"

// Queue names. SMS and Calendly work run on separate queues so a backlog of
// one never starves the other.
const (
	QueueSMS      = "sms"
	QueueCalendly = "calendly"
)

// SMSProcessPayload references a stored Close webhook event.
type SMSProcessPayload struct {
	WebhookEventID string `json:"webhookEventId"`
}

// CalendlyProcessPayload references a stored Calendly webhook event.
type CalendlyProcessPayload struct {
	WebhookEventID string `json:"webhookEventId"`
}

func NewSMSProcessTask(payload SMSProcessPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSMSProcess, data), nil
}

func ParseSMSProcessPayload(task *asynq.Task) (SMSProcessPayload, error) {
	var payload SMSProcessPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SMSProcessPayload{}, err
	}
	return payload, nil
}

func NewCalendlyProcessTask(payload CalendlyProcessPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCalendlyProcess, data), nil
}

func ParseCalendlyProcessPayload(task *asynq.Task) (CalendlyProcessPayload, error) {
	var payload CalendlyProcessPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CalendlyProcessPayload{}, err
	}
	return payload, nil
}
