// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// LeadIDKey is the context key for the external CRM lead ID
	LeadIDKey contextKey = "lead_id"
	// JobIDKey is the context key for the queue job ID
	JobIDKey contextKey = "job_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithContext returns a logger with context values extracted.
// Supports request_id, lead_id, and job_id from context.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("request_id", requestID))}
	}

	if leadID, ok := ctx.Value(LeadIDKey).(string); ok && leadID != "" {
		newLogger = newLogger.WithLeadID(leadID)
	}

	if jobID, ok := ctx.Value(JobIDKey).(string); ok && jobID != "" {
		newLogger = &Logger{Logger: newLogger.With(slog.String("job_id", jobID))}
	}

	return newLogger
}

// WithLeadID returns a logger with the external CRM lead ID attached.
func (l *Logger) WithLeadID(leadID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("lead_id", leadID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// WebhookReceived logs an inbound webhook event.
func (l *Logger) WebhookReceived(source, eventType, externalID string, duplicate bool) {
	l.Info("webhook_received",
		slog.String("source", source),
		slog.String("event_type", eventType),
		slog.String("external_id", externalID),
		slog.Bool("duplicate", duplicate),
	)
}

// JobEvent logs queue job lifecycle events.
func (l *Logger) JobEvent(event, taskType, eventID string) {
	l.Info("job_event",
		slog.String("event", event),
		slog.String("task_type", taskType),
		slog.String("event_id", eventID),
	)
}

// JobError logs a failed queue job.
func (l *Logger) JobError(taskType, eventID string, err error) {
	l.Error("job_error",
		slog.String("task_type", taskType),
		slog.String("event_id", eventID),
		slog.String("error", err.Error()),
	)
}

// DatabaseError logs database errors
func (l *Logger) DatabaseError(operation string, err error) {
	l.Error("database_error",
		slog.String("operation", operation),
		slog.String("error", err.Error()),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
