// Package calendly provides the Calendly API client used by the
// appointment booking flow.
package calendly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"smsbot_backend/platform/config"
	"smsbot_backend/platform/logger"
)

// Client talks to the Calendly REST API.
type Client struct {
	baseURL      string
	apiKey       string
	eventTypeURI string
	http         *http.Client
	log          *logger.Logger
}

// AvailableTime is a bookable slot on the event type's calendar.
type AvailableTime struct {
	Status        string    `json:"status"`
	StartTime     time.Time `json:"start_time"`
	SchedulingURL string    `json:"scheduling_url"`
}

// Invitee is the subset of a Calendly invitee the bot needs.
type Invitee struct {
	URI       string    `json:"uri"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Status    string    `json:"status"`
	Event     string    `json:"event"`
	CreatedAt time.Time `json:"created_at"`
}

// ScheduledEvent is the subset of a Calendly event the bot needs.
type ScheduledEvent struct {
	URI       string    `json:"uri"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Status    string    `json:"status"`
}

type availableTimesResponse struct {
	Collection []AvailableTime `json:"collection"`
}

type resourceEnvelope struct {
	Resource json.RawMessage `json:"resource"`
}

// NewClient creates a Calendly client. Returns nil when no API key is
// configured; the booking flow falls back to locally generated slots.
func NewClient(cfg config.CalendlyConfig, log *logger.Logger) *Client {
	if !cfg.IsCalendlyEnabled() {
		return nil
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.GetCalendlyBaseURL(), "/"),
		apiKey:       cfg.GetCalendlyAPIKey(),
		eventTypeURI: cfg.GetCalendlyEventTypeURI(),
		http:         &http.Client{Timeout: 10 * time.Second},
		log:          log,
	}
}

// EventTypeURI returns the configured event type this bot books against.
func (c *Client) EventTypeURI() string {
	if c == nil {
		return ""
	}
	return c.eventTypeURI
}

// AvailableTimes fetches bookable slots for the event type in the given
// window. Calendly caps the window at 7 days.
func (c *Client) AvailableTimes(ctx context.Context, start, end time.Time) ([]AvailableTime, error) {
	if c == nil {
		return nil, fmt.Errorf("calendly client not configured")
	}

	query := url.Values{}
	query.Set("event_type", c.eventTypeURI)
	query.Set("start_time", start.UTC().Format(time.RFC3339))
	query.Set("end_time", end.UTC().Format(time.RFC3339))

	endpoint := fmt.Sprintf("%s/event_type_available_times?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calendly availability request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("calendly returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var result availableTimesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode availability response: %w", err)
	}

	available := make([]AvailableTime, 0, len(result.Collection))
	for _, slot := range result.Collection {
		if slot.Status == "available" {
			available = append(available, slot)
		}
	}
	return available, nil
}

// SchedulingLink creates a single-use scheduling link for the event type.
func (c *Client) SchedulingLink(ctx context.Context) (string, error) {
	if c == nil {
		return "", fmt.Errorf("calendly client not configured")
	}

	payload := map[string]interface{}{
		"max_event_count": 1,
		"owner":           c.eventTypeURI,
		"owner_type":      "EventType",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scheduling_links", bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calendly scheduling link request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("calendly returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var result struct {
		Resource struct {
			BookingURL string `json:"booking_url"`
		} `json:"resource"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode scheduling link response: %w", err)
	}
	return result.Resource.BookingURL, nil
}

// Invitee fetches an invitee by its full resource URI.
func (c *Client) Invitee(ctx context.Context, inviteeURI string) (*Invitee, error) {
	var invitee Invitee
	if err := c.getResource(ctx, inviteeURI, &invitee); err != nil {
		return nil, err
	}
	return &invitee, nil
}

// ScheduledEvent fetches a scheduled event by its full resource URI.
func (c *Client) ScheduledEvent(ctx context.Context, eventURI string) (*ScheduledEvent, error) {
	var event ScheduledEvent
	if err := c.getResource(ctx, eventURI, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// Ping checks API reachability and credentials.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("calendly client not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/me", nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("calendly returned %d", resp.StatusCode)
	}
	return nil
}

// getResource fetches a full Calendly resource URI and unmarshals its
// "resource" envelope into out. Only URIs under the configured API host
// are allowed.
func (c *Client) getResource(ctx context.Context, resourceURI string, out interface{}) error {
	if c == nil {
		return fmt.Errorf("calendly client not configured")
	}
	if !strings.HasPrefix(resourceURI, c.baseURL+"/") {
		return fmt.Errorf("resource uri %q outside calendly api", resourceURI)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resourceURI, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("calendly resource request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("calendly returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var envelope resourceEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode resource response: %w", err)
	}
	if len(envelope.Resource) > 0 {
		return json.Unmarshal(envelope.Resource, out)
	}
	return fmt.Errorf("calendly resource missing")
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
}
