// Package closeio provides the Close CRM API client used for SMS delivery
// and lead lookups.
package closeio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"smsbot_backend/platform/config"
	"smsbot_backend/platform/logger"
	"smsbot_backend/platform/phone"
)

// Client talks to the Close CRM REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *logger.Logger
}

// Lead is the subset of the Close lead object the bot needs.
type Lead struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	DateCreated time.Time `json:"date_created"`
	Contacts    []Contact `json:"contacts"`
	Addresses   []Address `json:"addresses"`
}

// Contact is a person attached to a Close lead.
type Contact struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Phones []ContactPhone `json:"phones"`
	Emails []ContactEmail `json:"emails"`
}

// ContactPhone is a phone entry on a contact.
type ContactPhone struct {
	Phone string `json:"phone"`
	Type  string `json:"type"`
}

// ContactEmail is an email entry on a contact.
type ContactEmail struct {
	Email string `json:"email"`
	Type  string `json:"type"`
}

// Address is a postal address on a Close lead.
type Address struct {
	City  string `json:"city"`
	State string `json:"state"`
}

type smsRequest struct {
	LeadID      string `json:"lead_id"`
	LocalPhone  string `json:"local_phone,omitempty"`
	RemotePhone string `json:"remote_phone"`
	Text        string `json:"text"`
	Status      string `json:"status"`
}

type smsResponse struct {
	ID string `json:"id"`
}

// NewClient creates a Close client. Returns nil when no API key is
// configured so callers can degrade gracefully.
func NewClient(cfg config.CloseConfig, log *logger.Logger) *Client {
	if cfg.GetCloseAPIKey() == "" {
		return nil
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.GetCloseBaseURL(), "/"),
		apiKey:  cfg.GetCloseAPIKey(),
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// SendSMS creates an outbound SMS activity on the lead. Close delivers
// the message from localPhone to remotePhone. Returns the activity ID.
func (c *Client) SendSMS(ctx context.Context, leadID, localPhone, remotePhone, text string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("close client not configured")
	}

	payload := smsRequest{
		LeadID:      leadID,
		LocalPhone:  phone.NormalizeE164(localPhone),
		RemotePhone: phone.NormalizeE164(remotePhone),
		Text:        text,
		Status:      "outbox",
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal sms payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/activity/sms/", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return "", err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("close sms request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("close returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var result smsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode sms response: %w", err)
	}

	c.log.Info("sms sent via close", "lead_id", leadID, "activity_id", result.ID)
	return result.ID, nil
}

// GetLead fetches a lead with its contacts and addresses.
func (c *Client) GetLead(ctx context.Context, leadID string) (*Lead, error) {
	if c == nil {
		return nil, fmt.Errorf("close client not configured")
	}

	endpoint := fmt.Sprintf("%s/lead/%s/", c.baseURL, leadID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("close lead request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("close lead %s not found", leadID)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("close returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var lead Lead
	if err := json.NewDecoder(resp.Body).Decode(&lead); err != nil {
		return nil, fmt.Errorf("decode lead response: %w", err)
	}

	return &lead, nil
}

// UpdateContactEmail adds an email to the lead's contact in Close. Used
// when the booking flow collects an email the CRM does not have yet.
func (c *Client) UpdateContactEmail(ctx context.Context, contactID, email string) error {
	if c == nil {
		return fmt.Errorf("close client not configured")
	}

	payload := map[string]interface{}{
		"emails": []map[string]string{{"email": email, "type": "office"}},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal contact payload: %w", err)
	}

	endpoint := fmt.Sprintf("%s/contact/%s/", c.baseURL, contactID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, endpoint, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("close contact update failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("close returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	c.log.Info("close contact email updated", "contact_id", contactID)
	return nil
}

// SMSActivity is a single SMS exchange on a lead's activity feed.
type SMSActivity struct {
	ID          string    `json:"id"`
	LeadID      string    `json:"lead_id"`
	Direction   string    `json:"direction"`
	Text        string    `json:"text"`
	Status      string    `json:"status"`
	DateCreated time.Time `json:"date_created"`
}

type listEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// SearchLeads runs a Close lead search query, e.g.
// `status_label:"sold" date_created:>2026-01-01`.
func (c *Client) SearchLeads(ctx context.Context, query string, limit int) ([]Lead, error) {
	if c == nil {
		return nil, fmt.Errorf("close client not configured")
	}
	if limit <= 0 {
		limit = 20
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("_limit", strconv.Itoa(limit))

	var leads []Lead
	if err := c.getList(ctx, fmt.Sprintf("%s/lead/?%s", c.baseURL, params.Encode()), &leads); err != nil {
		return nil, err
	}
	return leads, nil
}

// SMSActivities returns the lead's SMS history, newest first.
func (c *Client) SMSActivities(ctx context.Context, leadID string, limit int) ([]SMSActivity, error) {
	if c == nil {
		return nil, fmt.Errorf("close client not configured")
	}
	if limit <= 0 {
		limit = 20
	}

	params := url.Values{}
	params.Set("lead_id", leadID)
	params.Set("_limit", strconv.Itoa(limit))

	var activities []SMSActivity
	if err := c.getList(ctx, fmt.Sprintf("%s/activity/sms/?%s", c.baseURL, params.Encode()), &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

func (c *Client) getList(ctx context.Context, fullURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return err
	}
	c.setHeaders(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("close list request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("close returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var envelope listEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decode close list response: %w", err)
	}
	return json.Unmarshal(envelope.Data, out)
}

// Ping checks API reachability and credentials.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return fmt.Errorf("close client not configured")
	}

	endpoint := fmt.Sprintf("%s/me/", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
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
		return fmt.Errorf("close returned %d", resp.StatusCode)
	}
	return nil
}

// Close authenticates with the API key as the basic auth username.
func (c *Client) setHeaders(req *http.Request) {
	req.SetBasicAuth(c.apiKey, "")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

// FirstName extracts a usable first name from the lead, falling back to
// the contact name and then "there".
func (l *Lead) FirstName() string {
	name := strings.TrimSpace(l.DisplayName)
	if name == "" && len(l.Contacts) > 0 {
		name = strings.TrimSpace(l.Contacts[0].Name)
	}
	if name == "" {
		return "there"
	}
	parts := strings.Fields(name)
	return parts[0]
}

// PrimaryPhone returns the first phone on the lead's contacts, normalized.
func (l *Lead) PrimaryPhone() string {
	for _, contact := range l.Contacts {
		for _, p := range contact.Phones {
			if p.Phone != "" {
				return phone.NormalizeE164(p.Phone)
			}
		}
	}
	return ""
}

// PrimaryEmail returns the first email on the lead's contacts.
func (l *Lead) PrimaryEmail() string {
	for _, contact := range l.Contacts {
		for _, e := range contact.Emails {
			if e.Email != "" {
				return e.Email
			}
		}
	}
	return ""
}

// PrimaryContactID returns the first contact ID, or empty.
func (l *Lead) PrimaryContactID() string {
	if len(l.Contacts) > 0 {
		return l.Contacts[0].ID
	}
	return ""
}

// State returns the state of the first address, or empty.
func (l *Lead) State() string {
	if len(l.Addresses) > 0 {
		return l.Addresses[0].State
	}
	return ""
}
