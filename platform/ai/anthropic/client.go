// Package anthropic provides a minimal client for the Anthropic Messages API,
// covering only what the SMS responder needs.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Config for the Anthropic client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client calls the Anthropic Messages API over HTTP.
type Client struct {
	config Config
	client *http.Client
}

// NewClient creates a client with sane defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Model == "" {
		cfg.Model = "claude-sonnet-4-20250514"
	}
	return &Client{
		config: cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the configured model identifier.
func (c *Client) Name() string {
	return c.config.Model
}

// Message is a single conversation turn. Role is "user" or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completion is the result of a Complete call.
type Completion struct {
	Text         string
	StopReason   string
	InputTokens  int
	OutputTokens int
}

type messagesRequest struct {
	Model       string    `json:"model"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature"`
	System      string    `json:"system,omitempty"`
	Messages    []Message `json:"messages"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Responses for an SMS channel are short; the model is capped accordingly.
const (
	maxResponseTokens = 500
	temperature       = 0.7
)

// Complete sends the system prompt and conversation history and returns
// the model's reply.
func (c *Client) Complete(ctx context.Context, system string, history []Message) (*Completion, error) {
	payload := messagesRequest{
		Model:       c.config.Model,
		MaxTokens:   maxResponseTokens,
		Temperature: temperature,
		System:      system,
		Messages:    history,
	}

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/messages", bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("x-api-key", c.config.APIKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var result messagesResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode anthropic response: %v", err)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("anthropic api error: %s: %s", result.Error.Type, result.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("anthropic api error: status %d", resp.StatusCode)
	}

	var textBuilder strings.Builder
	for _, block := range result.Content {
		if block.Type != "text" || strings.TrimSpace(block.Text) == "" {
			continue
		}
		if textBuilder.Len() > 0 {
			textBuilder.WriteString("\n")
		}
		textBuilder.WriteString(block.Text)
	}

	text := strings.TrimSpace(textBuilder.String())
	if text == "" {
		return nil, fmt.Errorf("anthropic api error: empty completion")
	}

	return &Completion{
		Text:         text,
		StopReason:   result.StopReason,
		InputTokens:  result.Usage.InputTokens,
		OutputTokens: result.Usage.OutputTokens,
	}, nil
}
