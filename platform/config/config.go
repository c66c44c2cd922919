// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// QueueConfig provides Redis/queue settings for producers and workers.
type QueueConfig interface {
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetQueueConcurrency() int
	GetSMSQueueConcurrency() int
	GetCalendlyQueueConcurrency() int
	GetJobMaxRetries() int
}

// CloseConfig provides settings for the Close CRM client.
type CloseConfig interface {
	GetCloseAPIKey() string
	GetCloseBaseURL() string
	GetCloseWebhookSecret() string
}

// CalendlyConfig provides settings for the Calendly client.
type CalendlyConfig interface {
	GetCalendlyAPIKey() string
	GetCalendlyBaseURL() string
	GetCalendlyEventTypeURI() string
	GetCalendlyWebhookSecret() string
	IsCalendlyEnabled() bool
}

// LLMConfig provides settings for the language model client.
type LLMConfig interface {
	GetAnthropicAPIKey() string
	GetAnthropicBaseURL() string
	GetAnthropicModel() string
	IsLLMEnabled() bool
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// AdminConfig provides settings for admin/bot-control endpoints.
type AdminConfig interface {
	GetAdminAPIKey() string
}

// BookingConfig provides appointment scheduling settings.
type BookingConfig interface {
	GetBookingDayStartHour() int
	GetBookingDayEndHour() int
	GetBookingMinLeadTime() time.Duration
	GetBookingTimezone() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                      string
	HTTPAddr                 string
	DatabaseURL              string
	RedisAddr                string
	RedisPassword            string
	RedisDB                  int
	QueueConcurrency         int
	SMSQueueConcurrency      int
	CalendlyQueueConcurrency int
	JobMaxRetries            int
	CORSAllowAll             bool
	CORSOrigins              []string
	CORSAllowCreds           bool
	CloseAPIKey              string
	CloseBaseURL             string
	CloseWebhookSecret       string
	CalendlyAPIKey           string
	CalendlyBaseURL          string
	CalendlyEventTypeURI     string
	CalendlyWebhookSecret    string
	AnthropicAPIKey          string
	AnthropicBaseURL         string
	AnthropicModel           string
	AdminAPIKey              string
	BookingDayStartHour      int
	BookingDayEndHour        int
	BookingMinLeadTime       time.Duration
	BookingTimezone          string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// QueueConfig implementation
func (c *Config) GetRedisAddr() string             { return c.RedisAddr }
func (c *Config) GetRedisPassword() string         { return c.RedisPassword }
func (c *Config) GetRedisDB() int                  { return c.RedisDB }
func (c *Config) GetQueueConcurrency() int         { return c.QueueConcurrency }
func (c *Config) GetSMSQueueConcurrency() int      { return c.SMSQueueConcurrency }
func (c *Config) GetCalendlyQueueConcurrency() int { return c.CalendlyQueueConcurrency }
func (c *Config) GetJobMaxRetries() int            { return c.JobMaxRetries }

// CloseConfig implementation
func (c *Config) GetCloseAPIKey() string        { return c.CloseAPIKey }
func (c *Config) GetCloseBaseURL() string       { return c.CloseBaseURL }
func (c *Config) GetCloseWebhookSecret() string { return c.CloseWebhookSecret }

// CalendlyConfig implementation
func (c *Config) GetCalendlyAPIKey() string        { return c.CalendlyAPIKey }
func (c *Config) GetCalendlyBaseURL() string       { return c.CalendlyBaseURL }
func (c *Config) GetCalendlyEventTypeURI() string  { return c.CalendlyEventTypeURI }
func (c *Config) GetCalendlyWebhookSecret() string { return c.CalendlyWebhookSecret }
func (c *Config) IsCalendlyEnabled() bool          { return c.CalendlyAPIKey != "" }

// LLMConfig implementation
func (c *Config) GetAnthropicAPIKey() string  { return c.AnthropicAPIKey }
func (c *Config) GetAnthropicBaseURL() string { return c.AnthropicBaseURL }
func (c *Config) GetAnthropicModel() string   { return c.AnthropicModel }
func (c *Config) IsLLMEnabled() bool          { return c.AnthropicAPIKey != "" }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// AdminConfig implementation
func (c *Config) GetAdminAPIKey() string { return c.AdminAPIKey }

// BookingConfig implementation
func (c *Config) GetBookingDayStartHour() int          { return c.BookingDayStartHour }
func (c *Config) GetBookingDayEndHour() int            { return c.BookingDayEndHour }
func (c *Config) GetBookingMinLeadTime() time.Duration { return c.BookingMinLeadTime }
func (c *Config) GetBookingTimezone() string           { return c.BookingTimezone }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:                      getEnv("APP_ENV", "development"),
		HTTPAddr:                 getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		RedisAddr:                getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:            getEnv("REDIS_PASSWORD", ""),
		RedisDB:                  mustInt(getEnv("REDIS_DB", "0")),
		QueueConcurrency:         mustInt(getEnv("QUEUE_CONCURRENCY", "10")),
		SMSQueueConcurrency:      mustInt(getEnv("SMS_QUEUE_CONCURRENCY", "5")),
		CalendlyQueueConcurrency: mustInt(getEnv("CALENDLY_QUEUE_CONCURRENCY", "3")),
		JobMaxRetries:            mustInt(getEnv("JOB_MAX_RETRIES", "3")),
		CORSAllowAll:             corsAllowAll,
		CORSOrigins:              corsOrigins,
		CORSAllowCreds:           strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		CloseAPIKey:              getEnv("CLOSE_API_KEY", ""),
		CloseBaseURL:             getEnv("CLOSE_BASE_URL", "https://api.close.com/api/v1"),
		CloseWebhookSecret:       getEnv("CLOSE_WEBHOOK_SECRET", ""),
		CalendlyAPIKey:           getEnv("CALENDLY_API_KEY", ""),
		CalendlyBaseURL:          getEnv("CALENDLY_BASE_URL", "https://api.calendly.com"),
		CalendlyEventTypeURI:     getEnv("CALENDLY_EVENT_TYPE_URI", ""),
		CalendlyWebhookSecret:    getEnv("CALENDLY_WEBHOOK_SECRET", ""),
		AnthropicAPIKey:          getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicBaseURL:         getEnv("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		AnthropicModel:           getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		AdminAPIKey:              getEnv("ADMIN_API_KEY", ""),
		BookingDayStartHour:      mustInt(getEnv("BOOKING_DAY_START_HOUR", "9")),
		BookingDayEndHour:        mustInt(getEnv("BOOKING_DAY_END_HOUR", "18")),
		BookingMinLeadTime:       mustDuration(getEnv("BOOKING_MIN_LEAD_TIME", "30m")),
		BookingTimezone:          getEnv("BOOKING_TIMEZONE", "America/New_York"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.CloseAPIKey == "" {
		return nil, fmt.Errorf("CLOSE_API_KEY is required")
	}
	if cfg.CloseWebhookSecret == "" {
		return nil, fmt.Errorf("CLOSE_WEBHOOK_SECRET is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.BookingDayStartHour < 0 || cfg.BookingDayEndHour > 24 || cfg.BookingDayStartHour >= cfg.BookingDayEndHour {
		return nil, fmt.Errorf("invalid booking hours: start=%d end=%d", cfg.BookingDayStartHour, cfg.BookingDayEndHour)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
