// Package httpkit provides HTTP middleware infrastructure.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"smsbot_backend/platform/config"
	"smsbot_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	// HeaderAPIKey is the header carrying the admin API key.
	HeaderAPIKey = "X-API-Key"

	errMissingAPIKey = "missing api key"
	errInvalidAPIKey = "invalid api key"
)

// RequestLogger logs HTTP requests with timing.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		clientIP := c.ClientIP()

		log.HTTPRequest(c.Request.Method, path, status, float64(latency.Milliseconds()), clientIP)
	}
}

// SecurityHeaders adds security headers to responses.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only add HSTS in production
		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// IPRateLimiter manages per-IP rate limiters.
type IPRateLimiter struct {
	limiters sync.Map
	rate     rate.Limit
	burst    int
	log      *logger.Logger
}

// NewIPRateLimiter creates a new IP-based rate limiter.
func NewIPRateLimiter(r rate.Limit, burst int, log *logger.Logger) *IPRateLimiter {
	return &IPRateLimiter{
		rate:  r,
		burst: burst,
		log:   log,
	}
}

func (i *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	limiter, exists := i.limiters.Load(ip)
	if !exists {
		newLimiter := rate.NewLimiter(i.rate, i.burst)
		i.limiters.Store(ip, newLimiter)
		return newLimiter
	}
	return limiter.(*rate.Limiter)
}

// RateLimit returns a middleware that rate limits by IP.
func (i *IPRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		limiter := i.getLimiter(ip)

		if !limiter.Allow() {
			if i.log != nil {
				i.log.RateLimitExceeded(ip, c.Request.URL.Path)
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}

		c.Next()
	}
}

// WebhookRateLimiter is a more generous limiter for webhook endpoints,
// sized for CRM burst delivery rather than interactive traffic.
type WebhookRateLimiter struct {
	*IPRateLimiter
}

// NewWebhookRateLimiter creates a rate limiter for webhook endpoints
// (60 requests per minute, burst of 30).
func NewWebhookRateLimiter(log *logger.Logger) *WebhookRateLimiter {
	return &WebhookRateLimiter{
		IPRateLimiter: NewIPRateLimiter(rate.Limit(60.0/60.0), 30, log),
	}
}

// APIKeyRequired returns middleware that validates the admin API key header.
// When no key is configured, all requests are rejected.
func APIKeyRequired(cfg config.AdminConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		expected := cfg.GetAdminAPIKey()
		if expected == "" {
			abortUnauthorized(c, errInvalidAPIKey)
			return
		}

		provided := c.GetHeader(HeaderAPIKey)
		if provided == "" {
			abortUnauthorized(c, errMissingAPIKey)
			return
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) != 1 {
			abortUnauthorized(c, errInvalidAPIKey)
			return
		}

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}
