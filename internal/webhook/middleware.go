package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Signature headers set by the webhook providers.
const (
	HeaderCloseSignature    = "close-sig-hash"
	HeaderCloseTimestamp    = "close-sig-timestamp"
	HeaderCalendlySignature = "calendly-webhook-signature"
	HeaderCalendlyTimestamp = "calendly-webhook-timestamp"
)

// replayWindow bounds how old a signed timestamp may be.
const replayWindow = 5 * time.Minute

// VerifyCloseSignature validates the Close webhook HMAC before the handler
// runs. Close signs "{timestamp}.{body}" with SHA-256 and sends the digest
// hex encoded. The request body is restored for downstream binding.
func VerifyCloseSignature(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := readBody(c)
		if !ok {
			return
		}

		signature := c.GetHeader(HeaderCloseSignature)
		timestamp := c.GetHeader(HeaderCloseTimestamp)
		if signature == "" || timestamp == "" {
			abortSignature(c, "missing signature headers")
			return
		}
		if !timestampFresh(timestamp, time.Now()) {
			abortSignature(c, "stale webhook timestamp")
			return
		}

		expected := hex.EncodeToString(signDigest(secret, timestamp, body))
		if !hmac.Equal([]byte(signature), []byte(expected)) {
			abortSignature(c, "invalid signature")
			return
		}

		c.Next()
	}
}

// VerifyCalendlySignature validates the Calendly webhook HMAC. Calendly
// signs the same "{timestamp}.{body}" content but encodes the digest in
// base64 rather than hex.
func VerifyCalendlySignature(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, ok := readBody(c)
		if !ok {
			return
		}

		signature := c.GetHeader(HeaderCalendlySignature)
		timestamp := c.GetHeader(HeaderCalendlyTimestamp)
		if signature == "" || timestamp == "" {
			abortSignature(c, "missing signature headers")
			return
		}
		if !timestampFresh(timestamp, time.Now()) {
			abortSignature(c, "stale webhook timestamp")
			return
		}

		expected := base64.StdEncoding.EncodeToString(signDigest(secret, timestamp, body))
		if !hmac.Equal([]byte(signature), []byte(expected)) {
			abortSignature(c, "invalid signature")
			return
		}

		c.Next()
	}
}

func signDigest(secret, timestamp string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return mac.Sum(nil)
}

func timestampFresh(timestamp string, now time.Time) bool {
	unix, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return false
	}
	drift := now.Sub(time.Unix(unix, 0))
	if drift < 0 {
		drift = -drift
	}
	return drift <= replayWindow
}

// readBody consumes the request body and puts it back so handlers can bind
// the JSON payload after signature verification.
func readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable request body"})
		return nil, false
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return body, true
}

func abortSignature(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
}
