package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

func signedEngine(middleware gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/hook", middleware, func(c *gin.Context) {
		var payload map[string]any
		// Binding must still work after signature verification read the body.
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return engine
}

func sign(secret, timestamp string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return mac.Sum(nil)
}

func TestVerifyCloseSignatureAccepts(t *testing.T) {
	engine := signedEngine(VerifyCloseSignature(testSecret))

	body := []byte(`{"event":{"id":"ev_1"}}`)
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	req := httptest.NewRequest(http.MethodPost, "/hook", bytes.NewReader(body))
	req.Header.Set(HeaderCloseTimestamp, ts)
	req.Header.Set(HeaderCloseSignature, hex.EncodeToString(sign(testSecret, ts, body)))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestVerifyCloseSignatureRejectsBadSignature(t *testing.T) {
	engine := signedEngine(VerifyCloseSignature(testSecret))

	body := []byte(`{}`)
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	req := httptest.NewRequest(http.MethodPost, "/hook", bytes.NewReader(body))
	req.Header.Set(HeaderCloseTimestamp, ts)
	req.Header.Set(HeaderCloseSignature, hex.EncodeToString(sign("wrong-secret", ts, body)))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifyCloseSignatureRejectsMissingHeaders(t *testing.T) {
	engine := signedEngine(VerifyCloseSignature(testSecret))

	req := httptest.NewRequest(http.MethodPost, "/hook", bytes.NewReader([]byte(`{}`)))
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifyCloseSignatureRejectsStaleTimestamp(t *testing.T) {
	engine := signedEngine(VerifyCloseSignature(testSecret))

	body := []byte(`{}`)
	ts := strconv.FormatInt(time.Now().Add(-10*time.Minute).Unix(), 10)

	req := httptest.NewRequest(http.MethodPost, "/hook", bytes.NewReader(body))
	req.Header.Set(HeaderCloseTimestamp, ts)
	req.Header.Set(HeaderCloseSignature, hex.EncodeToString(sign(testSecret, ts, body)))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifyCalendlySignatureAccepts(t *testing.T) {
	engine := signedEngine(VerifyCalendlySignature(testSecret))

	body := []byte(`{"event":"invitee.created"}`)
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	req := httptest.NewRequest(http.MethodPost, "/hook", bytes.NewReader(body))
	req.Header.Set(HeaderCalendlyTimestamp, ts)
	req.Header.Set(HeaderCalendlySignature, base64.StdEncoding.EncodeToString(sign(testSecret, ts, body)))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestVerifyCalendlySignatureRejectsHexEncoding(t *testing.T) {
	// Close hex encoding on the Calendly endpoint must not pass.
	engine := signedEngine(VerifyCalendlySignature(testSecret))

	body := []byte(`{}`)
	ts := strconv.FormatInt(time.Now().Unix(), 10)

	req := httptest.NewRequest(http.MethodPost, "/hook", bytes.NewReader(body))
	req.Header.Set(HeaderCalendlyTimestamp, ts)
	req.Header.Set(HeaderCalendlySignature, hex.EncodeToString(sign(testSecret, ts, body)))

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestTimestampFresh(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	assert.True(t, timestampFresh("1700000000", now))
	assert.True(t, timestampFresh(strconv.FormatInt(now.Add(4*time.Minute).Unix(), 10), now))
	assert.False(t, timestampFresh(strconv.FormatInt(now.Add(-6*time.Minute).Unix(), 10), now))
	assert.False(t, timestampFresh("not-a-number", now))
}
