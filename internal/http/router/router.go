// Package router builds the Gin engine from the application's modules.
package router

import (
	"net/http"
	"time"

	apphttp "smsbot_backend/internal/http"
	"smsbot_backend/platform/httpkit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// New constructs the Gin engine, wiring global middleware, the health
// endpoint, and every module's routes.
func New(app *apphttp.App) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(httpkit.RequestLogger(app.Logger))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(corsMiddleware(app.Config))

	engine.HandleMethodNotAllowed = true

	// Bare liveness probe; the health module serves the full report at
	// /api/health.
	engine.GET("/api/health/live", func(c *gin.Context) {
		if err := app.Health.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	webhookLimiter := httpkit.NewWebhookRateLimiter(app.Logger)
	webhooks := engine.Group("/webhooks")
	webhooks.Use(webhookLimiter.RateLimit())

	v1 := engine.Group("/api/v1")
	admin := v1.Group("/admin")
	admin.Use(httpkit.APIKeyRequired(app.Config))

	ctx := &apphttp.RouterContext{
		Engine:   engine,
		V1:       v1,
		Webhooks: webhooks,
		Admin:    admin,
	}

	for _, m := range app.Modules {
		m.RegisterRoutes(ctx)
		app.Logger.Info("registered module routes", "module", m.Name())
	}

	return engine
}

func corsMiddleware(cfg apphttp.RouterConfig) gin.HandlerFunc {
	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", httpkit.HeaderAPIKey},
		AllowCredentials: cfg.GetCORSAllowCreds(),
		MaxAge:           12 * time.Hour,
	}
	if cfg.GetCORSAllowAll() {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.GetCORSOrigins()
	}
	return cors.New(corsCfg)
}
