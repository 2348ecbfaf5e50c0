// Package api exposes the HTTP triggers and the article listing.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Cron     *CronHandler
	Webhook  *WebhookHandler
	Articles *ArticlesHandler
}

// NewRouter constructs a gin engine with every configured handler registered.
func NewRouter(h Handlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())

	RegisterHealthRoutes(r)
	if h.Cron != nil {
		h.Cron.Register(r)
	}
	if h.Webhook != nil {
		h.Webhook.Register(r)
	}
	if h.Articles != nil {
		h.Articles.Register(r)
	}

	return r
}

func RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/healthz", handleHealth)
}

func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
