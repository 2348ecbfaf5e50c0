package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/kovalyov-valentin/news-ingest/internal/ingest"
	"github.com/kovalyov-valentin/news-ingest/internal/model"
)

const DefaultTrustedCronHeader = "x-vercel-cron"

type BatchRunner interface {
	RunOnce(ctx context.Context) (model.BatchSummary, error)
}

type CronAuth struct {
	Secret string
	// Authentication is enforced in production even without a secret
	Production bool
	// Header set by the hosting platform's scheduler; its presence is accepted
	TrustedHeader string
}

func (a CronAuth) required() bool {
	return a.Secret != "" || a.Production
}

func (a CronAuth) allows(r *http.Request) bool {
	if !a.required() {
		return true
	}

	if a.Secret != "" && secretEqual(r.Header.Get("Authorization"), "Bearer "+a.Secret) {
		return true
	}

	header := a.TrustedHeader
	if header == "" {
		header = DefaultTrustedCronHeader
	}
	return strings.TrimSpace(r.Header.Get(header)) != ""
}

func secretEqual(got, want string) bool {
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}

type CronHandler struct {
	runner BatchRunner
	auth   CronAuth
}

func NewCronHandler(runner BatchRunner, auth CronAuth) *CronHandler {
	return &CronHandler{runner: runner, auth: auth}
}

func (h *CronHandler) Register(r *gin.Engine) {
	r.GET("/api/cron/fetch-and-process", h.handleFetchAndProcess)
	r.POST("/api/cron/fetch-and-process", h.handleFetchAndProcess)
}

type cronSummary struct {
	TotalStored  int `json:"totalStored"`
	TotalSkipped int `json:"totalSkipped"`
	ErrorCount   int `json:"errorCount"`
}

type cronResponse struct {
	Success bool                    `json:"success"`
	Summary cronSummary             `json:"summary"`
	Results []model.IngestionResult `json:"results"`
}

func (h *CronHandler) handleFetchAndProcess(c *gin.Context) {
	if !h.auth.allows(c.Request) {
		errorResponse(c, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}

	log.Info("starting cron: fetch and process")

	summary, err := h.runner.RunOnce(c.Request.Context())
	switch {
	case errors.Is(err, ingest.ErrPrecondition):
		log.Error("system author not found", "err", err)
		errorResponse(c, http.StatusInternalServerError, "System author not found", nil)
		return
	case errors.Is(err, ingest.ErrNoActiveSources):
		c.JSON(http.StatusOK, gin.H{"message": "No active sources found"})
		return
	case err != nil:
		errorResponse(c, http.StatusInternalServerError, "Internal Server Error", err)
		return
	}

	c.JSON(http.StatusOK, cronResponse{
		Success: true,
		Summary: cronSummary{
			TotalStored:  summary.TotalStored,
			TotalSkipped: summary.TotalSkipped,
			ErrorCount:   len(summary.AllErrors),
		},
		Results: summary.SourceResults,
	})
}
