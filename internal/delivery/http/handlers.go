package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/avi5049/cardio-risk/internal/domain"
	"github.com/avi5049/cardio-risk/internal/model"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Assessor is satisfied by *assessment.Service.
type Assessor interface {
	Handle(ctx context.Context, body []byte) (int, any)
	RejectBody(ctx context.Context, err error) (int, any)
}

// ModelManager is satisfied by *model.Loader.
type ModelManager interface {
	Ready() bool
	Metadata() model.Metadata
	Load(ctx context.Context) error
}

type Handler struct {
	svc    Assessor
	models ModelManager
	db     HealthChecker
}

func NewHandler(svc Assessor, models ModelManager, db HealthChecker) *Handler {
	return &Handler{svc: svc, models: models, db: db}
}

func (h *Handler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz is ok only when a model is loaded and the database (if enabled) answers.
func (h *Handler) Readyz(c *gin.Context) {
	ready := true
	modelStatus := "ok"
	if !h.models.Ready() {
		ready = false
		modelStatus = "not loaded"
	}

	dbStatus := "disabled"
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		dbStatus = "ok"
		if err := h.db.Ping(ctx); err != nil {
			ready = false
			dbStatus = fmt.Sprintf("unhealthy: %v", err)
		}
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"model":  modelStatus,
			"db":     dbStatus,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"model":  modelStatus,
		"db":     dbStatus,
	})
}

// Predict hands the raw body to the assessment service untouched.
func (h *Handler) Predict(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		status, payload := h.svc.RejectBody(c.Request.Context(), err)
		c.JSON(status, payload)
		return
	}

	status, payload := h.svc.Handle(c.Request.Context(), body)
	c.JSON(status, payload)
}

func (h *Handler) ModelInfo(c *gin.Context) {
	c.JSON(http.StatusOK, h.models.Metadata())
}

// ReloadModel forces a reload. The previous model keeps serving on failure.
func (h *Handler) ReloadModel(c *gin.Context) {
	if err := h.models.Load(c.Request.Context()); err != nil {
		slog.WarnContext(c.Request.Context(), "manual model reload failed",
			"error", err,
			"request_id", c.GetString(requestIDKey),
		)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": gin.H{
			"kind":    domain.KindModelUnavailable,
			"message": "model reload failed; the previous model is still active",
		}})
		return
	}
	c.JSON(http.StatusOK, h.models.Metadata())
}
