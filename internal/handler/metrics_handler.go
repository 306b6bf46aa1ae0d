package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/educenter-crm-api/internal/service"
	appErrors "github.com/noah-isme/educenter-crm-api/pkg/errors"
	"github.com/noah-isme/educenter-crm-api/pkg/jobs"
	"github.com/noah-isme/educenter-crm-api/pkg/response"
)

type pinger interface {
	PingContext(ctx context.Context) error
}

type queueStatsSource interface {
	Stats() jobs.Stats
}

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	db      pinger
	queue   queueStatsSource
}

// NewMetricsHandler constructs a metrics handler. db and queue may be nil.
func NewMetricsHandler(metrics *service.MetricsService, db pinger, queue queueStatsSource) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, db: db, queue: queue}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness usage.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports whether the database answers.
func (h *MetricsHandler) Ready(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// System godoc
// @Summary Runtime and domain counters
// @Tags System
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /system/metrics [get]
func (h *MetricsHandler) System(c *gin.Context) {
	if h.metrics == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	payload := gin.H{"metrics": h.metrics.Snapshot()}
	if h.queue != nil {
		payload["notificationQueue"] = h.queue.Stats()
	}
	response.JSON(c, http.StatusOK, payload, nil)
}
