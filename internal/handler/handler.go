package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalitptl/patient-registry/internal/session"
)

// SessionState reports whether the database session is usable.
type SessionState interface {
	State() session.State
}

// Handler serves the operational endpoints.
type Handler struct {
	session  SessionState
	gatherer prometheus.Gatherer
}

// NewHandler creates a new handler instance. A nil gatherer serves the
// default registry.
func NewHandler(s SessionState, gatherer prometheus.Gatherer) *Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{session: s, gatherer: gatherer}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	health := r.Group("/health")
	{
		health.GET("/live", h.LivenessCheck)
		health.GET("/ready", h.ReadinessCheck)
	}
}

func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
		"time":   time.Now(),
	})
}

// ReadinessCheck answers 503 while the session is initializing or after it
// failed.
func (h *Handler) ReadinessCheck(c *gin.Context) {
	state := h.session.State()
	if !state.Ready {
		status := "initializing"
		if state.Error != "" {
			status = "failed"
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": status,
			"error":  state.Error,
			"time":   time.Now(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now(),
	})
}

func (h *Handler) MetricsHandler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
}
