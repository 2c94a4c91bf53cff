package changes

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/patient-registry/internal/middleware"
	"github.com/jwalitptl/patient-registry/pkg/errors"
	"github.com/jwalitptl/patient-registry/pkg/notify"
)

const (
	eventReload    = "reload"
	eventKeepalive = "ping"
)

// Handler streams change signals to clients over server-sent events. A
// client receives a "reload" event whenever another execution context
// writes, and never for its own writes.
type Handler struct {
	hub       *notify.Hub
	keepalive time.Duration
}

func NewHandler(hub *notify.Hub, keepalive time.Duration) *Handler {
	if keepalive <= 0 {
		keepalive = 30 * time.Second
	}
	return &Handler{hub: hub, keepalive: keepalive}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/changes", h.Stream)
}

func (h *Handler) Stream(c *gin.Context) {
	clientID := middleware.GetClientID(c)

	// One pending signal is enough; the client reloads everything anyway.
	pending := make(chan struct{}, 1)
	stop, err := h.hub.Peer(clientID).OnChanged(func() {
		select {
		case pending <- struct{}{}:
		default:
		}
	})
	if err != nil {
		_ = c.Error(errors.NewUnavailable("change notifications unavailable", err))
		return
	}
	defer stop()

	log.Debug().Str("client_id", clientID).Msg("change stream opened")
	defer log.Debug().Str("client_id", clientID).Msg("change stream closed")

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	// Send headers now so the client knows it is subscribed.
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepalive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case <-pending:
			c.SSEvent(eventReload, gin.H{"key": h.hub.Key()})
			return true
		case <-ticker.C:
			c.SSEvent(eventKeepalive, gin.H{"time": time.Now()})
			return true
		}
	})
}
