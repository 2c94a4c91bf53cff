// Package notify broadcasts a payload-free "data changed" signal between
// execution contexts sharing one store. A context publishes after each of its
// own writes; every other context subscribed to the same key is told to
// reload. A context never observes its own signal.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jwalitptl/patient-registry/pkg/messaging"
	"github.com/jwalitptl/patient-registry/pkg/metrics"
)

// DefaultKey is the shared channel every registry context listens on.
const DefaultKey = "patient-registry-sync"

// Event is the value written on each change. At is opaque to receivers.
type Event struct {
	Origin string    `json:"origin"`
	At     time.Time `json:"at"`
}

type Hub struct {
	broker  messaging.Broker
	key     string
	logger  *zerolog.Logger
	metrics *metrics.Metrics
}

func New(broker messaging.Broker, key string, logger *zerolog.Logger, m *metrics.Metrics) *Hub {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Hub{broker: broker, key: key, logger: logger, metrics: m}
}

func (h *Hub) Key() string {
	return h.key
}

// Peer returns the handle for one execution context.
func (h *Hub) Peer(origin string) *Peer {
	return &Peer{hub: h, origin: origin}
}

type Peer struct {
	hub    *Hub
	origin string
}

func (p *Peer) Origin() string {
	return p.origin
}

// NotifyChanged tells every other context to re-read its data.
func (p *Peer) NotifyChanged(ctx context.Context) error {
	err := p.hub.broker.Publish(ctx, p.hub.key, Event{Origin: p.origin, At: time.Now().UTC()})
	if p.hub.metrics != nil {
		status := "success"
		if err != nil {
			status = "error"
		}
		p.hub.metrics.ChangesPublished.WithLabelValues(status).Inc()
	}
	if err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	p.hub.logger.Debug().Str("origin", p.origin).Msg("change published")
	return nil
}

// OnChanged registers handler for changes made by other contexts. The
// returned function releases the listener and may be called more than once.
func (p *Peer) OnChanged(handler func()) (func(), error) {
	stop, err := messaging.Handle(context.Background(), p.hub.broker, p.hub.key, func(payload []byte) {
		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			p.hub.logger.Warn().Err(err).Msg("ignoring malformed change event")
			return
		}
		if event.Origin == p.origin {
			return
		}
		if p.hub.metrics != nil {
			p.hub.metrics.ChangesReceived.Inc()
		}
		handler()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to listen for changes: %w", err)
	}

	var once sync.Once
	return func() { once.Do(stop) }, nil
}
