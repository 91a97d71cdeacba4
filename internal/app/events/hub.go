// Package events fans domain events out to live subscribers such as the
// admin dashboard websocket.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/clubhouse-sports/clubhouse/pkg/logger"
)

// Event types published by the services.
const (
	TypeApplicationTransition = "application.transition"
	TypeTrialScheduled        = "trial.scheduled"
	TypeTrialCompleted        = "trial.completed"
	TypeTrialCancelled        = "trial.cancelled"
	TypeUserTransition        = "user.transition"
)

// Event is one published notification.
type Event struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
	At   time.Time              `json:"at"`
}

// Publisher accepts events. A nil Publisher is valid and drops everything.
type Publisher interface {
	Publish(evt Event)
}

// Hub is an in-process broadcast hub. Slow subscribers lose events rather
// than blocking publishers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[chan Event]struct{}
	buffer int
	closed bool
	log    *logger.Logger
}

// NewHub creates a hub whose subscriber channels hold buffer events.
func NewHub(buffer int, log *logger.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	if log == nil {
		log = logger.NewDefault("events")
	}
	return &Hub{subs: make(map[chan Event]struct{}), buffer: buffer, log: log}
}

// Publish delivers evt to every subscriber.
func (h *Hub) Publish(evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return
	}
	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
			h.log.WithField("type", evt.Type).Warn("dropping event for slow subscriber")
		}
	}
}

// Subscribe registers a subscriber. The returned func unsubscribes and
// closes the channel.
func (h *Hub) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, h.buffer)
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			if _, ok := h.subs[ch]; ok {
				delete(h.subs, ch)
				close(ch)
			}
			h.mu.Unlock()
		})
	}
}

// Subscribers reports the current subscriber count.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		delete(h.subs, ch)
		close(ch)
	}
}

func (h *Hub) Name() string { return "events" }

func (h *Hub) Start(context.Context) error { return nil }

// Stop closes the hub, ending every live stream.
func (h *Hub) Stop(context.Context) error {
	h.Close()
	return nil
}
