// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sse implements the per-instance SSE Hub: it subscribes to the
// Event Bus once, and on every notification looks the event up in the
// Event Log and fans it out to this instance's live SSE subscribers.
package sse

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"disasterfeed/internal/eventbus"
	"disasterfeed/internal/logging"
	"disasterfeed/internal/metrics"
	"disasterfeed/internal/models"
)

// frameBufferSize bounds how many undelivered frames a slow subscriber can
// accumulate before the hub evicts it rather than blocking the broadcast.
const frameBufferSize = 64

// Frame is one SSE data frame: an event id (used as the SSE "id:" field,
// enabling clients to resume with Last-Event-ID) and its JSON-encoded body.
type Frame struct {
	ID   string
	Data []byte
}

// WriteFrame encodes frame in SSE wire format and writes it to w. Callers
// writing more than one frame are responsible for flushing after each.
func WriteFrame(w http.ResponseWriter, frame Frame) error {
	if _, err := w.Write([]byte("id: " + frame.ID + "\ndata: ")); err != nil {
		return err
	}
	if _, err := w.Write(frame.Data); err != nil {
		return err
	}
	_, err := w.Write([]byte("\n\n"))
	return err
}

// EventStore is the subset of eventlog.DB the Hub needs, narrowed for
// testability.
type EventStore interface {
	GetByID(ctx context.Context, id string) (*models.Event, error)
	ListSince(ctx context.Context, sinceFetchedAt time.Time, sinceID string, limit int) ([]*models.Event, error)
}

type busNotification struct {
	EventID string `json:"event_id"`
}

// Hub is the single per-instance fan-out point for SSE subscribers.
type Hub struct {
	store EventStore
	bus   *eventbus.Bus

	mu          sync.RWMutex
	started     bool
	unsubscribe func()
	clients     map[string]*Subscriber
}

// NewHub builds a Hub over the given Event Log and Event Bus.
func NewHub(store EventStore, bus *eventbus.Bus) *Hub {
	return &Hub{store: store, bus: bus, clients: make(map[string]*Subscriber)}
}

// Start subscribes to the Event Bus once. Calling it again while already
// started is a no-op. If the subscription attempt fails, the started flag
// is reset so a later Start retries.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	if h.started {
		h.mu.Unlock()
		return nil
	}
	h.mu.Unlock()

	unsubscribe, err := h.bus.Subscribe(ctx, func(payload []byte) {
		var note busNotification
		if err := json.Unmarshal(payload, &note); err != nil {
			logging.Warn().Err(err).Msg("sse hub: malformed bus notification, dropping")
			return
		}
		h.onBusMessage(ctx, note.EventID)
	})

	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		h.started = false
		return fmt.Errorf("sse hub: subscribe to event bus: %w", err)
	}
	h.unsubscribe = unsubscribe
	h.started = true
	return nil
}

// Stop unsubscribes from the Event Bus and evicts every live subscriber.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.unsubscribe != nil {
		h.unsubscribe()
		h.unsubscribe = nil
	}
	h.started = false
	for id, sub := range h.clients {
		sub.close()
		delete(h.clients, id)
	}
}

// AddClient registers a new subscriber and returns it; the caller (the
// HTTP handler owning the connection) is responsible for calling
// RemoveClient on abort or connection close.
func (h *Hub) AddClient() *Subscriber {
	sub := newSubscriber()
	h.mu.Lock()
	h.clients[sub.id] = sub
	metrics.SSEConnectedClients.Set(float64(len(h.clients)))
	h.mu.Unlock()
	return sub
}

// RemoveClient evicts sub, if still registered.
func (h *Hub) RemoveClient(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[sub.id]; !ok {
		return
	}
	delete(h.clients, sub.id)
	sub.close()
	metrics.SSEConnectedClients.Set(float64(len(h.clients)))
}

// CatchUp writes every event strictly after since directly to w, in
// ascending (fetched_at, id) order, flushing after each frame. It is a
// no-op if since is nil.
//
// Frames are written straight to the response instead of going through
// sub's buffered channel: ListSince can return up to 500 events, far more
// than frameBufferSize, and routing them through deliver would silently
// drop everything past the buffer's capacity before the live loop ever
// starts draining it.
func (h *Hub) CatchUp(ctx context.Context, w http.ResponseWriter, flusher http.Flusher, since *time.Time) error {
	if since == nil {
		return nil
	}
	// "~" sorts after every ULID character (0-9, A-Z), so the (since, "~")
	// cursor excludes events whose fetched_at equals since.
	events, err := h.store.ListSince(ctx, *since, "~", 0)
	if err != nil {
		return fmt.Errorf("sse hub: catch-up query failed: %w", err)
	}
	for _, ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			logging.Warn().Err(err).Str("event_id", ev.ID).Msg("sse hub: marshal catch-up event failed, skipping")
			continue
		}
		if err := WriteFrame(w, Frame{ID: ev.ID, Data: data}); err != nil {
			return fmt.Errorf("sse hub: write catch-up frame: %w", err)
		}
		flusher.Flush()
		metrics.SSEFramesSent.WithLabelValues("catch_up").Inc()
	}
	return nil
}

// onBusMessage looks up eventID and fans it out to every live subscriber,
// evicting any whose frame buffer can't accept it without blocking.
func (h *Hub) onBusMessage(ctx context.Context, eventID string) {
	ev, err := h.store.GetByID(ctx, eventID)
	if err != nil {
		logging.Warn().Err(err).Str("event_id", eventID).Msg("sse hub: event not yet visible, dropping notification")
		return
	}

	data, err := json.Marshal(ev)
	if err != nil {
		logging.Warn().Err(err).Str("event_id", eventID).Msg("sse hub: marshal event failed")
		return
	}
	frame := Frame{ID: ev.ID, Data: data}

	h.mu.RLock()
	subs := make([]*Subscriber, 0, len(h.clients))
	for _, sub := range h.clients {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })

	for _, sub := range subs {
		if !sub.deliver(frame) {
			logging.Warn().Str("client_id", sub.id).Msg("sse hub: subscriber buffer full, evicting")
			h.RemoveClient(sub)
			metrics.SSEBroadcastErrors.Inc()
			continue
		}
		metrics.SSEFramesSent.WithLabelValues("live").Inc()
	}
}
