// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/oklog/ulid/v2"

	"disasterfeed/internal/eventbus"
	"disasterfeed/internal/eventlog"
	"disasterfeed/internal/logging"
	"disasterfeed/internal/models"
)

// EventStore is the subset of eventlog.DB the Writer needs, narrowed for
// testability.
type EventStore interface {
	Insert(ctx context.Context, ev *models.Event) error
}

// Writer implements the Event Writer: insert into the Event Log, then
// best-effort publish the new id on the Event Bus.
type Writer struct {
	store EventStore
	bus   *eventbus.Bus
}

// NewWriter builds a Writer over an eventlog.DB and the cross-instance bus.
func NewWriter(store *eventlog.DB, bus *eventbus.Bus) *Writer {
	return &Writer{store: store, bus: bus}
}

// busNotification is the payload published on the Event Bus: just enough
// for a subscriber to know an event exists without duplicating its content.
type busNotification struct {
	EventID string `json:"event_id"`
}

// Append materializes partial into a full Event (fresh id, source,
// fetched_at), inserts it, and notifies other instances. Publish failure is
// logged and swallowed: the event is durable regardless, and a client that
// missed the notification still discovers it via catch-up.
func (w *Writer) Append(ctx context.Context, partial models.PartialEvent, source models.Source, fetchedAt time.Time) (*models.Event, error) {
	ev := &models.Event{
		ID:         newEventID(),
		Source:     source,
		Kind:       partial.Kind,
		Title:      partial.Title,
		Body:       partial.Body,
		FetchedAt:  fetchedAt,
		OccurredAt: partial.OccurredAt,
		RegionText: partial.RegionText,
		Level:      partial.Level,
		Payload:    partial.Payload,
	}

	if err := w.store.Insert(ctx, ev); err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	if w.bus != nil {
		payload, err := json.Marshal(busNotification{EventID: ev.ID})
		if err != nil {
			logging.Warn().Err(err).Str("event_id", ev.ID).Msg("event writer: marshal notification failed")
		} else if err := w.bus.Publish(payload); err != nil {
			logging.Warn().Err(err).Str("event_id", ev.ID).Msg("event writer: bus publish failed, event still durable")
		}
	}

	return ev, nil
}

// newEventID mints a fresh time-ordered identifier: a ULID, so ids sort by
// creation order and embed their own timestamp. ulid.Make uses monotonic
// entropy, so ids minted within the same millisecond still increase.
func newEventID() string {
	return ulid.Make().String()
}
