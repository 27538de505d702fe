// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

package eventlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"disasterfeed/internal/models"
)

// ErrNotFound is returned by GetByID when no event has the given id.
var ErrNotFound = errors.New("eventlog: event not found")

// ListFilter narrows a List query. A zero value matches every event.
type ListFilter struct {
	Source models.Source
	Kind   models.Kind
	Limit  int
}

// Insert appends ev to the log. Inserting the same id twice is a no-op:
// ON CONFLICT DO NOTHING ignores the second row without an error. Ids are
// minted by the Event Writer on every Append, so a re-run of an adapter
// produces new ids rather than conflicts.
func (db *DB) Insert(ctx context.Context, ev *models.Event) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO events (id, source, kind, title, body, fetched_at, occurred_at, region_text, level, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO NOTHING
	`, ev.ID, int(ev.Source), int(ev.Kind), ev.Title, nullableString(ev.Body),
		ev.FetchedAt, nullableTime(ev.OccurredAt), nullableString(ev.RegionText), int(ev.Level), string(payload))
	if err != nil {
		return fmt.Errorf("insert event %s: %w", ev.ID, err)
	}
	return nil
}

// GetByID returns the event record verbatim, or ErrNotFound.
func (db *DB) GetByID(ctx context.Context, id string) (*models.Event, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, source, kind, title, body, fetched_at, occurred_at, region_text, level, payload
		FROM events WHERE id = ?
	`, id)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event %s: %w", id, err)
	}
	return ev, nil
}

// List returns events matching filter, newest fetched_at first.
func (db *DB) List(ctx context.Context, filter ListFilter) ([]*models.Event, error) {
	query := `SELECT id, source, kind, title, body, fetched_at, occurred_at, region_text, level, payload FROM events WHERE 1=1`
	var args []any
	if filter.Source != models.SourceUnknown {
		query += ` AND source = ?`
		args = append(args, int(filter.Source))
	}
	if filter.Kind != models.KindUnknown {
		query += ` AND kind = ?`
		args = append(args, int(filter.Kind))
	}
	query += ` ORDER BY fetched_at DESC, id DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListSince returns events ordered by (fetched_at, id) ascending, strictly
// after the given cursor. It backs the SSE Hub's catch-up-then-live
// replay.
func (db *DB) ListSince(ctx context.Context, sinceFetchedAt time.Time, sinceID string, limit int) ([]*models.Event, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, source, kind, title, body, fetched_at, occurred_at, region_text, level, payload
		FROM events
		WHERE (fetched_at, id) > (?, ?)
		ORDER BY fetched_at ASC, id ASC
		LIMIT ?
	`, sinceFetchedAt, sinceID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events since: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var ev models.Event
	var body, region sql.NullString
	var occurred sql.NullTime
	var payload string
	var source, kind, level int

	if err := row.Scan(&ev.ID, &source, &kind, &ev.Title, &body, &ev.FetchedAt, &occurred, &region, &level, &payload); err != nil {
		return nil, err
	}
	ev.Source = models.Source(source)
	ev.Kind = models.Kind(kind)
	ev.Level = models.Level(level)
	if body.Valid {
		ev.Body = &body.String
	}
	if region.Valid {
		ev.RegionText = &region.String
	}
	if occurred.Valid {
		ev.OccurredAt = &occurred.Time
	}
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &ev.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal payload for event %s: %w", ev.ID, err)
		}
	}
	return &ev, nil
}

func scanEvents(rows *sql.Rows) ([]*models.Event, error) {
	var events []*models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}
