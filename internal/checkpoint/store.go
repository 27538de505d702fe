// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package checkpoint implements the Checkpoint Store: one mutable row
// per adapter recording how far that adapter has progressed, opaque to
// everything but the adapter that owns it.
package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"disasterfeed/internal/models"
)

// ErrNotFound is returned by Get when a source has never checkpointed.
var ErrNotFound = errors.New("checkpoint: not found")

// Store reads and writes ingest_checkpoints rows against a shared
// *sql.DB — the same connection the Event Log opened, since both tables
// live in one database file.
type Store struct {
	conn *sql.DB
}

// New wraps an already-open connection. Callers typically pass the
// *sql.DB obtained from an eventlog.DB's Conn method.
func New(conn *sql.DB) *Store {
	return &Store{conn: conn}
}

// Get returns the current checkpoint for source, or ErrNotFound if the
// adapter has never run to completion.
func (s *Store) Get(ctx context.Context, source models.Source) (*models.IngestCheckpoint, error) {
	row := s.conn.QueryRowContext(ctx, `
		SELECT source_id, state, updated_at FROM ingest_checkpoints WHERE source_id = ?
	`, int(source))

	var cp models.IngestCheckpoint
	var sourceID int
	var state sql.NullString
	if err := row.Scan(&sourceID, &state, &cp.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get checkpoint for %s: %w", source, err)
	}
	cp.SourceID = models.Source(sourceID)
	if state.Valid {
		cp.State = &state.String
	}
	return &cp, nil
}

// Upsert writes the checkpoint for source, overwriting any prior state.
// The Ingest Worker calls this only after a run completes with every
// emitted event successfully inserted, never on a partial run.
func (s *Store) Upsert(ctx context.Context, source models.Source, state *string) error {
	var stateArg any
	if state != nil {
		stateArg = *state
	}
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO ingest_checkpoints (source_id, state, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (source_id) DO UPDATE SET state = EXCLUDED.state, updated_at = EXCLUDED.updated_at
	`, int(source), stateArg, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert checkpoint for %s: %w", source, err)
	}
	return nil
}
