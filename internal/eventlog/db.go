// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package eventlog implements the append-only Event Log: the single
// source of truth every ingested event is written to exactly once, and the
// source every API read and SSE catch-up is served from.
package eventlog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"disasterfeed/internal/config"
	"disasterfeed/internal/logging"
)

// DB wraps the DuckDB connection shared by the Event Log and, via Conn,
// the Checkpoint Store — both live in the same database file.
type DB struct {
	conn *sql.DB
}

// Open creates the database file's parent directory if needed, opens the
// DuckDB connection, and runs pending migrations.
func Open(cfg *config.DatabaseConfig) (*DB, error) {
	dir := filepath.Dir(cfg.Path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", dir, err)
		}
	}

	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, runtime.NumCPU())

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	conn.SetMaxOpenConns(runtime.NumCPU())
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)

	db := &DB{conn: conn}
	if err := db.runMigrations(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return db, nil
}

// Conn exposes the underlying connection so the Checkpoint Store can share
// it without DisasterFeed opening the database file twice.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Close releases the underlying connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping verifies the connection is alive.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

type migration struct {
	version     int
	name        string
	sql         string
}

var migrations = []migration{
	{
		version: 1,
		name:    "create_events_and_checkpoints",
		sql: `
CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	source INTEGER NOT NULL,
	kind INTEGER NOT NULL,
	title TEXT NOT NULL,
	body TEXT,
	fetched_at TIMESTAMPTZ NOT NULL,
	occurred_at TIMESTAMPTZ,
	region_text TEXT,
	level INTEGER NOT NULL,
	payload JSON
);
CREATE INDEX IF NOT EXISTS idx_events_fetched_at ON events (fetched_at DESC);
CREATE INDEX IF NOT EXISTS idx_events_kind_fetched_at ON events (kind, fetched_at DESC);
CREATE INDEX IF NOT EXISTS idx_events_source_fetched_at ON events (source, fetched_at DESC);

CREATE TABLE IF NOT EXISTS ingest_checkpoints (
	source_id INTEGER PRIMARY KEY,
	state TEXT,
	updated_at TIMESTAMPTZ NOT NULL
);
`,
	},
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

func (db *DB) runMigrations() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, schemaMigrationsTable); err != nil {
		return fmt.Errorf("create schema_migrations table: %w", err)
	}

	applied := make(map[int]bool)
	rows, err := db.conn.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("query applied migrations: %w", err)
	}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			rows.Close()
			return fmt.Errorf("scan migration version: %w", err)
		}
		applied[v] = true
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if _, err := db.conn.ExecContext(ctx, m.sql); err != nil {
			return fmt.Errorf("apply migration v%d (%s): %w", m.version, m.name, err)
		}
		if _, err := db.conn.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.version, m.name); err != nil {
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}
		logging.Info().Int("version", m.version).Str("name", m.name).Msg("applied database migration")
	}
	return nil
}
