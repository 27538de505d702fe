// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads DisasterFeed's runtime configuration from layered
// defaults, an optional YAML file, and environment variables, in that order
// of increasing precedence.
package config

import (
	"fmt"
	"time"
)

// Config holds every setting needed to run one DisasterFeed instance: the
// HTTP/API surface, the event log and checkpoint store's backing database,
// the cross-instance event bus and job queue, and the set of adapters this
// instance ingests from.
type Config struct {
	Env      string         `koanf:"env"`
	Server   ServerConfig   `koanf:"server"`
	API      APIConfig      `koanf:"api"`
	Database DatabaseConfig `koanf:"database"`
	NATS     NATSConfig     `koanf:"nats"`
	Ingest   IngestConfig   `koanf:"ingest"`
	Logging  LoggingConfig  `koanf:"logging"`
	KMA      KMAConfig      `koanf:"kma"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host         string        `koanf:"host"`
	Port         int           `koanf:"port"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	ShutdownWait time.Duration `koanf:"shutdown_wait"`
}

// APIConfig configures the Query API surface.
type APIConfig struct {
	CORSEnabled    bool `koanf:"cors_enabled"`
	SwaggerEnabled bool `koanf:"swagger_enabled"`
	DefaultLimit   int  `koanf:"default_limit"`
	MaxLimit       int  `koanf:"max_limit"`
}

// DatabaseConfig configures the Event Log / Checkpoint Store's DuckDB file.
type DatabaseConfig struct {
	Path string `koanf:"path"`
}

// NATSConfig configures both the Event Bus and the Job Queue backbones.
// Both dial the same URL, each over its own connection.
type NATSConfig struct {
	URL           string `koanf:"url"`
	EventsSubject string `koanf:"events_subject"`
	StreamName    string `koanf:"stream_name"`
}

// IngestConfig gates the scheduler and tunes retry behavior shared by
// every adapter.
type IngestConfig struct {
	Enabled        bool          `koanf:"enabled"`
	MaxAttempts    int           `koanf:"max_attempts"`
	BaseBackoff    time.Duration `koanf:"base_backoff"`
	HTTPTimeout    time.Duration `koanf:"http_timeout"`
}

// LoggingConfig configures the zerolog global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Pretty bool   `koanf:"pretty"`
}

// KMAConfig carries credentials and simulation knobs for the Korea
// Meteorological Administration adapters (quakebulletin, weatherwarning,
// pews).
type KMAConfig struct {
	APIKey          string `koanf:"api_key"`
	PEWSSimEqkID    string `koanf:"pews_sim_eqk_id"`
	PEWSSimStartAt  string `koanf:"pews_sim_start_at"`
}

// Validate checks invariants that the zero value or a malformed override
// would otherwise let slip past startup and fail confusingly later.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.API.MaxLimit <= 0 {
		return fmt.Errorf("api.max_limit must be positive")
	}
	if c.API.DefaultLimit <= 0 || c.API.DefaultLimit > c.API.MaxLimit {
		return fmt.Errorf("api.default_limit must be in (0, max_limit]")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Ingest.Enabled {
		if c.NATS.URL == "" {
			return fmt.Errorf("nats.url must be set when ingest.enabled is true")
		}
		if c.Ingest.MaxAttempts <= 0 {
			return fmt.Errorf("ingest.max_attempts must be positive")
		}
	}
	return nil
}
