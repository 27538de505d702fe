// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for an optional YAML config
// file, in priority order. The first one found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/disasterfeed/config.yaml",
	"/etc/disasterfeed/config.yml",
}

// ConfigPathEnvVar overrides the search above with an exact file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Env: "production",
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			ShutdownWait: 10 * time.Second,
		},
		API: APIConfig{
			CORSEnabled:    false,
			SwaggerEnabled: true,
			DefaultLimit:   50,
			MaxLimit:       200,
		},
		Database: DatabaseConfig{
			Path: "disasterfeed.duckdb",
		},
		NATS: NATSConfig{
			URL:           "nats://localhost:4222",
			EventsSubject: "events:new",
			StreamName:    "DISASTERFEED_JOBS",
		},
		Ingest: IngestConfig{
			Enabled:     true,
			MaxAttempts: 3,
			BaseBackoff: 5 * time.Second,
			HTTPTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Pretty: false,
		},
	}
}

// Load builds a Config by layering, in increasing order of precedence:
//
//  1. Defaults: the built-in values above.
//  2. Config file: an optional YAML file (see DefaultConfigPaths).
//  3. Environment variables: e.g. PORT, DATABASE_URL, NATS_URL, KMA_API_KEY.
func Load() (*Config, error) {
	k := koanf.New(".")

	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps the flat environment variable names named in the
// operations runbook onto koanf's dotted config paths. Anything not listed
// here falls through to the generic SECTION_FIELD -> section.field rule.
func envTransformFunc(key string) string {
	switch key {
	case "NODE_ENV":
		return "env"
	case "HOST":
		return "server.host"
	case "PORT":
		return "server.port"
	case "CORS":
		return "api.cors_enabled"
	case "SWAGGER":
		return "api.swagger_enabled"
	case "INGEST_ENABLED":
		return "ingest.enabled"
	case "DATABASE_URL":
		return "database.path"
	case "NATS_URL":
		return "nats.url"
	case "KMA_API_KEY":
		return "kma.api_key"
	case "KMA_PEWS_SIM_EQK_ID":
		return "kma.pews_sim_eqk_id"
	case "KMA_PEWS_SIM_START_AT":
		return "kma.pews_sim_start_at"
	case "LOG_LEVEL":
		return "logging.level"
	}
	lower := strings.ToLower(key)
	return strings.ReplaceAll(lower, "_", ".")
}
