// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package models holds the data types shared across DisasterFeed's
// ingestion, storage, and API layers: the append-only Event and its
// partially-populated adapter-produced form, the per-source
// IngestCheckpoint, and the Source/Kind/Level enums every component
// agrees on.
package models
