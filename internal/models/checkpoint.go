// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import "time"

// IngestCheckpoint is the Checkpoint Store's mutable per-source row.
// State is opaque to the framework — only the owning adapter interprets it.
type IngestCheckpoint struct {
	SourceID  Source
	State     *string
	UpdatedAt time.Time
}
