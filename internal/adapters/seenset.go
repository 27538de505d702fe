// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

package adapters

import (
	"time"

	"github.com/goccy/go-json"
)

// seenSetState is the checkpoint shape for dedup pattern 3: a map of
// previously-emitted ids to the time they were first seen, pruned by TTL
// on every run so the state doesn't grow without bound.
type seenSetState struct {
	Seen map[string]time.Time `json:"seen"`
}

// decodeSeenSet parses a checkpoint's opaque state string into a seen-set,
// returning an empty set (not an error) for nil or malformed state.
func decodeSeenSet(state *string) seenSetState {
	s := seenSetState{Seen: make(map[string]time.Time)}
	if state == nil || *state == "" {
		return s
	}
	if err := json.Unmarshal([]byte(*state), &s); err != nil {
		return seenSetState{Seen: make(map[string]time.Time)}
	}
	if s.Seen == nil {
		s.Seen = make(map[string]time.Time)
	}
	return s
}

// prune removes entries older than ttl relative to now, in place.
func (s *seenSetState) prune(now time.Time, ttl time.Duration) {
	for id, seenAt := range s.Seen {
		if now.Sub(seenAt) > ttl {
			delete(s.Seen, id)
		}
	}
}

// encode serializes the seen-set back into opaque checkpoint state.
func (s seenSetState) encode() *string {
	data, err := json.Marshal(s)
	if err != nil {
		return nil
	}
	encoded := string(data)
	return &encoded
}
