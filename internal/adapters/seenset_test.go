// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

package adapters

import (
	"testing"
	"time"
)

func TestSeenSetPruneByTTL(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	s := seenSetState{Seen: map[string]time.Time{
		"A": now.Add(-24*time.Hour - time.Second),
		"B": now,
	}}

	s.prune(now, 24*time.Hour)

	if _, ok := s.Seen["A"]; ok {
		t.Fatal("expected A to be pruned")
	}
	if _, ok := s.Seen["B"]; !ok {
		t.Fatal("expected B to remain")
	}
}

func TestDecodeSeenSetNilState(t *testing.T) {
	t.Parallel()
	s := decodeSeenSet(nil)
	if s.Seen == nil || len(s.Seen) != 0 {
		t.Fatalf("expected empty seen set, got %+v", s)
	}
}

func TestSeenSetRoundTrip(t *testing.T) {
	t.Parallel()
	now := time.Now().UTC().Truncate(time.Second)
	s := seenSetState{Seen: map[string]time.Time{"X": now}}
	encoded := s.encode()
	if encoded == nil {
		t.Fatal("expected non-nil encoded state")
	}
	decoded := decodeSeenSet(encoded)
	if !decoded.Seen["X"].Equal(now) {
		t.Fatalf("expected round-tripped time %v, got %v", now, decoded.Seen["X"])
	}
}
