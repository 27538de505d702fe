// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"context"
	"testing"
	"time"

	"disasterfeed/internal/adapters"
	"disasterfeed/internal/models"
)

// nonPositiveIntervalAdapter exercises the scheduler's "skip and warn"
// path for an adapter that reports a non-positive poll interval.
type nonPositiveIntervalAdapter struct{ fakeAdapter }

func (a *nonPositiveIntervalAdapter) PollIntervalSec() int { return 0 }

func TestSchedulerSkipsNonPositiveInterval(t *testing.T) {
	t.Parallel()

	a := &nonPositiveIntervalAdapter{fakeAdapter{source: models.SourceForestFire}}
	registry := adapters.NewRegistry(a)
	s := NewScheduler(registry, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		_ = s.Serve(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after ctx cancellation")
	}
}
