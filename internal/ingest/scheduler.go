// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package ingest wires the Source Registry to the Job Queue: the
// Scheduler installs one repeatable job per registered adapter, the
// Worker drains those jobs and runs the matching adapter, and the
// Writer persists and fans out whatever the adapter returns.
package ingest

import (
	"context"
	"fmt"
	"time"

	"disasterfeed/internal/adapters"
	"disasterfeed/internal/jobqueue"
	"disasterfeed/internal/logging"
	"disasterfeed/internal/models"
)

// Scheduler installs a repeatable enqueue job per registered adapter with
// job id "ingest:<source_id>" and period poll_interval_sec*1000ms. It never
// runs adapter code itself — Enqueue hands off to whichever instance's
// Worker picks the job off the queue.
//
// jobID is currently only a log label: each Scheduler runs its own
// in-process ticker rather than a single fleet-wide scheduled fire, so
// running more than one INGEST_ENABLED=1 instance multiplies the number of
// Enqueue calls per interval (N instances enqueue N times; the per-source
// Worker single-flight guard and each adapter's own dedup keep this from
// producing duplicate events, but it does do N times the polling work).
// Deploying more than one ingesting instance assumes that tradeoff is
// acceptable; a fleet-wide single fire would need a JetStream-scheduled
// publish or a NATS-KV leader lease keyed on jobID instead of a ticker.
type Scheduler struct {
	registry *adapters.Registry
	queue    *jobqueue.Queue
}

// NewScheduler builds a Scheduler over registry and queue.
func NewScheduler(registry *adapters.Registry, queue *jobqueue.Queue) *Scheduler {
	return &Scheduler{registry: registry, queue: queue}
}

func (s *Scheduler) String() string { return "ingest-scheduler" }

// Serve starts one ticker goroutine per registered adapter and blocks until
// ctx is canceled. Re-entering Serve after a restart re-installs the same
// set of job ids, which is idempotent since each tick is just a publish.
func (s *Scheduler) Serve(ctx context.Context) error {
	adapterList := s.registry.List()
	if len(adapterList) == 0 {
		logging.Warn().Msg("ingest scheduler: no adapters registered")
		<-ctx.Done()
		return ctx.Err()
	}

	done := make(chan struct{}, len(adapterList))
	for _, a := range adapterList {
		go s.runJob(ctx, a, done)
	}

	for range adapterList {
		<-done
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *Scheduler) runJob(ctx context.Context, a adapters.Adapter, done chan<- struct{}) {
	defer func() { done <- struct{}{} }()

	sourceID := a.SourceID()
	jobID := fmt.Sprintf("ingest:%s", sourceID)
	interval := a.PollIntervalSec()
	if interval <= 0 {
		logging.Warn().Str("job_id", jobID).Int("poll_interval_sec", interval).
			Msg("ingest scheduler: skipping adapter with non-positive interval")
		return
	}

	period := time.Duration(interval) * time.Second
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	logging.Info().Str("job_id", jobID).Dur("period", period).Msg("ingest scheduler: job installed")

	s.enqueue(ctx, sourceID, jobID)
	for {
		select {
		case <-ticker.C:
			s.enqueue(ctx, sourceID, jobID)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Scheduler) enqueue(ctx context.Context, sourceID models.Source, jobID string) {
	if err := s.queue.Enqueue(ctx, sourceID); err != nil {
		logging.Warn().Str("job_id", jobID).Err(err).Msg("ingest scheduler: enqueue failed")
	}
}
