// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"disasterfeed/internal/adapters"
	"disasterfeed/internal/checkpoint"
	"disasterfeed/internal/jobqueue"
	"disasterfeed/internal/logging"
	"disasterfeed/internal/metrics"
	"disasterfeed/internal/models"
)

// CheckpointStore is the subset of checkpoint.Store the Worker needs.
type CheckpointStore interface {
	Get(ctx context.Context, source models.Source) (*models.IngestCheckpoint, error)
	Upsert(ctx context.Context, source models.Source, state *string) error
}

// Worker implements the Ingest Worker: it drains jobs off the Job
// Queue, resolves the matching adapter, and runs it under a per-source
// single-flight guard so the same source never executes concurrently on one
// worker even if the queue redelivers overlapping jobs.
type Worker struct {
	registry   *adapters.Registry
	checkpoint CheckpointStore
	writer     *Writer
	queue      *jobqueue.Queue

	inFlight sync.Map // models.Source -> struct{}
}

// NewWorker builds a Worker over the given collaborators.
func NewWorker(registry *adapters.Registry, cp CheckpointStore, writer *Writer, queue *jobqueue.Queue) *Worker {
	return &Worker{registry: registry, checkpoint: cp, writer: writer, queue: queue}
}

func (w *Worker) String() string { return "ingest-worker" }

// Serve consumes jobs from the queue until ctx is canceled.
func (w *Worker) Serve(ctx context.Context) error {
	return w.queue.Consume(ctx, w.handleJob)
}

// handleJob resolves the adapter, applies the single-flight guard, loads
// the checkpoint, runs the adapter, writes every event, and advances the
// checkpoint only if every insert succeeded.
func (w *Worker) handleJob(ctx context.Context, job jobqueue.Job) error {
	source := job.SourceID
	a, ok := w.registry.Get(source)
	if !ok {
		logging.Warn().Str("source", source.String()).Msg("ingest worker: no adapter registered, dropping job")
		return nil
	}

	if _, already := w.inFlight.LoadOrStore(source, struct{}{}); already {
		logging.Info().Str("source", source.String()).Msg("ingest worker: source already running, skipping")
		metrics.IngestRunsTotal.WithLabelValues(source.String(), "single_flight_skipped").Inc()
		return nil
	}
	defer w.inFlight.Delete(source)

	cp, err := w.checkpoint.Get(ctx, source)
	var priorState *string
	if err == nil {
		priorState = cp.State
	} else if !errors.Is(err, checkpoint.ErrNotFound) {
		logging.Warn().Err(err).Str("source", source.String()).Msg("ingest worker: failed to load checkpoint, treating as fresh start")
	}

	runStart := time.Now()
	fetchedAt := runStart.UTC()
	events, nextState := a.Run(ctx, priorState)
	metrics.IngestEventsEmitted.WithLabelValues(source.String()).Add(float64(len(events)))

	allSucceeded := true
	for _, partial := range events {
		if _, err := w.writer.Append(ctx, partial, source, fetchedAt); err != nil {
			logging.Error().Err(err).Str("source", source.String()).Msg("ingest worker: failed to write event")
			allSucceeded = false
			continue
		}
		metrics.IngestEventsInserted.WithLabelValues(source.String()).Inc()
	}

	metrics.RecordIngestRun(source.String(), statusLabel(allSucceeded), time.Since(runStart))

	if !allSucceeded {
		return nil
	}
	if err := w.checkpoint.Upsert(ctx, source, nextState); err != nil {
		logging.Error().Err(err).Str("source", source.String()).Msg("ingest worker: failed to advance checkpoint")
		return nil
	}
	metrics.IngestCheckpointAdvanced.WithLabelValues(source.String()).Inc()
	return nil
}

func statusLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
