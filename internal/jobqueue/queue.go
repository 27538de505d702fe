// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package jobqueue implements the durable ingest Job Queue on top of
// NATS JetStream. The Ingest Scheduler enqueues one repeatable job per
// registered adapter; a JetStream queue-group consumer hands each job to
// exactly one running instance's Ingest Worker, giving single-flight
// execution across the fleet for free. Failed jobs are redelivered with
// exponential backoff up to a fixed attempt ceiling, after which they are
// dropped and surfaced only through an error log — there is no
// separate dead-letter stream.
package jobqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"disasterfeed/internal/logging"
	"disasterfeed/internal/models"
)

const consumerDurableName = "ingest-workers"

// Job is the payload enqueued for one adapter run.
type Job struct {
	SourceID models.Source `json:"source_id"`
}

// Handler runs one job and reports whether it succeeded. A non-nil error
// triggers a backoff-and-retry redelivery, up to the queue's configured
// attempt ceiling.
type Handler func(ctx context.Context, job Job) error

// Queue wraps a JetStream stream and a queue-group consumer shared by every
// DisasterFeed instance, so each enqueued job is processed exactly once
// fleet-wide.
type Queue struct {
	nc          *natsgo.Conn
	js          jetstream.JetStream
	stream      jetstream.Stream
	streamName  string
	subject     string
	maxAttempts int
	baseBackoff time.Duration
}

// Connect dials url, provisions the job stream if it doesn't already
// exist, and returns a Queue ready to enqueue and consume jobs.
func Connect(ctx context.Context, url, streamName string, maxAttempts int, baseBackoff time.Duration) (*Queue, error) {
	nc, err := natsgo.Connect(url, natsgo.RetryOnFailedConnect(true), natsgo.MaxReconnects(-1))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	subject := streamName + ".ingest"
	stream, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       streamName,
		Subjects:   []string{subject},
		Retention:  jetstream.WorkQueuePolicy,
		MaxAge:     24 * time.Hour,
		Storage:    jetstream.FileStorage,
		Discard:    jetstream.DiscardOld,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("ensure job stream: %w", err)
	}

	return &Queue{
		nc:          nc,
		js:          js,
		stream:      stream,
		streamName:  streamName,
		subject:     subject,
		maxAttempts: maxAttempts,
		baseBackoff: baseBackoff,
	}, nil
}

// Enqueue submits a job for source. The Ingest Scheduler calls this once
// per adapter per tick; JetStream's work-queue retention means a job sits
// in the stream until exactly one consumer acks it.
func (q *Queue) Enqueue(ctx context.Context, sourceID models.Source) error {
	payload, err := json.Marshal(Job{SourceID: sourceID})
	if err != nil {
		return fmt.Errorf("marshal job for %s: %w", sourceID, err)
	}
	if _, err := q.js.Publish(ctx, q.subject, payload); err != nil {
		return fmt.Errorf("enqueue job for %s: %w", sourceID, err)
	}
	return nil
}

// Consume starts a durable queue-group consumer and invokes handler for
// every delivered job until ctx is canceled. Only one instance in the
// fleet receives any given job, and Consume blocks until ctx is done.
func (q *Queue) Consume(ctx context.Context, handler Handler) error {
	consumer, err := q.stream.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       consumerDurableName,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxDeliver:    q.maxAttempts,
		AckWait:       q.baseBackoff * time.Duration(1<<uint(q.maxAttempts)),
		FilterSubject: q.subject,
	})
	if err != nil {
		return fmt.Errorf("create job consumer: %w", err)
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		q.handleDelivery(msg, handler)
	})
	if err != nil {
		return fmt.Errorf("start consuming jobs: %w", err)
	}
	defer consumeCtx.Stop()

	<-ctx.Done()
	return nil
}

func (q *Queue) handleDelivery(msg jetstream.Msg, handler Handler) {
	var job Job
	if err := json.Unmarshal(msg.Data(), &job); err != nil {
		logging.Error().Err(err).Msg("jobqueue: dropping malformed job payload")
		_ = msg.Term()
		return
	}

	meta, err := msg.Metadata()
	delivered := 1
	if err == nil {
		delivered = int(meta.NumDelivered)
	}

	ctx, cancel := context.WithTimeout(context.Background(), q.baseBackoff*time.Duration(1<<uint(q.maxAttempts)))
	defer cancel()

	if err := handler(ctx, job); err != nil {
		if delivered >= q.maxAttempts {
			logging.Error().Err(err).Str("source", job.SourceID.String()).Int("attempts", delivered).
				Msg("jobqueue: job exhausted retry attempts, dropping")
			_ = msg.Term()
			return
		}
		backoff := q.baseBackoff * time.Duration(1<<uint(delivered-1))
		logging.Warn().Err(err).Str("source", job.SourceID.String()).Int("attempt", delivered).
			Dur("backoff", backoff).Msg("jobqueue: job failed, scheduling retry")
		_ = msg.NakWithDelay(backoff)
		return
	}

	_ = msg.Ack()
}

// Close closes the underlying NATS connection without draining it.
func (q *Queue) Close() {
	q.nc.Close()
}
