// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package eventbus implements the cross-instance Event Bus: a
// fire-and-forget fan-out channel that tells every other DisasterFeed
// instance "a new event exists" so each can push it to its own SSE
// clients. The bus carries no durability guarantee — a subscriber that
// isn't listening when a message is published simply misses it, which is
// fine because the Event Log is the durable record clients catch up
// against on (re)connect.
package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/google/uuid"

	"disasterfeed/internal/logging"
	"disasterfeed/internal/metrics"
)

// NewEventSubject is the topic every instance publishes new-event
// notifications on and subscribes to.
const NewEventSubject = "events:new"

// Handler processes one notification payload. Handlers run on the
// subscriber's delivery goroutine and should not block for long.
type Handler func(payload []byte)

// Bus is a thin wrapper over core (non-JetStream) NATS pub/sub; the
// publishing and subscribing sides each hold their own connection.
type Bus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     watermill.LoggerAdapter
}

// Connect dials url and prepares both the publish and subscribe sides.
// JetStream is disabled: the bus is a volatile notification channel, not
// a durable log.
func Connect(url string) (*Bus, error) {
	logger := watermill.NewStdLogger(false, false)

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("event bus disconnected from NATS")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("event bus reconnected to NATS")
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create event bus publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		SubscribersCount: 1,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("create event bus subscriber: %w", err)
	}

	return &Bus{publisher: pub, subscriber: sub, logger: logger}, nil
}

// Publish notifies every subscribed instance that a new event exists.
// The Event Writer publishes only the new event's id ({"event_id": ...});
// a subscriber looks the event itself up in the Event Log.
func (b *Bus) Publish(payload []byte) error {
	msg := message.NewMessage(uuid.NewString(), payload)
	if err := b.publisher.Publish(NewEventSubject, msg); err != nil {
		metrics.BusPublishTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("publish to event bus: %w", err)
	}
	metrics.BusPublishTotal.WithLabelValues("ok").Inc()
	return nil
}

// Subscribe registers handler to receive every future notification and
// returns a function that stops delivery. ctx governs the subscription's
// lifetime; canceling it also stops delivery.
func (b *Bus) Subscribe(ctx context.Context, handler Handler) (unsubscribe func(), err error) {
	subCtx, cancel := context.WithCancel(ctx)

	msgs, err := b.subscriber.Subscribe(subCtx, NewEventSubject)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe to event bus: %w", err)
	}

	go func() {
		for msg := range msgs {
			metrics.BusMessagesReceived.Inc()
			handler(msg.Payload)
			msg.Ack()
		}
	}()

	return cancel, nil
}

// Close shuts down both sides of the bus.
func (b *Bus) Close() error {
	if err := b.publisher.Close(); err != nil {
		return fmt.Errorf("close event bus publisher: %w", err)
	}
	if err := b.subscriber.Close(); err != nil {
		return fmt.Errorf("close event bus subscriber: %w", err)
	}
	return nil
}
