// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

package eventbus

import (
	"context"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
)

func startTestNATS(t *testing.T) string {
	t.Helper()
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

func TestPublishSubscribeRoundTrip(t *testing.T) {
	url := startTestNATS(t)

	bus, err := Connect(url)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer bus.Close()

	received := make(chan []byte, 1)
	unsubscribe, err := bus.Subscribe(context.Background(), func(payload []byte) {
		received <- payload
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer unsubscribe()

	time.Sleep(100 * time.Millisecond) // let the subscription register

	if err := bus.Publish([]byte(`{"id":"01JABCDEF"}`)); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case payload := <-received:
		if string(payload) != `{"id":"01JABCDEF"}` {
			t.Fatalf("got %q", payload)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	url := startTestNATS(t)

	bus, err := Connect(url)
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer bus.Close()

	received := make(chan []byte, 1)
	unsubscribe, err := bus.Subscribe(context.Background(), func(payload []byte) {
		received <- payload
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	unsubscribe()
	time.Sleep(100 * time.Millisecond)

	_ = bus.Publish([]byte(`{"id":"should-not-arrive"}`))

	select {
	case <-received:
		t.Fatal("expected no delivery after unsubscribe")
	case <-time.After(300 * time.Millisecond):
	}
}
