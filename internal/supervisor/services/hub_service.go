// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

package services

import "context"

// Hub matches sse.Hub's lifecycle methods, avoiding a direct dependency so
// this wrapper can be unit tested with a fake.
type Hub interface {
	Start(ctx context.Context) error
	Stop()
}

// HubService adapts sse.Hub's Start/Stop pair to suture's Serve pattern.
type HubService struct {
	hub Hub
}

// NewHubService creates a supervised wrapper around an SSE hub.
func NewHubService(hub Hub) *HubService {
	return &HubService{hub: hub}
}

// Serve subscribes the hub to the Event Bus and blocks until ctx is
// canceled, then stops the hub and evicts its clients.
func (h *HubService) Serve(ctx context.Context) error {
	if err := h.hub.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	h.hub.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for logging.
func (h *HubService) String() string {
	return "sse-hub"
}
