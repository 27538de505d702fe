// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package adapters implements the Source Adapter framework and the Source
// Registry: a uniform contract around source-specific fetching, parsing,
// deduplication, and per-source resumable checkpoints, plus the
// compile-time list of adapters this build ships.
package adapters

import (
	"context"

	"disasterfeed/internal/models"
)

// Adapter is the framework contract every source implements. Run must
// never raise on transport, timeout, or parse failure — those are
// swallowed internally and reported as an empty result with the prior
// state unchanged, so that only programmer bugs propagate to the caller.
type Adapter interface {
	SourceID() models.Source
	PollIntervalSec() int
	Run(ctx context.Context, priorState *string) (events []models.PartialEvent, nextState *string)
}

// Registry is the static, compile-time set of adapters keyed by source
// id. It never mutates after construction.
type Registry struct {
	bySource map[models.Source]Adapter
	all      []Adapter
}

// NewRegistry builds a Registry from a fixed adapter list. Registering
// two adapters for the same source id is a programmer error and panics,
// since the set is meant to be static and known at compile time.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{bySource: make(map[models.Source]Adapter, len(adapters))}
	for _, a := range adapters {
		if _, exists := r.bySource[a.SourceID()]; exists {
			panic("adapters: duplicate registration for source " + a.SourceID().String())
		}
		r.bySource[a.SourceID()] = a
		r.all = append(r.all, a)
	}
	return r
}

// Get returns the adapter registered for source, or ok=false if none is.
func (r *Registry) Get(source models.Source) (Adapter, bool) {
	a, ok := r.bySource[source]
	return a, ok
}

// List returns every registered adapter, in registration order.
func (r *Registry) List() []Adapter {
	return r.all
}

// Default builds the registry shipped with this build: one adapter per
// supported source.
func Default(cfg Config) *Registry {
	return NewRegistry(
		NewTextMsgAdapter(cfg),
		NewQuakeBulletinAdapter(cfg),
		NewWeatherWarningAdapter(cfg),
		NewPEWSAdapter(cfg),
		NewForestFireAdapter(cfg),
	)
}
