// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package services provides suture.Service wrappers for components whose
native lifecycle doesn't already match suture's Serve(ctx) pattern.

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts the ListenAndServe pattern to Serve

SSE Hub (HubService):
  - Wraps sse.Hub's Start(ctx)/Stop() pair
  - Subscribes to the Event Bus on Serve, unsubscribes and evicts
    every connected client on context cancellation

# Lifecycle Patterns

Start/Stop Pattern:

	type StartStopper interface {
	    Start(ctx context.Context) error
	    Stop()
	}

	// Wrapped as:
	func (s *Service) Serve(ctx context.Context) error {
	    if err := s.component.Start(ctx); err != nil {
	        return err
	    }
	    <-ctx.Done()
	    s.component.Stop()
	    return ctx.Err()
	}

ListenAndServe Pattern:

	type Listener interface {
	    ListenAndServe() error
	    Shutdown(ctx context.Context) error
	}

	// Wrapped as:
	func (s *Service) Serve(ctx context.Context) error {
	    go s.server.ListenAndServe()
	    <-ctx.Done()
	    return s.server.Shutdown(shutdownCtx)
	}

# Service Identification

All services implement fmt.Stringer so suture's logs can name them.

# See Also

  - internal/supervisor: SupervisorTree that manages these services
  - github.com/thejerf/suture/v4: Underlying supervision library
  - internal/sse: SSE hub implementation
*/
package services
