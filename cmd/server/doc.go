// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package main is the entry point for the DisasterFeed server.

DisasterFeed polls heterogeneous public disaster/safety data sources,
normalizes every item into a common event record, persists the result in
an append-only log, and fans it out in real time to subscribed clients
across horizontally-scaled instances.

# Application Architecture

The process runs under a three-layer Suture v4 supervisor tree:

	RootSupervisor ("disasterfeed")
	├── DataSupervisor ("data-layer")
	│   ├── Ingest Scheduler — one repeatable enqueue loop per adapter
	│   └── Ingest Worker    — single-flight adapter execution
	├── MessagingSupervisor ("messaging-layer")
	│   └── SSE Hub         — subscribes to the Event Bus once
	└── APISupervisor ("api-layer")
	    └── HTTP Server     — /events, /events/stream, health, docs

Component initialization order:

 1. Configuration: Koanf v2 layering defaults, an optional YAML file, and
    environment variables.
 2. Logging: zerolog, level and format controlled by configuration.
 3. Event Log + Checkpoint Store: a shared DuckDB file (internal/eventlog,
    internal/checkpoint).
 4. Event Bus: a NATS core pub/sub connection (internal/eventbus), needed
    by the SSE Hub on every instance regardless of ingest role.
 5. Job Queue: a NATS JetStream work queue (internal/jobqueue), connected
    only when this instance ingests (INGEST_ENABLED=1).
 6. Source Registry, Ingest Scheduler, Ingest Worker: started only on
    ingesting instances; a read-only replica skips all three and only
    serves queries and SSE fan-out.
 7. SSE Hub, HTTP router, supervisor tree: always started.

# Read-only replicas

Setting INGEST_ENABLED=0 turns an instance into a pure fan-out replica: it
still connects to the Event Bus and the database, runs the SSE Hub and the
Query API, but never schedules or executes adapter polls. This is how the
fleet scales reader capacity independently of ingest capacity.

# Signal Handling

SIGINT and SIGTERM trigger an ordered shutdown: the HTTP server stops
accepting connections, the SSE hub unsubscribes and evicts its clients,
the ingest worker and scheduler drain, the event bus and job queue
connections close, then the database pool closes. A watchdog forces exit
if any step hangs past the configured shutdown timeout.

# Exit Codes

0 on clean shutdown, 1 on watchdog force-exit or a fatal startup error.
*/
package main
