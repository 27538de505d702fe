// DisasterFeed - Multi-Source Disaster and Safety Event Aggregator
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package middleware holds small, composable net/http middleware used by
// the Query API: request-id propagation into the logging context,
// Prometheus request instrumentation, and response compression.
package middleware
