// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the indexer.
//
// Metrics cover the realtime coordination layer: progress fan-out
// (events published, subscriber count, observers dropped on overflow)
// and chat sessions (active sessions, turns, query latency). Exposed
// via the /metrics endpoint.
//
// Thread Safety: all metric operations are thread-safe via
// Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "codescope"

// IndexerMetrics holds all Prometheus metrics for the indexer service.
type IndexerMetrics struct {
	// ProgressEventsTotal counts published progress events.
	// Labels: status (starting, processing, complete, error)
	ProgressEventsTotal *prometheus.CounterVec

	// ProgressSubscribers tracks currently connected progress observers.
	ProgressSubscribers prometheus.Gauge

	// DroppedObserversTotal counts observers disconnected because
	// their queue overflowed.
	DroppedObserversTotal prometheus.Counter

	// ActiveSessions tracks currently open chat sessions.
	ActiveSessions prometheus.Gauge

	// ChatTurnsTotal counts completed chat turns.
	// Labels: outcome (success, error)
	ChatTurnsTotal *prometheus.CounterVec

	// QueryDurationSeconds measures query engine latency per turn.
	QueryDurationSeconds prometheus.Histogram

	// HeartbeatTimeoutsTotal counts connections dropped for missing
	// the pong window. Labels: transport (progress, chat)
	HeartbeatTimeoutsTotal *prometheus.CounterVec

	// JobsTotal counts finished indexing jobs.
	// Labels: outcome (complete, error)
	JobsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance used across the service.
// Nil until InitMetrics is called; callers nil-check, so tests that
// never initialize metrics skip instrumentation entirely.
var DefaultMetrics *IndexerMetrics

// InitMetrics creates and registers all metrics on the default
// registry. Call once at startup.
func InitMetrics() *IndexerMetrics {
	if DefaultMetrics != nil {
		return DefaultMetrics
	}
	DefaultMetrics = &IndexerMetrics{
		ProgressEventsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "progress_events_total",
			Help:      "Progress events published to the broadcast hub.",
		}, []string{"status"}),
		ProgressSubscribers: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "progress_subscribers",
			Help:      "Currently connected progress observers.",
		}),
		DroppedObserversTotal: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "dropped_observers_total",
			Help:      "Observers disconnected because their event queue overflowed.",
		}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "active_chat_sessions",
			Help:      "Currently open chat sessions.",
		}),
		ChatTurnsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "chat_turns_total",
			Help:      "Completed chat turns by outcome.",
		}, []string{"outcome"}),
		QueryDurationSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "query_duration_seconds",
			Help:      "Query engine latency per chat turn.",
			Buckets:   prometheus.DefBuckets,
		}),
		HeartbeatTimeoutsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "heartbeat_timeouts_total",
			Help:      "Connections dropped for missing the pong window.",
		}, []string{"transport"}),
		JobsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "indexing_jobs_total",
			Help:      "Finished indexing jobs by outcome.",
		}, []string{"outcome"}),
	}
	return DefaultMetrics
}
