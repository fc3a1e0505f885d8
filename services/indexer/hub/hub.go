// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package hub provides the progress broadcast fan-out.
//
// One producer (the job runner) publishes progress events; N consumers
// (connected progress observers) each own a bounded queue. Publication
// is non-blocking: a subscriber whose queue overflows is dropped and
// its queue closed, so a slow observer can never stall the producer or
// delay delivery to other observers. A dropped observer is expected to
// reconnect and re-query current index state over REST.
//
// History policy: late subscribers do not receive history. On
// subscribe the hub seeds the queue with at most one snapshot event
// per index (the latest published), never the full sequence. This is
// a deliberate, documented choice; clients still layer live events on
// top of REST state.
package hub

import (
	"log/slog"
	"sync"

	"github.com/AleutianAI/codescope/services/indexer/datatypes"
	"github.com/AleutianAI/codescope/services/indexer/observability"
)

// DefaultSubscriberBuffer is the per-observer queue depth. At one
// event per file this absorbs a few seconds of a stalled reader on a
// mid-sized repository before the drop policy kicks in.
const DefaultSubscriberBuffer = 256

// Subscriber is one observer's handle on the progress stream. The
// events channel is closed when the subscriber is unsubscribed or
// dropped on overflow; the owning connection should then shut down.
type Subscriber struct {
	events chan datatypes.ProgressEvent
}

// Events returns the subscriber's receive channel.
func (s *Subscriber) Events() <-chan datatypes.ProgressEvent {
	return s.events
}

// Hub fans progress events out to all current subscribers.
//
// Thread Safety:
//
//	Safe for concurrent use. The subscriber set is guarded by its own
//	mutex; sends happen under that mutex but are non-blocking, so the
//	publish path cannot stall on a consumer.
type Hub struct {
	mu     sync.Mutex
	subs   map[*Subscriber]struct{}
	last   map[string]datatypes.ProgressEvent
	buffer int
	closed bool
}

// New creates a hub with the given per-subscriber queue depth.
// A non-positive buffer falls back to DefaultSubscriberBuffer.
func New(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	return &Hub{
		subs:   make(map[*Subscriber]struct{}),
		last:   make(map[string]datatypes.ProgressEvent),
		buffer: buffer,
	}
}

// Subscribe registers a new observer and returns its handle. The queue
// is seeded with the latest known event per index so a late subscriber
// starts from current state rather than zero.
func (h *Hub) Subscribe() *Subscriber {
	sub := &Subscriber{events: make(chan datatypes.ProgressEvent, h.buffer)}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		close(sub.events)
		return sub
	}
	for _, ev := range h.last {
		select {
		case sub.events <- ev:
		default:
		}
	}
	h.subs[sub] = struct{}{}
	if m := observability.DefaultMetrics; m != nil {
		m.ProgressSubscribers.Inc()
	}
	return sub
}

// Unsubscribe removes the observer and closes its queue. Safe to call
// more than once.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(sub)
}

// Publish delivers ev to every current subscriber without blocking.
// Subscribers whose queue is full are dropped.
func (h *Hub) Publish(ev datatypes.ProgressEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.last[ev.IndexID] = ev
	if m := observability.DefaultMetrics; m != nil {
		m.ProgressEventsTotal.WithLabelValues(string(ev.Status)).Inc()
	}

	for sub := range h.subs {
		select {
		case sub.events <- ev:
		default:
			slog.Warn("progress subscriber queue overflow, dropping observer",
				"index_id", ev.IndexID, "buffer", h.buffer)
			if m := observability.DefaultMetrics; m != nil {
				m.DroppedObserversTotal.Inc()
			}
			h.remove(sub)
		}
	}
}

// Close drops every subscriber. Used on service shutdown.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for sub := range h.subs {
		h.remove(sub)
	}
}

// remove deletes and closes a subscriber. Caller holds h.mu.
func (h *Hub) remove(sub *Subscriber) {
	if _, ok := h.subs[sub]; !ok {
		return
	}
	delete(h.subs, sub)
	close(sub.events)
	if m := observability.DefaultMetrics; m != nil {
		m.ProgressSubscribers.Dec()
	}
}
