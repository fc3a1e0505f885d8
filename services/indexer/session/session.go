// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session multiplexes chat turns for one websocket
// connection against a single index.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AleutianAI/codescope/services/indexer/datatypes"
	"github.com/AleutianAI/codescope/services/indexer/observability"
	"github.com/AleutianAI/codescope/services/query"
)

const (
	// frameBuffer bounds outbound frames queued for a slow writer.
	frameBuffer = 64

	// queryBuffer bounds queries accepted ahead of the worker.
	queryBuffer = 16
)

// QueryEngine answers one question against an indexed repository.
// *query.Engine satisfies it.
type QueryEngine interface {
	Answer(ctx context.Context, question string) (*query.Response, error)
}

// Session
//
// # Description
//
//	A Session owns the server side of one chat connection. Queries are
//	answered strictly in arrival order by a single worker goroutine,
//	so a connection never sees answer N+1 before answer N. A failed
//	turn emits an error frame and leaves the session usable for the
//	next question.
//
//	Sessions are independent: each websocket connection gets its own
//	Session and they share nothing but the underlying index.
type Session struct {
	// ID uniquely identifies this session in logs.
	ID string

	// IndexID is the index this session answers against.
	IndexID string

	engine QueryEngine

	out     chan datatypes.ChatFrame
	queries chan string

	done      chan struct{}
	closeOnce sync.Once
}

// New opens a session over the given engine and emits the opening
// status frame. Callers must Close the session when the connection
// ends.
func New(indexID string, engine QueryEngine) *Session {
	s := &Session{
		ID:      uuid.New().String(),
		IndexID: indexID,
		engine:  engine,
		out:     make(chan datatypes.ChatFrame, frameBuffer),
		queries: make(chan string, queryBuffer),
		done:    make(chan struct{}),
	}
	if m := observability.DefaultMetrics; m != nil {
		m.ActiveSessions.Inc()
	}
	s.push(datatypes.StatusFrame("Chat session ready"))
	go s.worker()
	return s
}

// Frames returns the outbound frame stream. It is closed when the
// session closes.
func (s *Session) Frames() <-chan datatypes.ChatFrame {
	return s.out
}

// Ask enqueues a question. It never blocks: when the backlog is full
// the question is rejected with an error frame instead of stalling
// the connection reader.
func (s *Session) Ask(question string) {
	select {
	case <-s.done:
		return
	default:
	}
	select {
	case s.queries <- question:
	default:
		slog.Warn("chat backlog full, rejecting question",
			"session_id", s.ID, "index_id", s.IndexID)
		s.push(datatypes.ErrorFrame("Too many pending questions, try again shortly"))
	}
}

// Close tears the session down. Idempotent. Pending questions are
// dropped and the frame stream is closed once the worker drains.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.done)
		if m := observability.DefaultMetrics; m != nil {
			m.ActiveSessions.Dec()
		}
	})
}

// worker answers queries one at a time, preserving arrival order.
func (s *Session) worker() {
	defer close(s.out)
	for {
		select {
		case <-s.done:
			return
		case question := <-s.queries:
			s.answer(question)
		}
	}
}

func (s *Session) answer(question string) {
	log := slog.With("session_id", s.ID, "index_id", s.IndexID)
	s.push(datatypes.LogFrame(datatypes.LogLevelInfo, "Searching indexed code..."))

	start := time.Now()
	resp, err := s.engine.Answer(context.Background(), question)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		log.Error("chat turn failed", "error", err, "duration", elapsed)
		s.push(datatypes.ErrorFrame("Failed to answer: " + err.Error()))
	} else {
		s.push(datatypes.AssistantFrame(resp.Content, &resp.Usage, resp.Chunks))
	}
	if m := observability.DefaultMetrics; m != nil {
		m.ChatTurnsTotal.WithLabelValues(outcome).Inc()
		m.QueryDurationSeconds.Observe(elapsed.Seconds())
	}
}

// push delivers a frame without blocking. A full buffer means the
// writer is hopelessly behind; the session is closed rather than
// losing a reply mid-stream, so the client reconnects instead of
// reading a silently gapped conversation.
func (s *Session) push(f datatypes.ChatFrame) {
	select {
	case s.out <- f:
	default:
		slog.Warn("chat writer stalled, closing session",
			"session_id", s.ID, "frame_type", f.Type)
		s.Close()
	}
}
