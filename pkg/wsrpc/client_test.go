// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package wsrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsTestServer accepts connections and records inbound frames.
type wsTestServer struct {
	*httptest.Server

	mu       sync.Mutex
	conns    int
	received [][]byte

	onConn func(conn *websocket.Conn)
}

func newWSTestServer(t *testing.T, onConn func(conn *websocket.Conn)) *wsTestServer {
	s := &wsTestServer{onConn: onConn}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.conns++
		s.mu.Unlock()
		if s.onConn != nil {
			s.onConn(conn)
		}
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			s.mu.Lock()
			s.received = append(s.received, raw)
			s.mu.Unlock()
		}
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *wsTestServer) wsURL() string {
	return "ws" + strings.TrimPrefix(s.URL, "http")
}

func (s *wsTestServer) connCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conns
}

func (s *wsTestServer) framesReceived() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.received...)
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestClient_DeliversFrames(t *testing.T) {
	server := newWSTestServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(map[string]any{"type": "progress", "index_id": "idx-1"})
	})

	var mu sync.Mutex
	var frames []string
	client := New(Config{
		URL:     server.wsURL(),
		Backoff: 50 * time.Millisecond,
		OnFrame: func(raw []byte) {
			mu.Lock()
			frames = append(frames, string(raw))
			mu.Unlock()
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(frames) > 0
	}, "no frame delivered")

	mu.Lock()
	defer mu.Unlock()
	assert.Contains(t, frames[0], "idx-1")
}

func TestClient_AnswersPings(t *testing.T) {
	server := newWSTestServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteJSON(map[string]string{"type": "ping"})
	})

	client := New(Config{URL: server.wsURL(), Backoff: 50 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	waitFor(t, func() bool {
		for _, raw := range server.framesReceived() {
			var hdr frameHeader
			if json.Unmarshal(raw, &hdr) == nil && hdr.Type == "pong" {
				return true
			}
		}
		return false
	}, "ping never answered with pong")
}

func TestClient_ReconnectsAfterDrop(t *testing.T) {
	var server *wsTestServer
	server = newWSTestServer(t, func(conn *websocket.Conn) {
		// First connection is dropped immediately.
		if server.connCount() == 1 {
			conn.Close()
		}
	})

	client := New(Config{URL: server.wsURL(), Backoff: 30 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	waitFor(t, func() bool { return server.connCount() >= 2 },
		"client never reconnected after drop")
}

func TestClient_SendReachesServer(t *testing.T) {
	server := newWSTestServer(t, nil)

	connected := make(chan struct{}, 4)
	client := New(Config{
		URL:       server.wsURL(),
		Backoff:   50 * time.Millisecond,
		OnConnect: func() { connected <- struct{}{} },
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.Run(ctx)

	select {
	case <-connected:
	case <-time.After(5 * time.Second):
		t.Fatal("never connected")
	}
	require.NoError(t, client.Send(map[string]string{"type": "chat", "content": "hi"}))

	waitFor(t, func() bool { return len(server.framesReceived()) >= 1 },
		"frame never reached the server")
	assert.Contains(t, string(server.framesReceived()[0]), "chat")
}

func TestClient_SendOverflowErrors(t *testing.T) {
	// Never started, so the queue only drains into nothing.
	client := New(Config{URL: "ws://127.0.0.1:0/ws"})
	var err error
	for i := 0; i <= sendBuffer; i++ {
		err = client.Send(map[string]string{"type": "chat"})
	}
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestNewProgress_UsesProgressBackoff(t *testing.T) {
	client := NewProgress("ws://127.0.0.1:0/ws/progress", nil)
	assert.Equal(t, ProgressBackoff, client.cfg.Backoff)
}

func TestNewChat_UsesChatBackoff(t *testing.T) {
	client := NewChat("ws://127.0.0.1:0/ws/chat/abc", nil)
	assert.Equal(t, ChatBackoff, client.cfg.Backoff)
}

func TestJitter_StaysWithinSpread(t *testing.T) {
	base := 1000 * time.Millisecond
	for i := 0; i < 100; i++ {
		d := jitter(base)
		assert.GreaterOrEqual(t, d, 800*time.Millisecond)
		assert.LessOrEqual(t, d, 1200*time.Millisecond)
	}
}
