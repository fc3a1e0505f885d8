// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// pingInterval is how often the server sends a heartbeat ping
	// frame on each websocket.
	pingInterval = 30 * time.Second

	// pongWindow is how long a connection may go without answering
	// before it is considered dead.
	pongWindow = 2*pingInterval + 5*time.Second

	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// wsConn serializes writes on one websocket. Heartbeat pings and
// payload frames come from different goroutines and gorilla permits
// only one concurrent writer.
type wsConn struct {
	mu sync.Mutex
	ws *websocket.Conn

	pongMu   sync.Mutex
	lastPong time.Time
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{ws: ws, lastPong: time.Now()}
}

func newPingTicker() *time.Ticker {
	return time.NewTicker(pingInterval)
}

func (c *wsConn) sendJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	err := c.ws.WriteJSON(v)
	if err != nil {
		slog.Warn("failed to write websocket JSON", "error", err)
	}
	return err
}

// notePong records the time of the latest heartbeat answer. Any
// inbound frame counts as liveness.
func (c *wsConn) notePong() {
	c.pongMu.Lock()
	c.lastPong = time.Now()
	c.pongMu.Unlock()
}

// alive reports whether the peer answered within the pong window.
func (c *wsConn) alive() bool {
	c.pongMu.Lock()
	defer c.pongMu.Unlock()
	return time.Since(c.lastPong) < pongWindow
}
