// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package wsrpc provides a self-healing websocket client for the
// service's JSON frame protocol. It reconnects with a fixed, jittered
// delay for as long as its context lives and answers heartbeat pings
// on behalf of the caller.
package wsrpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// DefaultBackoff is the reconnect delay used when the config leaves
// it zero.
const DefaultBackoff = 2 * time.Second

// Per-transport reconnect delays. The progress stream backs off a
// touch slower than chat so a restarting server sees chat sessions
// come back first.
const (
	ProgressBackoff = 2500 * time.Millisecond
	ChatBackoff     = 2 * time.Second
)

const sendBuffer = 32

// ErrNotConnected is returned by Send when the outbound queue is full
// or no connection attempt has started.
var ErrNotConnected = errors.New("wsrpc: not connected")

// frameHeader is the minimal decode used to recognize heartbeats
// before frames are handed to the caller.
type frameHeader struct {
	Type string `json:"type"`
}

// Config configures a Client.
type Config struct {
	// URL is the ws:// or wss:// endpoint.
	URL string

	// Backoff is the fixed delay between reconnect attempts. A ±20%
	// jitter is applied so a fleet of clients does not reconnect in
	// lockstep. Zero means DefaultBackoff.
	Backoff time.Duration

	// OnFrame receives every non-heartbeat frame as raw JSON. It runs
	// on the read loop, so slow handlers delay heartbeat answers.
	OnFrame func(raw []byte)

	// OnConnect, when set, fires after every successful dial,
	// including reconnects.
	OnConnect func()
}

// Client maintains one logical connection across any number of
// physical ones.
type Client struct {
	cfg Config

	mu   sync.Mutex
	conn *websocket.Conn

	out chan []byte
}

// New builds a client. Run must be called to start connecting.
func New(cfg Config) *Client {
	if cfg.Backoff <= 0 {
		cfg.Backoff = DefaultBackoff
	}
	return &Client{cfg: cfg, out: make(chan []byte, sendBuffer)}
}

// NewProgress builds a client for a /ws/progress endpoint with the
// progress transport's reconnect delay.
func NewProgress(url string, onFrame func(raw []byte)) *Client {
	return New(Config{URL: url, Backoff: ProgressBackoff, OnFrame: onFrame})
}

// NewChat builds a client for a /ws/chat/{indexId} endpoint with the
// chat transport's reconnect delay.
func NewChat(url string, onFrame func(raw []byte)) *Client {
	return New(Config{URL: url, Backoff: ChatBackoff, OnFrame: onFrame})
}

// Send queues a JSON frame for delivery on the current or next
// connection. It never blocks.
func (c *Client) Send(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case c.out <- raw:
		return nil
	default:
		return ErrNotConnected
	}
}

// Run dials and serves connections until ctx is canceled. Every
// disconnect, including a failed dial, is followed by one jittered
// backoff sleep and a fresh attempt. Run never gives up on its own.
func (c *Client) Run(ctx context.Context) {
	for {
		if err := c.serveOnce(ctx); err != nil {
			slog.Warn("websocket connection lost, reconnecting",
				"url", c.cfg.URL, "backoff", c.cfg.Backoff, "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(jitter(c.cfg.Backoff)):
		}
	}
}

// serveOnce runs a single physical connection to completion.
func (c *Client) serveOnce(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	slog.Info("websocket connected", "url", c.cfg.URL)
	if c.cfg.OnConnect != nil {
		c.cfg.OnConnect()
	}

	// Writer owns all writes: queued frames plus heartbeat answers.
	// readerDone stops it when the read loop exits, so a dropped
	// connection always lets serveOnce return and reconnect.
	pongs := make(chan struct{}, 4)
	readerDone := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				conn.Close()
				return
			case <-readerDone:
				return
			case raw := <-c.out:
				if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
					conn.Close()
					return
				}
			case <-pongs:
				if err := conn.WriteJSON(frameHeader{Type: "pong"}); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	var readErr error
	for readErr == nil {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			readErr = err
			break
		}
		var hdr frameHeader
		if err := json.Unmarshal(raw, &hdr); err != nil {
			slog.Warn("discarding malformed frame", "url", c.cfg.URL, "error", err)
			continue
		}
		switch hdr.Type {
		case "ping":
			select {
			case pongs <- struct{}{}:
			default:
			}
		case "pong":
			// Answer to our own ping, nothing to deliver.
		default:
			if c.cfg.OnFrame != nil {
				c.cfg.OnFrame(raw)
			}
		}
	}

	close(readerDone)
	<-writerDone
	return readErr
}

// jitter spreads d by ±20%.
func jitter(d time.Duration) time.Duration {
	spread := float64(d) * 0.2
	return d + time.Duration((rand.Float64()*2-1)*spread)
}
