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

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/codescope/services/indexer"
	"github.com/AleutianAI/codescope/services/indexer/datatypes"
	"github.com/AleutianAI/codescope/services/indexer/observability"
)

// HandleChatWebSocket opens a chat session bound to one index. Each
// connection gets an isolated session; closing the socket closes the
// session. A malformed inbound frame terminates the connection, but a
// failed query only produces an error frame.
func HandleChatWebSocket(svc *indexer.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		indexID := c.Param("indexId")
		sess, err := svc.OpenSession(indexID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "index not found"})
			return
		}
		defer sess.Close()

		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()
		log := slog.With("session_id", sess.ID, "index_id", indexID)
		log.Info("chat client connected", "remote", ws.RemoteAddr())

		conn := newWSConn(ws)

		// Writer drains session frames and drives the heartbeat.
		done := make(chan struct{})
		go func() {
			ticker := newPingTicker()
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case frame, ok := <-sess.Frames():
					if !ok {
						return
					}
					if err := conn.sendJSON(frame); err != nil {
						return
					}
				case <-ticker.C:
					if !conn.alive() {
						log.Warn("chat client missed heartbeats, dropping")
						if m := observability.DefaultMetrics; m != nil {
							m.HeartbeatTimeoutsTotal.WithLabelValues("chat").Inc()
						}
						ws.Close()
						return
					}
					if err := conn.sendJSON(datatypes.ControlFrame{Type: datatypes.FrameTypePing}); err != nil {
						return
					}
				}
			}
		}()
		defer close(done)

		for {
			var frame datatypes.ChatInbound
			if err := ws.ReadJSON(&frame); err != nil {
				log.Info("chat client disconnected", "error", err.Error())
				return
			}
			conn.notePong()
			switch frame.Type {
			case datatypes.FrameTypePong:
				// Heartbeat answer, nothing else to do.
			case datatypes.FrameTypePing:
				_ = conn.sendJSON(datatypes.ControlFrame{Type: datatypes.FrameTypePong})
			case datatypes.FrameTypeChat:
				sess.Ask(frame.Content)
			default:
				log.Warn("unexpected chat frame type, closing", "frame_type", frame.Type)
				return
			}
		}
	}
}
