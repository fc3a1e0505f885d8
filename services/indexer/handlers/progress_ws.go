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

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/codescope/services/indexer"
	"github.com/AleutianAI/codescope/services/indexer/datatypes"
	"github.com/AleutianAI/codescope/services/indexer/observability"
)

// HandleProgressWebSocket streams indexing progress for every job to
// the connected client. Connecting while jobs are mid-flight is fine:
// the hub seeds the latest event per index on subscribe.
func HandleProgressWebSocket(svc *indexer.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()
		slog.Info("progress client connected", "remote", ws.RemoteAddr())

		conn := newWSConn(ws)
		sub := svc.Hub.Subscribe()
		defer svc.Hub.Unsubscribe(sub)

		// Reader only consumes heartbeat answers. Its exit doubles as
		// the disconnect signal.
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				var frame datatypes.ControlFrame
				if err := ws.ReadJSON(&frame); err != nil {
					return
				}
				switch frame.Type {
				case datatypes.FrameTypePong:
					conn.notePong()
				case datatypes.FrameTypePing:
					conn.notePong()
					_ = conn.sendJSON(datatypes.ControlFrame{Type: datatypes.FrameTypePong})
				}
			}
		}()

		ticker := newPingTicker()
		defer ticker.Stop()

		for {
			select {
			case <-done:
				slog.Info("progress client disconnected", "remote", ws.RemoteAddr())
				return
			case ev, ok := <-sub.Events():
				if !ok {
					// Dropped by the hub for falling behind, or the
					// hub is shutting down.
					return
				}
				if err := conn.sendJSON(ev); err != nil {
					return
				}
			case <-ticker.C:
				if !conn.alive() {
					slog.Warn("progress client missed heartbeats, dropping",
						"remote", ws.RemoteAddr())
					if m := observability.DefaultMetrics; m != nil {
						m.HeartbeatTimeoutsTotal.WithLabelValues("progress").Inc()
					}
					return
				}
				if err := conn.sendJSON(datatypes.ControlFrame{Type: datatypes.FrameTypePing}); err != nil {
					return
				}
			}
		}
	}
}
