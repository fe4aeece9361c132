// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the HTTP and websocket surface of the
// wildfire service.
package handlers

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,
}

// Hub fans service events out to connected websocket clients.
//
// # Description
//
// Clients connect through HandleLiveWebSocket and receive every broadcast
// as one JSON frame: tick payloads, pipeline status transitions, and wind
// shifts. A client that fails a write is dropped; the hub never blocks the
// broadcaster on a slow reader beyond the socket's own buffering.
//
// # Thread Safety
//
// Safe for concurrent use; a mutex guards the connection set and
// serializes writes.
type Hub struct {
	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	logger *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		conns:  make(map[*websocket.Conn]struct{}),
		logger: logger,
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

func (h *Hub) register(ws *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[ws] = struct{}{}
}

func (h *Hub) unregister(ws *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, ws)
}

// Broadcast sends one JSON frame to every connected client, dropping
// clients whose writes fail.
func (h *Hub) Broadcast(v any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ws := range h.conns {
		if err := ws.WriteJSON(v); err != nil {
			h.logger.Warn("dropping websocket client after failed write", "error", err)
			ws.Close()
			delete(h.conns, ws)
		}
	}
}

// HandleLiveWebSocket upgrades the connection and registers it with the
// hub. The read loop only watches for disconnect; this stream is
// push-only. A nil gauge disables connection accounting.
func HandleLiveWebSocket(hub *Hub, activeGauge prometheus.Gauge) gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.logger.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()

		hub.register(ws)
		if activeGauge != nil {
			activeGauge.Inc()
		}
		hub.logger.Info("websocket client connected", "clients", hub.Count())
		defer func() {
			hub.unregister(ws)
			if activeGauge != nil {
				activeGauge.Dec()
			}
		}()

		if err := ws.WriteJSON(gin.H{"action": "connected"}); err != nil {
			return
		}

		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				hub.logger.Info("websocket client disconnected", "error", err.Error())
				return
			}
		}
	}
}
