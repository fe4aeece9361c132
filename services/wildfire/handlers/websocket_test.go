// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for the websocket hub

package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialHub(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	t.Helper()
	router := gin.New()
	router.GET("/v1/ws", HandleLiveWebSocket(hub, nil))
	server := httptest.NewServer(router)

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/v1/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return ws, func() {
		ws.Close()
		server.Close()
	}
}

func TestHub_ClientReceivesHelloAndBroadcast(t *testing.T) {
	// Arrange
	hub := NewHub(nil)
	ws, cleanup := dialHub(t, hub)
	defer cleanup()

	// Assert: the hello frame arrives first.
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))
	var hello map[string]any
	require.NoError(t, ws.ReadJSON(&hello))
	assert.Equal(t, "connected", hello["action"])

	// Act: broadcast a frame once the client is registered.
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	hub.Broadcast(gin.H{"action": "wind_shift", "speed": 35.0})

	// Assert
	var frame map[string]any
	require.NoError(t, ws.ReadJSON(&frame))
	assert.Equal(t, "wind_shift", frame["action"])
	assert.Equal(t, 35.0, frame["speed"])
}

func TestHub_CountTracksDisconnect(t *testing.T) {
	hub := NewHub(nil)
	ws, cleanup := dialHub(t, hub)

	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	ws.Close()
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)
	cleanup()
}

func TestHub_BroadcastDropsFailedWriter(t *testing.T) {
	// A closed connection is evicted on the next broadcast instead of
	// poisoning the set.
	hub := NewHub(nil)
	ws, cleanup := dialHub(t, hub)
	defer cleanup()

	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)
	ws.Close()

	for i := 0; i < 20 && hub.Count() > 0; i++ {
		hub.Broadcast(gin.H{"action": "tick"})
		time.Sleep(20 * time.Millisecond)
	}
	assert.Equal(t, 0, hub.Count())
}
