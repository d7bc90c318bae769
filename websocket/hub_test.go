package websocket

import (
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newConnPair dials a real WebSocket connection against an in-process
// server and returns both ends.
func newConnPair(t *testing.T) (serverConn, clientConn *websocket.Conn) {
	t.Helper()
	conns := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		conns <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })

	serverConn = <-conns
	t.Cleanup(func() { serverConn.Close() })
	return serverConn, clientConn
}

func newTestHub() *Hub {
	logger := zerolog.Nop()
	return NewHub(NewEventJournal("", "", 0, logger), logger)
}

func TestFanOutDeliversInQueueOrder(t *testing.T) {
	hub := newTestHub()
	serverConn, clientConn := newConnPair(t)

	client := newClient(serverConn, "s1")
	hub.rooms["s1"] = &room{clients: map[*websocket.Conn]*Client{serverConn: client}}

	hub.fanOut("s1", outbound{messageType: websocket.TextMessage, data: []byte("one")})
	hub.fanOut("s1", outbound{messageType: websocket.TextMessage, data: []byte("two")})
	client.markReady()
	go client.writePump()

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, first, err := clientConn.ReadMessage()
	require.NoError(t, err)
	_, second, err := clientConn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "one", string(first))
	assert.Equal(t, "two", string(second))
}

func TestFanOutClosesSlowConnection(t *testing.T) {
	hub := newTestHub()
	serverConn, clientConn := newConnPair(t)

	// The writer stays gated, so the queue fills without draining.
	client := newClient(serverConn, "s1")
	hub.rooms["s1"] = &room{clients: map[*websocket.Conn]*Client{serverConn: client}}
	for i := 0; i < clientSendBuffer; i++ {
		client.send <- outbound{messageType: websocket.TextMessage, data: []byte("backlog")}
	}

	hub.fanOut("s1", outbound{messageType: websocket.TextMessage, data: []byte("overflow")})

	// The overflowing connection must be torn down, not left with a gap.
	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := clientConn.ReadMessage()
	require.Error(t, err)
	var netErr net.Error
	if errors.As(err, &netErr) {
		assert.False(t, netErr.Timeout(), "connection should be closed, not silently dropping events")
	}
}

func TestClientCloseUnblocksGatedWriter(t *testing.T) {
	serverConn, _ := newConnPair(t)
	client := newClient(serverConn, "s1")

	done := make(chan struct{})
	go func() {
		client.writePump()
		close(done)
	}()

	// close before the join snapshot was ever sent
	client.close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("writer goroutine leaked after close")
	}
}
