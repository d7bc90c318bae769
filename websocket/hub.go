package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Sachin-Buluswar/DebateAI-sub002/internal/debate"
)

const clientSendBuffer = 64

type outbound struct {
	messageType int
	data        []byte
}

// Client is one connection subscribed to a session. Writes go through a
// buffered send queue drained by a single writer goroutine, so fan-out
// from the session loop never blocks on a slow socket.
type Client struct {
	conn      *websocket.Conn
	sessionID string
	send      chan outbound
	// ready gates the writer until the join snapshot has been sent,
	// guaranteeing snapshot-then-stream order for late joiners.
	ready     chan struct{}
	readyOnce sync.Once
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, sessionID string) *Client {
	return &Client{
		conn:      conn,
		sessionID: sessionID,
		send:      make(chan outbound, clientSendBuffer),
		ready:     make(chan struct{}),
	}
}

func (c *Client) writePump() {
	<-c.ready
	for msg := range c.send {
		if err := c.conn.WriteMessage(msg.messageType, msg.data); err != nil {
			return
		}
	}
}

// enqueueJSON queues a message for this client only, behind any events
// already in flight.
func (c *Client) enqueueJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	select {
	case c.send <- outbound{messageType: websocket.TextMessage, data: data}:
	default:
	}
}

func (c *Client) markReady() {
	c.readyOnce.Do(func() {
		close(c.ready)
	})
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
	// Unblock the writer even if the join snapshot was never sent, so a
	// failed registration does not leak its pump goroutine.
	c.markReady()
}

type room struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]*Client
}

// Hub is the delivery protocol: it fans session events out to every
// subscribed connection in mutation order and journals them. Per-session
// order holds because Publish is only ever called from that session's
// loop goroutine, and each client's queue is appended in that order.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]*room
	journal *EventJournal
	log     zerolog.Logger
}

func NewHub(journal *EventJournal, logger zerolog.Logger) *Hub {
	return &Hub{
		rooms:   make(map[string]*room),
		journal: journal,
		log:     logger,
	}
}

// Register subscribes a connection to a session and sends the current
// full snapshot before any live event reaches it.
func (h *Hub) Register(sessionID string, conn *websocket.Conn, orch *debate.Orchestrator) (*Client, error) {
	h.mu.Lock()
	rm, exists := h.rooms[sessionID]
	if !exists {
		rm = &room{clients: make(map[*websocket.Conn]*Client)}
		h.rooms[sessionID] = rm
	}
	h.mu.Unlock()

	client := newClient(conn, sessionID)
	rm.mu.Lock()
	rm.clients[conn] = client
	count := len(rm.clients)
	rm.mu.Unlock()

	go client.writePump()

	// Live events queue behind ready while the snapshot is fetched, so
	// the stream observed by the client starts at (or before) the
	// snapshot, never after it.
	stateCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	state, err := orch.State(stateCtx)
	cancel()
	if err != nil {
		h.Unregister(sessionID, conn)
		return nil, err
	}
	snapshot, err := debate.NewEvent(debate.EventDebateState, state)
	if err != nil {
		h.Unregister(sessionID, conn)
		return nil, err
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		h.Unregister(sessionID, conn)
		return nil, err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		h.Unregister(sessionID, conn)
		return nil, err
	}
	client.markReady()

	h.broadcastPresence(sessionID, count)
	return client, nil
}

// Unregister drops a connection, deleting the room when it empties.
func (h *Hub) Unregister(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	rm, exists := h.rooms[sessionID]
	if !exists {
		h.mu.Unlock()
		return
	}
	rm.mu.Lock()
	client, ok := rm.clients[conn]
	delete(rm.clients, conn)
	count := len(rm.clients)
	rm.mu.Unlock()
	if count == 0 {
		delete(h.rooms, sessionID)
	}
	h.mu.Unlock()

	if ok {
		client.close()
	}
	if count > 0 {
		h.broadcastPresence(sessionID, count)
	}
}

// ConnectionCount reports the live connections for a session.
func (h *Hub) ConnectionCount(sessionID string) int {
	h.mu.RLock()
	rm, exists := h.rooms[sessionID]
	h.mu.RUnlock()
	if !exists {
		return 0
	}
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.clients)
}

// Publish implements debate.EventSink.
func (h *Hub) Publish(sessionID string, event *debate.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to marshal event")
		return
	}
	h.fanOut(sessionID, outbound{messageType: websocket.TextMessage, data: data})
	h.journal.Append(sessionID, event)
}

// PublishAudio implements debate.EventSink for binary audio frames.
func (h *Hub) PublishAudio(sessionID string, audio []byte) {
	h.fanOut(sessionID, outbound{messageType: websocket.BinaryMessage, data: audio})
}

func (h *Hub) fanOut(sessionID string, msg outbound) {
	h.mu.RLock()
	rm, exists := h.rooms[sessionID]
	h.mu.RUnlock()
	if !exists {
		return
	}

	rm.mu.RLock()
	var slow []*Client
	for _, client := range rm.clients {
		select {
		case client.send <- msg:
		default:
			slow = append(slow, client)
		}
	}
	rm.mu.RUnlock()

	// A full queue means the connection fell behind the stream. Dropping
	// the event would leave an undetectable gap, so close the connection
	// instead; its read pump unregisters it and the client rejoins
	// through the snapshot path.
	for _, client := range slow {
		h.log.Warn().Str("session_id", sessionID).Msg("closing slow connection")
		client.conn.Close()
	}
}

func (h *Hub) broadcastPresence(sessionID string, connected int) {
	event, err := debate.NewEvent(debate.EventPresence, map[string]int{"connected": connected})
	if err != nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}
	h.fanOut(sessionID, outbound{messageType: websocket.TextMessage, data: data})
}
