package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/Sachin-Buluswar/DebateAI-sub002/internal/debate"
)

var upgrader = websocket.Upgrader{
	// In production, adjust the CheckOrigin function to allow only trusted origins.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ClientMessage is the envelope for client-to-server requests.
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Client-to-server message types.
const (
	msgStartDebate      = "startDebate"
	msgUserSpeech       = "userSpeech"
	msgCrossfireMessage = "crossfireMessage"
	msgPauseDebate      = "pauseDebate"
	msgResumeDebate     = "resumeDebate"
	msgSkipTurn         = "skipTurn"
	msgSaveDebate       = "saveDebate"
	msgLoadDebate       = "loadDebate"
	msgEndDebate        = "endDebate"
)

type startDebatePayload struct {
	Topic        string               `json:"topic"`
	Participants []debate.Participant `json:"participants"`
}

type userSpeechPayload struct {
	Text      string `json:"text"`
	SpeakerID string `json:"speakerId"`
	Phase     string `json:"phase,omitempty"`
}

type crossfirePayload struct {
	Text      string `json:"text"`
	SpeakerID string `json:"speakerId"`
}

type loadDebatePayload struct {
	SessionID string `json:"sessionId"`
}

// SessionFactory creates and starts a registered session. Wired in main
// with the gateways, store and sink.
type SessionFactory func(sessionID, topic string, participants []debate.Participant) (*debate.Orchestrator, error)

// Handler owns the debate WebSocket endpoint.
type Handler struct {
	hub      *Hub
	registry *debate.Registry
	factory  SessionFactory
	log      zerolog.Logger
}

func NewHandler(hub *Hub, registry *debate.Registry, factory SessionFactory, logger zerolog.Logger) *Handler {
	return &Handler{
		hub:      hub,
		registry: registry,
		factory:  factory,
		log:      logger,
	}
}

// Serve handles WebSocket connections for debate sessions. A connection
// either joins an existing session (?session=<id>) or creates one with a
// startDebate message.
func (h *Handler) Serve(c *gin.Context) {
	sessionID := c.Query("session")

	var orch *debate.Orchestrator
	if sessionID != "" {
		found, err := h.registry.Get(sessionID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
			return
		}
		orch = found
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	var client *Client
	if orch != nil {
		registered, err := h.hub.Register(sessionID, conn, orch)
		if err != nil {
			h.log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to join session")
			conn.Close()
			return
		}
		client = registered
		defer h.hub.Unregister(sessionID, conn)
	}

	h.readPump(conn, client, orch, sessionID)
}

func (h *Handler) readPump(conn *websocket.Conn, client *Client, orch *debate.Orchestrator, sessionID string) {
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug().Err(err).Str("session_id", sessionID).Msg("websocket read error")
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			h.sendError(conn, client, "malformed message", err)
			continue
		}

		if msg.Type == msgStartDebate {
			if orch != nil {
				h.sendError(conn, client, "session already started on this connection", nil)
				continue
			}
			created, joined, id, err := h.handleStart(conn, msg.Payload)
			if err != nil {
				h.sendError(conn, client, "failed to start debate", err)
				continue
			}
			orch, client, sessionID = created, joined, id
			defer h.hub.Unregister(sessionID, conn)
			continue
		}

		if orch == nil {
			h.sendError(conn, client, "no session attached to this connection", nil)
			continue
		}
		if err := h.dispatch(orch, msg); err != nil {
			h.sendError(conn, client, "request rejected", err)
		}
	}
}

func (h *Handler) handleStart(conn *websocket.Conn, payload json.RawMessage) (*debate.Orchestrator, *Client, string, error) {
	var req startDebatePayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, nil, "", err
	}

	sessionID := uuid.New().String()
	orch, err := h.factory(sessionID, req.Topic, req.Participants)
	if err != nil {
		return nil, nil, "", err
	}

	client, err := h.hub.Register(sessionID, conn, orch)
	if err != nil {
		// The session was created but its only connection never joined;
		// end it now rather than leaving it for the idle reaper.
		endCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if endErr := orch.EndSession(endCtx); endErr != nil {
			h.log.Warn().Err(endErr).Str("session_id", sessionID).Msg("failed to release unjoined session")
		}
		return nil, nil, "", err
	}
	return orch, client, sessionID, nil
}

func (h *Handler) dispatch(orch *debate.Orchestrator, msg ClientMessage) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch msg.Type {
	case msgUserSpeech:
		var req userSpeechPayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return err
		}
		return orch.SubmitHumanSpeech(ctx, req.SpeakerID, req.Text)
	case msgCrossfireMessage:
		var req crossfirePayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return err
		}
		return orch.SubmitCrossfire(ctx, req.SpeakerID, req.Text)
	case msgPauseDebate:
		return orch.Pause(ctx)
	case msgResumeDebate:
		return orch.Resume(ctx)
	case msgSkipTurn:
		return orch.SkipTurn(ctx)
	case msgSaveDebate:
		return orch.SaveSnapshot(ctx)
	case msgLoadDebate:
		var req loadDebatePayload
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			return err
		}
		snapshotID := req.SessionID
		if snapshotID == "" {
			snapshotID = orch.ID()
		}
		return orch.LoadSnapshot(ctx, snapshotID)
	case msgEndDebate:
		return orch.EndSession(ctx)
	default:
		return errors.New("unknown message type: " + msg.Type)
	}
}

// sendError reports a request failure to the offending connection only;
// the session itself is unaffected. Registered connections get the error
// through their ordered send queue; unregistered ones are written
// directly, which is safe because no writer goroutine exists yet.
func (h *Handler) sendError(conn *websocket.Conn, client *Client, message string, err error) {
	payload := debate.ErrorPayload{Message: message}
	if err != nil {
		payload.Error = err.Error()
	}
	event, encodeErr := debate.NewEvent(debate.EventDebateError, payload)
	if encodeErr != nil {
		return
	}
	if client != nil {
		client.enqueueJSON(event)
		return
	}
	if writeErr := conn.WriteJSON(event); writeErr != nil {
		h.log.Debug().Err(writeErr).Msg("failed to report error to client")
	}
}
