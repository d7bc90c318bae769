package debate

import (
	"encoding/json"
	"time"
)

// Server-to-client event types.
const (
	EventDebateState       = "debateState"
	EventDebateStateUpdate = "debateStateUpdate"
	EventAISpeech          = "aiSpeech"
	EventUserSpeech        = "userSpeech"
	EventCrossfireMessage  = "crossfireMessage"
	EventAudioDegraded     = "audioDegraded"
	EventDebateSaved       = "debateSaved"
	EventDebateLoaded      = "debateLoaded"
	EventDebateAnalysis    = "debateAnalysis"
	EventDebateError       = "debateError"
	EventDebateEnded       = "debateEnded"
	EventPresence          = "presence"
)

// Event is the envelope broadcast to every connection subscribed to a
// session. Within a session events are strictly ordered by Seq.
type Event struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Seq       uint64          `json:"seq"`
	Timestamp int64           `json:"timestamp"`
}

// NewEvent wraps a payload into an envelope with the current timestamp.
func NewEvent(eventType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Payload:   payloadBytes,
		Timestamp: time.Now().Unix(),
	}, nil
}

// MarshalEvent encodes an event for the journal stream.
func MarshalEvent(event *Event) (string, error) {
	b, err := json.Marshal(event)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// UnmarshalEvent decodes a journaled event.
func UnmarshalEvent(data string) (*Event, error) {
	var event Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// EventSink delivers ordered events and binary audio frames to every
// connection of a session. Implemented by the websocket hub.
type EventSink interface {
	Publish(sessionID string, event *Event)
	// PublishAudio sends the raw audio for the most recent AI speech
	// segment as a binary frame.
	PublishAudio(sessionID string, audio []byte)
}

// StateUpdatePayload mirrors the session's scheduled state.
type StateUpdatePayload struct {
	Phase            string `json:"phase"`
	RemainingTime    int    `json:"remainingTime"`
	CurrentSpeakerID string `json:"currentSpeakerId"`
	Mode             string `json:"mode"` // "speech" or "crossfire"
	Paused           bool   `json:"paused"`
}

// StatePayload is the full snapshot sent to late joiners before the live
// event stream.
type StatePayload struct {
	SessionID    string             `json:"sessionId"`
	Topic        string             `json:"topic"`
	Participants []Participant      `json:"participants"`
	State        StateUpdatePayload `json:"state"`
	Transcript   []SpeechSegment    `json:"transcript"`
	Crossfire    []CrossfireMessage `json:"crossfire"`
	Ended        bool               `json:"ended"`
}

// SpeechPayload previews spoken content, AI or human.
type SpeechPayload struct {
	Speaker  string `json:"speaker"`
	Text     string `json:"text"`
	Phase    string `json:"phase"`
	Fallback bool   `json:"fallback,omitempty"`
}

// CrossfirePayload is one open-floor message.
type CrossfirePayload struct {
	Speaker   string `json:"speaker"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// SavedPayload reports the outcome of a save request.
type SavedPayload struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// LoadedPayload reports the outcome of a load request.
type LoadedPayload struct {
	Success      bool                `json:"success"`
	State        *StateUpdatePayload `json:"state,omitempty"`
	Participants []Participant       `json:"participants,omitempty"`
	Transcript   []SpeechSegment     `json:"transcript,omitempty"`
	Error        string              `json:"error,omitempty"`
}

// ErrorPayload is a non-fatal error surfaced to clients; the session
// continues.
type ErrorPayload struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
