package models

import (
	"time"
)

// ParticipantDoc is the persisted form of a debate participant.
type ParticipantDoc struct {
	ID          string `bson:"id" json:"id"`
	DisplayName string `bson:"displayName" json:"displayName"`
	Team        string `bson:"team" json:"team"`
	Role        int    `bson:"role" json:"role"`
	IsAI        bool   `bson:"isAI" json:"isAI"`
	PersonaName string `bson:"personaName,omitempty" json:"personaName,omitempty"`
	Level       string `bson:"level,omitempty" json:"level,omitempty"`
	VoiceID     string `bson:"voiceId,omitempty" json:"voiceId,omitempty"`
}

// SegmentDoc is the persisted form of a transcript segment.
type SegmentDoc struct {
	SpeakerID string    `bson:"speakerId" json:"speakerId"`
	Phase     string    `bson:"phase" json:"phase"`
	Text      string    `bson:"text" json:"text"`
	HasAudio  bool      `bson:"hasAudio" json:"hasAudio"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// CrossfireDoc is the persisted form of an open-floor message.
type CrossfireDoc struct {
	SpeakerID string    `bson:"speakerId" json:"speakerId"`
	Text      string    `bson:"text" json:"text"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

// DebateSnapshot is one best-effort save of a full session, keyed by
// session id.
type DebateSnapshot struct {
	SessionID        string           `bson:"sessionId" json:"sessionId"`
	Topic            string           `bson:"topic" json:"topic"`
	Participants     []ParticipantDoc `bson:"participants" json:"participants"`
	Phase            string           `bson:"phase" json:"phase"`
	RemainingSeconds int              `bson:"remainingSeconds" json:"remainingSeconds"`
	Transcript       []SegmentDoc     `bson:"transcript" json:"transcript"`
	Crossfire        []CrossfireDoc   `bson:"crossfire" json:"crossfire"`
	SavedAt          time.Time        `bson:"savedAt" json:"savedAt"`
}
