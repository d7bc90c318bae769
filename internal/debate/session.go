package debate

import (
	"errors"
	"time"
)

// OpenFloor is the sentinel speaker id used while a crossfire phase is
// active and no single participant holds the floor.
const OpenFloor = "openFloor"

var (
	// ErrValidation marks bad participant configuration or a
	// wrong-speaker submission. The session itself is unaffected.
	ErrValidation = errors.New("validation error")
	// ErrSessionState marks an operation against an ended or otherwise
	// unavailable session. Fatal to the operation only.
	ErrSessionState = errors.New("invalid session state")
)

// Persona describes how an AI participant argues and sounds.
type Persona struct {
	Name    string `json:"name"`
	Level   string `json:"level"` // easy, medium, hard, expert
	VoiceID string `json:"voiceId,omitempty"`
}

// Participant is fixed for the session's lifetime once the debate starts.
type Participant struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"displayName"`
	Team        Team    `json:"team"`
	Role        int     `json:"role"` // ordinal within the side, 1-based
	IsAI        bool    `json:"isAI"`
	Persona     Persona `json:"persona,omitempty"`
}

// SpeechSegment is one scheduled utterance. Immutable once appended to
// the transcript.
type SpeechSegment struct {
	SpeakerID string    `json:"speakerId"`
	Phase     Phase     `json:"phase"`
	Text      string    `json:"text"`
	HasAudio  bool      `json:"hasAudio"`
	Timestamp time.Time `json:"timestamp"`
}

// CrossfireMessage is an open-floor exchange; several may interleave
// within the same crossfire phase.
type CrossfireMessage struct {
	SpeakerID string    `json:"speakerId"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one debate instance. It has exactly one mutator: the
// orchestrator loop that owns it. Nothing else may write to it.
type Session struct {
	ID               string
	Topic            string
	Participants     []Participant
	Phase            Phase
	RemainingSeconds int
	Paused           bool
	Ended            bool
	Transcript       []SpeechSegment
	Crossfire        []CrossfireMessage
	CreatedAt        time.Time
}

// Participant returns the participant with the given id, if present.
func (s *Session) Participant(id string) (Participant, bool) {
	for _, p := range s.Participants {
		if p.ID == id {
			return p, true
		}
	}
	return Participant{}, false
}

// speakerFor resolves the scheduled speaker for a phase. Falls back to
// the side's first speaker when the role ordinal has no holder.
func (s *Session) speakerFor(phase Phase) string {
	side := phase.Side()
	ordinal := phase.speakerOrdinal()
	var first string
	for _, p := range s.Participants {
		if p.Team != side {
			continue
		}
		if first == "" || p.Role == 1 {
			first = p.ID
		}
		if p.Role == ordinal {
			return p.ID
		}
	}
	return first
}

// TranscriptTail returns up to n most recent segments, oldest first.
func (s *Session) TranscriptTail(n int) []SpeechSegment {
	if n <= 0 || len(s.Transcript) <= n {
		return s.Transcript
	}
	return s.Transcript[len(s.Transcript)-n:]
}

// ValidateParticipants enforces the team balance and size rules: at
// least one speaker per side and at most maxParticipants in total.
func ValidateParticipants(participants []Participant, maxParticipants int) error {
	if len(participants) < 2 {
		return errors.Join(ErrValidation, errors.New("at least two participants required"))
	}
	if len(participants) > maxParticipants {
		return errors.Join(ErrValidation, errors.New("too many participants"))
	}
	seen := map[string]bool{}
	counts := map[Team]int{}
	for _, p := range participants {
		if p.ID == "" || p.ID == OpenFloor {
			return errors.Join(ErrValidation, errors.New("invalid participant id"))
		}
		if seen[p.ID] {
			return errors.Join(ErrValidation, errors.New("duplicate participant id"))
		}
		seen[p.ID] = true
		if p.Team != TeamFor && p.Team != TeamAgainst {
			return errors.Join(ErrValidation, errors.New("unknown team"))
		}
		counts[p.Team]++
	}
	if counts[TeamFor] == 0 || counts[TeamAgainst] == 0 {
		return errors.Join(ErrValidation, errors.New("each side needs at least one speaker"))
	}
	return nil
}
