package debate

import (
	"context"
	"fmt"
	"time"

	"github.com/Sachin-Buluswar/DebateAI-sub002/models"
)

// SnapshotStore is the persistence collaborator: best-effort key-value
// save/load by session id, no transactional guarantees.
type SnapshotStore interface {
	Save(ctx context.Context, snapshot *models.DebateSnapshot) error
	Load(ctx context.Context, sessionID string) (*models.DebateSnapshot, error)
}

// snapshotFromSession serializes the full session state.
func snapshotFromSession(sess *Session) *models.DebateSnapshot {
	snap := &models.DebateSnapshot{
		SessionID:        sess.ID,
		Topic:            sess.Topic,
		Phase:            sess.Phase.String(),
		RemainingSeconds: sess.RemainingSeconds,
		SavedAt:          time.Now(),
	}
	for _, p := range sess.Participants {
		snap.Participants = append(snap.Participants, models.ParticipantDoc{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			Team:        string(p.Team),
			Role:        p.Role,
			IsAI:        p.IsAI,
			PersonaName: p.Persona.Name,
			Level:       p.Persona.Level,
			VoiceID:     p.Persona.VoiceID,
		})
	}
	for _, seg := range sess.Transcript {
		snap.Transcript = append(snap.Transcript, models.SegmentDoc{
			SpeakerID: seg.SpeakerID,
			Phase:     seg.Phase.String(),
			Text:      seg.Text,
			HasAudio:  seg.HasAudio,
			Timestamp: seg.Timestamp,
		})
	}
	for _, msg := range sess.Crossfire {
		snap.Crossfire = append(snap.Crossfire, models.CrossfireDoc{
			SpeakerID: msg.SpeakerID,
			Text:      msg.Text,
			Timestamp: msg.Timestamp,
		})
	}
	return snap
}

// restoreSession rebuilds session state from a snapshot. The restored
// session comes back paused: loading never resumes timers by itself.
func restoreSession(sess *Session, snap *models.DebateSnapshot) error {
	phase, ok := PhaseFromName(snap.Phase)
	if !ok {
		return fmt.Errorf("%w: unknown phase %q in snapshot", ErrSessionState, snap.Phase)
	}

	participants := make([]Participant, 0, len(snap.Participants))
	for _, p := range snap.Participants {
		participants = append(participants, Participant{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			Team:        Team(p.Team),
			Role:        p.Role,
			IsAI:        p.IsAI,
			Persona:     Persona{Name: p.PersonaName, Level: p.Level, VoiceID: p.VoiceID},
		})
	}

	transcript := make([]SpeechSegment, 0, len(snap.Transcript))
	for _, seg := range snap.Transcript {
		segPhase, ok := PhaseFromName(seg.Phase)
		if !ok {
			return fmt.Errorf("%w: unknown phase %q in transcript", ErrSessionState, seg.Phase)
		}
		transcript = append(transcript, SpeechSegment{
			SpeakerID: seg.SpeakerID,
			Phase:     segPhase,
			Text:      seg.Text,
			HasAudio:  seg.HasAudio,
			Timestamp: seg.Timestamp,
		})
	}

	crossfire := make([]CrossfireMessage, 0, len(snap.Crossfire))
	for _, msg := range snap.Crossfire {
		crossfire = append(crossfire, CrossfireMessage{
			SpeakerID: msg.SpeakerID,
			Text:      msg.Text,
			Timestamp: msg.Timestamp,
		})
	}

	sess.Topic = snap.Topic
	sess.Participants = participants
	sess.Phase = phase
	sess.RemainingSeconds = snap.RemainingSeconds
	sess.Transcript = transcript
	sess.Crossfire = crossfire
	sess.Paused = true
	sess.Ended = phase == PhaseEnded
	return nil
}
