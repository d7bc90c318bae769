package debate

import (
	"errors"
	"time"
)

// LatencyRecorder tracks per-message send-to-broadcast latency during
// open-floor phases.
type LatencyRecorder interface {
	RecordCrossfireLatency(sessionID string, latency time.Duration)
}

// CrossfireCoordinator manages the open-floor windows interleaved with
// the scheduled phases. While a window is active the single-speaker rule
// is suspended and any participant may speak; ordering is arrival order
// as observed by the owning orchestrator loop. The coordinator is only
// ever touched from that loop.
type CrossfireCoordinator struct {
	recorder  LatencyRecorder
	active    bool
	phase     Phase
	startedAt time.Time
	messages  int
}

func NewCrossfireCoordinator(recorder LatencyRecorder) *CrossfireCoordinator {
	return &CrossfireCoordinator{recorder: recorder}
}

// Begin opens the floor for a crossfire phase.
func (c *CrossfireCoordinator) Begin(phase Phase) {
	c.active = true
	c.phase = phase
	c.startedAt = time.Now()
	c.messages = 0
}

// Active reports whether an open-floor window is in progress.
func (c *CrossfireCoordinator) Active() bool {
	return c.active
}

// Accept validates an open-floor submission and builds the message.
func (c *CrossfireCoordinator) Accept(sess *Session, speakerID, text string) (CrossfireMessage, error) {
	if !c.active {
		return CrossfireMessage{}, errors.Join(ErrValidation, errors.New("no crossfire in progress"))
	}
	if _, ok := sess.Participant(speakerID); !ok {
		return CrossfireMessage{}, errors.Join(ErrValidation, errors.New("unknown participant"))
	}
	if text == "" {
		return CrossfireMessage{}, errors.Join(ErrValidation, errors.New("empty message"))
	}
	c.messages++
	return CrossfireMessage{
		SpeakerID: speakerID,
		Text:      text,
		Timestamp: time.Now(),
	}, nil
}

// Observe records one broadcast latency sample after the message has
// been fanned out.
func (c *CrossfireCoordinator) Observe(sessionID string, receivedAt time.Time) {
	if c.recorder != nil {
		c.recorder.RecordCrossfireLatency(sessionID, time.Since(receivedAt))
	}
}

// End closes the window when the phase timer expires and returns the
// number of messages exchanged. Normal turn arbitration resumes after.
func (c *CrossfireCoordinator) End() (Phase, int) {
	phase, count := c.phase, c.messages
	c.active = false
	c.messages = 0
	return phase, count
}
