package debate

// TimerEvent is what a tick reports back to the orchestrator. The
// scheduler never advances the phase itself: the session has a single
// mutator and phase changes belong to the orchestrator.
type TimerEvent int

const (
	TimerRunning TimerEvent = iota
	TimerExpired
	TimerPaused
	TimerEnded
)

// Scheduler owns the canonical phase sequence, the per-phase clock and
// the current-speaker computation for one debate format.
type Scheduler struct {
	format Format
}

// NewScheduler creates a scheduler for the given timing table.
func NewScheduler(format Format) *Scheduler {
	return &Scheduler{format: format}
}

// Format exposes the timing table.
func (s *Scheduler) Format() Format {
	return s.format
}

// CurrentPhase returns the session's phase.
func (s *Scheduler) CurrentPhase(sess *Session) Phase {
	return sess.Phase
}

// CurrentSpeaker returns the id of the participant holding the floor, or
// OpenFloor during crossfire phases.
func (s *Scheduler) CurrentSpeaker(sess *Session) string {
	if sess.Phase == PhaseEnded {
		return ""
	}
	if sess.Phase.OpenFloor() {
		return OpenFloor
	}
	return sess.speakerFor(sess.Phase)
}

// Advance moves the session to the next phase and resets the clock to
// that phase's fixed duration. Advancing past the last phase is a no-op
// returning the terminal phase.
func (s *Scheduler) Advance(sess *Session) Phase {
	if sess.Phase >= PhaseEnded {
		sess.Phase = PhaseEnded
		sess.RemainingSeconds = 0
		return PhaseEnded
	}
	sess.Phase++
	sess.RemainingSeconds = s.format.Duration(sess.Phase)
	return sess.Phase
}

// Begin places a fresh session at the first phase with a full clock.
func (s *Scheduler) Begin(sess *Session) {
	sess.Phase = PhaseConstructiveFor
	sess.RemainingSeconds = s.format.Duration(PhaseConstructiveFor)
}

// Tick decrements the remaining time by elapsed seconds. While paused it
// is a no-op. When the clock reaches zero it signals expiry to the
// caller without mutating the phase.
func (s *Scheduler) Tick(sess *Session, elapsedSeconds int) TimerEvent {
	if sess.Phase == PhaseEnded {
		return TimerEnded
	}
	if sess.Paused {
		return TimerPaused
	}
	sess.RemainingSeconds -= elapsedSeconds
	if sess.RemainingSeconds <= 0 {
		sess.RemainingSeconds = 0
		return TimerExpired
	}
	return TimerRunning
}
