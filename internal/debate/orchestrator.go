package debate

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

const defaultTickInterval = time.Second

// speakingRate approximates spoken words per second, used to derive the
// word budget for a generated speech from the phase duration.
const speakingRate = 2.5

// OrchestratorConfig wires one session's collaborators.
type OrchestratorConfig struct {
	SessionID       string
	Topic           string
	Participants    []Participant
	Format          Format
	MaxParticipants int
	Generator       SpeechGenerator
	Synthesizer     SpeechSynthesizer
	Analyzer        TranscriptAnalyzer
	Store           SnapshotStore
	Sink            EventSink
	Latency         LatencyRecorder
	Logger          zerolog.Logger
	TickInterval    time.Duration
	// OnEnd releases the session from the registry.
	OnEnd func(sessionID string)
}

// Orchestrator is the single authority mutating one Session. All state
// changes happen on its private loop goroutine; public methods post
// commands into that loop, so no lock guards the Session itself.
type Orchestrator struct {
	sess        *Session
	sched       *Scheduler
	coordinator *CrossfireCoordinator

	generator   SpeechGenerator
	synthesizer SpeechSynthesizer
	analyzer    TranscriptAnalyzer
	store       SnapshotStore
	sink        EventSink

	cmds      chan func()
	aiResults chan aiResult
	done      chan struct{}

	tickInterval time.Duration
	aiPending    bool
	turnCancel   context.CancelFunc
	stopped      bool
	seq          uint64

	lastActivity atomic.Int64
	onEnd        func(sessionID string)
	log          zerolog.Logger
}

type aiResult struct {
	participant Participant
	phase       Phase
	text        string
	fallback    bool
	audio       []byte
	audioErr    error
}

// NewOrchestrator validates the participant configuration and constructs
// the session at the first phase. Call Start to begin the timer loop.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Topic == "" {
		return nil, errors.Join(ErrValidation, errors.New("topic required"))
	}
	maxParticipants := cfg.MaxParticipants
	if maxParticipants <= 0 {
		maxParticipants = 4
	}
	if err := ValidateParticipants(cfg.Participants, maxParticipants); err != nil {
		return nil, err
	}
	if cfg.Format.Durations == nil {
		cfg.Format = DefaultFormat()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}

	sched := NewScheduler(cfg.Format)
	sess := &Session{
		ID:           cfg.SessionID,
		Topic:        cfg.Topic,
		Participants: cfg.Participants,
		CreatedAt:    time.Now(),
	}
	sched.Begin(sess)

	o := &Orchestrator{
		sess:         sess,
		sched:        sched,
		coordinator:  NewCrossfireCoordinator(cfg.Latency),
		generator:    cfg.Generator,
		synthesizer:  cfg.Synthesizer,
		analyzer:     cfg.Analyzer,
		store:        cfg.Store,
		sink:         cfg.Sink,
		cmds:         make(chan func(), 16),
		aiResults:    make(chan aiResult, 1),
		done:         make(chan struct{}),
		tickInterval: cfg.TickInterval,
		onEnd:        cfg.OnEnd,
		log:          cfg.Logger.With().Str("session_id", cfg.SessionID).Logger(),
	}
	o.touch()
	return o, nil
}

// ID returns the session identifier.
func (o *Orchestrator) ID() string {
	return o.sess.ID
}

// IdleFor reports how long ago the session last saw any activity.
func (o *Orchestrator) IdleFor() time.Duration {
	return time.Since(time.Unix(0, o.lastActivity.Load()))
}

// Start emits the initial state, requests the first AI turn if the
// opening speaker is an AI participant, and launches the session loop.
func (o *Orchestrator) Start() {
	o.emitStateUpdate()
	o.maybeStartTurn()
	go o.run()
}

func (o *Orchestrator) run() {
	defer close(o.done)
	ticker := time.NewTicker(o.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			o.handleTick(1)
		case cmd := <-o.cmds:
			cmd()
		case res := <-o.aiResults:
			o.handleAIResult(res)
		}
		if o.stopped {
			return
		}
	}
}

// do posts fn into the session loop and waits for its result. Returns
// ErrSessionState once the session has been torn down.
func (o *Orchestrator) do(ctx context.Context, fn func() error) error {
	reply := make(chan error, 1)
	wrapped := func() {
		o.touch()
		reply <- fn()
	}
	select {
	case o.cmds <- wrapped:
	case <-o.done:
		return fmt.Errorf("%w: session %s is gone", ErrSessionState, o.sess.ID)
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-o.done:
		// The loop may have executed fn right before exiting.
		select {
		case err := <-reply:
			return err
		default:
			return fmt.Errorf("%w: session %s is gone", ErrSessionState, o.sess.ID)
		}
	}
}

// SubmitHumanSpeech accepts a human turn. Rejected with ErrValidation
// when the submitter does not hold the floor; the session is unaffected.
func (o *Orchestrator) SubmitHumanSpeech(ctx context.Context, participantID, text string) error {
	return o.do(ctx, func() error {
		return o.handleHumanSpeech(participantID, text)
	})
}

// SubmitCrossfire accepts an open-floor message during crossfire phases.
func (o *Orchestrator) SubmitCrossfire(ctx context.Context, participantID, text string) error {
	receivedAt := time.Now()
	return o.do(ctx, func() error {
		return o.handleCrossfire(participantID, text, receivedAt)
	})
}

// Pause freezes the timer. An external call already in flight for the
// current turn keeps running; no new ones are issued while paused.
func (o *Orchestrator) Pause(ctx context.Context) error {
	return o.do(ctx, func() error {
		return o.handlePause()
	})
}

// Resume unfreezes the timer and re-arms the current turn.
func (o *Orchestrator) Resume(ctx context.Context) error {
	return o.do(ctx, func() error {
		return o.handleResume()
	})
}

// SkipTurn yields the current turn, human or AI. Used to recover from
// stuck states.
func (o *Orchestrator) SkipTurn(ctx context.Context) error {
	return o.do(ctx, func() error {
		return o.handleSkip()
	})
}

// SaveSnapshot persists the full session, best effort.
func (o *Orchestrator) SaveSnapshot(ctx context.Context) error {
	return o.do(ctx, func() error {
		return o.handleSave(ctx)
	})
}

// LoadSnapshot restores a saved session. The restored session comes back
// paused; the caller must resume explicitly.
func (o *Orchestrator) LoadSnapshot(ctx context.Context, snapshotID string) error {
	return o.do(ctx, func() error {
		return o.handleLoad(ctx, snapshotID)
	})
}

// EndSession marks the session terminal, runs the final analysis and
// releases the session. A second call returns ErrSessionState.
func (o *Orchestrator) EndSession(ctx context.Context) error {
	return o.do(ctx, func() error {
		return o.handleEnd(ctx)
	})
}

// State returns the full session snapshot used for late-joining
// connections.
func (o *Orchestrator) State(ctx context.Context) (StatePayload, error) {
	var payload StatePayload
	err := o.do(ctx, func() error {
		payload = o.statePayload()
		return nil
	})
	return payload, err
}

func (o *Orchestrator) touch() {
	o.lastActivity.Store(time.Now().UnixNano())
}

// --- loop-side handlers; every mutation of o.sess happens below ---

func (o *Orchestrator) handleTick(elapsedSeconds int) {
	if o.stopped {
		return
	}
	switch o.sched.Tick(o.sess, elapsedSeconds) {
	case TimerPaused, TimerEnded:
		return
	case TimerRunning:
		o.emitStateUpdate()
	case TimerExpired:
		o.handleExpiry()
	}
}

func (o *Orchestrator) handleExpiry() {
	phase := o.sess.Phase
	if phase.OpenFloor() {
		_, count := o.coordinator.End()
		o.log.Info().Str("phase", phase.String()).Int("messages", count).Msg("crossfire ended")
		o.advance()
		return
	}
	if o.aiPending {
		// The pending generation call is itself bounded by the recovery
		// layer's timeout and always completes; its result advances the
		// phase.
		o.log.Debug().Str("phase", phase.String()).Msg("timer expired with AI turn in flight")
		return
	}
	// A human ran out of time: yield on their behalf, exactly once.
	o.log.Info().Str("phase", phase.String()).Msg("turn expired, yielding automatically")
	o.yieldCurrent()
}

func (o *Orchestrator) handleHumanSpeech(participantID, text string) error {
	if o.sess.Ended {
		return fmt.Errorf("%w: session has ended", ErrSessionState)
	}
	speaker := o.sched.CurrentSpeaker(o.sess)
	if speaker == OpenFloor {
		return errors.Join(ErrValidation, errors.New("open floor: use a crossfire message"))
	}
	if participantID != speaker {
		return errors.Join(ErrValidation, fmt.Errorf("participant %s does not hold the floor", participantID))
	}
	if text == "" {
		return errors.Join(ErrValidation, errors.New("empty speech"))
	}
	o.appendSegment(participantID, text, false, false)
	o.advance()
	return nil
}

func (o *Orchestrator) handleCrossfire(participantID, text string, receivedAt time.Time) error {
	if o.sess.Ended {
		return fmt.Errorf("%w: session has ended", ErrSessionState)
	}
	msg, err := o.coordinator.Accept(o.sess, participantID, text)
	if err != nil {
		return err
	}
	o.sess.Crossfire = append(o.sess.Crossfire, msg)
	o.emit(EventCrossfireMessage, CrossfirePayload{
		Speaker:   msg.SpeakerID,
		Text:      msg.Text,
		Timestamp: msg.Timestamp.Unix(),
	})
	o.coordinator.Observe(o.sess.ID, receivedAt)
	return nil
}

func (o *Orchestrator) handlePause() error {
	if o.sess.Ended {
		return fmt.Errorf("%w: session has ended", ErrSessionState)
	}
	o.sess.Paused = true
	o.emitStateUpdate()
	return nil
}

func (o *Orchestrator) handleResume() error {
	if o.sess.Ended {
		return fmt.Errorf("%w: session has ended", ErrSessionState)
	}
	if !o.sess.Paused {
		return nil
	}
	o.sess.Paused = false
	o.emitStateUpdate()
	o.maybeStartTurn()
	return nil
}

func (o *Orchestrator) handleSkip() error {
	if o.sess.Ended {
		return fmt.Errorf("%w: session has ended", ErrSessionState)
	}
	if o.sess.Phase == PhaseEnded {
		return fmt.Errorf("%w: debate already finished", ErrSessionState)
	}
	if o.sess.Phase.OpenFloor() {
		o.coordinator.End()
		o.advance()
		return nil
	}
	o.cancelInFlightTurn()
	o.yieldCurrent()
	return nil
}

func (o *Orchestrator) handleSave(ctx context.Context) error {
	saveCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := o.store.Save(saveCtx, snapshotFromSession(o.sess)); err != nil {
		o.emit(EventDebateSaved, SavedPayload{Success: false, Error: err.Error()})
		return fmt.Errorf("failed to save session %s: %w", o.sess.ID, err)
	}
	o.emit(EventDebateSaved, SavedPayload{Success: true, SessionID: o.sess.ID})
	return nil
}

func (o *Orchestrator) handleLoad(ctx context.Context, snapshotID string) error {
	loadCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	snap, err := o.store.Load(loadCtx, snapshotID)
	if err != nil {
		o.emit(EventDebateLoaded, LoadedPayload{Success: false, Error: err.Error()})
		return fmt.Errorf("failed to load snapshot %s: %w", snapshotID, err)
	}
	o.cancelInFlightTurn()
	if err := restoreSession(o.sess, snap); err != nil {
		o.emit(EventDebateLoaded, LoadedPayload{Success: false, Error: err.Error()})
		return err
	}
	if o.sess.Phase.OpenFloor() {
		o.coordinator.Begin(o.sess.Phase)
	}
	state := o.stateUpdatePayload()
	o.emit(EventDebateLoaded, LoadedPayload{
		Success:      true,
		State:        &state,
		Participants: o.sess.Participants,
		Transcript:   o.sess.Transcript,
	})
	o.emitStateUpdate()
	return nil
}

func (o *Orchestrator) handleEnd(ctx context.Context) error {
	if o.sess.Ended {
		return fmt.Errorf("%w: session already ended", ErrSessionState)
	}
	o.sess.Ended = true
	o.cancelInFlightTurn()

	if o.analyzer != nil && len(o.sess.Transcript) > 0 {
		analysisCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
		result, err := o.analyzer.Analyze(analysisCtx, o.sess.Topic, o.sess.Participants, o.sess.Transcript)
		cancel()
		if err != nil {
			o.log.Error().Err(err).Msg("debate analysis failed")
			o.emit(EventDebateError, ErrorPayload{Message: "debate analysis unavailable", Error: err.Error()})
		} else {
			o.publish(&Event{Type: EventDebateAnalysis, Payload: result, Timestamp: time.Now().Unix()})
		}
	}

	o.emit(EventDebateEnded, StateUpdatePayload{
		Phase:            o.sess.Phase.String(),
		RemainingTime:    0,
		CurrentSpeakerID: "",
		Mode:             "speech",
	})
	o.stopped = true
	if o.onEnd != nil {
		o.onEnd(o.sess.ID)
	}
	o.log.Info().Msg("session ended")
	return nil
}

func (o *Orchestrator) handleAIResult(res aiResult) {
	o.aiPending = false
	o.turnCancel = nil
	if o.stopped || o.sess.Ended {
		return
	}
	if res.phase != o.sess.Phase {
		// The turn was skipped or the session reloaded while the call
		// was in flight.
		o.log.Debug().Str("phase", res.phase.String()).Msg("discarding stale AI turn")
		return
	}
	o.touch()

	hasAudio := len(res.audio) > 0
	o.appendSegment(res.participant.ID, res.text, true, hasAudio)
	if res.fallback {
		o.emit(EventDebateError, ErrorPayload{
			Message: "speech generation degraded; speaker yields",
		})
	}
	if hasAudio {
		o.sink.PublishAudio(o.sess.ID, res.audio)
	} else if res.audioErr != nil {
		o.emit(EventAudioDegraded, ErrorPayload{
			Message: "audio synthesis unavailable for this speech",
			Error:   res.audioErr.Error(),
		})
	}
	o.advance()
}

// yieldCurrent appends the deterministic yield utterance for the current
// speaker and advances.
func (o *Orchestrator) yieldCurrent() {
	speaker := o.sched.CurrentSpeaker(o.sess)
	if speaker == OpenFloor || speaker == "" {
		o.advance()
		return
	}
	p, _ := o.sess.Participant(speaker)
	o.appendSegment(speaker, YieldText, p.IsAI, false)
	o.advance()
}

func (o *Orchestrator) appendSegment(speakerID, text string, isAI, hasAudio bool) {
	segment := SpeechSegment{
		SpeakerID: speakerID,
		Phase:     o.sess.Phase,
		Text:      text,
		HasAudio:  hasAudio,
		Timestamp: time.Now(),
	}
	o.sess.Transcript = append(o.sess.Transcript, segment)

	eventType := EventUserSpeech
	if isAI {
		eventType = EventAISpeech
	}
	o.emit(eventType, SpeechPayload{
		Speaker: speakerID,
		Text:    text,
		Phase:   segment.Phase.String(),
	})
}

func (o *Orchestrator) advance() {
	next := o.sched.Advance(o.sess)
	if next == PhaseEnded {
		o.emitStateUpdate()
		o.log.Info().Msg("debate reached terminal phase")
		return
	}
	if next.OpenFloor() {
		o.coordinator.Begin(next)
	}
	o.emitStateUpdate()
	o.maybeStartTurn()
}

func (o *Orchestrator) maybeStartTurn() {
	if o.stopped || o.sess.Ended || o.sess.Paused || o.aiPending {
		return
	}
	phase := o.sess.Phase
	if phase == PhaseEnded || phase.OpenFloor() {
		return
	}
	speaker := o.sched.CurrentSpeaker(o.sess)
	p, ok := o.sess.Participant(speaker)
	if !ok || !p.IsAI {
		return
	}
	o.beginAITurn(p)
}

func (o *Orchestrator) beginAITurn(p Participant) {
	o.aiPending = true
	ctx, cancel := context.WithCancel(context.Background())
	o.turnCancel = cancel

	req := GenerationRequest{
		Topic:      o.sess.Topic,
		Team:       p.Team,
		Phase:      o.sess.Phase,
		Transcript: append([]SpeechSegment(nil), o.sess.TranscriptTail(12)...),
		Persona:    p.Persona,
		MaxWords:   int(float64(o.sched.Format().Duration(o.sess.Phase)) * speakingRate),
	}

	go func() {
		defer cancel()
		res := o.performAITurn(ctx, p, req)
		select {
		case o.aiResults <- res:
		case <-o.done:
		}
	}()
}

// performAITurn runs the generation and synthesis gateways for one AI
// turn. Generation failure past recovery degrades to the deterministic
// yield text; synthesis failure degrades to a text-only segment.
func (o *Orchestrator) performAITurn(ctx context.Context, p Participant, req GenerationRequest) aiResult {
	res := aiResult{participant: p, phase: req.Phase}

	speech, err := o.generator.GenerateSpeech(ctx, req)
	if err != nil {
		o.log.Error().Err(err).Str("participant", p.ID).Msg("speech generation exhausted recovery")
		res.text = YieldText
		res.fallback = true
	} else {
		res.text = speech.Text
		res.fallback = speech.Fallback
	}

	if o.synthesizer != nil && res.text != "" && ctx.Err() == nil {
		audio, err := o.synthesizer.Synthesize(ctx, SynthesisRequest{Text: res.text, Persona: p.Persona})
		if err != nil {
			o.log.Warn().Err(err).Str("participant", p.ID).Msg("speech synthesis unavailable")
			res.audioErr = err
		} else {
			res.audio = audio
		}
	}
	return res
}

func (o *Orchestrator) cancelInFlightTurn() {
	if o.turnCancel != nil {
		o.turnCancel()
		o.turnCancel = nil
	}
	o.aiPending = false
}

func (o *Orchestrator) mode() string {
	if o.sess.Phase.OpenFloor() {
		return "crossfire"
	}
	return "speech"
}

func (o *Orchestrator) stateUpdatePayload() StateUpdatePayload {
	return StateUpdatePayload{
		Phase:            o.sess.Phase.String(),
		RemainingTime:    o.sess.RemainingSeconds,
		CurrentSpeakerID: o.sched.CurrentSpeaker(o.sess),
		Mode:             o.mode(),
		Paused:           o.sess.Paused,
	}
}

func (o *Orchestrator) statePayload() StatePayload {
	return StatePayload{
		SessionID:    o.sess.ID,
		Topic:        o.sess.Topic,
		Participants: append([]Participant(nil), o.sess.Participants...),
		State:        o.stateUpdatePayload(),
		Transcript:   append([]SpeechSegment(nil), o.sess.Transcript...),
		Crossfire:    append([]CrossfireMessage(nil), o.sess.Crossfire...),
		Ended:        o.sess.Ended,
	}
}

func (o *Orchestrator) emitStateUpdate() {
	o.emit(EventDebateStateUpdate, o.stateUpdatePayload())
}

func (o *Orchestrator) emit(eventType string, payload interface{}) {
	event, err := NewEvent(eventType, payload)
	if err != nil {
		o.log.Error().Err(err).Str("event", eventType).Msg("failed to encode event")
		return
	}
	o.publish(event)
}

func (o *Orchestrator) publish(event *Event) {
	o.seq++
	event.Seq = o.seq
	if o.sink != nil {
		o.sink.Publish(o.sess.ID, event)
	}
}
