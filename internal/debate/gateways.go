package debate

import (
	"context"
	"encoding/json"
)

// YieldText is the deterministic utterance substituted when a speaker
// yields, skips, or generation recovery is exhausted.
const YieldText = "We yield the remaining time to the opposing side."

// GenerationRequest carries the debate context for one AI speech.
type GenerationRequest struct {
	Topic      string
	Team       Team
	Phase      Phase
	Transcript []SpeechSegment
	Persona    Persona
	MaxWords   int
}

// GeneratedSpeech is the produced text, flagged when it came from the
// fallback chain rather than the model.
type GeneratedSpeech struct {
	Text     string
	Fallback bool
}

// SpeechGenerator produces a participant's speech text from debate
// context. Implementations run under the recovery layer.
type SpeechGenerator interface {
	GenerateSpeech(ctx context.Context, req GenerationRequest) (GeneratedSpeech, error)
}

// SynthesisRequest carries the text and voice parameters for one
// text-to-speech call.
type SynthesisRequest struct {
	Text    string
	Persona Persona
}

// SpeechSynthesizer converts speech text to audio. Audio is strictly
// best-effort: a failure never blocks transcript progression.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, req SynthesisRequest) ([]byte, error)
}

// TranscriptAnalyzer scores a finished debate. Invoked once at session
// end with the full transcript.
type TranscriptAnalyzer interface {
	Analyze(ctx context.Context, topic string, participants []Participant, transcript []SpeechSegment) (json.RawMessage, error)
}
