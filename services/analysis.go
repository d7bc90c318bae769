package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/Sachin-Buluswar/DebateAI-sub002/config"
	"github.com/Sachin-Buluswar/DebateAI-sub002/internal/debate"
	"github.com/Sachin-Buluswar/DebateAI-sub002/internal/recovery"
)

// analysisUnavailable is the payload delivered when every scoring
// attempt fails; the session still ends normally.
var analysisUnavailable = json.RawMessage(`{"available":false,"reason":"analysis unavailable"}`)

// AnalysisService scores a finished debate with the model, returning a
// structured JSON payload delivered to clients as debateAnalysis.
type AnalysisService struct {
	client   *genai.Client
	model    string
	policy   config.RecoveryPolicy
	breaker  *recovery.Breaker
	reporter recovery.Reporter
}

func NewAnalysisService(client *genai.Client, cfg *config.Config, reporter recovery.Reporter) *AnalysisService {
	breaker := recovery.NewBreaker("analysis", cfg.Recovery.Analysis.BreakerThreshold, cfg.Recovery.Analysis.Cooldown())
	if reporter != nil {
		breaker.OnTransition(func(name string, from, to recovery.BreakerState) {
			reporter.ReportBreakerTransition(name, from, to)
		})
	}
	return &AnalysisService{
		client:   client,
		model:    cfg.Gemini.Model,
		policy:   cfg.Recovery.Analysis,
		breaker:  breaker,
		reporter: reporter,
	}
}

// Analyze implements debate.TranscriptAnalyzer.
func (s *AnalysisService) Analyze(ctx context.Context, topic string, participants []debate.Participant, transcript []debate.SpeechSegment) (json.RawMessage, error) {
	prompt := buildAnalysisPrompt(topic, participants, transcript)

	result, err := recovery.Execute(ctx, "analysis", func(ctx context.Context) (json.RawMessage, error) {
		text, err := generateModelText(ctx, s.client, s.model, prompt)
		if err != nil {
			return nil, err
		}
		if !json.Valid([]byte(text)) {
			return nil, errors.New("model returned malformed scoring payload")
		}
		return json.RawMessage(text), nil
	}, recovery.Options[json.RawMessage]{
		MaxRetries:     s.policy.MaxRetries,
		AttemptTimeout: s.policy.AttemptTimeout(),
		Breaker:        s.breaker,
		Reporter:       s.reporter,
		Fallbacks: []func(ctx context.Context) (json.RawMessage, error){
			func(ctx context.Context) (json.RawMessage, error) {
				return analysisUnavailable, nil
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("debate analysis failed: %w", err)
	}
	return result.Value, nil
}

func buildAnalysisPrompt(topic string, participants []debate.Participant, transcript []debate.SpeechSegment) string {
	var roster strings.Builder
	for _, p := range participants {
		roster.WriteString(fmt.Sprintf("- %s (%s, side: %s)\n", p.ID, p.DisplayName, p.Team))
	}

	return fmt.Sprintf(
		`Act as a professional debate judge. Analyze the following Public Forum debate on the topic "%s" and provide scores in STRICT JSON format.

Participants:
%s
Judgment Criteria (10 points each, per side):
1. Constructive Case: clarity of position, quality of reasoning, persuasiveness
2. Rebuttal: direct clash with the opposing case, logical coherence
3. Summary: effective collapsing and weighing of key issues
4. Final Focus: persuasiveness of the closing argument

Required Output Format:
{
  "constructive": {"for": {"score": X, "reason": "text"}, "against": {"score": Y, "reason": "text"}},
  "rebuttal": {"for": {"score": X, "reason": "text"}, "against": {"score": Y, "reason": "text"}},
  "summary": {"for": {"score": X, "reason": "text"}, "against": {"score": Y, "reason": "text"}},
  "finalFocus": {"for": {"score": X, "reason": "text"}, "against": {"score": Y, "reason": "text"}},
  "total": {"for": X, "against": Y},
  "verdict": {"winner": "for/against", "reason": "text"}
}

Debate Transcript:
%s

Provide ONLY the JSON output without any additional text.`,
		topic, roster.String(), formatTranscript(transcript))
}
