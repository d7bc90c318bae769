package services

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"

	"github.com/Sachin-Buluswar/DebateAI-sub002/config"
	"github.com/Sachin-Buluswar/DebateAI-sub002/internal/debate"
	"github.com/Sachin-Buluswar/DebateAI-sub002/internal/recovery"
)

// GenerationService is the typed gateway producing AI speech text
// through the recovery layer. The circuit breaker is shared by every
// session: it reflects the health of the one downstream model service.
type GenerationService struct {
	client   *genai.Client
	model    string
	policy   config.RecoveryPolicy
	breaker  *recovery.Breaker
	reporter recovery.Reporter
}

// NewGenerationService wires the Gemini client behind retry, breaker and
// the deterministic yield fallback.
func NewGenerationService(client *genai.Client, cfg *config.Config, reporter recovery.Reporter) *GenerationService {
	breaker := recovery.NewBreaker("generation", cfg.Recovery.Generation.BreakerThreshold, cfg.Recovery.Generation.Cooldown())
	if reporter != nil {
		breaker.OnTransition(func(name string, from, to recovery.BreakerState) {
			reporter.ReportBreakerTransition(name, from, to)
		})
	}
	return &GenerationService{
		client:   client,
		model:    cfg.Gemini.Model,
		policy:   cfg.Recovery.Generation,
		breaker:  breaker,
		reporter: reporter,
	}
}

// GenerateSpeech implements debate.SpeechGenerator. When recovery is
// exhausted the deterministic yield utterance is substituted so the
// session always progresses.
func (s *GenerationService) GenerateSpeech(ctx context.Context, req debate.GenerationRequest) (debate.GeneratedSpeech, error) {
	prompt := buildSpeechPrompt(req)

	result, err := recovery.Execute(ctx, "generation", func(ctx context.Context) (string, error) {
		text, err := generateModelText(ctx, s.client, s.model, prompt)
		if err != nil {
			return "", err
		}
		if text == "" {
			return "", errors.New("model returned empty speech")
		}
		return text, nil
	}, recovery.Options[string]{
		MaxRetries:     s.policy.MaxRetries,
		AttemptTimeout: s.policy.AttemptTimeout(),
		Breaker:        s.breaker,
		Reporter:       s.reporter,
		Fallbacks: []func(ctx context.Context) (string, error){
			func(ctx context.Context) (string, error) {
				return debate.YieldText, nil
			},
		},
	})
	if err != nil {
		return debate.GeneratedSpeech{}, fmt.Errorf("speech generation failed: %w", err)
	}

	return debate.GeneratedSpeech{
		Text:     result.Value,
		Fallback: result.Outcome == recovery.OutcomeFallback || result.Outcome == recovery.OutcomeShortCircuited,
	}, nil
}
