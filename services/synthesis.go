package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Sachin-Buluswar/DebateAI-sub002/config"
	"github.com/Sachin-Buluswar/DebateAI-sub002/internal/debate"
	"github.com/Sachin-Buluswar/DebateAI-sub002/internal/recovery"
)

// SynthesisService is the typed gateway converting speech text to audio
// through an ElevenLabs-compatible text-to-speech API. Audio is strictly
// an enhancement: exhausted recovery surfaces an error and the caller
// proceeds text-only.
type SynthesisService struct {
	apiKey       string
	endpoint     string
	defaultVoice string
	model        string
	httpClient   *http.Client
	policy       config.RecoveryPolicy
	breaker      *recovery.Breaker
	reporter     recovery.Reporter
}

type ttsRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

func NewSynthesisService(cfg *config.Config, reporter recovery.Reporter) *SynthesisService {
	breaker := recovery.NewBreaker("synthesis", cfg.Recovery.Synthesis.BreakerThreshold, cfg.Recovery.Synthesis.Cooldown())
	if reporter != nil {
		breaker.OnTransition(func(name string, from, to recovery.BreakerState) {
			reporter.ReportBreakerTransition(name, from, to)
		})
	}
	return &SynthesisService{
		apiKey:       cfg.TTS.ApiKey,
		endpoint:     cfg.TTS.Endpoint,
		defaultVoice: cfg.TTS.VoiceID,
		model:        cfg.TTS.Model,
		httpClient:   &http.Client{},
		policy:       cfg.Recovery.Synthesis,
		breaker:      breaker,
		reporter:     reporter,
	}
}

// Synthesize implements debate.SpeechSynthesizer. There is no fallback
// chain: a failure means "no audio" and never blocks the transcript.
func (s *SynthesisService) Synthesize(ctx context.Context, req debate.SynthesisRequest) ([]byte, error) {
	result, err := recovery.Execute(ctx, "synthesis", func(ctx context.Context) ([]byte, error) {
		return s.postSpeech(ctx, req)
	}, recovery.Options[[]byte]{
		MaxRetries:     s.policy.MaxRetries,
		AttemptTimeout: s.policy.AttemptTimeout(),
		Breaker:        s.breaker,
		Reporter:       s.reporter,
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis failed: %w", err)
	}
	return result.Value, nil
}

func (s *SynthesisService) postSpeech(ctx context.Context, req debate.SynthesisRequest) ([]byte, error) {
	voice := req.Persona.VoiceID
	if voice == "" {
		voice = s.defaultVoice
	}

	payload, err := json.Marshal(ttsRequest{
		Text:    req.Text,
		ModelID: s.model,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request data: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", s.endpoint, voice)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")
	httpReq.Header.Set("xi-api-key", s.apiKey)

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &recovery.StatusError{Code: resp.StatusCode, Message: string(body)}
	}
	return body, nil
}
