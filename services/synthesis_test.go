package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sachin-Buluswar/DebateAI-sub002/config"
	"github.com/Sachin-Buluswar/DebateAI-sub002/internal/debate"
	"github.com/Sachin-Buluswar/DebateAI-sub002/internal/recovery"
)

func synthesisConfig(endpoint string, policy config.RecoveryPolicy) *config.Config {
	cfg := &config.Config{}
	cfg.TTS.ApiKey = "test-key"
	cfg.TTS.Endpoint = endpoint
	cfg.TTS.VoiceID = "default-voice"
	cfg.TTS.Model = "eleven_turbo_v2"
	cfg.Recovery.Synthesis = policy
	return cfg
}

func TestSynthesizeSendsVoiceAndCredentials(t *testing.T) {
	var gotPath, gotKey string
	var gotBody ttsRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("xi-api-key")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	svc := NewSynthesisService(synthesisConfig(server.URL, config.RecoveryPolicy{
		MaxRetries: 1, BreakerThreshold: 5, CooldownSeconds: 300, AttemptTimeoutSeconds: 5,
	}), nil)

	audio, err := svc.Synthesize(context.Background(), debate.SynthesisRequest{
		Text:    "we affirm",
		Persona: debate.Persona{VoiceID: "custom-voice"},
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3-bytes"), audio)
	assert.Equal(t, "/v1/text-to-speech/custom-voice", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "we affirm", gotBody.Text)
	assert.Equal(t, "eleven_turbo_v2", gotBody.ModelID)
}

func TestSynthesizeFallsBackToDefaultVoice(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("audio"))
	}))
	defer server.Close()

	svc := NewSynthesisService(synthesisConfig(server.URL, config.RecoveryPolicy{
		MaxRetries: 1, BreakerThreshold: 5, CooldownSeconds: 300, AttemptTimeoutSeconds: 5,
	}), nil)

	_, err := svc.Synthesize(context.Background(), debate.SynthesisRequest{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "/v1/text-to-speech/default-voice", gotPath)
}

func TestSynthesizeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("audio"))
	}))
	defer server.Close()

	svc := NewSynthesisService(synthesisConfig(server.URL, config.RecoveryPolicy{
		MaxRetries: 2, BreakerThreshold: 5, CooldownSeconds: 300, AttemptTimeoutSeconds: 5,
	}), nil)

	audio, err := svc.Synthesize(context.Background(), debate.SynthesisRequest{Text: "hello"})
	require.NoError(t, err)
	assert.Equal(t, []byte("audio"), audio)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSynthesizeDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad api key", http.StatusUnauthorized)
	}))
	defer server.Close()

	svc := NewSynthesisService(synthesisConfig(server.URL, config.RecoveryPolicy{
		MaxRetries: 3, BreakerThreshold: 10, CooldownSeconds: 300, AttemptTimeoutSeconds: 5,
	}), nil)

	_, err := svc.Synthesize(context.Background(), debate.SynthesisRequest{Text: "hello"})
	require.Error(t, err)
	assert.ErrorIs(t, err, recovery.ErrExhausted)
	var statusErr *recovery.StatusError
	assert.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
	assert.Equal(t, int32(1), calls.Load())
}

func TestSynthesizeShortCircuitsWhenBreakerOpen(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := NewSynthesisService(synthesisConfig(server.URL, config.RecoveryPolicy{
		MaxRetries: 1, BreakerThreshold: 2, CooldownSeconds: 300, AttemptTimeoutSeconds: 5,
	}), nil)

	for i := 0; i < 2; i++ {
		_, err := svc.Synthesize(context.Background(), debate.SynthesisRequest{Text: "hello"})
		require.Error(t, err)
	}
	require.Equal(t, int32(2), calls.Load())

	// The breaker is open: no request reaches the downstream at all.
	_, err := svc.Synthesize(context.Background(), debate.SynthesisRequest{Text: "hello"})
	assert.ErrorIs(t, err, recovery.ErrCircuitOpen)
	assert.Equal(t, int32(2), calls.Load())
}
