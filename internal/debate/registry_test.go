package debate

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registryConfig(sessionID string) OrchestratorConfig {
	return OrchestratorConfig{
		SessionID:    sessionID,
		Topic:        "registry test topic",
		Participants: humanPair(),
		Sink:         &captureSink{},
		Logger:       zerolog.Nop(),
	}
}

func TestRegistryCreateAndGet(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	orch, err := r.Create(registryConfig("sess-1"))
	require.NoError(t, err)
	t.Cleanup(func() { orch.EndSession(context.Background()) })

	got, err := r.Get("sess-1")
	require.NoError(t, err)
	assert.Same(t, orch, got)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryRejectsDuplicateID(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	orch, err := r.Create(registryConfig("dup"))
	require.NoError(t, err)
	t.Cleanup(func() { orch.EndSession(context.Background()) })

	_, err = r.Create(registryConfig("dup"))
	assert.ErrorIs(t, err, ErrDuplicateSession)
	assert.Equal(t, 1, r.Len())
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	_, err := r.Get("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestEndSessionReleasesRegistryEntry(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	orch, err := r.Create(registryConfig("ending"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, orch.EndSession(ctx))

	_, err = r.Get("ending")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Equal(t, 0, r.Len())
}

func TestReapIdleEndsStaleSessions(t *testing.T) {
	r := NewRegistry(zerolog.Nop())

	orch, err := r.Create(registryConfig("stale"))
	require.NoError(t, err)

	// Backdate the session's last activity, then reap.
	orch.lastActivity.Store(time.Now().Add(-time.Hour).UnixNano())
	r.ReapIdle(30 * time.Minute)

	_, err = r.Get("stale")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
