package recovery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := NewBreaker("gen", 3, time.Minute)

	for i := 0; i < 2; i++ {
		require.NoError(t, b.Allow())
		b.RecordFailure()
		assert.Equal(t, BreakerClosed, b.State())
	}

	require.NoError(t, b.Allow())
	b.RecordFailure()
	assert.Equal(t, BreakerOpen, b.State())
	assert.ErrorIs(t, b.Allow(), ErrCircuitOpen)
}

func TestBreakerHalfOpenProbe(t *testing.T) {
	b := NewBreaker("synth", 1, time.Minute)
	now := time.Now()
	b.now = func() time.Time { return now }

	b.RecordFailure()
	require.Equal(t, BreakerOpen, b.State())

	// Still cooling down.
	now = now.Add(30 * time.Second)
	assert.ErrorIs(t, b.Allow(), ErrCircuitOpen)

	// Cooldown elapsed: exactly one probe is admitted.
	now = now.Add(31 * time.Second)
	require.NoError(t, b.Allow())
	assert.Equal(t, BreakerHalfOpen, b.State())
	assert.ErrorIs(t, b.Allow(), ErrCircuitOpen)

	// Successful probe closes the breaker.
	b.RecordSuccess()
	assert.Equal(t, BreakerClosed, b.State())
	assert.NoError(t, b.Allow())
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	b := NewBreaker("synth", 1, time.Minute)
	now := time.Now()
	b.now = func() time.Time { return now }

	b.RecordFailure()
	now = now.Add(2 * time.Minute)
	require.NoError(t, b.Allow())
	require.Equal(t, BreakerHalfOpen, b.State())

	b.RecordFailure()
	assert.Equal(t, BreakerOpen, b.State())
	assert.ErrorIs(t, b.Allow(), ErrCircuitOpen)
}

func TestBreakerTransitionCallback(t *testing.T) {
	b := NewBreaker("gen", 1, time.Minute)
	now := time.Now()
	b.now = func() time.Time { return now }

	var seen []BreakerState
	b.OnTransition(func(name string, from, to BreakerState) {
		assert.Equal(t, "gen", name)
		seen = append(seen, to)
	})

	b.RecordFailure()
	now = now.Add(2 * time.Minute)
	require.NoError(t, b.Allow())
	b.RecordSuccess()

	assert.Equal(t, []BreakerState{BreakerOpen, BreakerHalfOpen, BreakerClosed}, seen)
}
