package recovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	outcomes    []Outcome
	transitions []BreakerState
}

func (r *recordingReporter) ReportOutcome(operation string, outcome Outcome, attempts int, err error) {
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recordingReporter) ReportBreakerTransition(operation string, from, to BreakerState) {
	r.transitions = append(r.transitions, to)
}

func fastOptions() Options[string] {
	return Options[string]{
		MaxRetries:     3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}
}

func TestExecuteSucceedsFirstAttempt(t *testing.T) {
	reporter := &recordingReporter{}
	opts := fastOptions()
	opts.Reporter = reporter

	res, err := Execute(context.Background(), "gen", func(ctx context.Context) (string, error) {
		return "ok", nil
	}, opts)

	require.NoError(t, err)
	assert.Equal(t, "ok", res.Value)
	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, []Outcome{OutcomeSuccess}, reporter.outcomes)
}

func TestExecuteRetriesTransientErrors(t *testing.T) {
	calls := 0
	opts := fastOptions()

	res, err := Execute(context.Background(), "gen", func(ctx context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &StatusError{Code: 503, Message: "unavailable"}
		}
		return "recovered", nil
	}, opts)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, OutcomeRetriedSuccess, res.Outcome)
	assert.Equal(t, "recovered", res.Value)
}

func TestExecuteDoesNotRetryClientErrors(t *testing.T) {
	calls := 0
	opts := fastOptions()

	_, err := Execute(context.Background(), "gen", func(ctx context.Context) (string, error) {
		calls++
		return "", &StatusError{Code: 400, Message: "bad request"}
	}, opts)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestExecuteFallbackChain(t *testing.T) {
	reporter := &recordingReporter{}
	opts := fastOptions()
	opts.Reporter = reporter
	opts.Fallbacks = []func(ctx context.Context) (string, error){
		func(ctx context.Context) (string, error) {
			return "", errors.New("first fallback down")
		},
		func(ctx context.Context) (string, error) {
			return "yield", nil
		},
	}

	res, err := Execute(context.Background(), "gen", func(ctx context.Context) (string, error) {
		return "", &StatusError{Code: 500, Message: "boom"}
	}, opts)

	require.NoError(t, err)
	assert.Equal(t, "yield", res.Value)
	assert.Equal(t, OutcomeFallback, res.Outcome)
	assert.Equal(t, []Outcome{OutcomeFallback}, reporter.outcomes)
}

func TestExecuteExhaustedWrapsLastError(t *testing.T) {
	opts := fastOptions()

	_, err := Execute(context.Background(), "synth", func(ctx context.Context) (string, error) {
		return "", &StatusError{Code: 502, Message: "bad gateway"}
	}, opts)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	var statusErr *StatusError
	assert.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 502, statusErr.Code)
}

func TestExecuteShortCircuitsWithOpenBreaker(t *testing.T) {
	breaker := NewBreaker("gen", 2, time.Minute)
	opts := fastOptions()
	opts.Breaker = breaker
	opts.MaxRetries = 1

	boom := func(ctx context.Context) (string, error) {
		return "", &StatusError{Code: 500, Message: "boom"}
	}

	// Trip the breaker.
	for i := 0; i < 2; i++ {
		_, err := Execute(context.Background(), "gen", boom, opts)
		require.Error(t, err)
	}
	require.Equal(t, BreakerOpen, breaker.State())

	// Within the cooldown no network call may happen at all.
	calls := 0
	opts.Fallbacks = []func(ctx context.Context) (string, error){
		func(ctx context.Context) (string, error) { return "fallback", nil },
	}
	for i := 0; i < 5; i++ {
		res, err := Execute(context.Background(), "gen", func(ctx context.Context) (string, error) {
			calls++
			return "never", nil
		}, opts)
		require.NoError(t, err)
		assert.Equal(t, "fallback", res.Value)
		assert.Equal(t, OutcomeShortCircuited, res.Outcome)
	}
	assert.Equal(t, 0, calls)
}

func TestDefaultShouldRetry(t *testing.T) {
	assert.True(t, DefaultShouldRetry(&StatusError{Code: 429}))
	assert.True(t, DefaultShouldRetry(&StatusError{Code: 503}))
	assert.True(t, DefaultShouldRetry(context.DeadlineExceeded))
	assert.False(t, DefaultShouldRetry(&StatusError{Code: 404}))
	assert.False(t, DefaultShouldRetry(nil))
	assert.False(t, DefaultShouldRetry(errors.New("opaque")))
}
