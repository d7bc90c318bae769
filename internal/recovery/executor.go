package recovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// ErrExhausted is returned when every retry and every fallback has failed.
var ErrExhausted = errors.New("recovery exhausted")

// Outcome classifies how a guarded call concluded.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeRetriedSuccess Outcome = "retriedSuccess"
	OutcomeFallback       Outcome = "fallback"
	OutcomeExhausted      Outcome = "exhausted"
	OutcomeShortCircuited Outcome = "shortCircuited"
)

// Reporter receives the outcome of every guarded call and every breaker
// transition. Failures are never silently dropped.
type Reporter interface {
	ReportOutcome(operation string, outcome Outcome, attempts int, err error)
	ReportBreakerTransition(operation string, from, to BreakerState)
}

// StatusError carries an HTTP-like status code from a downstream service so
// the retry predicate can distinguish client errors from transient ones.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("downstream status %d: %s", e.Code, e.Message)
}

// DefaultShouldRetry retries rate limits, server errors and timeouts, never
// client errors.
func DefaultShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == 429 || statusErr.Code >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Options configures one guarded call.
type Options[T any] struct {
	MaxRetries        int
	ShouldRetry       func(error) bool
	InitialBackoff    time.Duration
	BackoffMultiplier float64
	MaxBackoff        time.Duration
	AttemptTimeout    time.Duration
	Fallbacks         []func(ctx context.Context) (T, error)
	Breaker           *Breaker
	Reporter          Reporter
}

// Result describes the value produced by a guarded call.
type Result[T any] struct {
	Value    T
	Outcome  Outcome
	Attempts int
}

// Execute runs action under the retry/breaker/fallback policy in opts. When
// retries exhaust or the breaker is open, fallbacks run in order and the
// first success is returned with OutcomeFallback (or OutcomeShortCircuited
// when no network attempt was made at all). The returned error wraps
// ErrExhausted if nothing succeeded.
func Execute[T any](ctx context.Context, operation string, action func(ctx context.Context) (T, error), opts Options[T]) (Result[T], error) {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.ShouldRetry == nil {
		opts.ShouldRetry = DefaultShouldRetry
	}
	if opts.InitialBackoff <= 0 {
		opts.InitialBackoff = 500 * time.Millisecond
	}
	if opts.BackoffMultiplier < 1 {
		opts.BackoffMultiplier = 2
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = 10 * time.Second
	}

	var zero T
	shortCircuited := false
	attempts := 0
	var lastErr error

	if opts.Breaker != nil {
		if err := opts.Breaker.Allow(); err != nil {
			shortCircuited = true
			lastErr = err
		}
	}

	if !shortCircuited {
		backoff := opts.InitialBackoff
		for attempts < opts.MaxRetries {
			attempts++
			value, err := runAttempt(ctx, action, opts.AttemptTimeout)
			if err == nil {
				if opts.Breaker != nil {
					opts.Breaker.RecordSuccess()
				}
				outcome := OutcomeSuccess
				if attempts > 1 {
					outcome = OutcomeRetriedSuccess
				}
				report(opts.Reporter, operation, outcome, attempts, nil)
				return Result[T]{Value: value, Outcome: outcome, Attempts: attempts}, nil
			}
			lastErr = err
			if opts.Breaker != nil {
				opts.Breaker.RecordFailure()
			}
			if ctx.Err() != nil {
				lastErr = ctx.Err()
				break
			}
			if attempts >= opts.MaxRetries || !opts.ShouldRetry(err) {
				break
			}
			if opts.Breaker != nil {
				if err := opts.Breaker.Allow(); err != nil {
					break
				}
			}
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
			case <-time.After(backoff):
			}
			if ctx.Err() != nil {
				break
			}
			backoff = time.Duration(float64(backoff) * opts.BackoffMultiplier)
			if backoff > opts.MaxBackoff {
				backoff = opts.MaxBackoff
			}
		}
	}

	for _, fallback := range opts.Fallbacks {
		value, err := fallback(ctx)
		if err != nil {
			lastErr = err
			continue
		}
		outcome := OutcomeFallback
		if shortCircuited {
			outcome = OutcomeShortCircuited
		}
		report(opts.Reporter, operation, outcome, attempts, lastErr)
		return Result[T]{Value: value, Outcome: outcome, Attempts: attempts}, nil
	}

	report(opts.Reporter, operation, OutcomeExhausted, attempts, lastErr)
	return Result[T]{Value: zero, Outcome: OutcomeExhausted, Attempts: attempts},
		fmt.Errorf("%s: %w: %w", operation, ErrExhausted, lastErr)
}

func runAttempt[T any](ctx context.Context, action func(ctx context.Context) (T, error), timeout time.Duration) (T, error) {
	if timeout <= 0 {
		return action(ctx)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return action(attemptCtx)
}

func report(r Reporter, operation string, outcome Outcome, attempts int, err error) {
	if r != nil {
		r.ReportOutcome(operation, outcome, attempts, err)
	}
}
