package debate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrDuplicateSession is returned when a session id is already live.
	ErrDuplicateSession = errors.New("session already exists")
	// ErrSessionNotFound is returned for lookups of unknown sessions.
	ErrSessionNotFound = errors.New("session not found")
)

// Registry maps session identifiers to live orchestrators, at most one
// per identifier. Lookups are guarded by a narrow critical section; the
// sessions themselves are never touched under the registry lock.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Orchestrator
	log      zerolog.Logger
}

func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		sessions: make(map[string]*Orchestrator),
		log:      logger,
	}
}

// Create constructs, registers and starts a new session. Creating a
// session with a duplicate identifier fails.
func (r *Registry) Create(cfg OrchestratorConfig) (*Orchestrator, error) {
	prevOnEnd := cfg.OnEnd
	cfg.OnEnd = func(sessionID string) {
		r.Remove(sessionID)
		if prevOnEnd != nil {
			prevOnEnd(sessionID)
		}
	}

	orch, err := NewOrchestrator(cfg)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if _, exists := r.sessions[cfg.SessionID]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSession, cfg.SessionID)
	}
	r.sessions[cfg.SessionID] = orch
	r.mu.Unlock()

	orch.Start()
	r.log.Info().Str("session_id", cfg.SessionID).Str("topic", cfg.Topic).Msg("session created")
	return orch, nil
}

// Get returns the live orchestrator for a session id.
func (r *Registry) Get(sessionID string) (*Orchestrator, error) {
	r.mu.RLock()
	orch, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return orch, nil
}

// Remove releases a session id. Safe to call for ids already gone.
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// ReapIdle ends every session idle for longer than maxIdle. Runs on a
// timer from main; ending a session removes it via its OnEnd hook.
func (r *Registry) ReapIdle(maxIdle time.Duration) {
	r.mu.RLock()
	idle := make([]*Orchestrator, 0)
	for _, orch := range r.sessions {
		if orch.IdleFor() > maxIdle {
			idle = append(idle, orch)
		}
	}
	r.mu.RUnlock()

	for _, orch := range idle {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := orch.EndSession(ctx); err != nil && !errors.Is(err, ErrSessionState) {
			r.log.Warn().Err(err).Str("session_id", orch.ID()).Msg("failed to reap idle session")
		} else {
			r.log.Info().Str("session_id", orch.ID()).Msg("reaped idle session")
		}
		cancel()
	}
}

// StartReaper launches the idle reaper until ctx is cancelled.
func (r *Registry) StartReaper(ctx context.Context, maxIdle, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.ReapIdle(maxIdle)
			}
		}
	}()
}
