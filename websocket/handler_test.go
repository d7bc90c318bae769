package websocket

import (
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sachin-Buluswar/DebateAI-sub002/internal/debate"
)

func testRoster() []debate.Participant {
	return []debate.Participant{
		{ID: "alice", Team: debate.TeamFor, Role: 1},
		{ID: "bob", Team: debate.TeamAgainst, Role: 1},
	}
}

func TestHandleStartReleasesSessionWhenJoinFails(t *testing.T) {
	logger := zerolog.Nop()
	hub := newTestHub()
	registry := debate.NewRegistry(logger)
	factory := func(sessionID, topic string, participants []debate.Participant) (*debate.Orchestrator, error) {
		return registry.Create(debate.OrchestratorConfig{
			SessionID:    sessionID,
			Topic:        topic,
			Participants: participants,
			Sink:         hub,
			Logger:       logger,
		})
	}
	h := NewHandler(hub, registry, factory, logger)

	serverConn, clientConn := newConnPair(t)
	// Tear both ends down so the join snapshot write fails.
	clientConn.Close()
	serverConn.Close()

	payload, err := json.Marshal(startDebatePayload{
		Topic:        "released on failure",
		Participants: testRoster(),
	})
	require.NoError(t, err)

	_, _, _, err = h.handleStart(serverConn, payload)
	require.Error(t, err)

	// The half-created session must not linger until the idle reaper.
	assert.Equal(t, 0, registry.Len())
}

func TestHandleStartRejectsInvalidRoster(t *testing.T) {
	logger := zerolog.Nop()
	hub := newTestHub()
	registry := debate.NewRegistry(logger)
	factory := func(sessionID, topic string, participants []debate.Participant) (*debate.Orchestrator, error) {
		return registry.Create(debate.OrchestratorConfig{
			SessionID:    sessionID,
			Topic:        topic,
			Participants: participants,
			Sink:         hub,
			Logger:       logger,
		})
	}
	h := NewHandler(hub, registry, factory, logger)

	serverConn, _ := newConnPair(t)
	payload, err := json.Marshal(startDebatePayload{Topic: "unbalanced", Participants: testRoster()[:1]})
	require.NoError(t, err)

	_, _, _, err = h.handleStart(serverConn, payload)
	assert.ErrorIs(t, err, debate.ErrValidation)
	assert.Equal(t, 0, registry.Len())
}
