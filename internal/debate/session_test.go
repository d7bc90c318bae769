package debate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateParticipants(t *testing.T) {
	valid := []Participant{
		{ID: "a", Team: TeamFor, Role: 1},
		{ID: "b", Team: TeamAgainst, Role: 1, IsAI: true},
	}

	tests := []struct {
		name         string
		participants []Participant
		max          int
		wantErr      bool
	}{
		{"valid pair", valid, 4, false},
		{"too few", valid[:1], 4, true},
		{"too many", valid, 1, true},
		{
			"one sided",
			[]Participant{
				{ID: "a", Team: TeamFor, Role: 1},
				{ID: "b", Team: TeamFor, Role: 2},
			},
			4, true,
		},
		{
			"duplicate id",
			[]Participant{
				{ID: "a", Team: TeamFor, Role: 1},
				{ID: "a", Team: TeamAgainst, Role: 1},
			},
			4, true,
		},
		{
			"reserved id",
			[]Participant{
				{ID: OpenFloor, Team: TeamFor, Role: 1},
				{ID: "b", Team: TeamAgainst, Role: 1},
			},
			4, true,
		},
		{
			"unknown team",
			[]Participant{
				{ID: "a", Team: "neutral", Role: 1},
				{ID: "b", Team: TeamAgainst, Role: 1},
			},
			4, true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParticipants(tt.participants, tt.max)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrValidation)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTranscriptTail(t *testing.T) {
	sess := &Session{}
	for i := 0; i < 5; i++ {
		sess.Transcript = append(sess.Transcript, SpeechSegment{Text: string(rune('a' + i))})
	}

	tail := sess.TranscriptTail(3)
	assert.Len(t, tail, 3)
	assert.Equal(t, "c", tail[0].Text)
	assert.Equal(t, "e", tail[2].Text)

	assert.Len(t, sess.TranscriptTail(10), 5)
	assert.Len(t, sess.TranscriptTail(0), 5)
}

func TestPhaseNameRoundtrip(t *testing.T) {
	for phase := PhaseConstructiveFor; phase <= PhaseEnded; phase++ {
		got, ok := PhaseFromName(phase.String())
		assert.True(t, ok, phase.String())
		assert.Equal(t, phase, got)
	}

	_, ok := PhaseFromName("intermission")
	assert.False(t, ok)
}

func TestTeamOpponent(t *testing.T) {
	assert.Equal(t, TeamAgainst, TeamFor.Opponent())
	assert.Equal(t, TeamFor, TeamAgainst.Opponent())
}
