package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sachin-Buluswar/DebateAI-sub002/internal/debate"
)

func TestBuildSpeechPromptIncludesDebateContext(t *testing.T) {
	prompt := buildSpeechPrompt(debate.GenerationRequest{
		Topic: "universal basic income",
		Team:  debate.TeamAgainst,
		Phase: debate.PhaseRebuttalAgainst,
		Transcript: []debate.SpeechSegment{
			{SpeakerID: "alice", Phase: debate.PhaseConstructiveFor, Text: "UBI reduces poverty."},
		},
		Persona:  debate.Persona{Name: "Professor Reed", Level: "expert"},
		MaxWords: 300,
	})

	assert.Contains(t, prompt, "Professor Reed")
	assert.Contains(t, prompt, `arguing against the topic "universal basic income"`)
	assert.Contains(t, prompt, "rebuttalAgainst")
	assert.Contains(t, prompt, "This is your rebuttal")
	assert.Contains(t, prompt, "Limit your speech to 300 words")
	assert.Contains(t, prompt, "UBI reduces poverty.")
	assert.Contains(t, prompt, levelInstructions("expert"))
}

func TestBuildSpeechPromptDefaults(t *testing.T) {
	prompt := buildSpeechPrompt(debate.GenerationRequest{
		Topic: "school uniforms",
		Team:  debate.TeamFor,
		Phase: debate.PhaseConstructiveFor,
	})

	assert.Contains(t, prompt, "a competitive debater")
	assert.Contains(t, prompt, "in favor of")
	assert.NotContains(t, prompt, "Limit your speech")
	assert.NotContains(t, prompt, "Debate transcript so far")
}

func TestLevelInstructionsFallback(t *testing.T) {
	assert.Equal(t, levelInstructions("unknown"), levelInstructions(""))
	assert.NotEqual(t, levelInstructions("easy"), levelInstructions("expert"))
}

func TestCleanModelOutputStripsFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanModelOutput("```json\n{\"a\":1}\n```"))
	assert.Equal(t, "plain text", cleanModelOutput("  plain text\n"))
}
