package services

import (
	"fmt"
	"strings"

	"github.com/Sachin-Buluswar/DebateAI-sub002/internal/debate"
)

// formatTranscript converts transcript segments into a readable excerpt
// for the prompt.
func formatTranscript(segments []debate.SpeechSegment) string {
	var sb strings.Builder
	for _, seg := range segments {
		sb.WriteString(fmt.Sprintf("%s (%s): %s\n", seg.SpeakerID, seg.Phase, seg.Text))
	}
	return sb.String()
}

func levelInstructions(level string) string {
	switch strings.ToLower(level) {
	case "easy":
		return "Use simple, accessible language with basic arguments suitable for beginners. Avoid complex concepts."
	case "medium":
		return "Use clear, moderately complex language with well-structured reasoning and supporting details."
	case "hard":
		return "Employ complex, evidence-based arguments with precise details and in-depth reasoning."
	case "expert":
		return "Craft highly sophisticated, strategic arguments with layered reasoning and authoritative evidence."
	default:
		return "Use clear and balanced language appropriate for a general audience."
	}
}

func phaseInstruction(phase debate.Phase) string {
	switch phase {
	case debate.PhaseConstructiveFor, debate.PhaseConstructiveAgainst:
		return "This is your constructive speech. Introduce the topic, clearly state your side's case, and lay out your strongest contentions with supporting reasoning."
	case debate.PhaseRebuttalFor, debate.PhaseRebuttalAgainst:
		return "This is your rebuttal. Attack the opposing side's contentions directly using the transcript, and defend your own case against their responses."
	case debate.PhaseSummaryFor, debate.PhaseSummaryAgainst:
		return "This is your summary. Collapse the debate down to the key clashes, weigh them, and explain why your side is winning each one."
	case debate.PhaseFinalFocusFor, debate.PhaseFinalFocusAgainst:
		return "This is your final focus. Give the single most important reason your side wins and close persuasively. Introduce no new arguments."
	default:
		return "Respond to the most recent points in a way that advances the debate for your side."
	}
}

func stanceFor(team debate.Team) string {
	if team == debate.TeamFor {
		return "in favor of"
	}
	return "against"
}

// buildSpeechPrompt assembles the generation prompt from topic, side,
// phase, persona and the transcript excerpt.
func buildSpeechPrompt(req debate.GenerationRequest) string {
	persona := req.Persona.Name
	if persona == "" {
		persona = "a competitive debater"
	}

	limitInstruction := ""
	if req.MaxWords > 0 {
		limitInstruction = fmt.Sprintf("Limit your speech to %d words.", req.MaxWords)
	}

	transcriptSection := ""
	if len(req.Transcript) > 0 {
		transcriptSection = fmt.Sprintf("Debate transcript so far:\n%s", formatTranscript(req.Transcript))
	}

	return fmt.Sprintf(
		`You are %s, arguing %s the topic "%s" in a Public Forum debate.
Current phase: %s.
- Level Instructions: %s
- Phase Instructions: %s
Provide only your own speech without simulating an opponent's dialogue, and without any stage directions or headings.
%s
%s`,
		persona, stanceFor(req.Team), req.Topic,
		req.Phase,
		levelInstructions(req.Persona.Level),
		phaseInstruction(req.Phase),
		limitInstruction,
		transcriptSection,
	)
}
