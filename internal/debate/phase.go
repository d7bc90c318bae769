package debate

// Team is one of the two opposing sides of a debate.
type Team string

const (
	TeamFor     Team = "for"
	TeamAgainst Team = "against"
)

// Opponent returns the other side.
func (t Team) Opponent() Team {
	if t == TeamFor {
		return TeamAgainst
	}
	return TeamFor
}

// Phase is one step in the fixed Public Forum sequence. Order is total;
// a session's phase only moves forward except across an explicit load.
type Phase int

const (
	PhaseConstructiveFor Phase = iota
	PhaseConstructiveAgainst
	PhaseFirstCrossfire
	PhaseRebuttalFor
	PhaseRebuttalAgainst
	PhaseSecondCrossfire
	PhaseSummaryFor
	PhaseSummaryAgainst
	PhaseGrandCrossfire
	PhaseFinalFocusFor
	PhaseFinalFocusAgainst
	// PhaseEnded is the terminal state after the last final focus.
	PhaseEnded
)

var phaseNames = map[Phase]string{
	PhaseConstructiveFor:     "constructiveFor",
	PhaseConstructiveAgainst: "constructiveAgainst",
	PhaseFirstCrossfire:      "firstCrossfire",
	PhaseRebuttalFor:         "rebuttalFor",
	PhaseRebuttalAgainst:     "rebuttalAgainst",
	PhaseSecondCrossfire:     "secondCrossfire",
	PhaseSummaryFor:          "summaryFor",
	PhaseSummaryAgainst:      "summaryAgainst",
	PhaseGrandCrossfire:      "grandCrossfire",
	PhaseFinalFocusFor:       "finalFocusFor",
	PhaseFinalFocusAgainst:   "finalFocusAgainst",
	PhaseEnded:               "ended",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return "unknown"
}

// PhaseFromName maps a wire/persisted name back to its Phase.
func PhaseFromName(name string) (Phase, bool) {
	for phase, n := range phaseNames {
		if n == name {
			return phase, true
		}
	}
	return PhaseEnded, false
}

// OpenFloor reports whether the phase suspends the single-speaker rule.
func (p Phase) OpenFloor() bool {
	switch p {
	case PhaseFirstCrossfire, PhaseSecondCrossfire, PhaseGrandCrossfire:
		return true
	}
	return false
}

// Side returns the team holding the floor in a scheduled phase.
// Meaningless for open-floor phases and the terminal phase.
func (p Phase) Side() Team {
	switch p {
	case PhaseConstructiveFor, PhaseRebuttalFor, PhaseSummaryFor, PhaseFinalFocusFor:
		return TeamFor
	default:
		return TeamAgainst
	}
}

// speakerOrdinal selects which speaker of the side holds the floor:
// first speakers take constructives and rebuttals, second speakers (when
// the team has one) take summaries and final focuses.
func (p Phase) speakerOrdinal() int {
	switch p {
	case PhaseSummaryFor, PhaseSummaryAgainst, PhaseFinalFocusFor, PhaseFinalFocusAgainst:
		return 2
	default:
		return 1
	}
}

// Format holds per-phase durations in seconds.
type Format struct {
	Durations map[Phase]int
}

// DefaultFormat is the standard Public Forum timing table.
func DefaultFormat() Format {
	return Format{Durations: map[Phase]int{
		PhaseConstructiveFor:     240,
		PhaseConstructiveAgainst: 240,
		PhaseFirstCrossfire:      180,
		PhaseRebuttalFor:         240,
		PhaseRebuttalAgainst:     240,
		PhaseSecondCrossfire:     180,
		PhaseSummaryFor:          180,
		PhaseSummaryAgainst:      180,
		PhaseGrandCrossfire:      180,
		PhaseFinalFocusFor:       120,
		PhaseFinalFocusAgainst:   120,
	}}
}

// FormatWithOverrides applies per-phase duration overrides keyed by phase
// name, as read from configuration.
func FormatWithOverrides(overrides map[string]int) Format {
	format := DefaultFormat()
	for name, seconds := range overrides {
		if phase, ok := PhaseFromName(name); ok && seconds > 0 {
			format.Durations[phase] = seconds
		}
	}
	return format
}

// Duration returns the fixed length of a phase in seconds.
func (f Format) Duration(p Phase) int {
	return f.Durations[p]
}
