package pipeline

import "github.com/FranksOps/serprank/internal/rank"

// Phase is a step of a run.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseCollecting
	PhaseResolving
	PhaseDone
	PhaseBlocked // validation failed; no lookups were made
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCollecting:
		return "collecting"
	case PhaseResolving:
		return "resolving"
	case PhaseDone:
		return "done"
	case PhaseBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// State is a snapshot of a run. Snapshots are never modified after they are
// handed out; Records is a private copy.
type State struct {
	Phase     Phase
	Completed int
	Total     int
	Current   string // keyword most recently resolved
	Records   []rank.Record
	Err       error // validation error when Phase is PhaseBlocked
}

// Fraction returns Completed/Total, or 0 before any keywords are known.
func (s State) Fraction() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Total)
}

// Last returns the most recent record, if any.
func (s State) Last() (rank.Record, bool) {
	if len(s.Records) == 0 {
		return rank.Record{}, false
	}
	return s.Records[len(s.Records)-1], true
}
