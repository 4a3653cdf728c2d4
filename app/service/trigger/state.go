package trigger

import "omiweather/app/service/session"

type State int

const (
	// StateIdle means no trigger and no pending first half.
	StateIdle State = iota
	// StatePartialPending means the first half of a wake phrase was heard.
	StatePartialPending
	// StateCollecting means the trigger is confirmed and question text is being collected.
	StateCollecting
	// StateReady means the question was handed out for dispatch.
	StateReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePartialPending:
		return "partial_pending"
	case StateCollecting:
		return "collecting"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

type Outcome int

const (
	// OutcomeNone means the request changed state without producing a question.
	OutcomeNone Outcome = iota
	// OutcomeSuppressed means a duplicate trigger delivery was dropped by the cooldown.
	OutcomeSuppressed
	// OutcomeDispatch means Decision.Question must be answered, then the record reset.
	OutcomeDispatch
	// OutcomeForcedClosure means the collection window ran out with nothing collected.
	OutcomeForcedClosure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNone:
		return "none"
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomeDispatch:
		return "dispatch"
	case OutcomeForcedClosure:
		return "forced_closure"
	default:
		return "unknown"
	}
}

type Decision struct {
	Outcome Outcome
	State   State
	// Question is the normalized question, set for OutcomeDispatch only.
	Question string
	// Processed counts segments evaluated before the decision was made.
	Processed int
}

// StateOf derives the state machine position from the record flags.
func StateOf(rec *session.Record) State {
	switch {
	case rec.Dispatching:
		return StateReady
	case rec.TriggerDetected && !rec.ResponseSent:
		return StateCollecting
	case rec.PartialTrigger:
		return StatePartialPending
	default:
		return StateIdle
	}
}
