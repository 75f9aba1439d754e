package pipeline

// State is a step of a job's lifecycle.
type State string

const (
	StateReceived        State = "RECEIVED"
	StateFetched         State = "FETCHED"
	StateParsed          State = "PARSED"
	StateDetected        State = "DETECTED"
	StateTargetsResolved State = "TARGETS_RESOLVED"
	StateTranslating     State = "TRANSLATING"
	StateAssembled       State = "ASSEMBLED"
	StateStored          State = "STORED"
	StateDone            State = "DONE"
	StateFailed          State = "FAILED"
)

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

func (s State) String() string { return string(s) }
