package pipeline

// State is the coarse phase of a pipeline run.
type State string

const (
	StateIdle       State = "idle"
	StateExtracting State = "extracting"
	StateAnalyzing  State = "analyzing"
	StateDeciding   State = "deciding"
	StateAssembling State = "assembling"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// Terminal reports whether no further transition is allowed.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	}
	return false
}

// forward is the happy-path order; Failed and Cancelled are reachable from
// any non-terminal state.
var forward = map[State]State{
	StateIdle:       StateExtracting,
	StateExtracting: StateAnalyzing,
	StateAnalyzing:  StateDeciding,
	StateDeciding:   StateAssembling,
	StateAssembling: StateCompleted,
}

func validTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed || to == StateCancelled {
		return true
	}
	return forward[from] == to
}
