package worker

// State is the provider-neutral lifecycle state of a worker.
type State int

const (
	// StateMissing means the provider has no such worker.
	StateMissing State = iota
	// StatePending covers accepted, provisioning, waiting-for-resources and
	// transitional states. Nothing is done for pending workers.
	StatePending
	// StateActive means the worker is ready to run the remote script.
	StateActive
	// StateSuspended means the provider suspended (preempted) the worker.
	StateSuspended
	// StateFailed means provisioning or the worker itself failed.
	StateFailed
)

var stateNames = map[State]string{
	StateMissing:   "MISSING",
	StatePending:   "PENDING",
	StateActive:    "ACTIVE",
	StateSuspended: "SUSPENDED",
	StateFailed:    "FAILED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "UNKNOWN"
}

// Unhealthy reports whether the worker must be deleted and recreated.
// Only SUSPENDED and FAILED qualify.
func (s State) Unhealthy() bool {
	return s == StateSuspended || s == StateFailed
}

// Outcome is the result of one reconciliation pass.
type Outcome int

const (
	// OutcomeExists means the worker was left untouched.
	OutcomeExists Outcome = iota
	// OutcomeCreated means a create was issued for a missing worker.
	OutcomeCreated
	// OutcomeRecreated means an unhealthy worker was deleted and a create may
	// have been issued for it again.
	OutcomeRecreated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCreated:
		return "created"
	case OutcomeRecreated:
		return "re-created"
	default:
		return "exists"
	}
}

// NewIncarnation reports whether the outcome started a new worker incarnation.
func (o Outcome) NewIncarnation() bool {
	return o != OutcomeExists
}
