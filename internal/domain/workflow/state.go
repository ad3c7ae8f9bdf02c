package workflow

// State represents a lifecycle state of an approval request
type State string

const (
	StateDraft        State = "DRAFT"
	StatePending      State = "PENDING"
	StateNeedsChanges State = "NEEDS_CHANGES"
	StateApproved     State = "APPROVED"
	StateRejected     State = "REJECTED"
	StateExpired      State = "EXPIRED"
	StateCancelled    State = "CANCELLED"
	StateCompleted    State = "COMPLETED"
)

var validStates = map[State]bool{
	StateDraft:        true,
	StatePending:      true,
	StateNeedsChanges: true,
	StateApproved:     true,
	StateRejected:     true,
	StateExpired:      true,
	StateCancelled:    true,
	StateCompleted:    true,
}

// terminalStates permit no further transitions at all. REJECTED and EXPIRED
// are absent because both allow resubmission into a fresh SLA window.
var terminalStates = map[State]bool{
	StateCancelled: true,
	StateCompleted: true,
}

// expirableStates are the states the background SLA sweep may act on.
var expirableStates = map[State]bool{
	StatePending:      true,
	StateNeedsChanges: true,
}

// IsTerminal returns true if the state permits no further transitions
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsExpirable returns true if the SLA sweep may expire a request in this state
func (s State) IsExpirable() bool {
	return expirableStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid lifecycle state
func (s State) IsValid() bool {
	return validStates[s]
}
