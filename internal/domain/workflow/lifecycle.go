package workflow

import "context"

// Guards supplies the guard conditions the lifecycle graph depends on.
// CanResubmit reports whether the change-request gate is satisfied
// (all required documents present on the request).
type Guards struct {
	CanResubmit GuardFunc
}

// alwaysTrue is used where a guard slot exists but no condition applies
func alwaysTrue(ctx context.Context) bool { return true }

// NewLifecycle builds the approval request lifecycle graph:
//
//	DRAFT --SUBMIT--> PENDING
//	PENDING --APPROVE--> APPROVED          (first approval collapses the chain)
//	PENDING --REJECT--> REJECTED
//	PENDING --REQUEST_CHANGES--> NEEDS_CHANGES
//	PENDING|NEEDS_CHANGES --EXPIRE--> EXPIRED
//	NEEDS_CHANGES --RESUBMIT--> PENDING    (guarded by required docs)
//	EXPIRED|REJECTED --RESUBMIT--> PENDING (ungated, fresh SLA window)
//	any non-terminal --CANCEL--> CANCELLED
//	APPROVED --COMPLETE--> COMPLETED
func NewLifecycle(current State, guards Guards) StateMachine {
	canResubmit := guards.CanResubmit
	if canResubmit == nil {
		canResubmit = alwaysTrue
	}

	b := NewBuilder()

	b.Configure(StateDraft).
		Permit(TriggerSubmit, StatePending).
		Permit(TriggerCancel, StateCancelled)

	b.Configure(StatePending).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected).
		Permit(TriggerRequestChanges, StateNeedsChanges).
		Permit(TriggerExpire, StateExpired).
		Permit(TriggerCancel, StateCancelled)

	b.Configure(StateNeedsChanges).
		PermitIf(TriggerResubmit, StatePending, canResubmit).
		Permit(TriggerExpire, StateExpired).
		Permit(TriggerCancel, StateCancelled)

	b.Configure(StateExpired).
		Permit(TriggerResubmit, StatePending).
		Permit(TriggerCancel, StateCancelled)

	b.Configure(StateRejected).
		Permit(TriggerResubmit, StatePending).
		Permit(TriggerCancel, StateCancelled)

	b.Configure(StateApproved).
		Permit(TriggerComplete, StateCompleted).
		Permit(TriggerCancel, StateCancelled)

	return b.Build(current)
}
