package workflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLifecycle_PermittedTransitions(t *testing.T) {
	tests := []struct {
		name     string
		from     State
		trigger  Trigger
		expected State
	}{
		{name: "submit draft", from: StateDraft, trigger: TriggerSubmit, expected: StatePending},
		{name: "cancel draft", from: StateDraft, trigger: TriggerCancel, expected: StateCancelled},
		{name: "approve pending", from: StatePending, trigger: TriggerApprove, expected: StateApproved},
		{name: "reject pending", from: StatePending, trigger: TriggerReject, expected: StateRejected},
		{name: "request changes on pending", from: StatePending, trigger: TriggerRequestChanges, expected: StateNeedsChanges},
		{name: "expire pending", from: StatePending, trigger: TriggerExpire, expected: StateExpired},
		{name: "cancel pending", from: StatePending, trigger: TriggerCancel, expected: StateCancelled},
		{name: "expire needs changes", from: StateNeedsChanges, trigger: TriggerExpire, expected: StateExpired},
		{name: "cancel needs changes", from: StateNeedsChanges, trigger: TriggerCancel, expected: StateCancelled},
		{name: "resubmit expired", from: StateExpired, trigger: TriggerResubmit, expected: StatePending},
		{name: "resubmit rejected", from: StateRejected, trigger: TriggerResubmit, expected: StatePending},
		{name: "complete approved", from: StateApproved, trigger: TriggerComplete, expected: StateCompleted},
		{name: "cancel approved", from: StateApproved, trigger: TriggerCancel, expected: StateCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewLifecycle(tt.from, Guards{})

			assert.True(t, m.CanFire(tt.trigger))
			require.NoError(t, m.Fire(context.Background(), tt.trigger))
			assert.Equal(t, tt.expected, m.State())
		})
	}
}

func TestLifecycle_ForbiddenTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    State
		trigger Trigger
	}{
		{name: "approve draft", from: StateDraft, trigger: TriggerApprove},
		{name: "resubmit draft", from: StateDraft, trigger: TriggerResubmit},
		{name: "submit pending", from: StatePending, trigger: TriggerSubmit},
		{name: "complete pending", from: StatePending, trigger: TriggerComplete},
		{name: "approve needs changes", from: StateNeedsChanges, trigger: TriggerApprove},
		{name: "reject needs changes", from: StateNeedsChanges, trigger: TriggerReject},
		{name: "approve rejected", from: StateRejected, trigger: TriggerApprove},
		{name: "expire rejected", from: StateRejected, trigger: TriggerExpire},
		{name: "expire approved", from: StateApproved, trigger: TriggerExpire},
		{name: "reject approved", from: StateApproved, trigger: TriggerReject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewLifecycle(tt.from, Guards{})

			assert.False(t, m.CanFire(tt.trigger))
			err := m.Fire(context.Background(), tt.trigger)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tt.from, m.State())
		})
	}
}

func TestLifecycle_TerminalStatesPermitNothing(t *testing.T) {
	triggers := []Trigger{
		TriggerSubmit, TriggerApprove, TriggerReject, TriggerRequestChanges,
		TriggerExpire, TriggerResubmit, TriggerCancel, TriggerComplete,
	}

	for _, state := range []State{StateCancelled, StateCompleted} {
		m := NewLifecycle(state, Guards{})

		assert.Empty(t, m.PermittedTriggers(), "state %s should permit no triggers", state)
		for _, trigger := range triggers {
			assert.False(t, m.CanFire(trigger), "%s should not be fireable from %s", trigger, state)
		}
	}
}

func TestLifecycle_ResubmitGuard(t *testing.T) {
	t.Run("blocked when guard fails", func(t *testing.T) {
		m := NewLifecycle(StateNeedsChanges, Guards{
			CanResubmit: func(ctx context.Context) bool { return false },
		})

		err := m.Fire(context.Background(), TriggerResubmit)
		assert.ErrorIs(t, err, ErrGuardFailed)
		assert.Equal(t, StateNeedsChanges, m.State())
	})

	t.Run("allowed when guard passes", func(t *testing.T) {
		m := NewLifecycle(StateNeedsChanges, Guards{
			CanResubmit: func(ctx context.Context) bool { return true },
		})

		require.NoError(t, m.Fire(context.Background(), TriggerResubmit))
		assert.Equal(t, StatePending, m.State())
	})

	t.Run("guard does not apply to expired resubmission", func(t *testing.T) {
		m := NewLifecycle(StateExpired, Guards{
			CanResubmit: func(ctx context.Context) bool { return false },
		})

		require.NoError(t, m.Fire(context.Background(), TriggerResubmit))
		assert.Equal(t, StatePending, m.State())
	})
}

func TestState_Classification(t *testing.T) {
	assert.True(t, StateCancelled.IsTerminal())
	assert.True(t, StateCompleted.IsTerminal())
	assert.False(t, StateRejected.IsTerminal())
	assert.False(t, StateExpired.IsTerminal())

	assert.True(t, StatePending.IsExpirable())
	assert.True(t, StateNeedsChanges.IsExpirable())
	assert.False(t, StateApproved.IsExpirable())
	assert.False(t, StateDraft.IsExpirable())
}
