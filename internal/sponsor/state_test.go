package sponsor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_State_IsTerminal(t *testing.T) {
	assert.True(t, StateSettled.IsTerminal())
	assert.True(t, StateFailed.IsTerminal())

	for _, s := range []State{StateIdle, StateBuildingTx, StateSigning, StateAwaitingConfirmation, StateSubmittingToGateway, StateRetrying} {
		assert.False(t, s.IsTerminal(), "state %s should not be terminal", s)
	}
}

func Test_State_TransitionTo(t *testing.T) {
	t.Run("allows the top-up flow path", func(t *testing.T) {
		path := []State{StateIdle, StateBuildingTx, StateSigning, StateAwaitingConfirmation, StateSubmittingToGateway, StateSettled}
		for i := 0; i < len(path)-1; i++ {
			assert.NoError(t, path[i].TransitionTo(path[i+1]), "%s -> %s", path[i], path[i+1])
		}
	})

	t.Run("allows the sponsorship flow path", func(t *testing.T) {
		path := []State{StateIdle, StateBuildingTx, StateSubmittingToGateway, StateSigning, StateAwaitingConfirmation, StateSettled}
		for i := 0; i < len(path)-1; i++ {
			assert.NoError(t, path[i].TransitionTo(path[i+1]), "%s -> %s", path[i], path[i+1])
		}
	})

	t.Run("allows a single retry loop back through building", func(t *testing.T) {
		assert.NoError(t, StateSubmittingToGateway.TransitionTo(StateRetrying))
		assert.NoError(t, StateAwaitingConfirmation.TransitionTo(StateRetrying))
		assert.NoError(t, StateRetrying.TransitionTo(StateBuildingTx))
	})

	t.Run("every non-terminal state may fail", func(t *testing.T) {
		for _, s := range []State{StateIdle, StateBuildingTx, StateSigning, StateAwaitingConfirmation, StateSubmittingToGateway, StateRetrying} {
			assert.NoError(t, s.TransitionTo(StateFailed), "%s -> FAILED", s)
		}
	})

	t.Run("terminal states are sinks", func(t *testing.T) {
		for _, target := range []State{StateIdle, StateBuildingTx, StateSigning, StateAwaitingConfirmation, StateSubmittingToGateway, StateRetrying, StateSettled, StateFailed} {
			assert.Error(t, StateSettled.TransitionTo(target), "SETTLED -> %s", target)
			assert.Error(t, StateFailed.TransitionTo(target), "FAILED -> %s", target)
		}
	})

	t.Run("skipping states is rejected", func(t *testing.T) {
		assert.Error(t, StateIdle.TransitionTo(StateSigning))
		assert.Error(t, StateIdle.TransitionTo(StateSettled))
		assert.Error(t, StateSigning.TransitionTo(StateSettled))
	})
}
