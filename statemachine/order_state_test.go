package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restaurant-queue/apperr"
	"restaurant-queue/models"
)

func TestStrictCanTransition(t *testing.T) {
	m := New(true)
	tests := []struct {
		from, to models.OrderStatus
		want     bool
	}{
		{models.StatusInQueue, models.StatusAwaitingArrival, true},
		{models.StatusAwaitingArrival, models.StatusReceived, true},
		{models.StatusReceived, models.StatusPreparing, true},
		{models.StatusPreparing, models.StatusReady, true},
		{models.StatusReady, models.StatusCompleted, true},
		{models.StatusInQueue, models.StatusCancelled, true},
		{models.StatusReady, models.StatusCancelled, true},
		{models.StatusInQueue, models.StatusReady, false},
		{models.StatusInQueue, models.StatusInQueue, false},
		{models.StatusReceived, models.StatusAwaitingArrival, false},
		{models.StatusCompleted, models.StatusCancelled, false},
		{models.StatusCancelled, models.StatusInQueue, false},
	}
	for _, tt := range tests {
		err := m.CanTransition(tt.from, tt.to)
		if tt.want {
			assert.NoError(t, err, "%s → %s", tt.from, tt.to)
		} else {
			assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransition), "%s → %s: %v", tt.from, tt.to, err)
		}
	}
}

func TestPermissiveAllowsAnyKnownStatus(t *testing.T) {
	m := New(false)
	assert.NoError(t, m.CanTransition(models.StatusCompleted, models.StatusInQueue))
	assert.NoError(t, m.CanTransition(models.StatusInQueue, models.StatusReady))
}

func TestUnknownStatusAlwaysRejected(t *testing.T) {
	for _, strict := range []bool{true, false} {
		err := New(strict).CanTransition(models.StatusInQueue, "SEATED")
		require.Error(t, err)
		assert.True(t, apperr.IsKind(err, apperr.KindValidation))
	}
}

func TestInvalidTransitionMessageListsNextStates(t *testing.T) {
	err := New(true).CanTransition(models.StatusCompleted, models.StatusReady)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none (terminal state)")

	err = New(true).CanTransition(models.StatusInQueue, models.StatusReady)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AWAITING_ARRIVAL, CANCELLED")
}

func TestTerminalStates(t *testing.T) {
	assert.ElementsMatch(t,
		[]models.OrderStatus{models.StatusCompleted, models.StatusCancelled},
		TerminalStates())
	for _, s := range TerminalStates() {
		assert.Empty(t, ValidTransitionsFrom(s))
	}
}
