package statemachine

import (
	"strings"

	"restaurant-queue/apperr"
	"restaurant-queue/models"
)

// Transition defines a valid state change and the staff action that causes it
type Transition struct {
	From   models.OrderStatus `json:"from"`
	To     models.OrderStatus `json:"to"`
	Action string             `json:"action"`
}

// validTransitions is the authoritative state machine definition
var validTransitions = []Transition{
	// Staff call the next party from the queue
	{From: models.StatusInQueue, To: models.StatusAwaitingArrival, Action: "notify_diner"},
	// Diner shows up at the host stand
	{From: models.StatusAwaitingArrival, To: models.StatusReceived, Action: "receive"},
	{From: models.StatusReceived, To: models.StatusPreparing, Action: "start_preparing"},
	// Table is ready and the party is seated
	{From: models.StatusPreparing, To: models.StatusReady, Action: "seat"},
	{From: models.StatusReady, To: models.StatusCompleted, Action: "complete"},
	// Any non-terminal order can be cancelled
	{From: models.StatusInQueue, To: models.StatusCancelled, Action: "cancel"},
	{From: models.StatusAwaitingArrival, To: models.StatusCancelled, Action: "cancel"},
	{From: models.StatusReceived, To: models.StatusCancelled, Action: "cancel"},
	{From: models.StatusPreparing, To: models.StatusCancelled, Action: "cancel"},
	{From: models.StatusReady, To: models.StatusCancelled, Action: "cancel"},
}

type transitionKey struct {
	From models.OrderStatus
	To   models.OrderStatus
}

// Build a lookup map for O(1) validation
var transitionMap = func() map[transitionKey]Transition {
	m := make(map[transitionKey]Transition, len(validTransitions))
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To}] = t
	}
	return m
}()

// Machine validates requested status changes. A non-strict machine only
// rejects unknown statuses and lets staff move an order anywhere.
type Machine struct {
	Strict bool
}

// New returns a machine with the given strictness
func New(strict bool) Machine {
	return Machine{Strict: strict}
}

// ValidTransitionsFrom returns all valid next states from a given state
func ValidTransitionsFrom(status models.OrderStatus) []models.OrderStatus {
	var nexts []models.OrderStatus
	for _, t := range validTransitions {
		if t.From == status {
			nexts = append(nexts, t.To)
		}
	}
	return nexts
}

// CanTransition checks if an order may move from one state to another
func (m Machine) CanTransition(from, to models.OrderStatus) error {
	if !to.Valid() {
		return apperr.Validation("unknown status %q", to)
	}
	if !m.Strict {
		return nil
	}
	if _, ok := transitionMap[transitionKey{From: from, To: to}]; ok {
		return nil
	}
	return apperr.InvalidTransition(
		"invalid transition: %s → %s is not allowed. Valid transitions from %s are: %s",
		from, to, from, describeValidFrom(from),
	)
}

func describeValidFrom(status models.OrderStatus) string {
	nexts := ValidTransitionsFrom(status)
	if len(nexts) == 0 {
		return "none (terminal state)"
	}
	names := make([]string, len(nexts))
	for i, s := range nexts {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// GetAllTransitions returns the full state machine for documentation
func GetAllTransitions() []Transition {
	out := make([]Transition, len(validTransitions))
	copy(out, validTransitions)
	return out
}

// TerminalStates lists statuses with no outgoing transitions
func TerminalStates() []models.OrderStatus {
	var out []models.OrderStatus
	for _, s := range models.AllStatuses {
		if s.Terminal() {
			out = append(out, s)
		}
	}
	return out
}
