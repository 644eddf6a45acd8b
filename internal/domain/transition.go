package domain

// TransitionRule is the single place that decides which lifecycle moves are
// legal. Call sites never compare states themselves.
type TransitionRule interface {
	CanTransition(from, to OrderStatus) bool
	CanAssign(from OrderStatus) bool
}

// PermissiveTransitions accepts any enumerated target state from any state.
// Assignment is refused only for terminal orders and always lands on
// OrderStatusAssigned, even when the order was already in progress.
type PermissiveTransitions struct{}

func (PermissiveTransitions) CanTransition(_, _ OrderStatus) bool {
	return true
}

func (PermissiveTransitions) CanAssign(from OrderStatus) bool {
	return !from.IsTerminal()
}

// StrictTransitions enforces pending -> assigned -> in_progress -> completed,
// with cancelled reachable from every non-terminal state.
type StrictTransitions struct{}

var forwardTransitions = map[OrderStatus]OrderStatus{
	OrderStatusPending:    OrderStatusAssigned,
	OrderStatusAssigned:   OrderStatusInProgress,
	OrderStatusInProgress: OrderStatusCompleted,
}

func (StrictTransitions) CanTransition(from, to OrderStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == OrderStatusCancelled {
		return true
	}
	next, ok := forwardTransitions[from]
	return ok && next == to
}

// CanAssign allows first assignment and reassignment, but never moves an
// order that is already being worked on back to assigned.
func (StrictTransitions) CanAssign(from OrderStatus) bool {
	return from == OrderStatusPending || from == OrderStatusAssigned
}

// NewTransitionRule picks the rule configured for the deployment.
func NewTransitionRule(strict bool) TransitionRule {
	if strict {
		return StrictTransitions{}
	}
	return PermissiveTransitions{}
}
