package domain

import "fmt"

type ActionKind string

const (
	ActionBet   ActionKind = "bet"
	ActionCall  ActionKind = "call"
	ActionRaise ActionKind = "raise"
	ActionCheck ActionKind = "check"
	ActionFold  ActionKind = "fold"
)

type Action struct {
	Kind   ActionKind `json:"kind"`
	Amount Chips      `json:"amount,omitempty"`
}

func NewAction(kind ActionKind, amount Chips) (Action, error) {
	needsAmount := kind == ActionBet || kind == ActionRaise

	switch kind {
	case ActionBet, ActionCall, ActionRaise, ActionCheck, ActionFold:
	default:
		return Action{}, fmt.Errorf("%w: unknown action kind %q", ErrInvalidAction, kind)
	}

	if needsAmount && amount == 0 {
		return Action{}, fmt.Errorf("%w: amount is required for %s", ErrInvalidAction, kind)
	}
	if !needsAmount && amount != 0 {
		return Action{}, fmt.Errorf("%w: amount is not allowed for %s", ErrInvalidAction, kind)
	}
	if amount > MaxChips {
		return Action{}, fmt.Errorf("%w: amount exceeds chip bound", ErrInvalidAction)
	}

	return Action{Kind: kind, Amount: amount}, nil
}
