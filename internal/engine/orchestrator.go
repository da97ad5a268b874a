package engine

import (
	"fmt"

	"github.com/cardroom/engine/internal/domain"
	"github.com/cardroom/engine/internal/rules"
)

// AdvanceState drives the table state machine from outside the action flow:
// it starts the next hand from Waiting or Complete, and pushes a completed
// betting round forward when no player action triggered the advance (the hook
// external timeout policies use). Transitions that are not due are rejected
// with the table unchanged.
func (e *Engine) AdvanceState() (*Settlement, error) {
	work := e.table.Clone()
	settlement, err := advanceState(work, e.dealer)
	if err != nil {
		return nil, err
	}
	*e.table = *work
	return settlement, nil
}

func advanceState(t *domain.Table, dealer rules.Dealer) (*Settlement, error) {
	if !t.IsActive {
		return nil, fmt.Errorf("%w: table is closed", domain.ErrInvalidAction)
	}

	switch t.State {
	case domain.StateWaiting:
		if eligibleSeats(t) < 2 {
			return nil, fmt.Errorf("%w: need at least 2 seats to start a hand", domain.ErrInvalidAction)
		}
		return nil, startHand(t, dealer)

	case domain.StateComplete:
		if eligibleSeats(t) < 2 {
			returnToWaiting(t)
			return nil, nil
		}
		return nil, startHand(t, dealer)

	case domain.StatePreFlop, domain.StateFlop, domain.StateTurn, domain.StateRiver:
		if t.ActiveSeats() < 2 {
			return awardUncontested(t), nil
		}
		if !roundComplete(t) {
			return nil, fmt.Errorf("%w: betting round is still open", domain.ErrInvalidAction)
		}
		return advanceRound(t, dealer)

	case domain.StateShowdown:
		return settleShowdown(t)
	}
	return nil, fmt.Errorf("%w: cannot advance from state %s", domain.ErrInvalidAction, t.State)
}

// startHand resets per-hand state, advances the dealer button, marks
// eligible seats active and deals hole cards. Blinds are configuration
// inputs only; no seat posts chips before the first bet.
func startHand(t *domain.Table, dealer rules.Dealer) error {
	handID, err := newHandID()
	if err != nil {
		return err
	}

	t.Pot = 0
	t.CurrentBet = 0
	t.CommunityCards = t.CommunityCards[:0]
	for i := range t.Seats {
		t.Seats[i].CurrentBet = 0
		t.Seats[i].HasActed = false
		t.Seats[i].HoleCards = nil
		t.Seats[i].IsActive = seatEligible(t.Seats[i])
	}

	button, ok := nextActivePosition(t, t.DealerPosition)
	if !ok {
		return fmt.Errorf("%w: no eligible seat for the dealer button", domain.ErrInvalidAction)
	}
	t.DealerPosition = button

	if err := dealer.DealHole(t); err != nil {
		return err
	}

	first, ok := nextActivePosition(t, t.DealerPosition)
	if !ok {
		return fmt.Errorf("%w: no seat to act first", domain.ErrInvalidAction)
	}
	t.CurrentPosition = first
	t.HandID = handID
	t.HandNo++
	t.State = domain.StatePreFlop
	return nil
}

// advanceRound moves a completed betting round to the next street, dealing
// community cards, or through Showdown to settlement after the river.
func advanceRound(t *domain.Table, dealer rules.Dealer) (*Settlement, error) {
	switch t.State {
	case domain.StatePreFlop:
		resetRound(t)
		if err := dealer.DealCommunity(t, domain.FlopCommunityCards); err != nil {
			return nil, err
		}
		t.State = domain.StateFlop

	case domain.StateFlop:
		resetRound(t)
		if err := dealer.DealCommunity(t, 1); err != nil {
			return nil, err
		}
		t.State = domain.StateTurn

	case domain.StateTurn:
		resetRound(t)
		if err := dealer.DealCommunity(t, 1); err != nil {
			return nil, err
		}
		t.State = domain.StateRiver

	case domain.StateRiver:
		resetRound(t)
		t.State = domain.StateShowdown
		return settleShowdown(t)

	default:
		return nil, fmt.Errorf("%w: cannot advance round from state %s", domain.ErrInvalidAction, t.State)
	}

	first, ok := nextActivePosition(t, t.DealerPosition)
	if !ok {
		return awardUncontested(t), nil
	}
	t.CurrentPosition = first
	return nil, nil
}

// settleShowdown evaluates every contesting seat's seven cards and pays the
// pot to the best hand. Comparison is strict: on an exact tie the
// first-evaluated seat keeps the pot.
func settleShowdown(t *domain.Table) (*Settlement, error) {
	winner := -1
	var best rules.HandValue
	for i := range t.Seats {
		seat := t.Seats[i]
		if !seat.Occupied() || !seat.IsActive || len(seat.HoleCards) != domain.HoleCardCount {
			continue
		}
		hand := make([]domain.Card, 0, domain.HoleCardCount+len(t.CommunityCards))
		hand = append(hand, seat.HoleCards...)
		hand = append(hand, t.CommunityCards...)
		value, err := rules.Evaluate(hand)
		if err != nil {
			return nil, err
		}
		if winner < 0 || rules.Compare(value, best) > 0 {
			winner = i
			best = value
		}
	}
	if winner < 0 {
		return nil, fmt.Errorf("%w: no contesting seat at showdown", domain.ErrInvalidAction)
	}

	amount := t.Pot
	t.Seats[winner].Stake += amount
	t.Pot = 0
	t.State = domain.StateComplete
	return &Settlement{
		HandID:   t.HandID,
		Winner:   t.Seats[winner].Occupant,
		Position: winner,
		Amount:   amount,
		Value:    best,
	}, nil
}

// awardUncontested pays the pot to the sole remaining contender without a
// showdown.
func awardUncontested(t *domain.Table) *Settlement {
	winner := -1
	for i := range t.Seats {
		if t.Seats[i].Occupied() && t.Seats[i].IsActive {
			winner = i
			break
		}
	}
	if winner < 0 {
		// Everyone left mid-hand; the pot has no claimant and stays burned.
		t.Pot = 0
		t.State = domain.StateComplete
		return nil
	}

	amount := t.Pot
	t.Seats[winner].Stake += amount
	t.Pot = 0
	t.State = domain.StateComplete
	return &Settlement{
		HandID:      t.HandID,
		Winner:      t.Seats[winner].Occupant,
		Position:    winner,
		Amount:      amount,
		Uncontested: true,
	}
}

func returnToWaiting(t *domain.Table) {
	t.Pot = 0
	t.CurrentBet = 0
	t.CommunityCards = t.CommunityCards[:0]
	for i := range t.Seats {
		t.Seats[i].CurrentBet = 0
		t.Seats[i].HasActed = false
		t.Seats[i].HoleCards = nil
		t.Seats[i].IsActive = false
	}
	t.State = domain.StateWaiting
}

func seatEligible(seat domain.Seat) bool {
	return seat.Occupied() && !seat.IsSittingOut && seat.Stake > 0
}

func eligibleSeats(t *domain.Table) int {
	count := 0
	for i := range t.Seats {
		if seatEligible(t.Seats[i]) {
			count++
		}
	}
	return count
}
