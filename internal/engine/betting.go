package engine

import (
	"fmt"

	"github.com/cardroom/engine/internal/domain"
	"github.com/cardroom/engine/internal/rules"
)

// Settlement reports how a hand ended: who took the pot and, at showdown,
// with what hand value.
type Settlement struct {
	HandID      string          `json:"hand_id"`
	Winner      string          `json:"winner"`
	Position    int             `json:"position"`
	Amount      domain.Chips    `json:"amount"`
	Value       rules.HandValue `json:"value"`
	Uncontested bool            `json:"uncontested"`
}

// Act applies one player action. The action either fully applies or is fully
// rejected with the table unchanged. A non-nil Settlement means the action
// ended the hand.
func (e *Engine) Act(account string, action domain.Action) (*Settlement, error) {
	work := e.table.Clone()
	settlement, err := applyAction(work, e.dealer, account, action)
	if err != nil {
		return nil, err
	}
	*e.table = *work
	return settlement, nil
}

func applyAction(t *domain.Table, dealer rules.Dealer, account string, action domain.Action) (*Settlement, error) {
	if !t.IsActive {
		return nil, fmt.Errorf("%w: table is closed", domain.ErrInvalidAction)
	}
	if !t.State.InBettingRound() {
		return nil, fmt.Errorf("%w: no betting in state %s", domain.ErrInvalidAction, t.State)
	}
	position, seated := t.SeatOf(account)
	if !seated {
		return nil, fmt.Errorf("%w: %s", domain.ErrPlayerNotAtTable, account)
	}
	if position != t.CurrentPosition {
		return nil, fmt.Errorf("%w: seat %d acting, seat %d is next", domain.ErrNotYourTurn, position, t.CurrentPosition)
	}
	seat := &t.Seats[position]
	if !seat.IsActive {
		return nil, fmt.Errorf("%w: seat %d is not contesting the hand", domain.ErrInvalidAction, position)
	}

	switch action.Kind {
	case domain.ActionBet:
		if t.CurrentBet != 0 {
			return nil, fmt.Errorf("%w: bet requires no standing bet, table bet is %d", domain.ErrInvalidAction, t.CurrentBet)
		}
		if action.Amount < t.Config.MinBet || action.Amount > t.Config.MaxBet {
			return nil, fmt.Errorf("%w: bet %d outside [%d, %d]", domain.ErrInvalidAction, action.Amount, t.Config.MinBet, t.Config.MaxBet)
		}
		if action.Amount > seat.Stake {
			return nil, fmt.Errorf("%w: bet %d exceeds stake %d", domain.ErrInvalidAction, action.Amount, seat.Stake)
		}
		seat.Stake -= action.Amount
		seat.CurrentBet = action.Amount
		t.CurrentBet = action.Amount
		t.Pot += action.Amount
		seat.HasActed = true

	case domain.ActionCall:
		if t.CurrentBet <= seat.CurrentBet {
			return nil, fmt.Errorf("%w: nothing to call", domain.ErrInvalidAction)
		}
		diff := t.CurrentBet - seat.CurrentBet
		if diff > seat.Stake {
			return nil, fmt.Errorf("%w: call of %d exceeds stake %d", domain.ErrInvalidAction, diff, seat.Stake)
		}
		seat.Stake -= diff
		seat.CurrentBet = t.CurrentBet
		t.Pot += diff
		seat.HasActed = true

	case domain.ActionRaise:
		if t.CurrentBet == 0 {
			return nil, fmt.Errorf("%w: raise requires a standing bet", domain.ErrInvalidAction)
		}
		if action.Amount <= t.CurrentBet {
			return nil, fmt.Errorf("%w: raise %d must exceed table bet %d", domain.ErrInvalidAction, action.Amount, t.CurrentBet)
		}
		if action.Amount < t.Config.MinBet || action.Amount > t.Config.MaxBet {
			return nil, fmt.Errorf("%w: raise %d outside [%d, %d]", domain.ErrInvalidAction, action.Amount, t.Config.MinBet, t.Config.MaxBet)
		}
		if action.Amount > seat.Stake {
			return nil, fmt.Errorf("%w: raise %d exceeds stake %d", domain.ErrInvalidAction, action.Amount, seat.Stake)
		}
		diff := action.Amount - seat.CurrentBet
		seat.Stake -= diff
		seat.CurrentBet = action.Amount
		t.CurrentBet = action.Amount
		t.Pot += diff
		// Every other active seat must respond to the raise.
		for i := range t.Seats {
			if i != position && t.Seats[i].Occupied() && t.Seats[i].IsActive {
				t.Seats[i].HasActed = false
			}
		}
		seat.HasActed = true

	case domain.ActionCheck:
		if seat.CurrentBet != t.CurrentBet {
			return nil, fmt.Errorf("%w: cannot check facing a bet of %d", domain.ErrInvalidAction, t.CurrentBet)
		}
		seat.HasActed = true

	case domain.ActionFold:
		seat.IsActive = false
		seat.HasActed = true

	default:
		return nil, fmt.Errorf("%w: unknown action kind %q", domain.ErrInvalidAction, action.Kind)
	}

	return afterAction(t, dealer, position)
}

// afterAction advances the turn pointer, short-circuits to an award when the
// hand is down to one contender, or advances the street when the round is
// complete.
func afterAction(t *domain.Table, dealer rules.Dealer, actedPosition int) (*Settlement, error) {
	if t.ActiveSeats() < 2 {
		return awardUncontested(t), nil
	}
	if roundComplete(t) {
		return advanceRound(t, dealer)
	}
	next, ok := nextActivePosition(t, actedPosition)
	if !ok {
		return awardUncontested(t), nil
	}
	t.CurrentPosition = next
	return nil, nil
}

// roundComplete holds when every still-active seat has acted and matched the
// table bet. Callers guarantee at least two active seats remain.
func roundComplete(t *domain.Table) bool {
	for i := range t.Seats {
		seat := t.Seats[i]
		if !seat.Occupied() || !seat.IsActive {
			continue
		}
		if !seat.HasActed {
			return false
		}
		if seat.CurrentBet != t.CurrentBet {
			return false
		}
	}
	return true
}

func nextActivePosition(t *domain.Table, from int) (int, bool) {
	n := len(t.Seats)
	for step := 1; step <= n; step++ {
		i := (from + step) % n
		if t.Seats[i].Occupied() && t.Seats[i].IsActive {
			return i, true
		}
	}
	return 0, false
}

func resetRound(t *domain.Table) {
	t.CurrentBet = 0
	for i := range t.Seats {
		t.Seats[i].CurrentBet = 0
		t.Seats[i].HasActed = false
	}
}
