// Package engine implements the single-table poker engine: seat lifecycle,
// the betting-round state machine and showdown settlement. One Engine owns
// one Table record exclusively; serialization across callers is the room's
// concern.
package engine

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/cardroom/engine/internal/domain"
	"github.com/cardroom/engine/internal/rules"
)

// Ledger is the external fund-custody collaborator. The engine never holds
// funds itself beyond the in-table pot/stake counters, which are backed 1:1
// by ledger debits at join time and credits at leave time.
type Ledger interface {
	Debit(account string, amount domain.Chips) error
	Credit(account string, amount domain.Chips) error
	BalanceOf(account string) (domain.Chips, error)
}

type Engine struct {
	table  *domain.Table
	dealer rules.Dealer
	ledger Ledger
}

func New(table *domain.Table, dealer rules.Dealer, ledger Ledger) (*Engine, error) {
	if table == nil {
		return nil, fmt.Errorf("%w: nil table", domain.ErrInvalidConfiguration)
	}
	if ledger == nil {
		return nil, fmt.Errorf("%w: nil ledger", domain.ErrInvalidConfiguration)
	}
	return &Engine{table: table, dealer: dealer, ledger: ledger}, nil
}

// Table exposes the engine's live record. Callers must hold the table lock.
func (e *Engine) Table() *domain.Table {
	return e.table
}

// Join seats an account, debiting the buy-in from the ledger. A seat created
// while a hand is in progress waits for the next hand before contesting.
func (e *Engine) Join(account string, buyIn domain.Chips) error {
	t := e.table
	if account == "" {
		return fmt.Errorf("%w: account must not be empty", domain.ErrInvalidAction)
	}
	if _, seated := t.SeatOf(account); seated {
		return fmt.Errorf("%w: %s is already seated", domain.ErrInvalidAction, account)
	}
	position := -1
	for i := range t.Seats {
		if !t.Seats[i].Occupied() {
			position = i
			break
		}
	}
	if position < 0 {
		return domain.ErrTableFull
	}
	if buyIn < t.Config.MinBuyIn || buyIn > t.Config.MaxBuyIn || buyIn > domain.MaxChips {
		return fmt.Errorf("%w: buy-in %d outside [%d, %d]", domain.ErrInvalidBuyIn, buyIn, t.Config.MinBuyIn, t.Config.MaxBuyIn)
	}
	balance, err := e.ledger.BalanceOf(account)
	if err != nil {
		return err
	}
	if balance < buyIn {
		return fmt.Errorf("%w: balance %d below buy-in %d", domain.ErrInvalidBuyIn, balance, buyIn)
	}
	if err := e.ledger.Debit(account, buyIn); err != nil {
		return err
	}

	t.Seats[position] = domain.Seat{
		Occupant: account,
		Stake:    buyIn,
		IsActive: !t.State.InBettingRound(),
	}
	return nil
}

// Leave vacates the account's seat and credits its remaining stake back to
// the ledger. A live current bet stays in the pot.
func (e *Engine) Leave(account string) (*Settlement, error) {
	t := e.table
	position, seated := t.SeatOf(account)
	if !seated {
		return nil, fmt.Errorf("%w: %s", domain.ErrPlayerNotAtTable, account)
	}

	stake := t.Seats[position].Stake
	if stake > 0 {
		if err := e.ledger.Credit(account, stake); err != nil {
			return nil, err
		}
	}

	wasActive := t.Seats[position].IsActive
	t.Seats[position] = domain.Seat{}

	if !t.State.InBettingRound() || !wasActive {
		return nil, nil
	}
	return e.resolveAfterDeparture(position)
}

func (e *Engine) SitOut(account string) error {
	t := e.table
	position, seated := t.SeatOf(account)
	if !seated {
		return fmt.Errorf("%w: %s", domain.ErrPlayerNotAtTable, account)
	}
	t.Seats[position].IsSittingOut = true
	return nil
}

func (e *Engine) SitIn(account string) error {
	t := e.table
	position, seated := t.SeatOf(account)
	if !seated {
		return fmt.Errorf("%w: %s", domain.ErrPlayerNotAtTable, account)
	}
	if t.Seats[position].Stake < t.Config.MinBuyIn {
		return fmt.Errorf("%w: stake %d below min buy-in %d", domain.ErrInvalidBuyIn, t.Seats[position].Stake, t.Config.MinBuyIn)
	}
	t.Seats[position].IsSittingOut = false
	return nil
}

// resolveAfterDeparture re-establishes turn and round invariants after an
// active seat vanished mid-hand.
func (e *Engine) resolveAfterDeparture(position int) (*Settlement, error) {
	t := e.table
	if t.ActiveSeats() < 2 {
		return awardUncontested(t), nil
	}
	if roundComplete(t) {
		return advanceRound(t, e.dealer)
	}
	if t.CurrentPosition == position {
		next, ok := nextActivePosition(t, position)
		if !ok {
			return awardUncontested(t), nil
		}
		t.CurrentPosition = next
	}
	return nil, nil
}

func newHandID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate hand id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
