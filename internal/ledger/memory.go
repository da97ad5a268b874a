// Package ledger provides an in-memory stand-in for the external fund
// custody collaborator, used by simulation and tests. Real custody,
// withdrawal policy and house-fee collection live outside this engine.
package ledger

import (
	"fmt"
	"sync"

	"github.com/cardroom/engine/internal/domain"
)

type InMemory struct {
	mu       sync.Mutex
	balances map[string]domain.Chips
}

func NewInMemory() *InMemory {
	return &InMemory{balances: make(map[string]domain.Chips)}
}

// Seed sets an account balance directly, bypassing debit/credit bookkeeping.
func (l *InMemory) Seed(account string, balance domain.Chips) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] = balance
}

func (l *InMemory) Debit(account string, amount domain.Chips) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.balances[account]
	if balance < amount {
		return fmt.Errorf("%w: %s has %d, needs %d", domain.ErrInsufficientFunds, account, balance, amount)
	}
	l.balances[account] = balance - amount
	return nil
}

func (l *InMemory) Credit(account string, amount domain.Chips) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.balances[account]
	if balance+amount > domain.MaxChips {
		return fmt.Errorf("%w: credit would exceed chip bound", domain.ErrInvalidAction)
	}
	l.balances[account] = balance + amount
	return nil
}

func (l *InMemory) BalanceOf(account string) (domain.Chips, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}
