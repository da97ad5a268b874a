package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cardroom/engine/internal/domain"
)

func TestDebitCreditRoundTrip(t *testing.T) {
	t.Parallel()

	l := NewInMemory()
	l.Seed("alice", 500)

	require.NoError(t, l.Debit("alice", 200))
	balance, err := l.BalanceOf("alice")
	require.NoError(t, err)
	require.Equal(t, domain.Chips(300), balance)

	require.NoError(t, l.Credit("alice", 150))
	balance, err = l.BalanceOf("alice")
	require.NoError(t, err)
	require.Equal(t, domain.Chips(450), balance)
}

func TestDebitInsufficientFunds(t *testing.T) {
	t.Parallel()

	l := NewInMemory()
	l.Seed("alice", 100)

	err := l.Debit("alice", 101)
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	balance, err := l.BalanceOf("alice")
	require.NoError(t, err)
	require.Equal(t, domain.Chips(100), balance, "failed debit must not move funds")
}

func TestCreditBoundedByMaxChips(t *testing.T) {
	t.Parallel()

	l := NewInMemory()
	l.Seed("whale", domain.MaxChips-10)

	require.Error(t, l.Credit("whale", 11))
	require.NoError(t, l.Credit("whale", 10))
}

func TestUnknownAccount(t *testing.T) {
	t.Parallel()

	l := NewInMemory()

	balance, err := l.BalanceOf("ghost")
	require.NoError(t, err)
	require.Equal(t, domain.Chips(0), balance)

	require.ErrorIs(t, l.Debit("ghost", 1), domain.ErrInsufficientFunds)
}
