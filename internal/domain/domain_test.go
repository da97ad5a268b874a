package domain

import (
	"errors"
	"testing"
)

func validConfig() TableConfig {
	return TableConfig{
		MaxSeats:   DefaultMaxSeats,
		MinBuyIn:   100,
		MaxBuyIn:   1000,
		SmallBlind: 5,
		BigBlind:   10,
		MinBet:     10,
		MaxBet:     500,
	}
}

func TestTableConfigValidate(t *testing.T) {
	t.Parallel()

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*TableConfig)
	}{
		{"max seats too small", func(c *TableConfig) { c.MaxSeats = 1 }},
		{"max seats too large", func(c *TableConfig) { c.MaxSeats = 10 }},
		{"min buy-in not below max", func(c *TableConfig) { c.MinBuyIn = c.MaxBuyIn }},
		{"small blind not below big blind", func(c *TableConfig) { c.SmallBlind = c.BigBlind }},
		{"min bet below big blind", func(c *TableConfig) { c.MinBet = c.BigBlind - 1 }},
		{"max bet above max buy-in", func(c *TableConfig) { c.MaxBet = c.MaxBuyIn + 1 }},
		{"zero amount", func(c *TableConfig) { c.SmallBlind = 0; c.BigBlind = 1 }},
		{"amount above chip bound", func(c *TableConfig) { c.MaxBuyIn = MaxChips + 1 }},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfiguration) {
				t.Fatalf("expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestNewTable(t *testing.T) {
	t.Parallel()

	table, err := NewTable("t-1", validConfig())
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	if table.State != StateWaiting {
		t.Fatalf("expected new table in waiting state, got %s", table.State)
	}
	if len(table.Seats) != int(DefaultMaxSeats) {
		t.Fatalf("expected %d seats, got %d", DefaultMaxSeats, len(table.Seats))
	}
	if table.OccupiedSeats() != 0 {
		t.Fatalf("expected empty table, got %d occupied seats", table.OccupiedSeats())
	}

	if _, err := NewTable("", validConfig()); !errors.Is(err, ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration for empty id, got %v", err)
	}
}

func TestTableClone(t *testing.T) {
	t.Parallel()

	table, err := NewTable("t-1", validConfig())
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	table.Seats[0] = Seat{
		Occupant:  "alice",
		Stake:     200,
		IsActive:  true,
		HoleCards: []Card{NewCard(14, SuitSpades), NewCard(13, SuitSpades)},
	}
	table.CommunityCards = append(table.CommunityCards, NewCard(2, SuitClubs))

	cloned := table.Clone()
	cloned.Seats[0].HoleCards[0] = NewCard(2, SuitDiamonds)
	cloned.CommunityCards[0] = NewCard(3, SuitDiamonds)

	if table.Seats[0].HoleCards[0] != NewCard(14, SuitSpades) {
		t.Fatal("clone must not alias seat hole cards")
	}
	if table.CommunityCards[0] != NewCard(2, SuitClubs) {
		t.Fatal("clone must not alias community cards")
	}
}
