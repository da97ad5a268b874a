package domain

import (
	"errors"
	"fmt"
)

const (
	MinSeats        uint8 = 2
	MaxSeatsAllowed uint8 = 9
	DefaultMaxSeats uint8 = 6

	// MaxChips bounds every stake, bet and pot amount. Callers must reject
	// amounts above this bound rather than truncate.
	MaxChips Chips = 1<<40 - 1

	HoleCardCount      = 2
	MaxCommunityCards  = 5
	FlopCommunityCards = 3
)

// Chips counts minor currency units held as table stakes or pot.
type Chips uint64

var (
	ErrInvalidConfiguration = errors.New("invalid table configuration")
	ErrInvalidBuyIn         = errors.New("invalid buy-in")
	ErrTableFull            = errors.New("table is full")
	ErrPlayerNotAtTable     = errors.New("player not at table")
	ErrNotYourTurn          = errors.New("not your turn")
	ErrInvalidAction        = errors.New("invalid action")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInvalidHand          = errors.New("invalid hand")
)

type Suit string

const (
	SuitClubs    Suit = "clubs"
	SuitDiamonds Suit = "diamonds"
	SuitHearts   Suit = "hearts"
	SuitSpades   Suit = "spades"
)

func Suits() []Suit {
	return []Suit{SuitClubs, SuitDiamonds, SuitHearts, SuitSpades}
}

type Rank uint8

func NewRank(value uint8) (Rank, error) {
	if value < 2 || value > 14 {
		return 0, fmt.Errorf("rank must be in range 2..=14, got %d", value)
	}
	return Rank(value), nil
}

func (r Rank) String() string {
	switch r {
	case 14:
		return "A"
	case 13:
		return "K"
	case 12:
		return "Q"
	case 11:
		return "J"
	case 10:
		return "T"
	default:
		return fmt.Sprintf("%d", uint8(r))
	}
}

type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

func NewCard(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

func (c Card) String() string {
	return c.Rank.String() + string(c.Suit[0])
}

type GameState string

const (
	StateWaiting  GameState = "waiting"
	StatePreFlop  GameState = "preflop"
	StateFlop     GameState = "flop"
	StateTurn     GameState = "turn"
	StateRiver    GameState = "river"
	StateShowdown GameState = "showdown"
	StateComplete GameState = "complete"
)

// InBettingRound reports whether s is one of the four betting streets.
func (s GameState) InBettingRound() bool {
	switch s {
	case StatePreFlop, StateFlop, StateTurn, StateRiver:
		return true
	}
	return false
}

type TableConfig struct {
	MaxSeats   uint8 `json:"max_seats"`
	MinBuyIn   Chips `json:"min_buy_in"`
	MaxBuyIn   Chips `json:"max_buy_in"`
	SmallBlind Chips `json:"small_blind"`
	BigBlind   Chips `json:"big_blind"`
	MinBet     Chips `json:"min_bet"`
	MaxBet     Chips `json:"max_bet"`
}

func (c TableConfig) Validate() error {
	if c.MaxSeats < MinSeats || c.MaxSeats > MaxSeatsAllowed {
		return fmt.Errorf("%w: max_seats must be in range %d..=%d, got %d", ErrInvalidConfiguration, MinSeats, MaxSeatsAllowed, c.MaxSeats)
	}
	for _, amount := range []Chips{c.MinBuyIn, c.MaxBuyIn, c.SmallBlind, c.BigBlind, c.MinBet, c.MaxBet} {
		if amount == 0 || amount > MaxChips {
			return fmt.Errorf("%w: amounts must be in range 1..=%d", ErrInvalidConfiguration, MaxChips)
		}
	}
	if c.MinBuyIn >= c.MaxBuyIn {
		return fmt.Errorf("%w: min_buy_in must be less than max_buy_in", ErrInvalidConfiguration)
	}
	if c.SmallBlind >= c.BigBlind {
		return fmt.Errorf("%w: small_blind must be less than big_blind", ErrInvalidConfiguration)
	}
	if c.MinBet < c.BigBlind {
		return fmt.Errorf("%w: min_bet must be at least the big blind", ErrInvalidConfiguration)
	}
	if c.MaxBet > c.MaxBuyIn {
		return fmt.Errorf("%w: max_bet must not exceed max_buy_in", ErrInvalidConfiguration)
	}
	if c.MaxBet < c.MinBet {
		return fmt.Errorf("%w: max_bet must be at least min_bet", ErrInvalidConfiguration)
	}
	return nil
}

type Seat struct {
	Occupant     string `json:"occupant"`
	Stake        Chips  `json:"stake"`
	CurrentBet   Chips  `json:"current_bet"`
	IsActive     bool   `json:"is_active"`
	IsSittingOut bool   `json:"is_sitting_out"`
	HasActed     bool   `json:"has_acted"`
	HoleCards    []Card `json:"hole_cards,omitempty"`
}

func (s Seat) Occupied() bool {
	return s.Occupant != ""
}

type Table struct {
	ID              string      `json:"id"`
	Config          TableConfig `json:"config"`
	Pot             Chips       `json:"pot"`
	CurrentBet      Chips       `json:"current_bet"`
	DealerPosition  int         `json:"dealer_position"`
	CurrentPosition int         `json:"current_position"`
	Seats           []Seat      `json:"seats"`
	CommunityCards  []Card      `json:"community_cards"`
	State           GameState   `json:"state"`
	HandID          string      `json:"hand_id,omitempty"`
	HandNo          uint64      `json:"hand_no"`
	IsActive        bool        `json:"is_active"`
}

func NewTable(id string, config TableConfig) (*Table, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: table id must not be empty", ErrInvalidConfiguration)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Table{
		ID:              id,
		Config:          config,
		Seats:           make([]Seat, config.MaxSeats),
		CommunityCards:  make([]Card, 0, MaxCommunityCards),
		State:           StateWaiting,
		DealerPosition:  0,
		CurrentPosition: 0,
		IsActive:        true,
	}, nil
}

func (t *Table) SeatOf(account string) (int, bool) {
	if account == "" {
		return -1, false
	}
	for i := range t.Seats {
		if t.Seats[i].Occupant == account {
			return i, true
		}
	}
	return -1, false
}

func (t *Table) OccupiedSeats() int {
	count := 0
	for i := range t.Seats {
		if t.Seats[i].Occupied() {
			count++
		}
	}
	return count
}

func (t *Table) ActiveSeats() int {
	count := 0
	for i := range t.Seats {
		if t.Seats[i].Occupied() && t.Seats[i].IsActive {
			count++
		}
	}
	return count
}

// InPlayCards returns every card dealt in the hand in progress, hole and
// community alike. The dealer excludes these when drawing.
func (t *Table) InPlayCards() []Card {
	out := make([]Card, 0, len(t.Seats)*HoleCardCount+MaxCommunityCards)
	for i := range t.Seats {
		out = append(out, t.Seats[i].HoleCards...)
	}
	out = append(out, t.CommunityCards...)
	return out
}

func (t *Table) Clone() *Table {
	cloned := *t
	cloned.Seats = make([]Seat, len(t.Seats))
	for i, seat := range t.Seats {
		copied := seat
		copied.HoleCards = append([]Card(nil), seat.HoleCards...)
		cloned.Seats[i] = copied
	}
	cloned.CommunityCards = append([]Card(nil), t.CommunityCards...)
	return &cloned
}
