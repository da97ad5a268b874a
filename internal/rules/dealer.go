package rules

import (
	cryptorand "crypto/rand"
	"fmt"
	"math/big"
	"math/rand"

	"github.com/cardroom/engine/internal/domain"
)

// CardSource is the unpredictability collaborator: it yields one card not in
// the excluded set. Outputs must not be predictable by any party before the
// corresponding action is finalized; derived-from-guessable-input sources do
// not satisfy that contract.
type CardSource interface {
	Next(excluding map[domain.Card]struct{}) (domain.Card, error)
}

type cryptoSource struct{}

type seededSource struct {
	rng *rand.Rand
}

func NewCryptoSource() CardSource {
	return cryptoSource{}
}

// NewSeededSource is for tests and local simulation only.
func NewSeededSource(seed int64) CardSource {
	return seededSource{rng: rand.New(rand.NewSource(seed))}
}

func (s cryptoSource) Next(excluding map[domain.Card]struct{}) (domain.Card, error) {
	remaining := remainingCards(excluding)
	if len(remaining) == 0 {
		return domain.Card{}, fmt.Errorf("deck exhausted: %d cards excluded", len(excluding))
	}
	n, err := cryptorand.Int(cryptorand.Reader, big.NewInt(int64(len(remaining))))
	if err != nil {
		return domain.Card{}, fmt.Errorf("crypto draw failed: %w", err)
	}
	return remaining[n.Int64()], nil
}

func (s seededSource) Next(excluding map[domain.Card]struct{}) (domain.Card, error) {
	remaining := remainingCards(excluding)
	if len(remaining) == 0 {
		return domain.Card{}, fmt.Errorf("deck exhausted: %d cards excluded", len(excluding))
	}
	return remaining[s.rng.Intn(len(remaining))], nil
}

func remainingCards(excluding map[domain.Card]struct{}) []domain.Card {
	remaining := make([]domain.Card, 0, 52-len(excluding))
	for _, suit := range domain.Suits() {
		for rank := uint8(2); rank <= 14; rank++ {
			card := domain.NewCard(domain.Rank(rank), suit)
			if _, out := excluding[card]; out {
				continue
			}
			remaining = append(remaining, card)
		}
	}
	return remaining
}

// Dealer sequences draws for one table, enforcing deck-wide uniqueness
// against every card already in play for the hand in progress.
type Dealer struct {
	source CardSource
}

func NewDealer(source CardSource) Dealer {
	if source == nil {
		source = NewCryptoSource()
	}
	return Dealer{source: source}
}

// DealHole deals two cards to every active occupied seat that has none yet,
// starting left of the dealer button, one card per seat per pass.
func (d Dealer) DealHole(t *domain.Table) error {
	order := make([]int, 0, len(t.Seats))
	for step := 1; step <= len(t.Seats); step++ {
		i := (t.DealerPosition + step) % len(t.Seats)
		seat := t.Seats[i]
		if seat.Occupied() && seat.IsActive && len(seat.HoleCards) == 0 {
			order = append(order, i)
		}
	}
	if len(order) < int(domain.MinSeats) {
		return fmt.Errorf("cannot deal hole cards: %d eligible seats", len(order))
	}

	excluding := inPlaySet(t)
	for pass := 0; pass < domain.HoleCardCount; pass++ {
		for _, i := range order {
			card, err := d.draw(excluding)
			if err != nil {
				return err
			}
			t.Seats[i].HoleCards = append(t.Seats[i].HoleCards, card)
		}
	}
	return nil
}

// DealCommunity appends count shared cards, never exceeding five per hand.
func (d Dealer) DealCommunity(t *domain.Table, count int) error {
	if count <= 0 {
		return fmt.Errorf("community card count must be positive, got %d", count)
	}
	if len(t.CommunityCards)+count > domain.MaxCommunityCards {
		return fmt.Errorf("cannot deal %d community cards: %d already on board", count, len(t.CommunityCards))
	}

	excluding := inPlaySet(t)
	for i := 0; i < count; i++ {
		card, err := d.draw(excluding)
		if err != nil {
			return err
		}
		t.CommunityCards = append(t.CommunityCards, card)
	}
	return nil
}

func (d Dealer) draw(excluding map[domain.Card]struct{}) (domain.Card, error) {
	card, err := d.source.Next(excluding)
	if err != nil {
		return domain.Card{}, err
	}
	if _, dup := excluding[card]; dup {
		return domain.Card{}, fmt.Errorf("card source returned in-play card %s", card)
	}
	excluding[card] = struct{}{}
	return card, nil
}

func inPlaySet(t *domain.Table) map[domain.Card]struct{} {
	inPlay := t.InPlayCards()
	set := make(map[domain.Card]struct{}, len(inPlay))
	for _, card := range inPlay {
		set[card] = struct{}{}
	}
	return set
}
