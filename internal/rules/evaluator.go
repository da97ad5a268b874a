package rules

import (
	"fmt"
	"sort"

	"github.com/cardroom/engine/internal/domain"
)

type Category uint8

const (
	CategoryHighCard Category = iota + 1
	CategoryPair
	CategoryTwoPair
	CategoryThreeOfAKind
	CategoryStraight
	CategoryFlush
	CategoryFullHouse
	CategoryFourOfAKind
	CategoryStraightFlush
	CategoryRoyalFlush
)

func (c Category) String() string {
	switch c {
	case CategoryHighCard:
		return "high card"
	case CategoryPair:
		return "pair"
	case CategoryTwoPair:
		return "two pair"
	case CategoryThreeOfAKind:
		return "three of a kind"
	case CategoryStraight:
		return "straight"
	case CategoryFlush:
		return "flush"
	case CategoryFullHouse:
		return "full house"
	case CategoryFourOfAKind:
		return "four of a kind"
	case CategoryStraightFlush:
		return "straight flush"
	case CategoryRoyalFlush:
		return "royal flush"
	}
	return "unknown"
}

// HandValue is the two-part ranking of an evaluated hand: the ordinal
// category, then a deterministic score that orders hands within the same
// category.
type HandValue struct {
	Category Category `json:"category"`
	Score    uint64   `json:"score"`
}

// Evaluate ranks a set of 5 to 7 cards.
//
// The score is a weighted positional sum over the full sorted card set, not
// over an exhaustively chosen best five of seven. Hands that need a specific
// 5-of-7 subset can be misranked. Known limitation.
func Evaluate(cards []domain.Card) (HandValue, error) {
	if len(cards) < 5 || len(cards) > 7 {
		return HandValue{}, fmt.Errorf("%w: expected 5..=7 cards, got %d", domain.ErrInvalidHand, len(cards))
	}

	seen := make(map[domain.Card]struct{}, len(cards))
	ranks := make([]uint8, 0, len(cards))
	rankCounts := make(map[uint8]int, len(cards))
	suitCounts := make(map[domain.Suit]int, 4)
	for _, card := range cards {
		if _, dup := seen[card]; dup {
			return HandValue{}, fmt.Errorf("%w: duplicate card %s", domain.ErrInvalidHand, card)
		}
		seen[card] = struct{}{}
		r := uint8(card.Rank)
		if r < 2 || r > 14 {
			return HandValue{}, fmt.Errorf("%w: rank %d out of range", domain.ErrInvalidHand, r)
		}
		ranks = append(ranks, r)
		rankCounts[r]++
		suitCounts[card.Suit]++
	}
	sort.Slice(ranks, func(i, j int) bool { return ranks[i] > ranks[j] })

	isFlush := false
	for _, count := range suitCounts {
		if count >= 5 {
			isFlush = true
			break
		}
	}
	straightHigh, isStraight := straightHighRank(ranks)

	score := positionalScore(ranks)

	if isFlush && isStraight {
		if straightHigh == 14 {
			return HandValue{Category: CategoryRoyalFlush, Score: score}, nil
		}
		return HandValue{Category: CategoryStraightFlush, Score: score}, nil
	}

	first, second := topFrequencies(rankCounts)
	switch {
	case first == 4:
		return HandValue{Category: CategoryFourOfAKind, Score: score}, nil
	case first == 3 && second >= 2:
		return HandValue{Category: CategoryFullHouse, Score: score}, nil
	case isFlush:
		return HandValue{Category: CategoryFlush, Score: score}, nil
	case isStraight:
		return HandValue{Category: CategoryStraight, Score: score}, nil
	case first == 3:
		return HandValue{Category: CategoryThreeOfAKind, Score: score}, nil
	case first == 2 && second == 2:
		return HandValue{Category: CategoryTwoPair, Score: score}, nil
	case first == 2:
		return HandValue{Category: CategoryPair, Score: score}, nil
	}
	return HandValue{Category: CategoryHighCard, Score: score}, nil
}

// Compare orders two evaluated hands: category first, then score. It returns
// 1 when a beats b, -1 when b beats a and 0 on an exact tie. Pure function,
// safe to call off the critical path.
func Compare(a HandValue, b HandValue) int {
	if a.Category != b.Category {
		if a.Category > b.Category {
			return 1
		}
		return -1
	}
	if a.Score != b.Score {
		if a.Score > b.Score {
			return 1
		}
		return -1
	}
	return 0
}

// positionalScore folds the descending rank values into a base-15 positional
// sum. Deterministic tie-breaker only; never compared across categories.
func positionalScore(sortedDesc []uint8) uint64 {
	score := uint64(0)
	for _, r := range sortedDesc {
		score = score*15 + uint64(r)
	}
	return score
}

func straightHighRank(sortedDesc []uint8) (uint8, bool) {
	unique := make([]uint8, 0, len(sortedDesc))
	last := uint8(0)
	for _, r := range sortedDesc {
		if r != last {
			unique = append(unique, r)
			last = r
		}
	}

	run := 1
	for i := 1; i < len(unique); i++ {
		if unique[i-1]-1 == unique[i] {
			run++
			if run >= 5 {
				return unique[i-4], true
			}
			continue
		}
		run = 1
	}

	// Ace-low wheel: A,5,4,3,2.
	if contains(unique, 14) && contains(unique, 5) && contains(unique, 4) && contains(unique, 3) && contains(unique, 2) {
		return 5, true
	}
	return 0, false
}

func topFrequencies(rankCounts map[uint8]int) (int, int) {
	first, second := 0, 0
	for _, count := range rankCounts {
		if count > first {
			first, second = count, first
			continue
		}
		if count > second {
			second = count
		}
	}
	return first, second
}

func contains(ranks []uint8, want uint8) bool {
	for _, r := range ranks {
		if r == want {
			return true
		}
	}
	return false
}
