package sim

import (
	"context"
	"math/rand"

	"github.com/cardroom/engine/internal/domain"
)

// CheckCallProvider checks when nothing is owed and calls otherwise. Hands
// it drives always reach showdown.
type CheckCallProvider struct{}

func (CheckCallProvider) NextAction(_ context.Context, table *domain.Table, position int) (domain.Action, error) {
	seat := table.Seats[position]
	if seat.CurrentBet < table.CurrentBet {
		return domain.Action{Kind: domain.ActionCall}, nil
	}
	return domain.Action{Kind: domain.ActionCheck}, nil
}

// RandomProvider mixes bets, raises, calls, checks and folds from a seeded
// generator, staying within the table's limits.
type RandomProvider struct {
	rng *rand.Rand
}

func NewRandomProvider(seed int64) *RandomProvider {
	return &RandomProvider{rng: rand.New(rand.NewSource(seed))}
}

func (p *RandomProvider) NextAction(_ context.Context, table *domain.Table, position int) (domain.Action, error) {
	seat := table.Seats[position]
	roll := p.rng.Intn(10)

	if table.CurrentBet == 0 {
		if roll < 3 && seat.Stake >= table.Config.MinBet {
			return domain.Action{Kind: domain.ActionBet, Amount: p.betAmount(table, seat)}, nil
		}
		return domain.Action{Kind: domain.ActionCheck}, nil
	}

	owed := table.CurrentBet - seat.CurrentBet
	switch {
	case roll < 2:
		return domain.Action{Kind: domain.ActionFold}, nil
	case roll < 3 && p.canRaise(table, seat):
		return domain.Action{Kind: domain.ActionRaise, Amount: p.raiseAmount(table, seat)}, nil
	case owed > 0 && owed <= seat.Stake:
		return domain.Action{Kind: domain.ActionCall}, nil
	case owed == 0:
		return domain.Action{Kind: domain.ActionCheck}, nil
	default:
		return domain.Action{Kind: domain.ActionFold}, nil
	}
}

func (p *RandomProvider) betAmount(table *domain.Table, seat domain.Seat) domain.Chips {
	max := table.Config.MaxBet
	if seat.Stake < max {
		max = seat.Stake
	}
	min := table.Config.MinBet
	if max <= min {
		return min
	}
	return min + domain.Chips(p.rng.Int63n(int64(max-min+1)))
}

func (p *RandomProvider) canRaise(table *domain.Table, seat domain.Seat) bool {
	target := table.CurrentBet + table.Config.MinBet
	return target <= table.Config.MaxBet && target <= seat.Stake
}

func (p *RandomProvider) raiseAmount(table *domain.Table, seat domain.Seat) domain.Chips {
	return table.CurrentBet + table.Config.MinBet
}
