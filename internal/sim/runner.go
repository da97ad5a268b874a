// Package sim drives a table through complete hands without human players,
// for load scripts and local demos. Providers decide each action; the runner
// guards against stuck or runaway hands with a fallback and an action cap.
package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/cardroom/engine/internal/domain"
	"github.com/cardroom/engine/internal/engine"
)

const defaultMaxActionsPerHand = 512

var (
	ErrActionLimitExceeded = errors.New("action limit exceeded")
	ErrRunnerMisconfigured = errors.New("runner misconfigured")
	ErrContextCancelled    = errors.New("runner context cancelled")
	ErrInvalidHandsToRun   = errors.New("hands to run must be greater than zero")

	ErrInsufficientActiveSeats = errors.New("insufficient active seats to start hand")
)

// ActionProvider picks the next action for the seat at position. The table
// is the acting player's own view; mutating it has no effect on the game.
type ActionProvider interface {
	NextAction(ctx context.Context, table *domain.Table, position int) (domain.Action, error)
}

type Config struct {
	MaxActionsPerHand int
	OnHandComplete    func(HandSummary)
}

type HandSummary struct {
	HandNo        uint64
	HandID        string
	ActionCount   int
	FallbackCount int
	Settlement    *engine.Settlement
}

type Result struct {
	HandsCompleted int
	TotalActions   int
	TotalFallbacks int
	Summaries      []HandSummary
}

type Runner struct {
	provider ActionProvider
	config   Config
}

func New(provider ActionProvider, config Config) Runner {
	return Runner{provider: provider, config: config}
}

// RunHands plays the requested number of complete hands on the engine. The
// engine's table must already have enough funded seats.
func (r Runner) RunHands(ctx context.Context, eng *engine.Engine, hands int) (Result, error) {
	var result Result

	if hands <= 0 {
		return result, ErrInvalidHandsToRun
	}
	if r.provider == nil {
		return result, ErrRunnerMisconfigured
	}

	result.Summaries = make([]HandSummary, 0, hands)
	for i := 0; i < hands; i++ {
		if err := checkContext(ctx); err != nil {
			return result, err
		}

		summary, err := r.runHand(ctx, eng)
		if err != nil {
			return result, err
		}

		result.HandsCompleted++
		result.TotalActions += summary.ActionCount
		result.TotalFallbacks += summary.FallbackCount
		result.Summaries = append(result.Summaries, summary)
		if r.config.OnHandComplete != nil {
			r.config.OnHandComplete(summary)
		}
	}
	return result, nil
}

func (r Runner) runHand(ctx context.Context, eng *engine.Engine) (HandSummary, error) {
	var summary HandSummary

	maxActions := r.config.MaxActionsPerHand
	if maxActions <= 0 {
		maxActions = defaultMaxActionsPerHand
	}

	// Start the hand from Waiting or Complete.
	if _, err := eng.AdvanceState(); err != nil {
		return summary, fmt.Errorf("start hand: %w", err)
	}
	table := eng.Table()
	if table.State != domain.StatePreFlop {
		// Too many busted or departed seats; the table fell back to waiting.
		return summary, fmt.Errorf("%w: table state is %s", ErrInsufficientActiveSeats, table.State)
	}
	summary.HandNo = table.HandNo
	summary.HandID = table.HandID

	for table.State.InBettingRound() {
		if err := checkContext(ctx); err != nil {
			return summary, err
		}

		position := table.CurrentPosition
		account := table.Seats[position].Occupant

		action, err := r.provider.NextAction(ctx, table.Clone(), position)
		if err != nil {
			if err := checkContext(ctx); err != nil {
				return summary, err
			}
			action = domain.Action{Kind: domain.ActionCheck}
		}

		settlement, err := eng.Act(account, action)
		if err != nil {
			settlement, err = r.applyFallback(eng, account)
			if err != nil {
				return summary, err
			}
			summary.FallbackCount++
		}
		summary.ActionCount++
		if settlement != nil {
			summary.Settlement = settlement
		}

		if summary.ActionCount > maxActions {
			return summary, fmt.Errorf("%w: applied %d actions (max %d)", ErrActionLimitExceeded, summary.ActionCount, maxActions)
		}
	}

	if table.State != domain.StateComplete {
		return summary, fmt.Errorf("hand ended in unexpected state %s", table.State)
	}
	return summary, nil
}

// applyFallback keeps the hand moving when a provider returns an illegal
// action: check if legal, otherwise fold.
func (r Runner) applyFallback(eng *engine.Engine, account string) (*engine.Settlement, error) {
	settlement, err := eng.Act(account, domain.Action{Kind: domain.ActionCheck})
	if err == nil {
		return settlement, nil
	}
	settlement, foldErr := eng.Act(account, domain.Action{Kind: domain.ActionFold})
	if foldErr != nil {
		return nil, fmt.Errorf("fallback check failed (%v) and fallback fold failed (%w)", err, foldErr)
	}
	return settlement, nil
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrContextCancelled, ctx.Err())
	default:
		return nil
	}
}
