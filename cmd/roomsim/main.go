// Command roomsim plays complete hands against a local table and prints a
// per-hand report. It exists to exercise the engine end to end without a
// server or real players.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/pterm/pterm"

	"github.com/cardroom/engine/internal/domain"
	"github.com/cardroom/engine/internal/engine"
	"github.com/cardroom/engine/internal/ledger"
	"github.com/cardroom/engine/internal/rules"
	"github.com/cardroom/engine/internal/sim"
)

var playerNames = []string{"alice", "bob", "carol", "dave", "erin", "frank"}

func main() {
	hands := flag.Int("hands", 20, "number of hands to play")
	players := flag.Int("players", 4, "number of seated players (2-6)")
	seed := flag.Int64("seed", 1, "card source and provider seed")
	random := flag.Bool("random", true, "random actions; false checks every hand down")
	flag.Parse()

	if err := run(*hands, *players, *seed, *random); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func run(hands, players int, seed int64, random bool) error {
	if players < 2 || players > len(playerNames) {
		return fmt.Errorf("players must be in range 2..%d, got %d", len(playerNames), players)
	}

	table, err := domain.NewTable("sim-table", domain.TableConfig{
		MaxSeats:   domain.DefaultMaxSeats,
		MinBuyIn:   200,
		MaxBuyIn:   2000,
		SmallBlind: 5,
		BigBlind:   10,
		MinBet:     10,
		MaxBet:     500,
	})
	if err != nil {
		return err
	}

	funds := ledger.NewInMemory()
	eng, err := engine.New(table, rules.NewDealer(rules.NewSeededSource(seed)), funds)
	if err != nil {
		return err
	}
	for i := 0; i < players; i++ {
		funds.Seed(playerNames[i], 10000)
		if err := eng.Join(playerNames[i], 1000); err != nil {
			return err
		}
	}

	var provider sim.ActionProvider = sim.CheckCallProvider{}
	if random {
		provider = sim.NewRandomProvider(seed)
	}

	pterm.DefaultSection.Printf("playing %d hands with %d players", hands, players)

	runner := sim.New(provider, sim.Config{OnHandComplete: printHand})
	result, err := runner.RunHands(context.Background(), eng, hands)

	pterm.DefaultSection.Println("simulation complete")
	pterm.Info.Printfln("hands completed: %d", result.HandsCompleted)
	pterm.Info.Printfln("total actions: %d (%d fallbacks)", result.TotalActions, result.TotalFallbacks)
	printStacks(eng.Table())

	return err
}

func printHand(summary sim.HandSummary) {
	if summary.Settlement == nil {
		pterm.Warning.Printfln("hand %d: no settlement recorded", summary.HandNo)
		return
	}
	settlement := summary.Settlement
	outcome := settlement.Value.Category.String()
	if settlement.Uncontested {
		outcome = "uncontested"
	}
	pterm.Success.Printfln("hand %d: %s wins %d (%s, %d actions)",
		summary.HandNo, settlement.Winner, settlement.Amount, outcome, summary.ActionCount)
}

func printStacks(table *domain.Table) {
	rows := pterm.TableData{{"seat", "player", "stack"}}
	for i, seat := range table.Seats {
		if !seat.Occupied() {
			continue
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i),
			seat.Occupant,
			fmt.Sprintf("%d", seat.Stake),
		})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(rows).Render()
}
