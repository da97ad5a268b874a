package persistence

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/cardroom/engine/internal/domain"
)

// runRepositoryContractTests exercises the behavior every Repository
// implementation must share.
func runRepositoryContractTests(t *testing.T, newRepository func(t *testing.T) Repository) {
	t.Helper()

	t.Run("TableSnapshotRoundTrip", func(t *testing.T) {
		repo := newRepository(t)
		table := contractTable(t, "t-round-trip")
		table.Pot = 150
		table.State = domain.StateFlop

		if err := repo.UpsertTable(table); err != nil {
			t.Fatalf("UpsertTable failed: %v", err)
		}

		got, ok, err := repo.GetTable("t-round-trip")
		if err != nil {
			t.Fatalf("GetTable failed: %v", err)
		}
		if !ok {
			t.Fatal("expected table to exist")
		}
		if got.Pot != 150 || got.State != domain.StateFlop {
			t.Fatalf("snapshot mismatch: pot=%d state=%s", got.Pot, got.State)
		}
		if len(got.Seats) != len(table.Seats) {
			t.Fatalf("expected %d seats, got %d", len(table.Seats), len(got.Seats))
		}

		_, ok, err = repo.GetTable("missing")
		if err != nil {
			t.Fatalf("GetTable missing failed: %v", err)
		}
		if ok {
			t.Fatal("expected missing table to report not found")
		}
	})

	t.Run("UpsertOverwrites", func(t *testing.T) {
		repo := newRepository(t)
		table := contractTable(t, "t-upsert")
		if err := repo.UpsertTable(table); err != nil {
			t.Fatalf("UpsertTable failed: %v", err)
		}
		table.Pot = 999
		if err := repo.UpsertTable(table); err != nil {
			t.Fatalf("UpsertTable overwrite failed: %v", err)
		}
		got, _, err := repo.GetTable("t-upsert")
		if err != nil {
			t.Fatalf("GetTable failed: %v", err)
		}
		if got.Pot != 999 {
			t.Fatalf("expected overwritten pot 999, got %d", got.Pot)
		}
	})

	t.Run("ListTablesOrderedByID", func(t *testing.T) {
		repo := newRepository(t)
		for _, id := range []string{"t-b", "t-a", "t-c"} {
			if err := repo.UpsertTable(contractTable(t, id)); err != nil {
				t.Fatalf("UpsertTable %s failed: %v", id, err)
			}
		}
		tables, err := repo.ListTables()
		if err != nil {
			t.Fatalf("ListTables failed: %v", err)
		}
		if len(tables) != 3 {
			t.Fatalf("expected 3 tables, got %d", len(tables))
		}
		for i, want := range []string{"t-a", "t-b", "t-c"} {
			if tables[i].ID != want {
				t.Fatalf("expected table %d to be %s, got %s", i, want, tables[i].ID)
			}
		}
	})

	t.Run("DeleteTable", func(t *testing.T) {
		repo := newRepository(t)
		if err := repo.UpsertTable(contractTable(t, "t-del")); err != nil {
			t.Fatalf("UpsertTable failed: %v", err)
		}
		if err := repo.DeleteTable("t-del"); err != nil {
			t.Fatalf("DeleteTable failed: %v", err)
		}
		if err := repo.DeleteTable("t-del"); !errors.Is(err, ErrTableNotFound) {
			t.Fatalf("expected ErrTableNotFound, got %v", err)
		}
	})

	t.Run("HandLifecycle", func(t *testing.T) {
		repo := newRepository(t)
		if err := repo.UpsertTable(contractTable(t, "t-hands")); err != nil {
			t.Fatalf("UpsertTable failed: %v", err)
		}
		started := time.Now().UTC().Truncate(time.Microsecond)

		if err := repo.CreateHand(HandRecord{
			HandID: "h-1", TableID: "t-hands", HandNo: 1, StartedAt: started,
			FinalState: domain.StatePreFlop, WinnerSeat: -1,
		}); err != nil {
			t.Fatalf("CreateHand failed: %v", err)
		}
		if err := repo.CreateHand(HandRecord{
			HandID: "h-1", TableID: "t-hands", HandNo: 1, StartedAt: started,
			WinnerSeat: -1,
		}); !errors.Is(err, ErrHandAlreadyExists) {
			t.Fatalf("expected ErrHandAlreadyExists, got %v", err)
		}

		// CompleteHand carries only the settlement; the caller does not
		// repeat StartedAt.
		ended := started.Add(time.Minute)
		if err := repo.CompleteHand("h-1", HandRecord{
			HandID: "h-1", TableID: "t-hands", HandNo: 1,
			EndedAt: &ended, FinalState: domain.StateComplete,
			Winner: "alice", WinnerSeat: 0, Amount: 200, Category: "royal flush",
		}); err != nil {
			t.Fatalf("CompleteHand failed: %v", err)
		}
		if err := repo.CompleteHand("missing", HandRecord{HandID: "missing"}); !errors.Is(err, ErrHandNotFound) {
			t.Fatalf("expected ErrHandNotFound, got %v", err)
		}

		hands, err := repo.ListHands("t-hands")
		if err != nil {
			t.Fatalf("ListHands failed: %v", err)
		}
		if len(hands) != 1 {
			t.Fatalf("expected one hand, got %d", len(hands))
		}
		got := hands[0]
		if got.Winner != "alice" || got.Amount != 200 || got.Category != "royal flush" {
			t.Fatalf("unexpected completed hand: %+v", got)
		}
		if got.EndedAt == nil || !got.EndedAt.Equal(ended) {
			t.Fatalf("expected ended_at %v, got %v", ended, got.EndedAt)
		}
		if !got.StartedAt.Equal(started) {
			t.Fatalf("CompleteHand must preserve started_at %v, got %v", started, got.StartedAt)
		}
	})

	t.Run("HandRequiresTable", func(t *testing.T) {
		repo := newRepository(t)
		err := repo.CreateHand(HandRecord{
			HandID: "h-orphan", TableID: "no-such-table", HandNo: 1,
			StartedAt: time.Now().UTC(), WinnerSeat: -1,
		})
		if !errors.Is(err, ErrTableNotFound) {
			t.Fatalf("expected ErrTableNotFound, got %v", err)
		}
	})

	t.Run("ListHandsOrderedByHandNo", func(t *testing.T) {
		repo := newRepository(t)
		if err := repo.UpsertTable(contractTable(t, "t-order")); err != nil {
			t.Fatalf("UpsertTable failed: %v", err)
		}
		now := time.Now().UTC()
		for _, handNo := range []uint64{3, 1, 2} {
			if err := repo.CreateHand(HandRecord{
				HandID: handIDForNo(handNo), TableID: "t-order", HandNo: handNo,
				StartedAt: now, WinnerSeat: -1,
			}); err != nil {
				t.Fatalf("CreateHand %d failed: %v", handNo, err)
			}
		}
		hands, err := repo.ListHands("t-order")
		if err != nil {
			t.Fatalf("ListHands failed: %v", err)
		}
		for i, want := range []uint64{1, 2, 3} {
			if hands[i].HandNo != want {
				t.Fatalf("expected hand %d at index %d, got %d", want, i, hands[i].HandNo)
			}
		}
	})

	t.Run("ActionLogOrdered", func(t *testing.T) {
		repo := newRepository(t)
		if err := repo.UpsertTable(contractTable(t, "t-actions")); err != nil {
			t.Fatalf("UpsertTable failed: %v", err)
		}
		now := time.Now().UTC().Truncate(time.Microsecond)
		if err := repo.CreateHand(HandRecord{
			HandID: "h-act", TableID: "t-actions", HandNo: 1, StartedAt: now, WinnerSeat: -1,
		}); err != nil {
			t.Fatalf("CreateHand failed: %v", err)
		}

		amount := domain.Chips(50)
		records := []ActionRecord{
			{HandID: "h-act", Street: domain.StatePreFlop, Position: 0, Account: "alice", Kind: domain.ActionBet, Amount: &amount, At: now},
			{HandID: "h-act", Street: domain.StatePreFlop, Position: 1, Account: "bob", Kind: domain.ActionCall, At: now.Add(time.Second)},
			{HandID: "h-act", Street: domain.StateFlop, Position: 0, Account: "alice", Kind: domain.ActionCheck, At: now.Add(2 * time.Second)},
		}
		for _, record := range records {
			if err := repo.AppendAction(record); err != nil {
				t.Fatalf("AppendAction failed: %v", err)
			}
		}

		actions, err := repo.ListActions("h-act")
		if err != nil {
			t.Fatalf("ListActions failed: %v", err)
		}
		if len(actions) != 3 {
			t.Fatalf("expected 3 actions, got %d", len(actions))
		}
		if actions[0].Kind != domain.ActionBet || actions[0].Amount == nil || *actions[0].Amount != 50 {
			t.Fatalf("unexpected first action: %+v", actions[0])
		}
		if actions[1].Amount != nil {
			t.Fatalf("call must have no amount, got %d", *actions[1].Amount)
		}
		if actions[2].Street != domain.StateFlop {
			t.Fatalf("expected flop street on third action, got %s", actions[2].Street)
		}
	})

	t.Run("ActionRequiresHand", func(t *testing.T) {
		repo := newRepository(t)
		err := repo.AppendAction(ActionRecord{
			HandID: "missing", Street: domain.StatePreFlop, Position: 0,
			Account: "alice", Kind: domain.ActionCheck, At: time.Now().UTC(),
		})
		if !errors.Is(err, ErrHandNotFound) {
			t.Fatalf("expected ErrHandNotFound, got %v", err)
		}
	})
}

func contractTable(t *testing.T, id string) *domain.Table {
	t.Helper()
	table, err := domain.NewTable(id, domain.TableConfig{
		MaxSeats:   4,
		MinBuyIn:   100,
		MaxBuyIn:   1000,
		SmallBlind: 5,
		BigBlind:   10,
		MinBet:     10,
		MaxBet:     500,
	})
	if err != nil {
		t.Fatalf("NewTable failed: %v", err)
	}
	return table
}

func handIDForNo(handNo uint64) string {
	return fmt.Sprintf("h-%d", handNo)
}
