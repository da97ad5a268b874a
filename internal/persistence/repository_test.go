package persistence

import (
	"testing"

	"github.com/cardroom/engine/internal/domain"
)

func TestInMemoryRepository_Contract(t *testing.T) {
	t.Parallel()
	runRepositoryContractTests(t, func(t *testing.T) Repository {
		t.Helper()
		return NewInMemoryRepository()
	})
}

func TestInMemoryRepository_SnapshotsAreIsolated(t *testing.T) {
	t.Parallel()

	repo := NewInMemoryRepository()
	table := contractTable(t, "t-iso")
	table.Seats[0].Occupant = "alice"
	table.Seats[0].Stake = 500

	if err := repo.UpsertTable(table); err != nil {
		t.Fatalf("UpsertTable failed: %v", err)
	}

	// Mutating the caller's table must not leak into the stored snapshot.
	table.Seats[0].Stake = 0
	table.Pot = 123

	got, ok, err := repo.GetTable("t-iso")
	if err != nil || !ok {
		t.Fatalf("GetTable failed: ok=%v err=%v", ok, err)
	}
	if got.Seats[0].Stake != 500 || got.Pot != 0 {
		t.Fatalf("stored snapshot mutated: stake=%d pot=%d", got.Seats[0].Stake, got.Pot)
	}

	// And mutating a returned snapshot must not change the store.
	got.Seats[0].Occupant = "mallory"
	again, _, err := repo.GetTable("t-iso")
	if err != nil {
		t.Fatalf("GetTable failed: %v", err)
	}
	if again.Seats[0].Occupant != "alice" {
		t.Fatalf("returned snapshot aliased the store: %q", again.Seats[0].Occupant)
	}
}

func TestInMemoryRepository_DeleteTableCascadesHistory(t *testing.T) {
	t.Parallel()

	repo := NewInMemoryRepository()
	if err := repo.UpsertTable(contractTable(t, "t-hist")); err != nil {
		t.Fatalf("UpsertTable failed: %v", err)
	}
	if err := repo.CreateHand(HandRecord{
		HandID: "h-hist", TableID: "t-hist", HandNo: 1, WinnerSeat: -1,
	}); err != nil {
		t.Fatalf("CreateHand failed: %v", err)
	}
	if err := repo.AppendAction(ActionRecord{
		HandID: "h-hist", Street: domain.StatePreFlop, Account: "alice", Kind: domain.ActionCheck,
	}); err != nil {
		t.Fatalf("AppendAction failed: %v", err)
	}
	if err := repo.DeleteTable("t-hist"); err != nil {
		t.Fatalf("DeleteTable failed: %v", err)
	}

	hands, err := repo.ListHands("t-hist")
	if err != nil {
		t.Fatalf("ListHands failed: %v", err)
	}
	if len(hands) != 0 {
		t.Fatalf("expected hand history to cascade with the table, got %+v", hands)
	}
	actions, err := repo.ListActions("h-hist")
	if err != nil {
		t.Fatalf("ListActions failed: %v", err)
	}
	if len(actions) != 0 {
		t.Fatalf("expected actions to cascade with the table, got %+v", actions)
	}
}
