package room

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cardroom/engine/internal/domain"
	"github.com/cardroom/engine/internal/ledger"
	"github.com/cardroom/engine/internal/persistence"
	"github.com/cardroom/engine/internal/rules"
)

const adminToken = "test-admin-token"

func testConfig() domain.TableConfig {
	return domain.TableConfig{
		MaxSeats:   4,
		MinBuyIn:   100,
		MaxBuyIn:   1000,
		SmallBlind: 5,
		BigBlind:   10,
		MinBet:     10,
		MaxBet:     500,
	}
}

func newTestRoom(t *testing.T) (*Room, persistence.Repository, *ledger.InMemory) {
	t.Helper()
	repo := persistence.NewInMemoryRepository()
	funds := ledger.NewInMemory()
	r, err := New(repo, funds, rules.NewSeededSource(42), NewStaticTokenAuthorizer(adminToken), zerolog.Nop())
	require.NoError(t, err)
	return r, repo, funds
}

func seatTwo(t *testing.T, r *Room, funds *ledger.InMemory, tableID string) {
	t.Helper()
	funds.Seed("alice", 1000)
	funds.Seed("bob", 1000)
	require.NoError(t, r.Join(tableID, "alice", 200))
	require.NoError(t, r.Join(tableID, "bob", 200))
}

func TestCreateTable(t *testing.T) {
	t.Parallel()

	r, repo, _ := newTestRoom(t)

	table, err := r.CreateTable("t-1", testConfig())
	require.NoError(t, err)
	require.Equal(t, "t-1", table.ID)
	require.Equal(t, domain.StateWaiting, table.State)

	_, err = r.CreateTable("t-1", testConfig())
	require.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	generated, err := r.CreateTable("", testConfig())
	require.NoError(t, err)
	require.NotEmpty(t, generated.ID)

	stored, ok, err := repo.GetTable("t-1")
	require.NoError(t, err)
	require.True(t, ok, "created table must be persisted")
	require.Equal(t, "t-1", stored.ID)
}

func TestUnknownTable(t *testing.T) {
	t.Parallel()

	r, _, _ := newTestRoom(t)

	require.ErrorIs(t, r.Join("nope", "alice", 200), ErrUnknownTable)
	_, err := r.GetTable("nope", "")
	require.ErrorIs(t, err, ErrUnknownTable)
	_, err = r.Advance("nope")
	require.ErrorIs(t, err, ErrUnknownTable)
}

func TestJoinWritesThroughToRepository(t *testing.T) {
	t.Parallel()

	r, repo, funds := newTestRoom(t)
	_, err := r.CreateTable("t-1", testConfig())
	require.NoError(t, err)
	seatTwo(t, r, funds, "t-1")

	stored, ok, err := repo.GetTable("t-1")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, stored.OccupiedSeats())
}

func TestPauseBlocksMutationsNotReads(t *testing.T) {
	t.Parallel()

	r, _, funds := newTestRoom(t)
	_, err := r.CreateTable("t-1", testConfig())
	require.NoError(t, err)
	seatTwo(t, r, funds, "t-1")

	require.ErrorIs(t, r.Pause("wrong-token", "t-1"), ErrUnauthorized)
	require.NoError(t, r.Pause(adminToken, "t-1"))

	funds.Seed("carol", 1000)
	require.ErrorIs(t, r.Join("t-1", "carol", 200), ErrTablePaused)
	_, err = r.Advance("t-1")
	require.ErrorIs(t, err, ErrTablePaused)
	_, err = r.Act("t-1", "alice", domain.Action{Kind: domain.ActionCheck})
	require.ErrorIs(t, err, ErrTablePaused)

	table, err := r.GetTable("t-1", "")
	require.NoError(t, err)
	require.Equal(t, 2, table.OccupiedSeats())

	require.NoError(t, r.Unpause(adminToken, "t-1"))
	require.NoError(t, r.Join("t-1", "carol", 200))
}

func TestRedactionHidesHoleCardsUntilShowdown(t *testing.T) {
	t.Parallel()

	r, _, funds := newTestRoom(t)
	_, err := r.CreateTable("t-1", testConfig())
	require.NoError(t, err)
	seatTwo(t, r, funds, "t-1")
	_, err = r.Advance("t-1")
	require.NoError(t, err)

	// A spectator sees no hole cards.
	table, err := r.GetTable("t-1", "")
	require.NoError(t, err)
	for i := range table.Seats {
		require.Empty(t, table.Seats[i].HoleCards)
	}

	// A player sees only their own.
	table, err = r.GetTable("t-1", "alice")
	require.NoError(t, err)
	position, ok := table.SeatOf("alice")
	require.True(t, ok)
	require.Len(t, table.Seats[position].HoleCards, domain.HoleCardCount)
	for i := range table.Seats {
		if i == position {
			continue
		}
		require.Empty(t, table.Seats[i].HoleCards)
	}

	// GetSeat always shows the caller their own cards.
	seat, err := r.GetSeat("t-1", "bob")
	require.NoError(t, err)
	require.Len(t, seat.HoleCards, domain.HoleCardCount)

	_, err = r.GetSeat("t-1", "spectator")
	require.ErrorIs(t, err, domain.ErrPlayerNotAtTable)
}

func TestHandHistoryRecorded(t *testing.T) {
	t.Parallel()

	r, _, funds := newTestRoom(t)
	_, err := r.CreateTable("t-1", testConfig())
	require.NoError(t, err)
	seatTwo(t, r, funds, "t-1")
	_, err = r.Advance("t-1")
	require.NoError(t, err)

	table, err := r.GetTable("t-1", "")
	require.NoError(t, err)
	handID := table.HandID
	require.NotEmpty(t, handID)

	actor := func() string {
		current, err := r.GetTable("t-1", "")
		require.NoError(t, err)
		return current.Seats[current.CurrentPosition].Occupant
	}

	first := actor()
	_, err = r.Act("t-1", first, domain.Action{Kind: domain.ActionBet, Amount: 50})
	require.NoError(t, err)
	settlement, err := r.Act("t-1", actor(), domain.Action{Kind: domain.ActionFold})
	require.NoError(t, err)
	require.NotNil(t, settlement)

	hands, err := r.ListHands("t-1")
	require.NoError(t, err)
	require.Len(t, hands, 1)
	require.Equal(t, handID, hands[0].HandID)
	require.Equal(t, first, hands[0].Winner)
	require.Equal(t, domain.Chips(50), hands[0].Amount)
	require.True(t, hands[0].Uncontested)
	require.NotNil(t, hands[0].EndedAt)

	actions, err := r.ListActions(handID)
	require.NoError(t, err)
	require.Len(t, actions, 2)
	require.Equal(t, domain.ActionBet, actions[0].Kind)
	require.NotNil(t, actions[0].Amount)
	require.Equal(t, domain.Chips(50), *actions[0].Amount)
	require.Equal(t, domain.ActionFold, actions[1].Kind)
	require.Nil(t, actions[1].Amount)
}

func TestRestoreReloadsTables(t *testing.T) {
	t.Parallel()

	repo := persistence.NewInMemoryRepository()
	funds := ledger.NewInMemory()

	first, err := New(repo, funds, rules.NewSeededSource(7), NewStaticTokenAuthorizer(adminToken), zerolog.Nop())
	require.NoError(t, err)
	_, err = first.CreateTable("t-1", testConfig())
	require.NoError(t, err)
	funds.Seed("alice", 1000)
	funds.Seed("bob", 1000)
	require.NoError(t, first.Join("t-1", "alice", 200))
	require.NoError(t, first.Join("t-1", "bob", 200))

	second, err := New(repo, funds, rules.NewSeededSource(7), NewStaticTokenAuthorizer(adminToken), zerolog.Nop())
	require.NoError(t, err)
	restored, err := second.Restore()
	require.NoError(t, err)
	require.Equal(t, 1, restored)

	table, err := second.GetTable("t-1", "")
	require.NoError(t, err)
	require.Equal(t, 2, table.OccupiedSeats())

	// The restored table plays on.
	_, err = second.Advance("t-1")
	require.NoError(t, err)
	table, err = second.GetTable("t-1", "")
	require.NoError(t, err)
	require.Equal(t, domain.StatePreFlop, table.State)
}

func TestCloseTable(t *testing.T) {
	t.Parallel()

	r, repo, funds := newTestRoom(t)
	_, err := r.CreateTable("t-1", testConfig())
	require.NoError(t, err)
	seatTwo(t, r, funds, "t-1")

	require.ErrorIs(t, r.CloseTable("wrong", "t-1"), ErrUnauthorized)
	require.ErrorIs(t, r.CloseTable(adminToken, "t-1"), domain.ErrInvalidAction)

	require.NoError(t, r.Leave("t-1", "alice"))
	require.NoError(t, r.Leave("t-1", "bob"))
	require.NoError(t, r.CloseTable(adminToken, "t-1"))

	_, err = r.GetTable("t-1", "")
	require.ErrorIs(t, err, ErrUnknownTable)
	_, ok, err := repo.GetTable("t-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestEmptyAdminTokenRejectsEverything(t *testing.T) {
	t.Parallel()

	auth := NewStaticTokenAuthorizer("")
	require.ErrorIs(t, auth.Authorize(""), ErrUnauthorized)
	require.ErrorIs(t, auth.Authorize("anything"), ErrUnauthorized)
}
