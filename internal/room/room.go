// Package room manages the set of live tables: registration, per-table
// serialization of mutations, admin pause, write-through persistence and
// reload. The engine owns single-table semantics; the room owns everything
// across tables.
package room

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cardroom/engine/internal/domain"
	"github.com/cardroom/engine/internal/engine"
	"github.com/cardroom/engine/internal/persistence"
	"github.com/cardroom/engine/internal/rules"
)

var (
	ErrUnknownTable = errors.New("unknown table")
	ErrTablePaused  = errors.New("table is paused")
	ErrUnauthorized = errors.New("unauthorized")
)

// Authorizer gates the admin surface: pause, unpause and close.
type Authorizer interface {
	Authorize(token string) error
}

// StaticTokenAuthorizer accepts exactly one pre-shared token. An empty
// configured token rejects every request.
type StaticTokenAuthorizer struct {
	token string
}

func NewStaticTokenAuthorizer(token string) StaticTokenAuthorizer {
	return StaticTokenAuthorizer{token: token}
}

func (a StaticTokenAuthorizer) Authorize(token string) error {
	if a.token == "" || token != a.token {
		return ErrUnauthorized
	}
	return nil
}

type tableHandle struct {
	mu     sync.Mutex
	engine *engine.Engine
	paused bool
}

type Room struct {
	log    zerolog.Logger
	repo   persistence.Repository
	ledger engine.Ledger
	source rules.CardSource
	auth   Authorizer

	mu     sync.RWMutex
	tables map[string]*tableHandle
}

func New(repo persistence.Repository, ledger engine.Ledger, source rules.CardSource, auth Authorizer, log zerolog.Logger) (*Room, error) {
	if repo == nil {
		return nil, fmt.Errorf("%w: nil repository", domain.ErrInvalidConfiguration)
	}
	if ledger == nil {
		return nil, fmt.Errorf("%w: nil ledger", domain.ErrInvalidConfiguration)
	}
	if auth == nil {
		return nil, fmt.Errorf("%w: nil authorizer", domain.ErrInvalidConfiguration)
	}
	return &Room{
		log:    log,
		repo:   repo,
		ledger: ledger,
		source: source,
		auth:   auth,
		tables: make(map[string]*tableHandle),
	}, nil
}

// Restore reloads every persisted table snapshot into a live handle. Called
// once at startup, before the room serves traffic.
func (r *Room) Restore() (int, error) {
	snapshots, err := r.repo.ListTables()
	if err != nil {
		return 0, fmt.Errorf("list persisted tables: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	restored := 0
	for _, snapshot := range snapshots {
		if _, exists := r.tables[snapshot.ID]; exists {
			continue
		}
		eng, err := engine.New(snapshot, rules.NewDealer(r.source), r.ledger)
		if err != nil {
			return restored, fmt.Errorf("restore table %s: %w", snapshot.ID, err)
		}
		r.tables[snapshot.ID] = &tableHandle{engine: eng}
		restored++
		r.log.Info().Str("table", snapshot.ID).Str("state", string(snapshot.State)).Msg("table restored")
	}
	return restored, nil
}

// CreateTable registers a new table. An empty id gets a generated one.
func (r *Room) CreateTable(id string, config domain.TableConfig) (*domain.Table, error) {
	if id == "" {
		generated, err := newTableID()
		if err != nil {
			return nil, err
		}
		id = generated
	}

	table, err := domain.NewTable(id, config)
	if err != nil {
		return nil, err
	}
	eng, err := engine.New(table, rules.NewDealer(r.source), r.ledger)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if _, exists := r.tables[id]; exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: table %s already exists", domain.ErrInvalidConfiguration, id)
	}
	r.tables[id] = &tableHandle{engine: eng}
	r.mu.Unlock()

	if err := r.repo.UpsertTable(table); err != nil {
		return nil, fmt.Errorf("persist table %s: %w", id, err)
	}
	r.log.Info().Str("table", id).Uint8("max_seats", config.MaxSeats).Msg("table created")
	return RedactTable(table, ""), nil
}

// CloseTable marks the table inactive and drops it from the registry. Seated
// players must leave first.
func (r *Room) CloseTable(token, tableID string) error {
	if err := r.auth.Authorize(token); err != nil {
		return err
	}
	handle, err := r.handle(tableID)
	if err != nil {
		return err
	}
	handle.mu.Lock()
	defer handle.mu.Unlock()

	table := handle.engine.Table()
	if table.OccupiedSeats() > 0 {
		return fmt.Errorf("%w: %d seats still occupied", domain.ErrInvalidAction, table.OccupiedSeats())
	}
	table.IsActive = false

	r.mu.Lock()
	delete(r.tables, tableID)
	r.mu.Unlock()

	if err := r.repo.DeleteTable(tableID); err != nil && !errors.Is(err, persistence.ErrTableNotFound) {
		return err
	}
	r.log.Info().Str("table", tableID).Msg("table closed")
	return nil
}

// Pause blocks every mutation on the table until Unpause. Reads stay open.
func (r *Room) Pause(token, tableID string) error {
	return r.setPaused(token, tableID, true)
}

func (r *Room) Unpause(token, tableID string) error {
	return r.setPaused(token, tableID, false)
}

func (r *Room) setPaused(token, tableID string, paused bool) error {
	if err := r.auth.Authorize(token); err != nil {
		return err
	}
	handle, err := r.handle(tableID)
	if err != nil {
		return err
	}
	handle.mu.Lock()
	handle.paused = paused
	handle.mu.Unlock()
	r.log.Info().Str("table", tableID).Bool("paused", paused).Msg("pause state changed")
	return nil
}

func (r *Room) Join(tableID, account string, buyIn domain.Chips) error {
	_, err := r.mutate(tableID, func(eng *engine.Engine) (*engine.Settlement, error) {
		return nil, eng.Join(account, buyIn)
	})
	if err != nil {
		return err
	}
	r.log.Info().Str("table", tableID).Str("account", account).Uint64("buy_in", uint64(buyIn)).Msg("player joined")
	return nil
}

func (r *Room) Leave(tableID, account string) error {
	_, err := r.mutate(tableID, func(eng *engine.Engine) (*engine.Settlement, error) {
		return eng.Leave(account)
	})
	if err != nil {
		return err
	}
	r.log.Info().Str("table", tableID).Str("account", account).Msg("player left")
	return nil
}

func (r *Room) SitOut(tableID, account string) error {
	_, err := r.mutate(tableID, func(eng *engine.Engine) (*engine.Settlement, error) {
		return nil, eng.SitOut(account)
	})
	return err
}

func (r *Room) SitIn(tableID, account string) error {
	_, err := r.mutate(tableID, func(eng *engine.Engine) (*engine.Settlement, error) {
		return nil, eng.SitIn(account)
	})
	return err
}

// Act applies a player action, records it in the hand history and persists
// the committed snapshot.
func (r *Room) Act(tableID, account string, action domain.Action) (*engine.Settlement, error) {
	handle, err := r.handle(tableID)
	if err != nil {
		return nil, err
	}
	handle.mu.Lock()
	defer handle.mu.Unlock()
	if handle.paused {
		return nil, ErrTablePaused
	}

	table := handle.engine.Table()
	record := persistence.ActionRecord{
		HandID:  table.HandID,
		Street:  table.State,
		Account: account,
		Kind:    action.Kind,
		At:      time.Now().UTC(),
	}
	if position, ok := table.SeatOf(account); ok {
		record.Position = position
	}
	if action.Kind == domain.ActionBet || action.Kind == domain.ActionRaise {
		amount := action.Amount
		record.Amount = &amount
	}

	settlement, err := handle.engine.Act(account, action)
	if err != nil {
		return nil, err
	}

	if err := r.repo.AppendAction(record); err != nil {
		r.log.Warn().Err(err).Str("table", tableID).Str("hand", record.HandID).Msg("action not recorded")
	}
	if err := r.afterMutation(tableID, handle, record.HandID, settlement); err != nil {
		return nil, err
	}
	return settlement, nil
}

// Advance drives the table state machine: starting hands, pushing completed
// rounds, settling showdowns.
func (r *Room) Advance(tableID string) (*engine.Settlement, error) {
	handle, err := r.handle(tableID)
	if err != nil {
		return nil, err
	}
	handle.mu.Lock()
	defer handle.mu.Unlock()
	if handle.paused {
		return nil, ErrTablePaused
	}

	previousHandID := handle.engine.Table().HandID
	settlement, err := handle.engine.AdvanceState()
	if err != nil {
		return nil, err
	}
	if err := r.afterMutation(tableID, handle, previousHandID, settlement); err != nil {
		return nil, err
	}
	return settlement, nil
}

// afterMutation persists the committed snapshot and keeps hand history in
// step: a fresh HandID opens a record, a settlement closes one. Caller holds
// the table lock.
func (r *Room) afterMutation(tableID string, handle *tableHandle, previousHandID string, settlement *engine.Settlement) error {
	table := handle.engine.Table()

	if table.HandID != "" && table.HandID != previousHandID {
		err := r.repo.CreateHand(persistence.HandRecord{
			HandID:     table.HandID,
			TableID:    tableID,
			HandNo:     table.HandNo,
			StartedAt:  time.Now().UTC(),
			FinalState: table.State,
			WinnerSeat: -1,
		})
		if err != nil && !errors.Is(err, persistence.ErrHandAlreadyExists) {
			r.log.Warn().Err(err).Str("table", tableID).Str("hand", table.HandID).Msg("hand not recorded")
		}
	}

	if settlement != nil {
		ended := time.Now().UTC()
		err := r.repo.CompleteHand(settlement.HandID, persistence.HandRecord{
			HandID:      settlement.HandID,
			TableID:     tableID,
			HandNo:      table.HandNo,
			EndedAt:     &ended,
			FinalState:  table.State,
			Winner:      settlement.Winner,
			WinnerSeat:  settlement.Position,
			Amount:      settlement.Amount,
			Category:    settlementCategory(settlement),
			Uncontested: settlement.Uncontested,
		})
		if err != nil && !errors.Is(err, persistence.ErrHandNotFound) {
			r.log.Warn().Err(err).Str("table", tableID).Str("hand", settlement.HandID).Msg("settlement not recorded")
		}
		r.log.Info().
			Str("table", tableID).
			Str("hand", settlement.HandID).
			Str("winner", settlement.Winner).
			Uint64("amount", uint64(settlement.Amount)).
			Bool("uncontested", settlement.Uncontested).
			Msg("hand settled")
	}

	if err := r.repo.UpsertTable(table); err != nil {
		return fmt.Errorf("persist table %s: %w", tableID, err)
	}
	return nil
}

func settlementCategory(settlement *engine.Settlement) string {
	if settlement.Uncontested {
		return ""
	}
	return settlement.Value.Category.String()
}

// mutate runs fn under the table lock and persists the committed snapshot.
func (r *Room) mutate(tableID string, fn func(*engine.Engine) (*engine.Settlement, error)) (*engine.Settlement, error) {
	handle, err := r.handle(tableID)
	if err != nil {
		return nil, err
	}
	handle.mu.Lock()
	defer handle.mu.Unlock()
	if handle.paused {
		return nil, ErrTablePaused
	}

	previousHandID := handle.engine.Table().HandID
	settlement, err := fn(handle.engine)
	if err != nil {
		return nil, err
	}
	if err := r.afterMutation(tableID, handle, previousHandID, settlement); err != nil {
		return nil, err
	}
	return settlement, nil
}

func (r *Room) handle(tableID string) (*tableHandle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handle, ok := r.tables[tableID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, tableID)
	}
	return handle, nil
}

func newTableID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate table id: %w", err)
	}
	return "t-" + hex.EncodeToString(buf), nil
}
