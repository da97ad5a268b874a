package persistence

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/cardroom/engine/internal/domain"
)

var (
	ErrTableNotFound     = errors.New("table not found")
	ErrHandNotFound      = errors.New("hand not found")
	ErrHandAlreadyExists = errors.New("hand already exists")
)

// HandRecord is one row of hand history. A record is created when the hand
// starts and completed with the settlement when it ends.
type HandRecord struct {
	HandID      string
	TableID     string
	HandNo      uint64
	StartedAt   time.Time
	EndedAt     *time.Time
	FinalState  domain.GameState
	Winner      string
	WinnerSeat  int
	Amount      domain.Chips
	Category    string
	Uncontested bool
}

// ActionRecord is one player action within a hand, in the order taken.
type ActionRecord struct {
	HandID   string
	Street   domain.GameState
	Position int
	Account  string
	Kind     domain.ActionKind
	Amount   *domain.Chips
	At       time.Time
}

// Repository stores table snapshots for reload plus per-hand history.
// Snapshots are written through after every committed mutation, so the
// stored table is never mid-transition.
type Repository interface {
	UpsertTable(table *domain.Table) error
	GetTable(tableID string) (*domain.Table, bool, error)
	ListTables() ([]*domain.Table, error)
	DeleteTable(tableID string) error
	CreateHand(record HandRecord) error
	CompleteHand(handID string, final HandRecord) error
	AppendAction(record ActionRecord) error
	ListHands(tableID string) ([]HandRecord, error)
	ListActions(handID string) ([]ActionRecord, error)
}

type inMemoryRepository struct {
	mu sync.RWMutex

	tables  map[string]*domain.Table
	hands   map[string]HandRecord
	actions map[string][]ActionRecord
}

func NewInMemoryRepository() Repository {
	return &inMemoryRepository{
		tables:  make(map[string]*domain.Table),
		hands:   make(map[string]HandRecord),
		actions: make(map[string][]ActionRecord),
	}
}

func (r *inMemoryRepository) UpsertTable(table *domain.Table) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tables[table.ID] = table.Clone()
	return nil
}

func (r *inMemoryRepository) GetTable(tableID string) (*domain.Table, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	table, ok := r.tables[tableID]
	if !ok {
		return nil, false, nil
	}
	return table.Clone(), true, nil
}

func (r *inMemoryRepository) ListTables() ([]*domain.Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domain.Table, 0, len(r.tables))
	for _, table := range r.tables {
		out = append(out, table.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *inMemoryRepository) DeleteTable(tableID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tables[tableID]; !ok {
		return ErrTableNotFound
	}
	delete(r.tables, tableID)
	// Hand history cascades with the table, matching the SQL schema.
	for handID, record := range r.hands {
		if record.TableID != tableID {
			continue
		}
		delete(r.hands, handID)
		delete(r.actions, handID)
	}
	return nil
}

func (r *inMemoryRepository) CreateHand(record HandRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tables[record.TableID]; !ok {
		return ErrTableNotFound
	}
	if _, exists := r.hands[record.HandID]; exists {
		return ErrHandAlreadyExists
	}
	r.hands[record.HandID] = cloneHandRecord(record)
	return nil
}

func (r *inMemoryRepository) CompleteHand(handID string, final HandRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, exists := r.hands[handID]
	if !exists {
		return ErrHandNotFound
	}
	// Only settlement fields update; identity and start time are fixed at
	// CreateHand, matching the SQL UPDATE column list.
	record.EndedAt = cloneTimePtr(final.EndedAt)
	record.FinalState = final.FinalState
	record.Winner = final.Winner
	record.WinnerSeat = final.WinnerSeat
	record.Amount = final.Amount
	record.Category = final.Category
	record.Uncontested = final.Uncontested
	r.hands[handID] = record
	return nil
}

func (r *inMemoryRepository) AppendAction(record ActionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.hands[record.HandID]; !exists {
		return ErrHandNotFound
	}
	r.actions[record.HandID] = append(r.actions[record.HandID], cloneActionRecord(record))
	return nil
}

func (r *inMemoryRepository) ListHands(tableID string) ([]HandRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	hands := make([]HandRecord, 0, len(r.hands))
	for _, record := range r.hands {
		if record.TableID != tableID {
			continue
		}
		hands = append(hands, cloneHandRecord(record))
	}
	sort.Slice(hands, func(i, j int) bool {
		if hands[i].HandNo == hands[j].HandNo {
			return hands[i].HandID < hands[j].HandID
		}
		return hands[i].HandNo < hands[j].HandNo
	})
	return hands, nil
}

func (r *inMemoryRepository) ListActions(handID string) ([]ActionRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := r.actions[handID]
	out := make([]ActionRecord, 0, len(records))
	for _, record := range records {
		out = append(out, cloneActionRecord(record))
	}
	return out, nil
}

func cloneTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	out := *t
	return &out
}

func cloneHandRecord(record HandRecord) HandRecord {
	out := record
	if record.EndedAt != nil {
		endedAt := *record.EndedAt
		out.EndedAt = &endedAt
	}
	return out
}

func cloneActionRecord(record ActionRecord) ActionRecord {
	out := record
	if record.Amount != nil {
		amount := *record.Amount
		out.Amount = &amount
	}
	return out
}
