package room

import (
	"fmt"

	"github.com/cardroom/engine/internal/domain"
	"github.com/cardroom/engine/internal/persistence"
)

// SeatView is a player's own seat, hole cards included.
type SeatView struct {
	Position     int           `json:"position"`
	Occupant     string        `json:"occupant"`
	Stake        domain.Chips  `json:"stake"`
	CurrentBet   domain.Chips  `json:"current_bet"`
	IsActive     bool          `json:"is_active"`
	IsSittingOut bool          `json:"is_sitting_out"`
	HasActed     bool          `json:"has_acted"`
	HoleCards    []domain.Card `json:"hole_cards,omitempty"`
}

// RedactTable clones t and strips hole cards the viewer may not see: before
// the showdown only the viewer's own cards survive redaction.
func RedactTable(t *domain.Table, viewer string) *domain.Table {
	out := t.Clone()
	if out.State == domain.StateShowdown || out.State == domain.StateComplete {
		return out
	}
	for i := range out.Seats {
		if out.Seats[i].Occupant == viewer && viewer != "" {
			continue
		}
		out.Seats[i].HoleCards = nil
	}
	return out
}

// GetTable returns the table redacted for the given viewer. An empty viewer
// sees no hole cards before showdown.
func (r *Room) GetTable(tableID, viewer string) (*domain.Table, error) {
	handle, err := r.handle(tableID)
	if err != nil {
		return nil, err
	}
	handle.mu.Lock()
	defer handle.mu.Unlock()
	return RedactTable(handle.engine.Table(), viewer), nil
}

// ListTables returns every registered table, fully redacted.
func (r *Room) ListTables() []*domain.Table {
	r.mu.RLock()
	handles := make(map[string]*tableHandle, len(r.tables))
	for id, handle := range r.tables {
		handles[id] = handle
	}
	r.mu.RUnlock()

	out := make([]*domain.Table, 0, len(handles))
	for _, handle := range handles {
		handle.mu.Lock()
		out = append(out, RedactTable(handle.engine.Table(), ""))
		handle.mu.Unlock()
	}
	return out
}

// GetSeat returns the account's own seat, hole cards visible.
func (r *Room) GetSeat(tableID, account string) (SeatView, error) {
	handle, err := r.handle(tableID)
	if err != nil {
		return SeatView{}, err
	}
	handle.mu.Lock()
	defer handle.mu.Unlock()

	table := handle.engine.Table()
	position, ok := table.SeatOf(account)
	if !ok {
		return SeatView{}, fmt.Errorf("%w: %s", domain.ErrPlayerNotAtTable, account)
	}
	seat := table.Seats[position]
	return SeatView{
		Position:     position,
		Occupant:     seat.Occupant,
		Stake:        seat.Stake,
		CurrentBet:   seat.CurrentBet,
		IsActive:     seat.IsActive,
		IsSittingOut: seat.IsSittingOut,
		HasActed:     seat.HasActed,
		HoleCards:    append([]domain.Card(nil), seat.HoleCards...),
	}, nil
}

// GetCommunity returns the board as dealt so far.
func (r *Room) GetCommunity(tableID string) ([]domain.Card, error) {
	handle, err := r.handle(tableID)
	if err != nil {
		return nil, err
	}
	handle.mu.Lock()
	defer handle.mu.Unlock()
	return append([]domain.Card(nil), handle.engine.Table().CommunityCards...), nil
}

// ListHands returns the table's hand history, oldest first.
func (r *Room) ListHands(tableID string) ([]persistence.HandRecord, error) {
	if _, err := r.handle(tableID); err != nil {
		return nil, err
	}
	return r.repo.ListHands(tableID)
}

// ListActions returns the action log for one hand.
func (r *Room) ListActions(handID string) ([]persistence.ActionRecord, error) {
	return r.repo.ListActions(handID)
}
