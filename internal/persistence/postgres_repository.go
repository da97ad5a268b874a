package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cardroom/engine/internal/domain"
)

type postgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) UpsertTable(table *domain.Table) error {
	snapshot, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("marshal table snapshot: %w", err)
	}
	const q = `
INSERT INTO tables (id, snapshot, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (id) DO UPDATE SET
  snapshot = EXCLUDED.snapshot,
  updated_at = now()
`
	_, err = r.db.ExecContext(context.Background(), q, table.ID, snapshot)
	return err
}

func (r *postgresRepository) GetTable(tableID string) (*domain.Table, bool, error) {
	const q = `SELECT snapshot FROM tables WHERE id = $1`
	var raw []byte
	err := r.db.QueryRowContext(context.Background(), q, tableID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var table domain.Table
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, false, fmt.Errorf("unmarshal snapshot for table %s: %w", tableID, err)
	}
	return &table, true, nil
}

func (r *postgresRepository) ListTables() ([]*domain.Table, error) {
	const q = `SELECT snapshot FROM tables ORDER BY id ASC`
	rows, err := r.db.QueryContext(context.Background(), q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*domain.Table, 0, 16)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var table domain.Table
		if err := json.Unmarshal(raw, &table); err != nil {
			return nil, fmt.Errorf("unmarshal table snapshot: %w", err)
		}
		out = append(out, &table)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postgresRepository) DeleteTable(tableID string) error {
	const q = `DELETE FROM tables WHERE id = $1`
	result, err := r.db.ExecContext(context.Background(), q, tableID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrTableNotFound
	}
	return nil
}

func (r *postgresRepository) CreateHand(record HandRecord) error {
	const q = `
INSERT INTO hands (
  hand_id, table_id, hand_no, started_at, ended_at, final_state, winner, winner_seat, amount, category, uncontested
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`
	_, err := r.db.ExecContext(context.Background(), q,
		record.HandID,
		record.TableID,
		int64(record.HandNo),
		record.StartedAt,
		record.EndedAt,
		string(record.FinalState),
		record.Winner,
		record.WinnerSeat,
		int64(record.Amount),
		record.Category,
		record.Uncontested,
	)
	if isUniqueViolation(err) {
		return ErrHandAlreadyExists
	}
	if isForeignKeyViolation(err) {
		return ErrTableNotFound
	}
	return err
}

func (r *postgresRepository) CompleteHand(handID string, final HandRecord) error {
	const q = `
UPDATE hands
SET ended_at=$2, final_state=$3, winner=$4, winner_seat=$5, amount=$6, category=$7, uncontested=$8
WHERE hand_id = $1
`
	result, err := r.db.ExecContext(context.Background(), q,
		handID,
		final.EndedAt,
		string(final.FinalState),
		final.Winner,
		final.WinnerSeat,
		int64(final.Amount),
		final.Category,
		final.Uncontested,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrHandNotFound
	}
	return nil
}

func (r *postgresRepository) AppendAction(record ActionRecord) error {
	var amount any
	if record.Amount != nil {
		amount = int64(*record.Amount)
	}
	const q = `
INSERT INTO actions (
  hand_id, street, position, account, kind, amount, at
) VALUES ($1,$2,$3,$4,$5,$6,$7)
`
	_, err := r.db.ExecContext(context.Background(), q,
		record.HandID,
		string(record.Street),
		record.Position,
		record.Account,
		string(record.Kind),
		amount,
		record.At,
	)
	if isForeignKeyViolation(err) {
		return ErrHandNotFound
	}
	return err
}

func (r *postgresRepository) ListHands(tableID string) ([]HandRecord, error) {
	const q = `
SELECT hand_id, table_id, hand_no, started_at, ended_at, final_state, winner, winner_seat, amount, category, uncontested
FROM hands
WHERE table_id = $1
ORDER BY hand_no ASC, hand_id ASC
`
	rows, err := r.db.QueryContext(context.Background(), q, tableID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]HandRecord, 0, 32)
	for rows.Next() {
		var rec HandRecord
		var finalState string
		var amount int64
		if err := rows.Scan(
			&rec.HandID,
			&rec.TableID,
			&rec.HandNo,
			&rec.StartedAt,
			&rec.EndedAt,
			&finalState,
			&rec.Winner,
			&rec.WinnerSeat,
			&amount,
			&rec.Category,
			&rec.Uncontested,
		); err != nil {
			return nil, err
		}
		rec.FinalState = domain.GameState(finalState)
		rec.Amount = domain.Chips(amount)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *postgresRepository) ListActions(handID string) ([]ActionRecord, error) {
	const q = `
SELECT hand_id, street, position, account, kind, amount, at
FROM actions
WHERE hand_id = $1
ORDER BY id ASC
`
	rows, err := r.db.QueryContext(context.Background(), q, handID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]ActionRecord, 0, 64)
	for rows.Next() {
		var rec ActionRecord
		var street string
		var kind string
		var amount sql.NullInt64
		if err := rows.Scan(
			&rec.HandID,
			&street,
			&rec.Position,
			&rec.Account,
			&kind,
			&amount,
			&rec.At,
		); err != nil {
			return nil, err
		}
		rec.Street = domain.GameState(street)
		rec.Kind = domain.ActionKind(kind)
		if amount.Valid {
			value := domain.Chips(amount.Int64)
			rec.Amount = &value
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	return hasSQLState(err, "23505")
}

func isForeignKeyViolation(err error) bool {
	return hasSQLState(err, "23503")
}

type sqlStateProvider interface {
	SQLState() string
}

func hasSQLState(err error, code string) bool {
	if err == nil {
		return false
	}
	var stateErr sqlStateProvider
	if errors.As(err, &stateErr) && stateErr.SQLState() == code {
		return true
	}
	// Fallback for drivers that only surface SQLSTATE in error text.
	return strings.Contains(err.Error(), "SQLSTATE "+code)
}
