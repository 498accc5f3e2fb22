package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/chorechart/internal/calendar"
	"github.com/dukerupert/chorechart/internal/model"
)

type TallyStore struct {
	db *sql.DB
}

func NewTallyStore(db *sql.DB) *TallyStore {
	return &TallyStore{db: db}
}

func scanTally(scanner interface{ Scan(...any) error }) (*model.TrashTally, error) {
	var t model.TrashTally
	var participant string
	var last sql.NullString

	err := scanner.Scan(&t.ID, &participant, &t.Month, &t.Count, &last, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}

	t.Participant = model.Participant(participant)
	if last.Valid {
		d, err := calendar.Parse(last.String)
		if err != nil {
			return nil, fmt.Errorf("parse last increment date: %w", err)
		}
		t.LastIncrementDate = &d
	}
	return &t, nil
}

const tallyCols = `id, participant, month, count, last_increment_date, updated_at`

// Get returns the tally for a participant and month, or nil if none exists.
func (s *TallyStore) Get(ctx context.Context, p model.Participant, month string) (*model.TrashTally, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+tallyCols+` FROM trash_tallies WHERE participant = ? AND month = ?`,
		string(p), month,
	)
	t, err := scanTally(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tally: %w", err)
	}
	return t, nil
}

// Ensure returns the tally for a participant and month, creating a zero
// record if none exists.
func (s *TallyStore) Ensure(ctx context.Context, p model.Participant, month string) (*model.TrashTally, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO trash_tallies (participant, month) VALUES (?, ?)
		 ON CONFLICT(participant, month) DO NOTHING`,
		string(p), month,
	)
	if err != nil {
		return nil, fmt.Errorf("ensure tally: %w", err)
	}
	return s.Get(ctx, p, month)
}

// CompareAndSet writes count and last increment date only if the stored row
// still matches prev. It reports whether the write was applied.
func (s *TallyStore) CompareAndSet(ctx context.Context, prev *model.TrashTally, count int, last *calendar.Date) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE trash_tallies
		 SET count = ?, last_increment_date = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND count = ? AND last_increment_date IS ?`,
		count, nullDate(last), prev.ID, prev.Count, nullDate(prev.LastIncrementDate),
	)
	if err != nil {
		return false, fmt.Errorf("update tally: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// ListByMonth returns every tally recorded for a month.
func (s *TallyStore) ListByMonth(ctx context.Context, month string) ([]model.TrashTally, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+tallyCols+` FROM trash_tallies WHERE month = ? ORDER BY participant ASC`,
		month,
	)
	if err != nil {
		return nil, fmt.Errorf("list tallies: %w", err)
	}
	defer rows.Close()

	var tallies []model.TrashTally
	for rows.Next() {
		t, err := scanTally(rows)
		if err != nil {
			return nil, fmt.Errorf("scan tally: %w", err)
		}
		tallies = append(tallies, *t)
	}
	return tallies, rows.Err()
}

func nullDate(d *calendar.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}
