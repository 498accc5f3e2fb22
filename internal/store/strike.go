package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/chorechart/internal/model"
)

type StrikeStore struct {
	db *sql.DB
}

func NewStrikeStore(db *sql.DB) *StrikeStore {
	return &StrikeStore{db: db}
}

func scanStrike(scanner interface{ Scan(...any) error }) (*model.Strike, error) {
	var st model.Strike
	var by, to string
	var occurrenceID sql.NullInt64

	err := scanner.Scan(&st.ID, &by, &to, &occurrenceID, &st.Reason, &st.Month, &st.CreatedAt)
	if err != nil {
		return nil, err
	}

	st.IssuedBy = model.Participant(by)
	st.IssuedTo = model.Participant(to)
	if occurrenceID.Valid {
		st.OccurrenceID = &occurrenceID.Int64
	}
	st.Attachments = []model.Attachment{}
	return &st, nil
}

const strikeCols = `id, issued_by, issued_to, occurrence_id, reason, month, created_at`

// Insert records a strike with its attachments and returns the new id.
func (s *StrikeStore) Insert(ctx context.Context, st *model.Strike) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var occurrenceID sql.NullInt64
	if st.OccurrenceID != nil {
		occurrenceID = sql.NullInt64{Int64: *st.OccurrenceID, Valid: true}
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO strikes (issued_by, issued_to, occurrence_id, reason, month, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(st.IssuedBy), string(st.IssuedTo), occurrenceID, st.Reason, st.Month, st.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert strike: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	if err := insertAttachments(ctx, tx, "strike_id", id, st.Attachments); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit strike: %w", err)
	}
	return id, nil
}

func (s *StrikeStore) GetByID(ctx context.Context, id int64) (*model.Strike, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+strikeCols+` FROM strikes WHERE id = ?`, id)
	st, err := scanStrike(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get strike: %w", err)
	}
	strikes, err := s.withAttachments(ctx, []model.Strike{*st})
	if err != nil {
		return nil, err
	}
	return &strikes[0], nil
}

// ListByMonth returns the strikes of a month, newest first.
func (s *StrikeStore) ListByMonth(ctx context.Context, month string) ([]model.Strike, error) {
	return s.list(ctx, `WHERE month = ?`, month)
}

// ListByOccurrence returns the strikes referencing an occurrence, newest first.
func (s *StrikeStore) ListByOccurrence(ctx context.Context, occurrenceID int64) ([]model.Strike, error) {
	return s.list(ctx, `WHERE occurrence_id = ?`, occurrenceID)
}

// CountForRecipient returns how many strikes a participant received in a month.
func (s *StrikeStore) CountForRecipient(ctx context.Context, p model.Participant, month string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM strikes WHERE issued_to = ? AND month = ?`,
		string(p), month,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count strikes: %w", err)
	}
	return n, nil
}

// ExistsForOccurrence reports whether any strike references the occurrence.
func (s *StrikeStore) ExistsForOccurrence(ctx context.Context, occurrenceID int64) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM strikes WHERE occurrence_id = ?)`,
		occurrenceID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check strike for occurrence: %w", err)
	}
	return exists != 0, nil
}

func (s *StrikeStore) list(ctx context.Context, where string, args ...any) ([]model.Strike, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+strikeCols+` FROM strikes `+where+` ORDER BY created_at DESC, id DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list strikes: %w", err)
	}
	defer rows.Close()

	strikes := []model.Strike{}
	for rows.Next() {
		st, err := scanStrike(rows)
		if err != nil {
			return nil, fmt.Errorf("scan strike: %w", err)
		}
		strikes = append(strikes, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	return s.withAttachments(ctx, strikes)
}

func (s *StrikeStore) withAttachments(ctx context.Context, strikes []model.Strike) ([]model.Strike, error) {
	if len(strikes) == 0 {
		return strikes, nil
	}
	ids := make([]any, len(strikes))
	for i, st := range strikes {
		ids[i] = st.ID
	}
	atts, err := attachmentsWhere[int64](ctx, s.db, "strike_id", placeholders(len(ids)), ids...)
	if err != nil {
		return nil, err
	}
	for i := range strikes {
		if a, ok := atts[strikes[i].ID]; ok {
			strikes[i].Attachments = a
		}
	}
	return strikes, nil
}
