package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/chorechart/internal/calendar"
	"github.com/dukerupert/chorechart/internal/model"
)

// ChoreStore persists chore occurrences and their comments.
type ChoreStore struct {
	db *sql.DB
}

func NewChoreStore(db *sql.DB) *ChoreStore {
	return &ChoreStore{db: db}
}

func scanOccurrence(scanner interface{ Scan(...any) error }) (*model.Occurrence, error) {
	var o model.Occurrence
	var kind string
	var completed int
	var completedBy sql.NullString
	var completedAt sql.NullTime

	err := scanner.Scan(&o.ID, &o.Date, &kind, &completed, &completedBy, &completedAt, &o.CreatedAt)
	if err != nil {
		return nil, err
	}

	o.Kind = model.ChoreKind(kind)
	o.Completed = completed != 0
	if completedBy.Valid {
		p := model.Participant(completedBy.String)
		o.CompletedBy = &p
	}
	if completedAt.Valid {
		t := completedAt.Time
		o.CompletedAt = &t
	}
	o.Comments = []model.Comment{}
	return &o, nil
}

const occurrenceCols = `id, date, chore_kind, completed, completed_by, completed_at, created_at`

func (s *ChoreStore) GetByID(ctx context.Context, id int64) (*model.Occurrence, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+occurrenceCols+` FROM occurrences WHERE id = ?`, id)
	return s.getOne(ctx, row)
}

// GetByKey returns the occurrence for a date and chore kind, or nil if none
// has been recorded.
func (s *ChoreStore) GetByKey(ctx context.Context, date calendar.Date, kind model.ChoreKind) (*model.Occurrence, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+occurrenceCols+` FROM occurrences WHERE date = ? AND chore_kind = ?`,
		date, string(kind),
	)
	return s.getOne(ctx, row)
}

func (s *ChoreStore) getOne(ctx context.Context, row *sql.Row) (*model.Occurrence, error) {
	o, err := scanOccurrence(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get occurrence: %w", err)
	}

	comments, err := s.commentsWhere(ctx, `?`, o.ID)
	if err != nil {
		return nil, err
	}
	if c, ok := comments[o.ID]; ok {
		o.Comments = c
	}
	return o, nil
}

// ListByMonth returns every recorded occurrence whose date falls in the
// given "YYYY-MM" month, ordered by date then chore kind.
func (s *ChoreStore) ListByMonth(ctx context.Context, month string) ([]model.Occurrence, error) {
	const filter = `SELECT id FROM occurrences WHERE substr(date, 1, 7) = ?`

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+occurrenceCols+` FROM occurrences WHERE substr(date, 1, 7) = ? ORDER BY date ASC, chore_kind ASC`,
		month,
	)
	if err != nil {
		return nil, fmt.Errorf("list occurrences: %w", err)
	}
	defer rows.Close()

	var occs []model.Occurrence
	for rows.Next() {
		o, err := scanOccurrence(rows)
		if err != nil {
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		occs = append(occs, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	comments, err := s.commentsWhere(ctx, filter, month)
	if err != nil {
		return nil, err
	}
	for i := range occs {
		if c, ok := comments[occs[i].ID]; ok {
			occs[i].Comments = c
		}
	}
	return occs, nil
}

// Insert creates an occurrence unless one already exists for the same date
// and chore kind. created is false when another writer got there first.
func (s *ChoreStore) Insert(ctx context.Context, o *model.Occurrence) (id int64, created bool, err error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO occurrences (date, chore_kind, completed, completed_by, completed_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(date, chore_kind) DO NOTHING`,
		o.Date, string(o.Kind), boolInt(o.Completed), nullParticipant(o.CompletedBy), nullTime(o.CompletedAt),
	)
	if err != nil {
		return 0, false, fmt.Errorf("insert occurrence: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return 0, false, nil
	}
	id, err = result.LastInsertId()
	if err != nil {
		return 0, false, fmt.Errorf("last insert id: %w", err)
	}
	return id, true, nil
}

// SetCompletion updates the completion state only if it still equals
// expected. A nil by or at leaves the stored value untouched. It reports
// whether the update was applied.
func (s *ChoreStore) SetCompletion(ctx context.Context, id int64, expected, completed bool, by *model.Participant, at *time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE occurrences
		 SET completed = ?, completed_by = COALESCE(?, completed_by), completed_at = COALESCE(?, completed_at)
		 WHERE id = ? AND completed = ?`,
		boolInt(completed), nullParticipant(by), nullTime(at), id, boolInt(expected),
	)
	if err != nil {
		return false, fmt.Errorf("set completion: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// AddComment appends a comment and its attachments.
func (s *ChoreStore) AddComment(ctx context.Context, c *model.Comment) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO comments (id, occurrence_id, author, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.OccurrenceID, string(c.Author), c.Text, c.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	if err := insertAttachments(ctx, tx, "comment_id", c.ID, c.Attachments); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteComment removes a comment from an occurrence. It reports whether a
// comment was removed.
func (s *ChoreStore) DeleteComment(ctx context.Context, occurrenceID int64, commentID string) (bool, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM comments WHERE id = ? AND occurrence_id = ?`,
		commentID, occurrenceID,
	)
	if err != nil {
		return false, fmt.Errorf("delete comment: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

// commentsWhere loads comments, with attachments, for the occurrences
// selected by filter, grouped by occurrence id in insertion order.
func (s *ChoreStore) commentsWhere(ctx context.Context, filter string, args ...any) (map[int64][]model.Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, occurrence_id, author, text, created_at FROM comments
		 WHERE occurrence_id IN (`+filter+`) ORDER BY rowid ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		var c model.Comment
		var author string
		if err := rows.Scan(&c.ID, &c.OccurrenceID, &author, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		c.Author = model.Participant(author)
		c.Attachments = []model.Attachment{}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	atts, err := attachmentsWhere[string](ctx, s.db, "comment_id",
		`SELECT id FROM comments WHERE occurrence_id IN (`+filter+`)`, args...)
	if err != nil {
		return nil, err
	}

	out := make(map[int64][]model.Comment)
	for _, c := range comments {
		if a, ok := atts[c.ID]; ok {
			c.Attachments = a
		}
		out[c.OccurrenceID] = append(out[c.OccurrenceID], c)
	}
	return out, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullParticipant(p *model.Participant) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*p), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
