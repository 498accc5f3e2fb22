package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dukerupert/chorechart/internal/calendar"
	"github.com/dukerupert/chorechart/internal/model"
)

// ParticipantStore holds the two household members' profiles, credentials
// and celebration history.
type ParticipantStore struct {
	db *sql.DB
}

func NewParticipantStore(db *sql.DB) *ParticipantStore {
	return &ParticipantStore{db: db}
}

func scanProfile(scanner interface{ Scan(...any) error }) (*model.Profile, error) {
	var p model.Profile
	var id string
	var hasPassword, tutorial, first int

	err := scanner.Scan(&id, &p.DisplayName, &hasPassword, &tutorial, &first, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	p.Participant = model.Participant(id)
	p.HasPassword = hasPassword != 0
	p.TutorialShown = tutorial != 0
	p.FirstCompletionDone = first != 0
	p.Celebrations = []calendar.Date{}
	return &p, nil
}

const profileCols = `id, display_name, password_hash IS NOT NULL, tutorial_shown, first_completion_done, created_at, updated_at`

func (s *ParticipantStore) Get(ctx context.Context, p model.Participant) (*model.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileCols+` FROM participants WHERE id = ?`, string(p))
	prof, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get participant: %w", err)
	}

	prof.Celebrations, err = s.Celebrations(ctx, p)
	if err != nil {
		return nil, err
	}
	return prof, nil
}

func (s *ParticipantStore) List(ctx context.Context) ([]model.Profile, error) {
	var out []model.Profile
	for _, p := range model.Participants {
		prof, err := s.Get(ctx, p)
		if err != nil {
			return nil, err
		}
		if prof != nil {
			out = append(out, *prof)
		}
	}
	return out, nil
}

func (s *ParticipantStore) SetDisplayName(ctx context.Context, p model.Participant, name string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE participants SET display_name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, string(p),
	)
	if err != nil {
		return fmt.Errorf("set display name: %w", err)
	}
	return nil
}

func (s *ParticipantStore) SetPasswordHash(ctx context.Context, p model.Participant, hash string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE participants SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		hash, string(p),
	)
	if err != nil {
		return fmt.Errorf("set password hash: %w", err)
	}
	return nil
}

// PasswordHash returns the stored bcrypt hash, or "" when no password is set.
func (s *ParticipantStore) PasswordHash(ctx context.Context, p model.Participant) (string, error) {
	var hash sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT password_hash FROM participants WHERE id = ?`, string(p)).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get password hash: %w", err)
	}
	return hash.String, nil
}

func (s *ParticipantStore) MarkTutorialShown(ctx context.Context, p model.Participant) error {
	return s.setFlag(ctx, "tutorial_shown", p)
}

func (s *ParticipantStore) MarkFirstCompletion(ctx context.Context, p model.Participant) error {
	return s.setFlag(ctx, "first_completion_done", p)
}

func (s *ParticipantStore) setFlag(ctx context.Context, col string, p model.Participant) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE participants SET `+col+` = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(p),
	)
	if err != nil {
		return fmt.Errorf("set %s: %w", col, err)
	}
	return nil
}

// AddCelebration records that a celebration was shown on date. Recording the
// same date twice is a no-op.
func (s *ParticipantStore) AddCelebration(ctx context.Context, p model.Participant, date calendar.Date) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO celebrations (participant, date) VALUES (?, ?)`,
		string(p), date,
	)
	if err != nil {
		return fmt.Errorf("add celebration: %w", err)
	}
	return nil
}

func (s *ParticipantStore) Celebrations(ctx context.Context, p model.Participant) ([]calendar.Date, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT date FROM celebrations WHERE participant = ? ORDER BY date ASC`,
		string(p),
	)
	if err != nil {
		return nil, fmt.Errorf("list celebrations: %w", err)
	}
	defer rows.Close()

	dates := []calendar.Date{}
	for rows.Next() {
		var d calendar.Date
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan celebration: %w", err)
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

// ResetActivity deletes every chore, comment, tally, strike, celebration and
// sent notification, and clears the participants' progress flags. Profiles,
// passwords, sessions and push subscriptions survive.
func (s *ParticipantStore) ResetActivity(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`DELETE FROM attachments`,
		`DELETE FROM comments`,
		`DELETE FROM strikes`,
		`DELETE FROM occurrences`,
		`DELETE FROM trash_tallies`,
		`DELETE FROM celebrations`,
		`DELETE FROM notification_log`,
		`UPDATE participants SET tutorial_shown = 0, first_completion_done = 0, updated_at = CURRENT_TIMESTAMP`,
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("reset activity: %w", err)
		}
	}
	return tx.Commit()
}
