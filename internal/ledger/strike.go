package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukerupert/chorechart/internal/calendar"
	"github.com/dukerupert/chorechart/internal/model"
	"github.com/dukerupert/chorechart/internal/schedule"
)

// StrikeStore is the storage the strike ledger needs.
type StrikeStore interface {
	Insert(ctx context.Context, st *model.Strike) (int64, error)
	GetByID(ctx context.Context, id int64) (*model.Strike, error)
	ListByMonth(ctx context.Context, month string) ([]model.Strike, error)
	ListByOccurrence(ctx context.Context, occurrenceID int64) ([]model.Strike, error)
	CountForRecipient(ctx context.Context, p model.Participant, month string) (int, error)
	ExistsForOccurrence(ctx context.Context, occurrenceID int64) (bool, error)
}

// OccurrenceGetter looks up occurrences referenced by strikes.
type OccurrenceGetter interface {
	GetByID(ctx context.Context, id int64) (*model.Occurrence, error)
}

type NewStrike struct {
	IssuedBy     model.Participant
	IssuedTo     model.Participant
	OccurrenceID *int64
	Reason       string
	Attachments  []model.Attachment
}

// Strikes is the append-only strike ledger.
type Strikes struct {
	store       StrikeStore
	occurrences OccurrenceGetter
	clock       calendar.Clock
	ids         IDGenerator
	logger      *slog.Logger
}

func NewStrikes(store StrikeStore, occurrences OccurrenceGetter, clock calendar.Clock, ids IDGenerator, logger *slog.Logger) *Strikes {
	return &Strikes{store: store, occurrences: occurrences, clock: clock, ids: ids, logger: logger}
}

// Add appends a strike without any eligibility checks.
func (s *Strikes) Add(ctx context.Context, in NewStrike) (*model.Strike, error) {
	now := s.clock.Now()
	st := &model.Strike{
		IssuedBy:     in.IssuedBy,
		IssuedTo:     in.IssuedTo,
		OccurrenceID: in.OccurrenceID,
		Reason:       in.Reason,
		Attachments:  make([]model.Attachment, len(in.Attachments)),
		Month:        calendar.YearMonthOf(now),
		CreatedAt:    now,
	}
	for i, a := range in.Attachments {
		if a.ID == "" {
			a.ID = s.ids.New()
		}
		st.Attachments[i] = a
	}

	id, err := s.store.Insert(ctx, st)
	if err != nil {
		return nil, err
	}
	st.ID = id
	s.logger.Info("strike added", "id", id, "issued_by", st.IssuedBy, "issued_to", st.IssuedTo, "month", st.Month)
	return st, nil
}

// Issue validates a strike request and appends it. When the strike refers to
// an occurrence, the recipient is that occurrence's assignee and the issuer
// must be eligible to strike it.
func (s *Strikes) Issue(ctx context.Context, in NewStrike) (*model.Strike, error) {
	in.Reason = strings.TrimSpace(in.Reason)
	if in.Reason == "" {
		return nil, fmt.Errorf("%w: a strike needs a reason", ErrInvalidState)
	}
	if !in.IssuedBy.Valid() {
		return nil, fmt.Errorf("%w: unknown issuer %q", ErrNotAuthorized, in.IssuedBy)
	}
	for _, a := range in.Attachments {
		if !a.Kind.Valid() || a.Ref == "" {
			return nil, fmt.Errorf("%w: bad attachment %q", ErrInvalidState, a.Name)
		}
	}

	if in.OccurrenceID != nil {
		occ, err := s.occurrences.GetByID(ctx, *in.OccurrenceID)
		if err != nil {
			return nil, err
		}
		if occ == nil {
			return nil, fmt.Errorf("%w: occurrence %d", ErrNotFound, *in.OccurrenceID)
		}
		ok, err := s.Eligible(ctx, occ, in.IssuedBy)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: occurrence %d cannot be struck by %s", ErrInvalidState, occ.ID, in.IssuedBy)
		}
		assignee, _ := schedule.Assign(occ.Kind, occ.Date)
		if in.IssuedTo != "" && in.IssuedTo != assignee {
			return nil, fmt.Errorf("%w: %s was not assigned occurrence %d", ErrInvalidState, in.IssuedTo, occ.ID)
		}
		in.IssuedTo = assignee
	}

	if !in.IssuedTo.Valid() {
		return nil, fmt.Errorf("%w: unknown recipient %q", ErrInvalidState, in.IssuedTo)
	}
	if in.IssuedTo == in.IssuedBy {
		return nil, fmt.Errorf("%w: cannot strike yourself", ErrInvalidState)
	}
	return s.Add(ctx, in)
}

// Eligible reports whether actor may strike occ: it must be persisted and
// completed, actor must not be its assignee, and no strike may reference it
// yet.
func (s *Strikes) Eligible(ctx context.Context, occ *model.Occurrence, actor model.Participant) (bool, error) {
	if !occ.Persisted() || !occ.Completed {
		return false, nil
	}
	assignee, ok := schedule.Assign(occ.Kind, occ.Date)
	if !ok || assignee == actor {
		return false, nil
	}
	exists, err := s.store.ExistsForOccurrence(ctx, occ.ID)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// ForMonth returns a month's strikes, newest first.
func (s *Strikes) ForMonth(ctx context.Context, month string) ([]model.Strike, error) {
	if !calendar.ValidYearMonth(month) {
		return nil, fmt.Errorf("%w: bad month %q", ErrInvalidState, month)
	}
	return s.store.ListByMonth(ctx, month)
}

// Count returns how many strikes p received in month.
func (s *Strikes) Count(ctx context.Context, p model.Participant, month string) (int, error) {
	if !calendar.ValidYearMonth(month) {
		return 0, fmt.Errorf("%w: bad month %q", ErrInvalidState, month)
	}
	return s.store.CountForRecipient(ctx, p, month)
}

func (s *Strikes) ForOccurrence(ctx context.Context, occurrenceID int64) ([]model.Strike, error) {
	return s.store.ListByOccurrence(ctx, occurrenceID)
}
