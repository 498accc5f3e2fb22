// Package ledger holds the household's mutable records: chore occurrences
// with their comments, the monthly trash tally and strikes. Every rule that
// depends on who is assigned a chore recomputes the assignment through the
// schedule package.
package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/chorechart/internal/calendar"
	"github.com/dukerupert/chorechart/internal/model"
	"github.com/dukerupert/chorechart/internal/schedule"
)

// OccurrenceStore is the storage the chore ledger needs.
type OccurrenceStore interface {
	GetByID(ctx context.Context, id int64) (*model.Occurrence, error)
	GetByKey(ctx context.Context, date calendar.Date, kind model.ChoreKind) (*model.Occurrence, error)
	ListByMonth(ctx context.Context, month string) ([]model.Occurrence, error)
	Insert(ctx context.Context, o *model.Occurrence) (id int64, created bool, err error)
	SetCompletion(ctx context.Context, id int64, expected, completed bool, by *model.Participant, at *time.Time) (bool, error)
	AddComment(ctx context.Context, c *model.Comment) error
	DeleteComment(ctx context.Context, occurrenceID int64, commentID string) (bool, error)
}

// OccurrenceRef points at an occurrence either by id or by its (date, kind)
// key. A non-zero ID takes precedence.
type OccurrenceRef struct {
	ID   int64
	Date calendar.Date
	Kind model.ChoreKind
}

// Chores is the chore ledger.
type Chores struct {
	store  OccurrenceStore
	clock  calendar.Clock
	ids    IDGenerator
	logger *slog.Logger
}

func NewChores(store OccurrenceStore, clock calendar.Clock, ids IDGenerator, logger *slog.Logger) *Chores {
	return &Chores{store: store, clock: clock, ids: ids, logger: logger}
}

// Get returns the occurrence for date and kind, or nil if none is recorded.
func (c *Chores) Get(ctx context.Context, date calendar.Date, kind model.ChoreKind) (*model.Occurrence, error) {
	return c.store.GetByKey(ctx, date, kind)
}

func (c *Chores) GetByID(ctx context.Context, id int64) (*model.Occurrence, error) {
	return c.store.GetByID(ctx, id)
}

// Month returns every recorded occurrence in a "YYYY-MM" month.
func (c *Chores) Month(ctx context.Context, month string) ([]model.Occurrence, error) {
	if !calendar.ValidYearMonth(month) {
		return nil, fmt.Errorf("%w: bad month %q", ErrInvalidState, month)
	}
	return c.store.ListByMonth(ctx, month)
}

// Toggle flips the completion flag of the occurrence for date and kind on
// behalf of actor, creating it as completed if it does not exist yet. Only
// the assignee may toggle, and only for dates inside the actionable window.
func (c *Chores) Toggle(ctx context.Context, date calendar.Date, kind model.ChoreKind, actor model.Participant) (*model.Occurrence, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown chore kind %q", ErrNotFound, kind)
	}
	assignee, ok := schedule.Assign(kind, date)
	if !ok || assignee != actor {
		return nil, fmt.Errorf("%w: %s is not assigned %s on %s", ErrNotAuthorized, actor, kind, date)
	}
	now := c.clock.Now()
	if !schedule.IsActionable(date, calendar.FromTime(now)) {
		return nil, fmt.Errorf("%w: %s is more than %d days ahead", ErrOutOfWindow, date, schedule.LeadDays)
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		occ, err := c.store.GetByKey(ctx, date, kind)
		if err != nil {
			return nil, err
		}

		if occ == nil {
			by, at := actor, now
			id, created, err := c.store.Insert(ctx, &model.Occurrence{
				Date: date, Kind: kind, Completed: true, CompletedBy: &by, CompletedAt: &at,
			})
			if err != nil {
				return nil, err
			}
			if created {
				c.logger.Info("chore completed", "date", date, "kind", kind, "by", actor)
				return c.store.GetByID(ctx, id)
			}
			continue
		}

		next := !occ.Completed
		var by *model.Participant
		var at *time.Time
		if next {
			by, at = &actor, &now
		}
		applied, err := c.store.SetCompletion(ctx, occ.ID, occ.Completed, next, by, at)
		if err != nil {
			return nil, err
		}
		if applied {
			c.logger.Info("chore toggled", "date", date, "kind", kind, "by", actor, "completed", next)
			return c.store.GetByID(ctx, occ.ID)
		}
		c.logger.Debug("toggle lost race, retrying", "date", date, "kind", kind, "attempt", attempt+1)
	}
	return nil, fmt.Errorf("toggle %s on %s: %w", kind, date, ErrContended)
}

// AddComment appends a comment to the referenced occurrence, creating an
// uncompleted occurrence first when a (date, kind) pair has no record yet.
// Comments are accepted only for dates in the current month.
func (c *Chores) AddComment(ctx context.Context, ref OccurrenceRef, author model.Participant, text string, attachments []model.Attachment) (*model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" && len(attachments) == 0 {
		return nil, fmt.Errorf("%w: comment needs text or an attachment", ErrInvalidState)
	}
	for _, a := range attachments {
		if !a.Kind.Valid() || a.Ref == "" {
			return nil, fmt.Errorf("%w: bad attachment %q", ErrInvalidState, a.Name)
		}
	}

	now := c.clock.Now()
	today := calendar.FromTime(now)

	occ, err := c.resolve(ctx, ref, today)
	if err != nil {
		return nil, err
	}

	comment := &model.Comment{
		ID:           c.ids.New(),
		OccurrenceID: occ.ID,
		Author:       author,
		Text:         text,
		Attachments:  make([]model.Attachment, len(attachments)),
		CreatedAt:    now,
	}
	for i, a := range attachments {
		if a.ID == "" {
			a.ID = c.ids.New()
		}
		comment.Attachments[i] = a
	}

	if err := c.store.AddComment(ctx, comment); err != nil {
		return nil, err
	}
	c.logger.Info("comment added", "occurrence_id", occ.ID, "author", author, "attachments", len(attachments))
	return comment, nil
}

func (c *Chores) resolve(ctx context.Context, ref OccurrenceRef, today calendar.Date) (*model.Occurrence, error) {
	if ref.ID != 0 {
		occ, err := c.store.GetByID(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		if occ == nil {
			return nil, fmt.Errorf("%w: occurrence %d", ErrNotFound, ref.ID)
		}
		if !schedule.CommentsOpen(occ.Date, today) {
			return nil, fmt.Errorf("%w: comments are closed for %s", ErrOutOfWindow, occ.Date)
		}
		return occ, nil
	}

	if _, ok := schedule.Assign(ref.Kind, ref.Date); !ok {
		return nil, fmt.Errorf("%w: no %s scheduled on %s", ErrNotFound, ref.Kind, ref.Date)
	}
	if !schedule.CommentsOpen(ref.Date, today) {
		return nil, fmt.Errorf("%w: comments are closed for %s", ErrOutOfWindow, ref.Date)
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		occ, err := c.store.GetByKey(ctx, ref.Date, ref.Kind)
		if err != nil {
			return nil, err
		}
		if occ != nil {
			return occ, nil
		}
		id, created, err := c.store.Insert(ctx, &model.Occurrence{Date: ref.Date, Kind: ref.Kind})
		if err != nil {
			return nil, err
		}
		if created {
			return c.store.GetByID(ctx, id)
		}
	}
	return nil, fmt.Errorf("materialize %s on %s: %w", ref.Kind, ref.Date, ErrContended)
}

// DeleteComment removes a comment. Deleting a comment that does not exist is
// a no-op; the occurrence itself must exist.
func (c *Chores) DeleteComment(ctx context.Context, occurrenceID int64, commentID string) error {
	occ, err := c.store.GetByID(ctx, occurrenceID)
	if err != nil {
		return err
	}
	if occ == nil {
		return fmt.Errorf("%w: occurrence %d", ErrNotFound, occurrenceID)
	}
	removed, err := c.store.DeleteComment(ctx, occurrenceID, commentID)
	if err != nil {
		return err
	}
	if removed {
		c.logger.Info("comment deleted", "occurrence_id", occurrenceID, "comment_id", commentID)
	}
	return nil
}
