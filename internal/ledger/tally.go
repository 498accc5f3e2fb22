package ledger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukerupert/chorechart/internal/calendar"
	"github.com/dukerupert/chorechart/internal/model"
)

// TallyStore is the storage the trash tally needs.
type TallyStore interface {
	Get(ctx context.Context, p model.Participant, month string) (*model.TrashTally, error)
	Ensure(ctx context.Context, p model.Participant, month string) (*model.TrashTally, error)
	CompareAndSet(ctx context.Context, prev *model.TrashTally, count int, last *calendar.Date) (bool, error)
}

// Tallies counts trash runs per participant per month, at most one per day.
type Tallies struct {
	store  TallyStore
	logger *slog.Logger
}

func NewTallies(store TallyStore, logger *slog.Logger) *Tallies {
	return &Tallies{store: store, logger: logger}
}

// Read returns the participant's tally for month, or a zero tally if none
// has been recorded.
func (t *Tallies) Read(ctx context.Context, p model.Participant, month string) (*model.TrashTally, error) {
	if err := checkTallyArgs(p, month); err != nil {
		return nil, err
	}
	tally, err := t.store.Get(ctx, p, month)
	if err != nil {
		return nil, err
	}
	if tally == nil {
		return &model.TrashTally{Participant: p, Month: month}, nil
	}
	return tally, nil
}

// Increment adds one to the tally unless it was already incremented today.
// changed reports whether the count moved.
func (t *Tallies) Increment(ctx context.Context, p model.Participant, month string, today calendar.Date) (tally *model.TrashTally, changed bool, err error) {
	if err := checkTallyArgs(p, month); err != nil {
		return nil, false, err
	}
	if err := checkTallyDay(month, today); err != nil {
		return nil, false, err
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		cur, err := t.store.Ensure(ctx, p, month)
		if err != nil {
			return nil, false, err
		}
		if cur.IncrementedOn(today) {
			return cur, false, nil
		}

		day := today
		applied, err := t.store.CompareAndSet(ctx, cur, cur.Count+1, &day)
		if err != nil {
			return nil, false, err
		}
		if applied {
			t.logger.Info("trash tally incremented", "participant", p, "month", month, "count", cur.Count+1)
			updated, err := t.store.Get(ctx, p, month)
			return updated, true, err
		}
	}
	return nil, false, fmt.Errorf("increment tally %s %s: %w", p, month, ErrContended)
}

// Decrement undoes today's increment. It fails with ErrInvalidState unless
// the tally is positive and was last incremented today. The last increment
// date is kept, so the same day cannot be counted again afterwards.
func (t *Tallies) Decrement(ctx context.Context, p model.Participant, month string, today calendar.Date) (*model.TrashTally, error) {
	if err := checkTallyArgs(p, month); err != nil {
		return nil, err
	}
	if err := checkTallyDay(month, today); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxAttempts; attempt++ {
		cur, err := t.store.Get(ctx, p, month)
		if err != nil {
			return nil, err
		}
		if cur == nil || cur.Count <= 0 || !cur.IncrementedOn(today) {
			return nil, fmt.Errorf("%w: no increment from %s to undo", ErrInvalidState, today)
		}

		applied, err := t.store.CompareAndSet(ctx, cur, cur.Count-1, cur.LastIncrementDate)
		if err != nil {
			return nil, err
		}
		if applied {
			t.logger.Info("trash tally decremented", "participant", p, "month", month, "count", cur.Count-1)
			return t.store.Get(ctx, p, month)
		}
	}
	return nil, fmt.Errorf("decrement tally %s %s: %w", p, month, ErrContended)
}

func checkTallyArgs(p model.Participant, month string) error {
	if !p.Valid() {
		return fmt.Errorf("%w: unknown participant %q", ErrNotFound, p)
	}
	if !calendar.ValidYearMonth(month) {
		return fmt.Errorf("%w: bad month %q", ErrInvalidState, month)
	}
	return nil
}

// checkTallyDay rejects a day that falls outside the tally's month.
func checkTallyDay(month string, today calendar.Date) error {
	if today.YearMonth() != month {
		return fmt.Errorf("%w: %s is not in %s", ErrInvalidState, today, month)
	}
	return nil
}
