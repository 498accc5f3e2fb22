package reward

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukerupert/chorechart/internal/calendar"
	"github.com/dukerupert/chorechart/internal/model"
)

// ProfileStore is the part of the participant store the service needs.
type ProfileStore interface {
	Get(ctx context.Context, p model.Participant) (*model.Profile, error)
	AddCelebration(ctx context.Context, p model.Participant, date calendar.Date) error
	MarkFirstCompletion(ctx context.Context, p model.Participant) error
}

// Service runs the trigger against stored history and records the result.
type Service struct {
	trigger *Trigger
	store   ProfileStore
	logger  *slog.Logger
}

func NewService(trigger *Trigger, store ProfileStore, logger *slog.Logger) *Service {
	return &Service{trigger: trigger, store: store, logger: logger}
}

// AfterCompletion is called when p marks a chore completed. It also records
// p's first completion.
func (s *Service) AfterCompletion(ctx context.Context, p model.Participant, today calendar.Date) (bool, error) {
	return s.check(ctx, p, today, true)
}

// AfterTrashRun is called when p's trash tally goes up.
func (s *Service) AfterTrashRun(ctx context.Context, p model.Participant, today calendar.Date) (bool, error) {
	return s.check(ctx, p, today, false)
}

func (s *Service) check(ctx context.Context, p model.Participant, today calendar.Date, completion bool) (bool, error) {
	prof, err := s.store.Get(ctx, p)
	if err != nil {
		return false, err
	}
	if prof == nil {
		return false, fmt.Errorf("unknown participant %q", p)
	}

	fire := s.trigger.ShouldCelebrate(p, prof.Celebrations, prof.FirstCompletionDone, today)

	if completion && !prof.FirstCompletionDone {
		if err := s.store.MarkFirstCompletion(ctx, p); err != nil {
			return false, err
		}
	}
	if fire {
		if err := s.store.AddCelebration(ctx, p, today); err != nil {
			return false, err
		}
		s.logger.Info("celebration triggered", "participant", p, "date", today)
	}
	return fire, nil
}
