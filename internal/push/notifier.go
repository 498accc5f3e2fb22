package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dukerupert/chorechart/internal/calendar"
	"github.com/dukerupert/chorechart/internal/metrics"
	"github.com/dukerupert/chorechart/internal/model"
	"github.com/dukerupert/chorechart/internal/schedule"
)

// SubscriptionStore is the persistence the notifier needs.
type SubscriptionStore interface {
	ListByParticipant(ctx context.Context, p model.Participant) ([]model.PushSubscription, error)
	DeleteByEndpoint(ctx context.Context, endpoint string) error
	RecordSent(ctx context.Context, p model.Participant, notifType, refID string) (bool, error)
	CleanupSent(ctx context.Context, before time.Time) error
}

// Notifier sends the daily chore reminder and event-driven notices.
type Notifier struct {
	mu       sync.RWMutex
	sender   Sender
	subs     SubscriptionStore
	clock    calendar.Clock
	logger   *slog.Logger
	interval time.Duration
	hour     int
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewNotifier creates a notifier. The daily reminder goes out on the first
// tick at or after hour, in the clock's location.
func NewNotifier(sender Sender, subs SubscriptionStore, clock calendar.Clock, hour int, logger *slog.Logger) *Notifier {
	return &Notifier{
		sender:   sender,
		subs:     subs,
		clock:    clock,
		logger:   logger,
		interval: time.Minute,
		hour:     hour,
	}
}

// Start begins the reminder loop.
func (n *Notifier) Start(ctx context.Context) {
	n.mu.Lock()
	ctx, n.cancel = context.WithCancel(ctx)
	n.done = make(chan struct{})
	n.mu.Unlock()

	go func() {
		defer close(n.done)
		ticker := time.NewTicker(n.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n.Tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the reminder loop.
func (n *Notifier) Stop() {
	n.mu.RLock()
	cancel := n.cancel
	done := n.done
	n.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Tick sends today's reminders once the reminder hour has passed and prunes
// the notification log.
func (n *Notifier) Tick(ctx context.Context) {
	now := n.clock.Now()
	if now.Hour() < n.hour {
		return
	}
	if err := n.SendDailyReminders(ctx, calendar.FromTime(now)); err != nil {
		n.logger.Error("daily reminders", "error", err)
	}
	if err := n.subs.CleanupSent(ctx, now.AddDate(0, 0, -30)); err != nil {
		n.logger.Error("cleanup notification log", "error", err)
	}
}

// SendDailyReminders tells each participant which chores they own on today.
// Each participant is notified at most once per date.
func (n *Notifier) SendDailyReminders(ctx context.Context, today calendar.Date) error {
	owned := make(map[model.Participant][]string)
	for _, a := range schedule.ForDate(today) {
		owned[a.Participant] = append(owned[a.Participant], a.Label)
	}

	for _, p := range model.Participants {
		labels := owned[p]
		if len(labels) == 0 {
			continue
		}
		fresh, err := n.subs.RecordSent(ctx, p, model.NotifTypeChoresToday, today.String())
		if err != nil {
			return err
		}
		if !fresh {
			continue
		}

		body := fmt.Sprintf("You have %d chores today: %s", len(labels), strings.Join(labels, ", "))
		if len(labels) == 1 {
			body = fmt.Sprintf("Chore due today: %s", labels[0])
		}
		n.deliver(ctx, p, model.NotifTypeChoresToday, Payload{
			Title: "Chores Today",
			Body:  body,
			URL:   "/",
			Tag:   "chores-" + today.String(),
		})
	}
	return nil
}

// NotifyStrike tells the recipient about a strike issued against them.
func (n *Notifier) NotifyStrike(ctx context.Context, s *model.Strike) {
	fresh, err := n.subs.RecordSent(ctx, s.IssuedTo, model.NotifTypeStrikeReceived, fmt.Sprintf("strike-%d", s.ID))
	if err != nil {
		n.logger.Error("record strike notification", "error", err)
		return
	}
	if !fresh {
		return
	}
	n.deliver(ctx, s.IssuedTo, model.NotifTypeStrikeReceived, Payload{
		Title: "Strike Received",
		Body:  s.Reason,
		URL:   "/strikes?month=" + s.Month,
		Tag:   fmt.Sprintf("strike-%d", s.ID),
	})
}

func (n *Notifier) deliver(ctx context.Context, p model.Participant, notifType string, payload Payload) {
	subs, err := n.subs.ListByParticipant(ctx, p)
	if err != nil {
		n.logger.Error("list subscriptions", "participant", p, "error", err)
		return
	}

	for _, sub := range subs {
		err := n.sender.Send(ctx, &sub, payload)
		switch {
		case err == nil:
			metrics.PushSent.WithLabelValues(notifType, "sent").Inc()
		case errors.Is(err, ErrExpired):
			metrics.PushSent.WithLabelValues(notifType, "expired").Inc()
			if err := n.subs.DeleteByEndpoint(ctx, sub.Endpoint); err != nil {
				n.logger.Error("delete expired subscription", "error", err)
			}
		default:
			metrics.PushSent.WithLabelValues(notifType, "failed").Inc()
			n.logger.Warn("send push", "participant", p, "type", notifType, "error", err)
		}
	}
}
