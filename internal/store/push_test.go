package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/chorechart/internal/model"
)

func TestCreateSubscription(t *testing.T) {
	ctx := context.Background()
	ps := NewPushStore(setupTestDB(t))

	sub, err := ps.CreateSubscription(ctx, model.P1, "https://push.example.com/sub1", "p256dh_key1", "auth_key1", "Chrome Desktop")
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	if sub.ID == 0 {
		t.Error("expected non-zero ID")
	}
	if sub.DeviceName != "Chrome Desktop" {
		t.Errorf("device_name = %q, want %q", sub.DeviceName, "Chrome Desktop")
	}

	// Same endpoint re-registered by the other participant moves it.
	again, err := ps.CreateSubscription(ctx, model.P2, "https://push.example.com/sub1", "p256dh_key2", "auth_key2", "Phone")
	if err != nil {
		t.Fatalf("re-create subscription: %v", err)
	}
	if again.ID != sub.ID {
		t.Errorf("id = %d, want %d", again.ID, sub.ID)
	}
	if again.Participant != model.P2 || again.AuthKey != "auth_key2" {
		t.Errorf("upserted = %+v", again)
	}

	subs, _ := ps.ListByParticipant(ctx, model.P1)
	if len(subs) != 0 {
		t.Errorf("p1 subscriptions = %d, want 0", len(subs))
	}
	subs, _ = ps.ListByParticipant(ctx, model.P2)
	if len(subs) != 1 {
		t.Errorf("p2 subscriptions = %d, want 1", len(subs))
	}
}

func TestDeleteSubscriptionScopedToParticipant(t *testing.T) {
	ctx := context.Background()
	ps := NewPushStore(setupTestDB(t))

	sub, err := ps.CreateSubscription(ctx, model.P1, "https://push.example.com/a", "k", "a", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	removed, err := ps.DeleteSubscription(ctx, sub.ID, model.P2)
	if err != nil {
		t.Fatalf("delete as p2: %v", err)
	}
	if removed {
		t.Error("p2 should not delete p1's subscription")
	}
	removed, _ = ps.DeleteSubscription(ctx, sub.ID, model.P1)
	if !removed {
		t.Error("expected p1 to delete own subscription")
	}
	got, _ := ps.GetByID(ctx, sub.ID, model.P1)
	if got != nil {
		t.Error("expected subscription gone")
	}
}

func TestNotificationLogDedup(t *testing.T) {
	ctx := context.Background()
	ps := NewPushStore(setupTestDB(t))

	sent, err := ps.WasSent(ctx, model.P1, model.NotifTypeChoresToday, "2026-03-01")
	if err != nil {
		t.Fatalf("was sent: %v", err)
	}
	if sent {
		t.Error("expected not sent")
	}

	first, err := ps.RecordSent(ctx, model.P1, model.NotifTypeChoresToday, "2026-03-01")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	second, _ := ps.RecordSent(ctx, model.P1, model.NotifTypeChoresToday, "2026-03-01")
	if !first || second {
		t.Errorf("record results = %v, %v, want true, false", first, second)
	}

	sent, _ = ps.WasSent(ctx, model.P1, model.NotifTypeChoresToday, "2026-03-01")
	if !sent {
		t.Error("expected sent")
	}

	if err := ps.CleanupSent(ctx, time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	sent, _ = ps.WasSent(ctx, model.P1, model.NotifTypeChoresToday, "2026-03-01")
	if sent {
		t.Error("expected log cleared")
	}
}
