package store

import (
	"context"
	"testing"
	"time"

	"github.com/dukerupert/chorechart/internal/calendar"
	"github.com/dukerupert/chorechart/internal/model"
)

func TestTallyEnsureAndCompareAndSet(t *testing.T) {
	ctx := context.Background()
	ts := NewTallyStore(setupTestDB(t))

	got, err := ts.Get(ctx, model.P1, "2026-03")
	if err != nil {
		t.Fatalf("get missing: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil tally")
	}

	tally, err := ts.Ensure(ctx, model.P1, "2026-03")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if tally.Count != 0 || tally.LastIncrementDate != nil {
		t.Errorf("fresh tally = %+v", tally)
	}

	again, err := ts.Ensure(ctx, model.P1, "2026-03")
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if again.ID != tally.ID {
		t.Errorf("ensure created a second row: %d vs %d", again.ID, tally.ID)
	}

	day := calendar.New(2026, time.March, 5)
	ok, err := ts.CompareAndSet(ctx, tally, 1, &day)
	if err != nil {
		t.Fatalf("cas: %v", err)
	}
	if !ok {
		t.Fatal("expected cas to apply")
	}

	// tally is now stale.
	ok, err = ts.CompareAndSet(ctx, tally, 1, &day)
	if err != nil {
		t.Fatalf("stale cas: %v", err)
	}
	if ok {
		t.Error("expected stale cas to be rejected")
	}

	got, err = ts.Get(ctx, model.P1, "2026-03")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Count != 1 {
		t.Errorf("count = %d, want 1", got.Count)
	}
	if !got.IncrementedOn(day) {
		t.Errorf("last increment = %v, want %s", got.LastIncrementDate, day)
	}

	ok, err = ts.CompareAndSet(ctx, got, 0, got.LastIncrementDate)
	if err != nil || !ok {
		t.Fatalf("decrement cas: ok=%v err=%v", ok, err)
	}
	got, _ = ts.Get(ctx, model.P1, "2026-03")
	if got.Count != 0 || !got.IncrementedOn(day) {
		t.Errorf("after decrement = %+v", got)
	}
}

func TestTallyListByMonth(t *testing.T) {
	ctx := context.Background()
	ts := NewTallyStore(setupTestDB(t))

	for _, p := range model.Participants {
		if _, err := ts.Ensure(ctx, p, "2026-03"); err != nil {
			t.Fatalf("ensure %s: %v", p, err)
		}
	}
	if _, err := ts.Ensure(ctx, model.P1, "2026-04"); err != nil {
		t.Fatalf("ensure april: %v", err)
	}

	tallies, err := ts.ListByMonth(ctx, "2026-03")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tallies) != 2 {
		t.Fatalf("tallies = %d, want 2", len(tallies))
	}
	if tallies[0].Participant != model.P1 || tallies[1].Participant != model.P2 {
		t.Errorf("order = %s, %s", tallies[0].Participant, tallies[1].Participant)
	}
}
