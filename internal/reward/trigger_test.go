package reward

import (
	"testing"
	"time"

	"github.com/dukerupert/chorechart/internal/calendar"
	"github.com/dukerupert/chorechart/internal/model"
	"github.com/dukerupert/chorechart/internal/testutil"
)

// 2026-03-04 is a Wednesday; its week starts on Sunday 2026-03-01.
var today = calendar.New(2026, time.March, 4)

func TestOnlyEligibleParticipantCelebrates(t *testing.T) {
	src := testutil.NewStubRand(0)
	tr := NewTrigger(model.P2, src)

	if tr.ShouldCelebrate(model.P1, nil, false, today) {
		t.Error("p1 should never celebrate")
	}
	if src.Calls() != 0 {
		t.Errorf("rand drawn %d times for ineligible participant", src.Calls())
	}
}

func TestFirstCompletionAlwaysCelebrates(t *testing.T) {
	src := testutil.NewStubRand(0.99)
	tr := NewTrigger(model.P2, src)

	// Even with today in history and the weekly cap reached.
	history := []calendar.Date{today, today.AddDays(-1), today.AddDays(-2)}
	if !tr.ShouldCelebrate(model.P2, history, false, today) {
		t.Error("first completion should always celebrate")
	}
}

func TestAlreadyCelebratedToday(t *testing.T) {
	tr := NewTrigger(model.P2, testutil.NewStubRand(0))
	if tr.ShouldCelebrate(model.P2, []calendar.Date{today}, true, today) {
		t.Error("should not celebrate twice in a day")
	}
}

func TestWeeklyCap(t *testing.T) {
	tr := NewTrigger(model.P2, testutil.NewStubRand(0))

	tests := []struct {
		name    string
		history []calendar.Date
		want    bool
	}{
		{"none", nil, true},
		{"one this week", []calendar.Date{today.AddDays(-1)}, true},
		{"two this week", []calendar.Date{today.AddDays(-1), calendar.WeekStart(today)}, false},
		{"two last week", []calendar.Date{calendar.WeekStart(today).AddDays(-1), calendar.WeekStart(today).AddDays(-2)}, true},
		{"one each side of sunday", []calendar.Date{calendar.WeekStart(today), calendar.WeekStart(today).AddDays(-1)}, true},
		{"later dates ignored", []calendar.Date{today.AddDays(1), today.AddDays(2)}, true},
		{"one this week and one later", []calendar.Date{today.AddDays(-1), today.AddDays(3)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tr.ShouldCelebrate(model.P2, tt.history, true, today); got != tt.want {
				t.Errorf("ShouldCelebrate = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestChanceThreshold(t *testing.T) {
	tests := []struct {
		draw float64
		want bool
	}{
		{0, true},
		{0.29, true},
		{0.3, false},
		{0.95, false},
	}
	for _, tt := range tests {
		tr := NewTrigger(model.P2, testutil.NewStubRand(tt.draw))
		if got := tr.ShouldCelebrate(model.P2, nil, true, today); got != tt.want {
			t.Errorf("draw %v: ShouldCelebrate = %v, want %v", tt.draw, got, tt.want)
		}
	}
}

func TestSystemRandIsBernoulli(t *testing.T) {
	tr := NewTrigger(model.P2, nil)

	hits := 0
	const n = 2000
	for i := 0; i < n; i++ {
		if tr.ShouldCelebrate(model.P2, nil, true, today) {
			hits++
		}
	}
	// 0.3 * 2000 = 600, with a standard deviation of about 20.
	if hits < 400 || hits > 800 {
		t.Errorf("hits = %d of %d, want roughly 30%%", hits, n)
	}
}

func TestZeroChanceNeverCelebrates(t *testing.T) {
	src := testutil.NewStubRand(0)
	tr := &Trigger{Eligible: model.P2, Source: src, Chance: 0, WeeklyCap: DefaultWeeklyCap}

	if tr.ShouldCelebrate(model.P2, nil, true, today) {
		t.Error("zero chance should never celebrate")
	}
	if !tr.ShouldCelebrate(model.P2, nil, false, today) {
		t.Error("first completion should still celebrate")
	}
}

func TestZeroWeeklyCapNeverCelebrates(t *testing.T) {
	tr := &Trigger{Eligible: model.P2, Source: testutil.NewStubRand(0), Chance: 1, WeeklyCap: 0}
	if tr.ShouldCelebrate(model.P2, nil, true, today) {
		t.Error("zero weekly cap should never celebrate")
	}
}
