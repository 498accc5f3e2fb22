package ledger_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/chorechart/internal/calendar"
	"github.com/dukerupert/chorechart/internal/ledger"
	"github.com/dukerupert/chorechart/internal/model"
	"github.com/dukerupert/chorechart/internal/testutil"
)

func TestAddAlwaysSucceeds(t *testing.T) {
	ctx := context.Background()
	f := setupLedger(t, testutil.NewStubClock(time.Date(2026, 3, 31, 23, 30, 0, 0, time.UTC)))

	st, err := f.strikes.Add(ctx, ledger.NewStrike{
		IssuedBy: model.P1, IssuedTo: model.P2, Reason: "dishes",
		Attachments: []model.Attachment{{Kind: model.AttachmentVideo, Ref: "media/v.mp4"}},
	})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if st.ID == 0 {
		t.Error("expected id")
	}
	if st.Month != "2026-03" {
		t.Errorf("month = %q, want 2026-03", st.Month)
	}
	if len(st.Attachments) != 1 || st.Attachments[0].ID == "" {
		t.Errorf("attachments = %+v", st.Attachments)
	}
}

func TestStrikeMonthFollowsClockLocation(t *testing.T) {
	ctx := context.Background()
	loc := time.FixedZone("UTC+3", 3*60*60)
	// 22:30 UTC on March 31 is already April 1 at UTC+3.
	f := setupLedger(t, testutil.NewStubClock(time.Date(2026, 3, 31, 22, 30, 0, 0, time.UTC).In(loc)))

	st, err := f.strikes.Add(ctx, ledger.NewStrike{IssuedBy: model.P1, IssuedTo: model.P2, Reason: "late"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if st.Month != "2026-04" {
		t.Errorf("month = %q, want 2026-04", st.Month)
	}
}

func TestEligibleForStrike(t *testing.T) {
	ctx := context.Background()
	f := setupLedger(t, testutil.At(2026, time.January, 20))
	date := calendar.New(2026, time.January, 20) // kitchen, assigned to p1

	placeholder := &model.Occurrence{Date: date, Kind: model.ChoreKitchen, Completed: true}
	ok, err := f.strikes.Eligible(ctx, placeholder, model.P2)
	if err != nil {
		t.Fatalf("eligible placeholder: %v", err)
	}
	if ok {
		t.Error("unpersisted occurrence should not be eligible")
	}

	pending, err := f.chores.AddComment(ctx, ledger.OccurrenceRef{Date: date, Kind: model.ChoreKitchen}, model.P2, "not yet", nil)
	if err != nil {
		t.Fatalf("materialize: %v", err)
	}
	occ, _ := f.chores.GetByID(ctx, pending.OccurrenceID)
	if ok, _ := f.strikes.Eligible(ctx, occ, model.P2); ok {
		t.Error("pending occurrence should not be eligible")
	}

	occ, err = f.chores.Toggle(ctx, date, model.ChoreKitchen, model.P1)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if ok, _ := f.strikes.Eligible(ctx, occ, model.P1); ok {
		t.Error("assignee should not be eligible to strike own chore")
	}
	if ok, _ := f.strikes.Eligible(ctx, occ, model.P2); !ok {
		t.Error("other participant should be eligible")
	}
}

func TestIssueRules(t *testing.T) {
	ctx := context.Background()
	f := setupLedger(t, testutil.At(2026, time.January, 20))
	date := calendar.New(2026, time.January, 20)

	occ, err := f.chores.Toggle(ctx, date, model.ChoreKitchen, model.P1)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	missing := int64(9999)

	tests := []struct {
		name string
		in   ledger.NewStrike
		want error
	}{
		{"no reason", ledger.NewStrike{IssuedBy: model.P2, IssuedTo: model.P1, Reason: " "}, ledger.ErrInvalidState},
		{"self", ledger.NewStrike{IssuedBy: model.P1, IssuedTo: model.P1, Reason: "x"}, ledger.ErrInvalidState},
		{"unknown occurrence", ledger.NewStrike{IssuedBy: model.P2, OccurrenceID: &missing, Reason: "x"}, ledger.ErrNotFound},
		{"assignee strikes own chore", ledger.NewStrike{IssuedBy: model.P1, OccurrenceID: &occ.ID, Reason: "x"}, ledger.ErrInvalidState},
		{"wrong recipient", ledger.NewStrike{IssuedBy: model.P2, IssuedTo: model.P2, OccurrenceID: &occ.ID, Reason: "x"}, ledger.ErrInvalidState},
		{"unknown issuer", ledger.NewStrike{IssuedBy: "p9", IssuedTo: model.P1, Reason: "x"}, ledger.ErrNotAuthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.strikes.Issue(ctx, tt.in)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}

	n, err := f.strikes.Count(ctx, model.P1, "2026-01")
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("rejected strikes were recorded: count = %d", n)
	}
}

func TestStrikeAggregation(t *testing.T) {
	ctx := context.Background()
	f := setupLedger(t, testutil.At(2026, time.January, 20))

	for i, in := range []ledger.NewStrike{
		{IssuedBy: model.P1, IssuedTo: model.P2, Reason: "first"},
		{IssuedBy: model.P1, IssuedTo: model.P2, Reason: "second"},
		{IssuedBy: model.P2, IssuedTo: model.P1, Reason: "third"},
	} {
		if _, err := f.strikes.Issue(ctx, in); err != nil {
			t.Fatalf("issue %d: %v", i, err)
		}
		f.clock.Advance(time.Minute)
	}
	f.clock.Set(time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC))
	if _, err := f.strikes.Issue(ctx, ledger.NewStrike{IssuedBy: model.P1, IssuedTo: model.P2, Reason: "february"}); err != nil {
		t.Fatalf("issue february: %v", err)
	}

	strikes, err := f.strikes.ForMonth(ctx, "2026-01")
	if err != nil {
		t.Fatalf("for month: %v", err)
	}
	if len(strikes) != 3 {
		t.Fatalf("strikes = %d, want 3", len(strikes))
	}
	if strikes[0].Reason != "third" || strikes[2].Reason != "first" {
		t.Errorf("order = %s..%s, want newest first", strikes[0].Reason, strikes[2].Reason)
	}

	if n, _ := f.strikes.Count(ctx, model.P2, "2026-01"); n != 2 {
		t.Errorf("p2 january = %d, want 2", n)
	}
	if n, _ := f.strikes.Count(ctx, model.P1, "2026-01"); n != 1 {
		t.Errorf("p1 january = %d, want 1", n)
	}
	if n, _ := f.strikes.Count(ctx, model.P2, "2026-02"); n != 1 {
		t.Errorf("p2 february = %d, want 1", n)
	}
}
