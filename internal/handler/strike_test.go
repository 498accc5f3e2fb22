package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dukerupert/chorechart/internal/model"
	"github.com/dukerupert/chorechart/internal/testutil"
)

type recordingNotifier struct {
	strikes []*model.Strike
}

func (n *recordingNotifier) NotifyStrike(_ context.Context, s *model.Strike) {
	n.strikes = append(n.strikes, s)
}

func TestStrikeEndpoints(t *testing.T) {
	app := newTestApp(t, testutil.At(2026, time.January, 19))
	notifier := &recordingNotifier{}
	app.strike.notifier = notifier

	rec := serve(t, togglePattern, app.chore.Toggle, "POST", "/api/occurrences/2026-01-19/sweeping_mopping/toggle", model.P1, nil)
	occ := decode[toggleResponse](t, rec).Occurrence

	body := map[string]any{"occurrence_id": occ.ID, "reason": "floor still sticky"}
	rec = serve(t, "POST /api/strikes", app.strike.Create, "POST", "/api/strikes", model.P2, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	st := decode[model.Strike](t, rec)
	if st.IssuedTo != model.P1 || st.IssuedBy != model.P2 || st.Month != "2026-01" {
		t.Errorf("strike = %+v", st)
	}
	if len(notifier.strikes) != 1 || notifier.strikes[0].IssuedTo != model.P1 {
		t.Errorf("notified = %+v", notifier.strikes)
	}

	rec = serve(t, "POST /api/strikes", app.strike.Create, "POST", "/api/strikes", model.P2, body)
	if rec.Code != http.StatusConflict {
		t.Errorf("second strike on same occurrence: status = %d, want 409", rec.Code)
	}

	tests := []struct {
		name  string
		actor model.Participant
		body  map[string]any
		want  int
	}{
		{"self strike", model.P1, map[string]any{"issued_to": "p1", "reason": "oops"}, http.StatusConflict},
		{"no reason", model.P2, map[string]any{"issued_to": "p1", "reason": " "}, http.StatusConflict},
		{"unknown occurrence", model.P2, map[string]any{"occurrence_id": 999, "reason": "x"}, http.StatusNotFound},
		{"free-standing", model.P1, map[string]any{"issued_to": "p2", "reason": "left lights on"}, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, "POST /api/strikes", app.strike.Create, "POST", "/api/strikes", tt.actor, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body)
			}
		})
	}

	rec = serve(t, "GET /api/strikes", app.strike.List, "GET", "/api/strikes?month=2026-01", model.P1, nil)
	if list := decode[[]model.Strike](t, rec); len(list) != 2 {
		t.Errorf("strikes = %d, want 2", len(list))
	}

	// Month defaults to the clock's month
	rec = serve(t, "GET /api/strikes/count", app.strike.Count, "GET", "/api/strikes/count", model.P1, nil)
	counts := decode[struct {
		Month  string                    `json:"month"`
		Counts map[model.Participant]int `json:"counts"`
	}](t, rec)
	if counts.Month != "2026-01" || counts.Counts[model.P1] != 1 || counts.Counts[model.P2] != 1 {
		t.Errorf("counts = %+v", counts)
	}

	rec = serve(t, "GET /api/strikes", app.strike.List, "GET", "/api/strikes?month=jan", model.P1, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad month: status = %d, want 400", rec.Code)
	}
}
