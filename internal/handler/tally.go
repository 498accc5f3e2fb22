package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/chorechart/internal/auth"
	"github.com/dukerupert/chorechart/internal/calendar"
	"github.com/dukerupert/chorechart/internal/ledger"
	"github.com/dukerupert/chorechart/internal/metrics"
	"github.com/dukerupert/chorechart/internal/model"
	"github.com/dukerupert/chorechart/internal/reward"
	"github.com/dukerupert/chorechart/internal/websocket"
)

type TallyHandler struct {
	tallies *ledger.Tallies
	rewards *reward.Service
	hub     *websocket.Hub
	clock   calendar.Clock
	logger  *slog.Logger
}

func NewTallyHandler(tallies *ledger.Tallies, rewards *reward.Service, hub *websocket.Hub, clock calendar.Clock, logger *slog.Logger) *TallyHandler {
	return &TallyHandler{tallies: tallies, rewards: rewards, hub: hub, clock: clock, logger: logger}
}

// Month handles GET /api/tally/{month}
func (h *TallyHandler) Month(w http.ResponseWriter, r *http.Request) {
	month := r.PathValue("month")
	if !calendar.ValidYearMonth(month) {
		writeMessage(w, http.StatusBadRequest, "invalid month")
		return
	}

	out := make(map[model.Participant]*model.TrashTally, len(model.Participants))
	for _, p := range model.Participants {
		t, err := h.tallies.Read(r.Context(), p, month)
		if err != nil {
			writeLedgerError(w, h.logger, err, "failed to read tally")
			return
		}
		out[p] = t
	}
	writeJSON(w, http.StatusOK, out)
}

// participantParam returns the {participant} path value once it is known to
// be the caller. Participants only move their own tally.
func (h *TallyHandler) participantParam(w http.ResponseWriter, r *http.Request) (model.Participant, bool) {
	p, err := model.ParseParticipant(r.PathValue("participant"))
	if err != nil {
		writeMessage(w, http.StatusNotFound, "unknown participant")
		return "", false
	}
	if p != auth.Participant(r.Context()) {
		metrics.Rejections.WithLabelValues("not_authorized").Inc()
		writeMessage(w, http.StatusForbidden, "participants may only change their own tally")
		return "", false
	}
	return p, true
}

// Increment handles POST /api/tally/{participant}/increment
func (h *TallyHandler) Increment(w http.ResponseWriter, r *http.Request) {
	p, ok := h.participantParam(w, r)
	if !ok {
		return
	}
	now := h.clock.Now()
	today := calendar.FromTime(now)

	tally, changed, err := h.tallies.Increment(r.Context(), p, calendar.YearMonthOf(now), today)
	if err != nil {
		writeLedgerError(w, h.logger, err, "failed to increment tally")
		return
	}

	celebrate := false
	if changed {
		metrics.TallyChanges.WithLabelValues(string(p), "increment").Inc()
		broadcast(h.hub, websocket.NewMessage("tally", "incremented", tally.ID, p, map[string]any{
			"month": tally.Month,
			"count": tally.Count,
		}))
		celebrate = celebrateIfDue(r.Context(), h.rewards, h.hub, h.logger, p, today, h.rewards.AfterTrashRun)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tally":     tally,
		"changed":   changed,
		"celebrate": celebrate,
	})
}

// Decrement handles POST /api/tally/{participant}/decrement
func (h *TallyHandler) Decrement(w http.ResponseWriter, r *http.Request) {
	p, ok := h.participantParam(w, r)
	if !ok {
		return
	}
	now := h.clock.Now()

	tally, err := h.tallies.Decrement(r.Context(), p, calendar.YearMonthOf(now), calendar.FromTime(now))
	if err != nil {
		writeLedgerError(w, h.logger, err, "failed to decrement tally")
		return
	}

	metrics.TallyChanges.WithLabelValues(string(p), "decrement").Inc()
	broadcast(h.hub, websocket.NewMessage("tally", "decremented", tally.ID, p, map[string]any{
		"month": tally.Month,
		"count": tally.Count,
	}))
	writeJSON(w, http.StatusOK, map[string]any{"tally": tally})
}
