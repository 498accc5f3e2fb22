package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/chorechart/internal/auth"
	"github.com/dukerupert/chorechart/internal/calendar"
	"github.com/dukerupert/chorechart/internal/ledger"
	"github.com/dukerupert/chorechart/internal/metrics"
	"github.com/dukerupert/chorechart/internal/model"
	"github.com/dukerupert/chorechart/internal/websocket"
)

// StrikeNotifier tells a recipient about a new strike.
type StrikeNotifier interface {
	NotifyStrike(ctx context.Context, s *model.Strike)
}

type StrikeHandler struct {
	strikes  *ledger.Strikes
	notifier StrikeNotifier
	hub      *websocket.Hub
	clock    calendar.Clock
	logger   *slog.Logger
}

// NewStrikeHandler creates the strike handler. notifier may be nil when push
// notifications are not configured.
func NewStrikeHandler(strikes *ledger.Strikes, notifier StrikeNotifier, hub *websocket.Hub, clock calendar.Clock, logger *slog.Logger) *StrikeHandler {
	return &StrikeHandler{strikes: strikes, notifier: notifier, hub: hub, clock: clock, logger: logger}
}

type strikeRequest struct {
	IssuedTo     model.Participant   `json:"issued_to"`
	OccurrenceID *int64              `json:"occurrence_id"`
	Reason       string              `json:"reason"`
	Attachments  []attachmentRequest `json:"attachments"`
}

// Create handles POST /api/strikes
func (h *StrikeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req strikeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	actor := auth.Participant(r.Context())

	st, err := h.strikes.Issue(r.Context(), ledger.NewStrike{
		IssuedBy:     actor,
		IssuedTo:     req.IssuedTo,
		OccurrenceID: req.OccurrenceID,
		Reason:       req.Reason,
		Attachments:  toAttachments(req.Attachments),
	})
	if err != nil {
		writeLedgerError(w, h.logger, err, "failed to issue strike")
		return
	}

	metrics.Strikes.WithLabelValues(string(st.IssuedTo)).Inc()
	broadcast(h.hub, websocket.NewMessage("strike", "created", st.ID, actor, map[string]any{
		"issued_to":     st.IssuedTo,
		"occurrence_id": st.OccurrenceID,
		"month":         st.Month,
	}))
	sendTo(h.hub, st.IssuedTo, websocket.NewMessage("strike", "received", st.ID, actor, map[string]any{
		"reason": st.Reason,
	}))
	if h.notifier != nil {
		h.notifier.NotifyStrike(r.Context(), st)
	}
	writeJSON(w, http.StatusCreated, st)
}

// List handles GET /api/strikes?month=
func (h *StrikeHandler) List(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParam(r, r.URL.Query().Get("month"), h.clock)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid month")
		return
	}

	strikes, err := h.strikes.ForMonth(r.Context(), month)
	if err != nil {
		writeLedgerError(w, h.logger, err, "failed to list strikes")
		return
	}
	writeJSON(w, http.StatusOK, strikes)
}

// Count handles GET /api/strikes/count?month=
func (h *StrikeHandler) Count(w http.ResponseWriter, r *http.Request) {
	month, ok := monthParam(r, r.URL.Query().Get("month"), h.clock)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "invalid month")
		return
	}

	counts := make(map[model.Participant]int, len(model.Participants))
	for _, p := range model.Participants {
		n, err := h.strikes.Count(r.Context(), p, month)
		if err != nil {
			writeLedgerError(w, h.logger, err, "failed to count strikes")
			return
		}
		counts[p] = n
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"month":  month,
		"counts": counts,
	})
}
