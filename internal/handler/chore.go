package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/chorechart/internal/auth"
	"github.com/dukerupert/chorechart/internal/calendar"
	"github.com/dukerupert/chorechart/internal/chore"
	"github.com/dukerupert/chorechart/internal/ledger"
	"github.com/dukerupert/chorechart/internal/metrics"
	"github.com/dukerupert/chorechart/internal/model"
	"github.com/dukerupert/chorechart/internal/reward"
	"github.com/dukerupert/chorechart/internal/schedule"
	"github.com/dukerupert/chorechart/internal/websocket"
)

type ChoreHandler struct {
	chores  *ledger.Chores
	strikes *ledger.Strikes
	rewards *reward.Service
	hub     *websocket.Hub
	clock   calendar.Clock
	logger  *slog.Logger
}

func NewChoreHandler(chores *ledger.Chores, strikes *ledger.Strikes, rewards *reward.Service, hub *websocket.Hub, clock calendar.Clock, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{chores: chores, strikes: strikes, rewards: rewards, hub: hub, clock: clock, logger: logger}
}

// choreView is one scheduled chore as the client sees it: the computed
// assignee, what the caller may do with it today and whatever is recorded.
type choreView struct {
	schedule.Assignment
	Status         chore.Status      `json:"status"`
	Actionable     bool              `json:"actionable"`
	CommentsOpen   bool              `json:"comments_open"`
	Occurrence     *model.Occurrence `json:"occurrence"`
	Strikes        []model.Strike    `json:"strikes"`
	StrikeEligible bool              `json:"strike_eligible"`
}

func (h *ChoreHandler) view(ctx context.Context, a schedule.Assignment, occ *model.Occurrence, actor model.Participant, today calendar.Date) (choreView, error) {
	v := choreView{
		Assignment:   a,
		Status:       chore.ComputeStatus(a.Date, occ, today),
		Actionable:   a.Participant == actor && schedule.IsActionable(a.Date, today),
		CommentsOpen: schedule.CommentsOpen(a.Date, today),
		Occurrence:   occ,
		Strikes:      []model.Strike{},
	}
	if !occ.Persisted() {
		return v, nil
	}

	var err error
	if v.Strikes, err = h.strikes.ForOccurrence(ctx, occ.ID); err != nil {
		return v, err
	}
	if v.StrikeEligible, err = h.strikes.Eligible(ctx, occ, actor); err != nil {
		return v, err
	}
	return v, nil
}

// Assignments handles GET /api/assignments/{date}
func (h *ChoreHandler) Assignments(w http.ResponseWriter, r *http.Request) {
	date, err := calendar.Parse(r.PathValue("date"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid date")
		return
	}

	actor := auth.Participant(r.Context())
	today := calendar.Today(h.clock)
	views := []choreView{}
	for _, a := range schedule.ForDate(date) {
		occ, err := h.chores.Get(r.Context(), a.Date, a.Kind)
		if err != nil {
			writeLedgerError(w, h.logger, err, "failed to get occurrence")
			return
		}
		v, err := h.view(r.Context(), a, occ, actor, today)
		if err != nil {
			writeLedgerError(w, h.logger, err, "failed to get occurrence")
			return
		}
		views = append(views, v)
	}
	writeJSON(w, http.StatusOK, views)
}

// Calendar handles GET /api/calendar/{month}
func (h *ChoreHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	month := r.PathValue("month")
	first, err := calendar.ParseYearMonth(month)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid month")
		return
	}

	occs, err := h.chores.Month(r.Context(), month)
	if err != nil {
		writeLedgerError(w, h.logger, err, "failed to list occurrences")
		return
	}
	type key struct {
		date string
		kind model.ChoreKind
	}
	recorded := make(map[key]*model.Occurrence, len(occs))
	for i := range occs {
		recorded[key{occs[i].Date.String(), occs[i].Kind}] = &occs[i]
	}

	lookup := func(a schedule.Assignment) *model.Occurrence {
		return recorded[key{a.Date.String(), a.Kind}]
	}

	actor := auth.Participant(r.Context())
	today := calendar.Today(h.clock)
	assignments := schedule.ForMonth(first)
	views := []choreView{}
	for _, a := range assignments {
		v, err := h.view(r.Context(), a, lookup(a), actor, today)
		if err != nil {
			writeLedgerError(w, h.logger, err, "failed to build calendar")
			return
		}
		views = append(views, v)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"month":   month,
		"today":   today,
		"chores":  views,
		"summary": chore.Summarize(assignments, lookup, today),
	})
}

// Get handles GET /api/occurrences/{date}/{kind}
func (h *ChoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	date, kind, ok := parseDateKind(w, r)
	if !ok {
		return
	}
	assignee, scheduled := schedule.Assign(kind, date)
	if !scheduled {
		writeMessage(w, http.StatusNotFound, "chore not scheduled on this date")
		return
	}

	occ, err := h.chores.Get(r.Context(), date, kind)
	if err != nil {
		writeLedgerError(w, h.logger, err, "failed to get occurrence")
		return
	}
	a := schedule.Assignment{Date: date, Kind: kind, Label: kind.Label(), Participant: assignee}
	v, err := h.view(r.Context(), a, occ, auth.Participant(r.Context()), calendar.Today(h.clock))
	if err != nil {
		writeLedgerError(w, h.logger, err, "failed to get occurrence")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Toggle handles POST /api/occurrences/{date}/{kind}/toggle
func (h *ChoreHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	date, kind, ok := parseDateKind(w, r)
	if !ok {
		return
	}
	actor := auth.Participant(r.Context())

	occ, err := h.chores.Toggle(r.Context(), date, kind, actor)
	if err != nil {
		writeLedgerError(w, h.logger, err, "failed to toggle chore")
		return
	}

	state := "pending"
	if occ.Completed {
		state = "completed"
	}
	metrics.ChoreToggles.WithLabelValues(string(kind), state).Inc()
	broadcast(h.hub, websocket.NewMessage("occurrence", "toggled", occ.ID, actor, map[string]any{
		"date":      occ.Date,
		"kind":      occ.Kind,
		"completed": occ.Completed,
	}))

	celebrate := false
	if occ.Completed {
		celebrate = celebrateIfDue(r.Context(), h.rewards, h.hub, h.logger, actor, calendar.Today(h.clock), h.rewards.AfterCompletion)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"occurrence": occ,
		"celebrate":  celebrate,
	})
}

type commentRequest struct {
	Text        string              `json:"text"`
	Attachments []attachmentRequest `json:"attachments"`
}

// AddCommentByKey handles POST /api/occurrences/{date}/{kind}/comments
func (h *ChoreHandler) AddCommentByKey(w http.ResponseWriter, r *http.Request) {
	date, kind, ok := parseDateKind(w, r)
	if !ok {
		return
	}
	h.addComment(w, r, ledger.OccurrenceRef{Date: date, Kind: kind})
}

// AddCommentByID handles POST /api/occurrences/{id}/comments
func (h *ChoreHandler) AddCommentByID(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	h.addComment(w, r, ledger.OccurrenceRef{ID: id})
}

func (h *ChoreHandler) addComment(w http.ResponseWriter, r *http.Request, ref ledger.OccurrenceRef) {
	var req commentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	actor := auth.Participant(r.Context())

	comment, err := h.chores.AddComment(r.Context(), ref, actor, req.Text, toAttachments(req.Attachments))
	if err != nil {
		writeLedgerError(w, h.logger, err, "failed to add comment")
		return
	}

	metrics.Comments.WithLabelValues("added").Inc()
	broadcast(h.hub, websocket.NewMessage("comment", "added", comment.OccurrenceID, actor, map[string]any{
		"comment_id": comment.ID,
	}))
	writeJSON(w, http.StatusCreated, comment)
}

// DeleteComment handles DELETE /api/occurrences/{id}/comments/{comment_id}
func (h *ChoreHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil || id <= 0 {
		writeMessage(w, http.StatusBadRequest, "invalid id")
		return
	}
	commentID := r.PathValue("comment_id")

	if err := h.chores.DeleteComment(r.Context(), id, commentID); err != nil {
		writeLedgerError(w, h.logger, err, "failed to delete comment")
		return
	}

	metrics.Comments.WithLabelValues("deleted").Inc()
	broadcast(h.hub, websocket.NewMessage("comment", "deleted", id, auth.Participant(r.Context()), map[string]any{
		"comment_id": commentID,
	}))
	w.WriteHeader(http.StatusNoContent)
}

// celebrateIfDue runs check for p and announces a celebration. The triggering
// write has already happened, so a failure here is logged and swallowed.
func celebrateIfDue(ctx context.Context, rewards *reward.Service, hub *websocket.Hub, logger *slog.Logger, p model.Participant, today calendar.Date, check func(context.Context, model.Participant, calendar.Date) (bool, error)) bool {
	if rewards == nil {
		return false
	}
	fire, err := check(ctx, p, today)
	if err != nil {
		logger.Error("celebration check", "participant", p, "error", err)
		return false
	}
	if fire {
		metrics.Celebrations.Inc()
		broadcast(hub, websocket.NewMessage("participant", "celebrate", 0, p, nil))
	}
	return fire
}
