package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/chorechart/internal/calendar"
	"github.com/dukerupert/chorechart/internal/ledger"
	"github.com/dukerupert/chorechart/internal/metrics"
	"github.com/dukerupert/chorechart/internal/model"
	"github.com/dukerupert/chorechart/internal/websocket"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeLedgerError maps ledger errors to HTTP statuses. Anything that is not a
// domain rejection is logged and reported as msg with a 500.
func writeLedgerError(w http.ResponseWriter, logger *slog.Logger, err error, msg string) {
	var status int
	var reason string
	switch {
	case errors.Is(err, ledger.ErrNotAuthorized):
		status, reason = http.StatusForbidden, "not_authorized"
	case errors.Is(err, ledger.ErrOutOfWindow):
		status, reason = http.StatusUnprocessableEntity, "out_of_window"
	case errors.Is(err, ledger.ErrNotFound):
		status, reason = http.StatusNotFound, "not_found"
	case errors.Is(err, ledger.ErrInvalidState):
		status, reason = http.StatusConflict, "invalid_state"
	default:
		logger.Error(msg, "error", err)
		writeMessage(w, http.StatusInternalServerError, msg)
		return
	}
	metrics.Rejections.WithLabelValues(reason).Inc()
	writeMessage(w, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(r.PathValue(name), 10, 64)
}

// parseDateKind reads the {date} and {kind} path values.
func parseDateKind(w http.ResponseWriter, r *http.Request) (calendar.Date, model.ChoreKind, bool) {
	date, err := calendar.Parse(r.PathValue("date"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid date")
		return calendar.Date{}, "", false
	}
	kind, err := model.ParseChoreKind(r.PathValue("kind"))
	if err != nil {
		writeMessage(w, http.StatusNotFound, "unknown chore kind")
		return calendar.Date{}, "", false
	}
	return date, kind, true
}

// monthParam returns the month from the named path value or query parameter,
// defaulting to the current month.
func monthParam(r *http.Request, value string, clock calendar.Clock) (string, bool) {
	if value == "" {
		return calendar.YearMonthOf(clock.Now()), true
	}
	return value, calendar.ValidYearMonth(value)
}

type attachmentRequest struct {
	Kind model.AttachmentKind `json:"kind"`
	Ref  string               `json:"ref"`
	Name string               `json:"name"`
}

func toAttachments(in []attachmentRequest) []model.Attachment {
	out := make([]model.Attachment, len(in))
	for i, a := range in {
		out[i] = model.Attachment{Kind: a.Kind, Ref: a.Ref, Name: a.Name}
	}
	return out
}

func broadcast(hub *websocket.Hub, msg websocket.Message) {
	if hub != nil {
		hub.Broadcast(msg)
	}
}

func sendTo(hub *websocket.Hub, p model.Participant, msg websocket.Message) {
	if hub != nil {
		hub.SendTo(p, msg)
	}
}
