package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/chorechart/internal/auth"
	"github.com/dukerupert/chorechart/internal/backup"
	"github.com/dukerupert/chorechart/internal/store"
	"github.com/dukerupert/chorechart/internal/websocket"
)

type AdminHandler struct {
	participants *store.ParticipantStore
	backups      *backup.Manager
	hub          *websocket.Hub
	logger       *slog.Logger
}

func NewAdminHandler(ps *store.ParticipantStore, backups *backup.Manager, hub *websocket.Hub, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{participants: ps, backups: backups, hub: hub, logger: logger}
}

// Reset handles POST /api/admin/reset
func (h *AdminHandler) Reset(w http.ResponseWriter, r *http.Request) {
	actor := auth.Participant(r.Context())
	if err := h.participants.ResetActivity(r.Context()); err != nil {
		h.logger.Error("reset activity", "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to reset")
		return
	}

	h.logger.Warn("activity reset", "by", actor)
	broadcast(h.hub, websocket.NewMessage("app", "reset", 0, actor, nil))
	w.WriteHeader(http.StatusNoContent)
}

// RunBackup handles POST /api/admin/backups
func (h *AdminHandler) RunBackup(w http.ResponseWriter, r *http.Request) {
	if !h.backups.Enabled() {
		writeMessage(w, http.StatusServiceUnavailable, "backups not configured")
		return
	}

	key, err := h.backups.RunNow(r.Context())
	if err != nil {
		h.logger.Error("run backup", "error", err)
		writeMessage(w, http.StatusInternalServerError, "backup failed")
		return
	}
	h.logger.Info("manual backup", "by", auth.Participant(r.Context()), "key", key)
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}

// ListBackups handles GET /api/admin/backups
func (h *AdminHandler) ListBackups(w http.ResponseWriter, r *http.Request) {
	if !h.backups.Enabled() {
		writeMessage(w, http.StatusServiceUnavailable, "backups not configured")
		return
	}

	snaps, err := h.backups.List(r.Context())
	if err != nil {
		h.logger.Error("list backups", "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to list backups")
		return
	}
	if snaps == nil {
		snaps = []backup.Snapshot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  h.backups.Status(),
		"backups": snaps,
	})
}
