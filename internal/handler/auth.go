package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/chorechart/internal/auth"
	"github.com/dukerupert/chorechart/internal/middleware"
	"github.com/dukerupert/chorechart/internal/model"
	"github.com/dukerupert/chorechart/internal/store"
)

type AuthHandler struct {
	participants *store.ParticipantStore
	sessions     *store.SessionStore
	ttl          time.Duration
	secure       bool
	logger       *slog.Logger
}

// NewAuthHandler creates the login handler. Sessions last ttl; secure forces
// the Secure cookie attribute even on plain HTTP behind a TLS proxy.
func NewAuthHandler(ps *store.ParticipantStore, ss *store.SessionStore, ttl time.Duration, secure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{participants: ps, sessions: ss, ttl: ttl, secure: secure, logger: logger}
}

type loginRequest struct {
	Participant model.Participant `json:"participant"`
	Password    string            `json:"password"`
}

// Login handles POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !req.Participant.Valid() {
		writeMessage(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	hash, err := h.participants.PasswordHash(r.Context(), req.Participant)
	if err != nil {
		h.logger.Error("login lookup", "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to log in")
		return
	}
	if !auth.CheckPassword(hash, req.Password) {
		h.logger.Warn("login failed", "participant", req.Participant, "remote", middleware.RealIP(r))
		writeMessage(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	sess, err := h.sessions.Create(r.Context(), req.Participant, h.ttl)
	if err != nil {
		h.logger.Error("create session", "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to log in")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    sess.Token,
		Path:     "/",
		MaxAge:   int(h.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.secure || r.TLS != nil,
	})

	prof, err := h.participants.Get(r.Context(), req.Participant)
	if err != nil {
		h.logger.Error("get profile", "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to log in")
		return
	}
	h.logger.Info("login", "participant", req.Participant)
	writeJSON(w, http.StatusOK, prof)
}

// Logout handles POST /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(middleware.SessionCookieName); err == nil && cookie.Value != "" {
		if err := h.sessions.DeleteByToken(r.Context(), cookie.Value); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	prof, err := h.participants.Get(r.Context(), auth.Participant(r.Context()))
	if err != nil {
		h.logger.Error("get profile", "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to get profile")
		return
	}
	if prof == nil {
		writeMessage(w, http.StatusNotFound, "participant not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"profile": prof,
		"admin":   auth.IsAdmin(r.Context()),
	})
}

// Participants handles GET /api/participants
func (h *AuthHandler) Participants(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.participants.List(r.Context())
	if err != nil {
		h.logger.Error("list participants", "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to list participants")
		return
	}
	writeJSON(w, http.StatusOK, profiles)
}

// TutorialShown handles PUT /api/me/tutorial
func (h *AuthHandler) TutorialShown(w http.ResponseWriter, r *http.Request) {
	if err := h.participants.MarkTutorialShown(r.Context(), auth.Participant(r.Context())); err != nil {
		h.logger.Error("mark tutorial shown", "error", err)
		writeMessage(w, http.StatusInternalServerError, "failed to update profile")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
