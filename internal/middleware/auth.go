package middleware

import (
	"context"
	"net/http"

	"github.com/dukerupert/chorechart/internal/auth"
	"github.com/dukerupert/chorechart/internal/model"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "chorechart_session"

// SessionLookup resolves a session token; it returns nil for unknown or
// expired tokens.
type SessionLookup interface {
	GetByToken(ctx context.Context, token string) (*model.Session, error)
}

// RequireAuth validates the session cookie and populates AuthContext. admin
// names the participant allowed to use administrative endpoints.
func RequireAuth(sessions SessionLookup, admin model.Participant) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			sess, err := sessions.GetByToken(r.Context(), cookie.Value)
			if err != nil || sess == nil {
				unauthorized(w)
				return
			}

			ac := auth.AuthContext{
				Participant: sess.Participant,
				SessionID:   sess.ID,
				Admin:       sess.Participant == admin,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin checks that the authenticated participant is the admin.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAdmin(r.Context()) {
			jsonError(w, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func unauthorized(w http.ResponseWriter) {
	jsonError(w, "unauthorized", http.StatusUnauthorized)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
