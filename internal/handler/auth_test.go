package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/chorechart/internal/auth"
	"github.com/dukerupert/chorechart/internal/middleware"
	"github.com/dukerupert/chorechart/internal/model"
	"github.com/dukerupert/chorechart/internal/testutil"
)

func setPassword(t *testing.T, app *testApp, p model.Participant, pw string) {
	t.Helper()
	hash, err := auth.HashPassword(pw)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := app.participants.SetPasswordHash(t.Context(), p, hash); err != nil {
		t.Fatalf("set hash: %v", err)
	}
}

func TestLogin(t *testing.T) {
	app := newTestApp(t, testutil.At(2026, time.March, 4))
	setPassword(t, app, model.P2, "hunter2hunter2")

	tests := []struct {
		name string
		body any
		want int
	}{
		{"wrong password", map[string]string{"participant": "p2", "password": "nope"}, http.StatusUnauthorized},
		{"no password set", map[string]string{"participant": "p1", "password": ""}, http.StatusUnauthorized},
		{"unknown participant", map[string]string{"participant": "p3", "password": "hunter2hunter2"}, http.StatusUnauthorized},
		{"bad json", "{", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, "POST /login", app.auth.Login, "POST", "/login", "", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if len(rec.Result().Cookies()) != 0 {
				t.Error("failed login must not set a cookie")
			}
		})
	}

	rec := serve(t, "POST /login", app.auth.Login, "POST", "/login", "", map[string]string{"participant": "p2", "password": "hunter2hunter2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != middleware.SessionCookieName || !cookies[0].HttpOnly {
		t.Fatalf("cookies = %+v", cookies)
	}
	sess, err := app.sessions.GetByToken(t.Context(), cookies[0].Value)
	if err != nil || sess == nil || sess.Participant != model.P2 {
		t.Fatalf("session = %+v, %v", sess, err)
	}
	if prof := decode[model.Profile](t, rec); prof.Participant != model.P2 || !prof.HasPassword {
		t.Errorf("profile = %+v", prof)
	}

	// Logout drops the session
	req := httptest.NewRequest("POST", "/logout", nil)
	req.AddCookie(cookies[0])
	out := httptest.NewRecorder()
	app.auth.Logout(out, req)
	if out.Code != http.StatusNoContent {
		t.Errorf("logout status = %d", out.Code)
	}
	if sess, _ := app.sessions.GetByToken(t.Context(), cookies[0].Value); sess != nil {
		t.Error("session should be gone after logout")
	}
}

func TestMeAndTutorial(t *testing.T) {
	app := newTestApp(t, testutil.At(2026, time.March, 4))

	rec := serve(t, "PUT /api/me/tutorial", app.auth.TutorialShown, "PUT", "/api/me/tutorial", model.P1, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("tutorial status = %d", rec.Code)
	}

	rec = serve(t, "GET /api/me", app.auth.Me, "GET", "/api/me", model.P1, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d", rec.Code)
	}
	me := decode[struct {
		Profile model.Profile `json:"profile"`
		Admin   bool          `json:"admin"`
	}](t, rec)
	if me.Profile.Participant != model.P1 || !me.Profile.TutorialShown {
		t.Errorf("profile = %+v", me.Profile)
	}

	rec = serve(t, "GET /api/participants", app.auth.Participants, "GET", "/api/participants", model.P1, nil)
	if list := decode[[]model.Profile](t, rec); len(list) != 2 {
		t.Errorf("participants = %d, want 2", len(list))
	}
	if strings.Contains(rec.Body.String(), "password_hash") {
		t.Error("participant listing must not expose hashes")
	}
}

func TestAdminReset(t *testing.T) {
	app := newTestApp(t, testutil.At(2026, time.January, 19))
	serve(t, togglePattern, app.chore.Toggle, "POST", "/api/occurrences/2026-01-19/sweeping_mopping/toggle", model.P1, nil)

	rec := serve(t, "POST /api/admin/reset", app.admin.Reset, "POST", "/api/admin/reset", model.P1, nil)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}

	occs, err := app.chores.Month(t.Context(), "2026-01")
	if err != nil {
		t.Fatalf("month: %v", err)
	}
	if len(occs) != 0 {
		t.Errorf("occurrences after reset = %d, want 0", len(occs))
	}
}

func TestAdminBackupsDisabled(t *testing.T) {
	app := newTestApp(t, testutil.At(2026, time.January, 19))

	rec := serve(t, "POST /api/admin/backups", app.admin.RunBackup, "POST", "/api/admin/backups", model.P1, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("run status = %d, want 503", rec.Code)
	}
	rec = serve(t, "GET /api/admin/backups", app.admin.ListBackups, "GET", "/api/admin/backups", model.P1, nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("list status = %d, want 503", rec.Code)
	}
}
