package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dukerupert/chorechart/internal/backup"
	"github.com/dukerupert/chorechart/internal/calendar"
	"github.com/dukerupert/chorechart/internal/config"
	"github.com/dukerupert/chorechart/internal/handler"
	"github.com/dukerupert/chorechart/internal/ledger"
	"github.com/dukerupert/chorechart/internal/media"
	"github.com/dukerupert/chorechart/internal/middleware"
	"github.com/dukerupert/chorechart/internal/model"
	"github.com/dukerupert/chorechart/internal/push"
	"github.com/dukerupert/chorechart/internal/reward"
	"github.com/dukerupert/chorechart/internal/store"
	ws "github.com/dukerupert/chorechart/internal/websocket"
)

type Server struct {
	db             *sql.DB
	hub            *ws.Hub
	authH          *handler.AuthHandler
	choreH         *handler.ChoreHandler
	tallyH         *handler.TallyHandler
	strikeH        *handler.StrikeHandler
	mediaH         *handler.MediaHandler
	adminH         *handler.AdminHandler
	pushH          *handler.PushHandler
	sessionStore   *store.SessionStore
	pushStore      *store.PushStore
	rateLimiter    *middleware.RateLimiter
	notifier       *push.Notifier
	backups        *backup.Manager
	admin          model.Participant
	originPatterns []string
	logger         *slog.Logger
}

func New(db *sql.DB, cfg config.Config, clock calendar.Clock, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	ids := ledger.UUIDGenerator{}

	choreStore := store.NewChoreStore(db)
	participantStore := store.NewParticipantStore(db)
	sessionStore := store.NewSessionStore(db)
	pushSt := store.NewPushStore(db)

	ledgerLogger := logger.With("component", "ledger")
	chores := ledger.NewChores(choreStore, clock, ids, ledgerLogger)
	strikes := ledger.NewStrikes(store.NewStrikeStore(db), choreStore, clock, ids, ledgerLogger)
	tallies := ledger.NewTallies(store.NewTallyStore(db), ledgerLogger)
	rewards := reward.NewService(
		reward.NewTrigger(cfg.RewardParticipant, reward.SystemRand),
		participantStore,
		logger.With("component", "reward"),
	)

	// Push notification service + notifier
	var pushH *handler.PushHandler
	var notifier *push.Notifier
	var strikeNotifier handler.StrikeNotifier
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		pushSvc := push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.PushSubscriber)
		notifier = push.NewNotifier(pushSvc, pushSt, clock, cfg.ReminderHour, logger.With("component", "push"))
		strikeNotifier = notifier
		pushH = handler.NewPushHandler(pushSt, pushSvc, logger.With("component", "push_handler"))
	}

	backupMgr := backup.NewManager(cfg.Backup, db, clock, func(st backup.Status) {
		hub.Broadcast(ws.NewMessage("backup", string(st.State), 0, "", map[string]any{
			"in_progress": st.InProgress,
			"error":       st.Error,
		}))
	}, logger.With("component", "backup"))

	return &Server{
		db:             db,
		hub:            hub,
		authH:          handler.NewAuthHandler(participantStore, sessionStore, cfg.SessionTTL, cfg.SecureCookies, logger.With("component", "auth")),
		choreH:         handler.NewChoreHandler(chores, strikes, rewards, hub, clock, logger.With("component", "chore")),
		tallyH:         handler.NewTallyHandler(tallies, rewards, hub, clock, logger.With("component", "tally")),
		strikeH:        handler.NewStrikeHandler(strikes, strikeNotifier, hub, clock, logger.With("component", "strike")),
		mediaH:         handler.NewMediaHandler(media.NewStore(cfg.Media), logger.With("component", "media")),
		adminH:         handler.NewAdminHandler(participantStore, backupMgr, hub, logger.With("component", "admin")),
		pushH:          pushH,
		sessionStore:   sessionStore,
		pushStore:      pushSt,
		rateLimiter:    middleware.NewRateLimiter(),
		notifier:       notifier,
		backups:        backupMgr,
		admin:          cfg.AdminParticipant,
		originPatterns: cfg.OriginPatterns,
		logger:         logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Notifier returns the push notifier, or nil when push is not configured.
func (s *Server) Notifier() *push.Notifier {
	return s.notifier
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backups
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public routes (no auth required)
	mux.HandleFunc("POST /login", s.rateLimitedHandler(s.authH.Login))
	mux.HandleFunc("POST /logout", s.authH.Logout)
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.registerProtectedRoutes(mux)

	return middleware.Metrics(middleware.RequestLogger(s.logger.With("component", "http"))(mux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

// registerProtectedRoutes wraps each route in RequireAuth individually so
// the mux pattern stays visible to the metrics and logging middleware.
func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	requireAuth := middleware.RequireAuth(s.sessionStore, s.admin)
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, requireAuth(h))
	}

	handle("GET /ws", ws.HandleWebSocket(s.hub, s.originPatterns, s.logger.With("component", "websocket")))

	// Profile
	handle("GET /api/me", s.authH.Me)
	handle("PUT /api/me/tutorial", s.authH.TutorialShown)
	handle("GET /api/participants", s.authH.Participants)

	// Schedule and chore ledger
	handle("GET /api/assignments/{date}", s.choreH.Assignments)
	handle("GET /api/calendar/{month}", s.choreH.Calendar)
	handle("GET /api/occurrences/{date}/{kind}", s.choreH.Get)
	handle("POST /api/occurrences/{date}/{kind}/toggle", s.choreH.Toggle)
	handle("POST /api/occurrences/{date}/{kind}/comments", s.choreH.AddCommentByKey)
	handle("POST /api/occurrences/{id}/comments", s.choreH.AddCommentByID)
	handle("DELETE /api/occurrences/{id}/comments/{comment_id}", s.choreH.DeleteComment)

	// Trash tally
	handle("GET /api/tally/{month}", s.tallyH.Month)
	handle("POST /api/tally/{participant}/increment", s.tallyH.Increment)
	handle("POST /api/tally/{participant}/decrement", s.tallyH.Decrement)

	// Strikes
	handle("POST /api/strikes", s.strikeH.Create)
	handle("GET /api/strikes", s.strikeH.List)
	handle("GET /api/strikes/count", s.strikeH.Count)

	// Attachments
	handle("POST /api/media", s.mediaH.Upload)
	handle("GET /api/media/{ref...}", s.mediaH.Get)

	// Admin
	admin := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, requireAuth(middleware.RequireAdmin(h)))
	}
	admin("POST /api/admin/reset", s.adminH.Reset)
	admin("POST /api/admin/backups", s.adminH.RunBackup)
	admin("GET /api/admin/backups", s.adminH.ListBackups)

	// Push notification API routes
	if s.pushH != nil {
		handle("POST /api/push/subscribe", s.pushH.Subscribe)
		handle("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)
		handle("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
		handle("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	}
}
