// internal/httpserver/server.go
//
// HTTP server wiring for the scoreboard backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health".
//   - Leaderboard endpoints (optional auth, rate limited): mounted at
//     /leaderboard and, for older clients, /api/leaderboard.
//   - Live leaderboard feed over websocket: /leaderboard/live.
//   - Account endpoints: /auth/signup, /auth/login, /auth/logout, /auth/me.
//
// Notes:
//   - CORS is origin-aware and credentials-enabled (so cookies work).
//   - The websocket route is outside the request timeout; it lives until the
//     client or the server goes away.

package httpserver

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/patternrush/internal/leaderboard"
)

// Config holds the server's environment-driven settings.
type Config struct {
	ClientOrigin   string // CORS origin
	JWTSecret      string
	JWTExpiresDays int
	CookieName     string
	Production     bool // secure cookies
}

// ConfigFromEnv reads CLIENT_ORIGIN, JWT_SECRET, JWT_EXPIRES_DAYS,
// COOKIE_NAME and NODE_ENV.
func ConfigFromEnv() Config {
	days := 14
	if v := os.Getenv("JWT_EXPIRES_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			days = n
		}
	}
	return Config{
		ClientOrigin:   getEnv("CLIENT_ORIGIN", "http://localhost:5173"),
		JWTSecret:      getEnv("JWT_SECRET", "dev_secret_change_me"),
		JWTExpiresDays: days,
		CookieName:     getEnv("COOKIE_NAME", "patternrush_token"),
		Production:     os.Getenv("NODE_ENV") == "production",
	}
}

// Server bundles router, leaderboard storage, live hub and DB handle.
type Server struct {
	r       *chi.Mux
	db      *sql.DB
	cfg     Config
	entries *leaderboard.Store
	hub     *leaderboard.Hub

	readLimit   *Limiter
	submitLimit *Limiter
	authLimit   *Limiter
}

// New constructs a Server, installs middleware, and registers routes.
func New(db *sql.DB, cfg Config) *Server {
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev_secret_change_me"
	}
	if cfg.JWTExpiresDays <= 0 {
		cfg.JWTExpiresDays = 14
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "patternrush_token"
	}
	s := &Server{
		r:           chi.NewRouter(),
		db:          db,
		cfg:         cfg,
		entries:     leaderboard.NewStore(db),
		hub:         leaderboard.NewHub(),
		readLimit:   NewLimiter(100, 15*time.Minute, "Too many requests, please try again later."),
		submitLimit: NewLimiter(5, time.Minute, "Too many score submissions, please wait before submitting again."),
		authLimit:   NewLimiter(10, time.Minute, "Too many attempts, please try again later."),
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID) // add X-Request-ID
	s.r.Use(chimw.RealIP)    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(chimw.Recoverer) // recover from panics
	s.r.Use(jsonContentType) // default JSON responses
	s.r.Use(s.cors)          // credentials-friendly CORS

	// Live feed: no request timeout.
	s.r.With(s.readLimit.Middleware).Get("/leaderboard/live", s.handleLive)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second)) // bound handler time

		// --- diagnostics ---
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"patternrush","endpoints":["/health","GET /leaderboard","POST /leaderboard","/leaderboard/live","/auth/*"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"ok":true}`))
		})

		// Leaderboard: OPTIONAL AUTH (guests submit under their chosen name)
		lb := r.With(s.withOptionalAuth())
		s.mountLeaderboard(lb, "/leaderboard")
		s.mountLeaderboard(lb, "/api/leaderboard")

		// Accounts
		s.mountAuthRoutes(r)
	})

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error {
	log.Info().Str("addr", addr).Msg("listening")
	return http.ListenAndServe(addr, s.r)
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// Hub exposes the live leaderboard hub.
func (s *Server) Hub() *leaderboard.Hub { return s.hub }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for the configured origin.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.ClientOrigin
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------- small util --------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("encode response")
	}
}

// writeMessage writes the {"message": ...} error body.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
