package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lazypower/rapport/internal/engine"
	"github.com/lazypower/rapport/internal/logging"
	"github.com/lazypower/rapport/internal/metrics"
	"github.com/lazypower/rapport/internal/store"
)

// Server is the rapport HTTP API server.
type Server struct {
	db             *store.DB
	engine         *engine.Engine
	metrics        *metrics.Manager
	logger         *slog.Logger
	requireSession bool
	router         chi.Router
	version        string
	started        time.Time
}

// Option configures a Server.
type Option func(*Server)

func WithMetrics(m *metrics.Manager) Option {
	return func(s *Server) { s.metrics = m }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRequireSession guards the inference, ingest and history routes behind X-Session-ID.
func WithRequireSession(on bool) Option {
	return func(s *Server) { s.requireSession = on }
}

// New creates a new Server with the given database, engine and version string.
func New(db *store.DB, eng *engine.Engine, version string, opts ...Option) *Server {
	s := &Server{
		db:      db,
		engine:  eng,
		version: version,
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.Or(s.logger)
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.instrument)
	r.Use(middleware.Recoverer)

	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			if s.requireSession {
				r.Use(s.sessionGuard)
			}
			r.Get("/connection", s.handleConnection)
			r.Post("/analyze", s.handleAnalyze)
			r.Post("/messages", s.handleAddMessage)
			r.Get("/pairs/{pairKey}/history", s.handleHistory)
		})
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	dbOK := true
	if err := s.db.Healthy(r.Context()); err != nil {
		dbOK = false
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"uptime":  time.Since(s.started).Seconds(),
		"db":      dbOK,
		"db_path": s.db.Path,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
