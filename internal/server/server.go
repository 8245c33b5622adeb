package server

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/claude/mapty/internal/config"
	"github.com/claude/mapty/internal/metrics"
	"github.com/claude/mapty/internal/session"
	"github.com/go-chi/chi/v5"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	session  *session.Session
	metrics  *metrics.Metrics
	mapCfg   config.MapConfig
	identity func(http.Handler) http.Handler
	log      *slog.Logger
	apiKey   string
	router   chi.Router
}

type Option func(*Server)

// WithAPIKey requires the X-API-Key header on write endpoints.
func WithAPIKey(key string) Option {
	return func(s *Server) { s.apiKey = key }
}

// WithIdentity replaces the default DevIdentity middleware.
func WithIdentity(mw func(http.Handler) http.Handler) Option {
	return func(s *Server) { s.identity = mw }
}

// New creates a new Server with all routes configured.
func New(sess *session.Session, m *metrics.Metrics, mapCfg config.MapConfig, log *slog.Logger, opts ...Option) *Server {
	s := &Server{
		session:  sess,
		metrics:  m,
		mapCfg:   mapCfg,
		identity: DevIdentity,
		log:      log,
		router:   chi.NewRouter(),
	}
	for _, o := range opts {
		o(s)
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(RequestMetrics(s.metrics))
	s.router.Use(CORS)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.identity)

		r.Get("/me", s.handleMe)
		r.Get("/session", s.handleSession)
		r.Get("/session/fields", s.handleFields)
		r.Get("/workouts", s.handleListWorkouts)
		r.Get("/workouts/{id}", s.handleGetWorkout)

		// Write endpoints (API key required when configured)
		r.Group(func(r chi.Router) {
			if s.apiKey != "" {
				r.Use(APIKeyAuth(s.apiKey))
			}
			r.Post("/session/position", s.handlePosition)
			r.Post("/session/point", s.handlePoint)
			r.Post("/workouts", s.handleCreateWorkout)
		})
	})
}

// MountMCP serves an MCP endpoint at /mcp.
func (s *Server) MountMCP(h http.Handler) {
	s.router.Group(func(r chi.Router) {
		if s.apiKey != "" {
			r.Use(APIKeyAuth(s.apiKey))
		}
		r.Handle("/mcp", h)
	})
}

// SetFrontend mounts the embedded frontend filesystem.
// Unmatched routes serve index.html.
func (s *Server) SetFrontend(webFS fs.FS) {
	fileServer := http.FileServerFS(webFS)

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		// Try to serve the exact file first
		f, err := webFS.Open(r.URL.Path[1:]) // strip leading /
		if err == nil {
			f.Close()
			fileServer.ServeHTTP(w, r)
			return
		}
		r.URL.Path = "/"
		fileServer.ServeHTTP(w, r)
	})
}
