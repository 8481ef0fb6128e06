// Package server is the HTTP front end: it launches registrations, issues
// launch tokens and routes learner actions to open course players.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/p-n-ai/course-player/internal/registration"
	"github.com/p-n-ai/course-player/internal/runtime"
)

const requestTimeout = 30 * time.Second

// Config wires a Server.
type Config struct {
	Sessions      *Manager
	Courses       Catalog
	Registrations registration.Store
	Tokens        *Tokens
	CORSOrigins   []string

	// HostedRuntime, when set, serves the LMS runtime protocol at
	// /lms/runtime for remote players. It is called with the registration
	// named by the connection's launch token.
	HostedRuntime func(ctx context.Context, registrationID string) (runtime.API, error)

	// ReadyChecks run on /readyz, keyed by dependency name.
	ReadyChecks map[string]func(context.Context) error
	Logger      *slog.Logger
}

// Server routes HTTP requests.
type Server struct {
	cfg Config
	log *slog.Logger
}

// New creates a server.
func New(cfg Config) *Server {
	s := &Server{cfg: cfg, log: cfg.Logger}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	if s.cfg.HostedRuntime != nil {
		r.With(s.cfg.Tokens.RuntimeMiddleware).Handle("/lms/runtime", runtime.NewRuntimeHandler(s.hostedRuntime))
	}

	r.Group(func(api chi.Router) {
		api.Use(middleware.Timeout(requestTimeout))

		api.Get("/api/courses", s.handleCourses)
		api.Get("/api/courses/{courseID}", s.handleCourse)
		api.Post("/api/launch", s.handleLaunch)

		api.Route("/api/session", func(sr chi.Router) {
			sr.Use(s.cfg.Tokens.Middleware)
			sr.Get("/", s.handleView)
			sr.Post("/advance", s.handleAdvance)
			sr.Post("/retreat", s.handleRetreat)
			sr.Post("/jump", s.handleJump)
			sr.Post("/answer", s.handleAnswer)
			sr.Post("/simulation", s.handleSimulation)
			sr.Post("/restart", s.handleRestart)
			sr.Post("/close", s.handleClose)
			sr.Get("/certificate", s.handleCertificate)
		})
	})
	return r
}

func (s *Server) hostedRuntime(r *http.Request) (runtime.API, error) {
	id, ok := RegistrationIDFromContext(r.Context())
	if !ok {
		return nil, registration.ErrNotFound
	}
	return s.cfg.HostedRuntime(r.Context(), id)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()
	for name, check := range s.cfg.ReadyChecks {
		if err := check(ctx); err != nil {
			s.log.Warn("readiness check failed", "dependency", name, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "dependency": name})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("write response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
