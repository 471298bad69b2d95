package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/JakeFAU/dawn-archive/internal/archive"
	"github.com/JakeFAU/dawn-archive/internal/config"
	"github.com/JakeFAU/dawn-archive/internal/id/uuid"
	"github.com/JakeFAU/dawn-archive/internal/metrics"
	"github.com/JakeFAU/dawn-archive/internal/prewarm"
)

// Scraper produces a day archive on demand.
type Scraper interface {
	ScrapeDay(ctx context.Context, date string) (archive.DayArchive, error)
}

// Prewarmer accepts background pre-warm tasks without blocking.
type Prewarmer interface {
	Submit(task prewarm.Task) bool
}

// EventLog lists recent scrape events, newest first.
type EventLog interface {
	Events() []archive.ScrapeEvent
}

// Server wires HTTP handlers to the archive store and orchestrator.
type Server struct {
	router   chi.Router
	store    archive.Store
	scraper  Scraper
	prewarm  Prewarmer
	events   EventLog
	calendar *archive.Calendar
	clock    archive.Clock
	cfg      config.Config
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes. prewarmer may be nil.
func NewServer(
	store archive.Store,
	scraper Scraper,
	prewarmer Prewarmer,
	calendar *archive.Calendar,
	clock archive.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if calendar == nil {
		calendar = archive.DefaultCalendar()
	}
	s := &Server{
		store:    store,
		scraper:  scraper,
		prewarm:  prewarmer,
		calendar: calendar,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}

	origins := cfg.CORS.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware(uuid.New()))
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{requestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if cfg.Server.RequestTimeout > 0 {
		r.Use(timeoutMiddleware(cfg.Server.RequestTimeout))
	}

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Get("/", s.root)
		r.Route("/api", func(r chi.Router) {
			r.Get("/today", s.getToday)
			r.Get("/date/{date}", s.getDate)
			r.Get("/cache", s.getCache)
			r.Get("/files", s.getFiles)
			r.Get("/events", s.getEvents)
		})
	})

	s.router = r
	return s
}

// WithEvents attaches the log served by /api/events.
func (s *Server) WithEvents(events EventLog) *Server {
	s.events = events
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}

func writeJSON(w http.ResponseWriter, status int, payload any, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil && logger != nil {
		logger.Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, detail string, logger *zap.Logger) {
	writeJSON(w, status, map[string]string{"detail": detail}, logger)
}
