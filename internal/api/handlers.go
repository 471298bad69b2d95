package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/dawn-archive/internal/archive"
	"github.com/JakeFAU/dawn-archive/internal/prewarm"
)

type bannerResponse struct {
	Message   string            `json:"message"`
	Endpoints map[string]string `json:"endpoints"`
}

type cacheResponse struct {
	CachedDates []string `json:"cached_dates"`
	Count       int      `json:"count"`
}

type filesResponse struct {
	Files []string `json:"files"`
	Count int      `json:"count"`
}

type eventsResponse struct {
	Events []archive.ScrapeEvent `json:"events"`
	Count  int                   `json:"count"`
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, bannerResponse{
		Message: "Dawn Archive API",
		Endpoints: map[string]string{
			"/api/today":       "Get today's articles (always cached)",
			"/api/date/{date}": "Get specific date (YYYY-MM-DD)",
			"/api/cache":       "View cached dates",
			"/api/files":       "View stored dates",
			"/api/events":      "Recent scrape results",
		},
	}, s.logger)
}

// getToday serves the anchored day from storage only. Older files are pruned
// first; a miss is a 404 and never triggers a scrape.
func (s *Server) getToday(w http.ResponseWriter, r *http.Request) {
	now := s.clock.Now()
	today := s.calendar.Today(now)

	if _, err := s.store.Prune(r.Context(), today); err != nil {
		s.logger.Warn("prune stale archives failed", zap.String("before", today), zap.Error(err))
	}

	day, ok := s.store.Load(r.Context(), today)
	if !ok {
		writeError(w, http.StatusNotFound,
			fmt.Sprintf("No data found for today (%s). Please ensure data files exist.", today), s.logger)
		return
	}
	writeJSON(w, http.StatusOK, day, s.logger)
	s.schedule(prewarm.Task{Date: s.calendar.Tomorrow(now), Reason: "today", NextDay: true})
}

// getDate serves a stored archive or scrapes it synchronously.
func (s *Server) getDate(w http.ResponseWriter, r *http.Request) {
	date := chi.URLParam(r, "date")
	if _, err := archive.ParseDate(date); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD", s.logger)
		return
	}

	day, ok := s.store.Load(r.Context(), date)
	if !ok {
		s.logger.Info("archive not found; scraping", zap.String("date", date))
		// The scrape outlives a disconnected client so its result still lands on disk.
		scraped, err := s.scraper.ScrapeDay(context.WithoutCancel(r.Context()), date)
		if err != nil {
			if scraped.Date == "" {
				writeError(w, http.StatusInternalServerError, fmt.Sprintf("Error scraping: %v", err), s.logger)
				return
			}
			s.logger.Warn("archive scraped but not persisted", zap.String("date", date), zap.Error(err))
		}
		day = scraped
	}
	writeJSON(w, http.StatusOK, day, s.logger)

	next, err := archive.NextDay(date)
	if err != nil {
		return
	}
	s.schedule(prewarm.Task{Date: next, Reason: "date"})
}

func (s *Server) getCache(w http.ResponseWriter, _ *http.Request) {
	dates := s.store.CachedDates()
	writeJSON(w, http.StatusOK, cacheResponse{CachedDates: dates, Count: len(dates)}, s.logger)
}

func (s *Server) getFiles(w http.ResponseWriter, _ *http.Request) {
	dates, err := s.store.StoredDates()
	if err != nil {
		s.logger.Warn("list stored archives failed", zap.Error(err))
		dates = []string{}
	}
	writeJSON(w, http.StatusOK, filesResponse{Files: dates, Count: len(dates)}, s.logger)
}

func (s *Server) getEvents(w http.ResponseWriter, _ *http.Request) {
	events := []archive.ScrapeEvent{}
	if s.events != nil {
		events = s.events.Events()
	}
	writeJSON(w, http.StatusOK, eventsResponse{Events: events, Count: len(events)}, s.logger)
}

func (s *Server) schedule(task prewarm.Task) {
	if s.prewarm == nil {
		return
	}
	s.prewarm.Submit(task)
}
