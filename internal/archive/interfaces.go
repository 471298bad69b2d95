package archive

import (
	"context"
	"io"
	"time"
)

// Fetcher retrieves fully rendered HTML for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Parser extracts articles from one section page. It never fails.
type Parser interface {
	Parse(html, section, date string) []Article
}

// Store persists day archives and keeps a read-through memory cache.
type Store interface {
	Load(ctx context.Context, date string) (DayArchive, bool)
	Save(ctx context.Context, day DayArchive) error
	Exists(date string) bool
	Prune(ctx context.Context, before string) (int, error)
	CachedDates() []string
	StoredDates() ([]string, error)
}

// Mirror receives a copy of every persisted archive (for example a cloud bucket).
type Mirror interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes scrape notifications to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces event IDs.
type IDGenerator interface {
	NewID() (string, error)
}

// ScrapeEvent is published after a day has been scraped and persisted.
type ScrapeEvent struct {
	ID            string         `json:"id"`
	Date          string         `json:"date"`
	Articles      int            `json:"articles"`
	SectionCounts map[string]int `json:"section_counts"`
	Persisted     bool           `json:"persisted"`
	CachedAt      time.Time      `json:"cached_at"`
}
