// Package orchestrator scrapes every section of a day, assembles the
// DayArchive and hands it to the store.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/dawn-archive/internal/archive"
	"github.com/JakeFAU/dawn-archive/internal/metrics"
)

// DefaultDelay is the pause after each section request.
const DefaultDelay = 2 * time.Second

// DefaultTopic labels scrape events.
const DefaultTopic = "archive.day.scraped"

// Config controls Orchestrator behavior.
type Config struct {
	// BaseURL is the newspaper archive root, e.g. https://www.dawn.com/newspaper.
	BaseURL string
	// Delay is applied after every section, including failed ones.
	Delay time.Duration
	// Topic is passed to the publisher with each ScrapeEvent.
	Topic string
}

// SleepFunc pauses for d or until ctx ends.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Orchestrator coordinates fetch, parse and persistence for one day at a time.
// It holds no per-day state, so concurrent ScrapeDay calls for different dates
// are safe.
type Orchestrator struct {
	fetcher   archive.Fetcher
	parser    archive.Parser
	store     archive.Store
	publisher archive.Publisher
	ids       archive.IDGenerator
	clock     archive.Clock
	calendar  *archive.Calendar
	cfg       Config
	sleep     SleepFunc
	logger    *zap.Logger
}

// New constructs an Orchestrator. publisher and ids may be nil.
func New(
	fetcher archive.Fetcher,
	parser archive.Parser,
	store archive.Store,
	publisher archive.Publisher,
	ids archive.IDGenerator,
	clock archive.Clock,
	calendar *archive.Calendar,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if cfg.BaseURL == "" {
		cfg.BaseURL = archive.NewspaperBase
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if calendar == nil {
		calendar = archive.DefaultCalendar()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		fetcher:   fetcher,
		parser:    parser,
		store:     store,
		publisher: publisher,
		ids:       ids,
		clock:     clock,
		calendar:  calendar,
		cfg:       cfg,
		sleep:     sleepContext,
		logger:    logger,
	}
}

// WithSleep replaces the pause implementation; tests use it to skip delays.
func (o *Orchestrator) WithSleep(fn SleepFunc) *Orchestrator {
	if fn != nil {
		o.sleep = fn
	}
	return o
}

// Calendar returns the calendar used for anchored dates.
func (o *Orchestrator) Calendar() *archive.Calendar { return o.calendar }

// ScrapeDay fetches and parses every section for date and saves the result.
// Section failures degrade to empty lists. A save failure is returned together
// with the fully assembled archive so the caller can still serve it.
func (o *Orchestrator) ScrapeDay(ctx context.Context, date string) (archive.DayArchive, error) {
	if _, err := archive.ParseDate(date); err != nil {
		return archive.DayArchive{}, err
	}
	start := time.Now()
	day := archive.NewDayArchive(date, o.clock.Now())

	for _, section := range archive.Sections() {
		if ctx.Err() != nil {
			o.logger.Warn("scrape canceled",
				zap.String("date", date),
				zap.String("section", section),
			)
			break
		}
		day.Sections[section] = o.scrapeSection(ctx, section, date)

		if err := o.sleep(ctx, o.cfg.Delay); err != nil {
			o.logger.Debug("pacing interrupted", zap.String("date", date), zap.Error(err))
		}
	}
	metrics.ObserveDayScrape(time.Since(start))
	if err := ctx.Err(); err != nil {
		// Sections skipped by cancellation are not real empties; keep them off disk.
		return day, fmt.Errorf("scrape %s: %w", date, err)
	}

	saveErr := o.store.Save(ctx, day)
	if saveErr != nil {
		o.logger.Error("persist archive failed", zap.String("date", date), zap.Error(saveErr))
	}
	o.publish(ctx, day, saveErr == nil)

	o.logger.Info("day scraped",
		zap.String("date", date),
		zap.Int("articles", day.ArticleCount()),
		zap.Duration("elapsed", time.Since(start)),
	)
	if saveErr != nil {
		return day, fmt.Errorf("scrape %s: %w", date, saveErr)
	}
	return day, nil
}

func (o *Orchestrator) scrapeSection(ctx context.Context, section, date string) []archive.Article {
	url := archive.SectionURL(o.cfg.BaseURL, section, date)
	o.logger.Info("scraping section", zap.String("section", section), zap.String("date", date))

	html, err := o.fetcher.Fetch(ctx, url)
	if err != nil {
		metrics.ObserveSection(section, "error", 0)
		o.logger.Warn("section scrape failed",
			zap.String("section", section),
			zap.String("date", date),
			zap.String("url", url),
			zap.Error(err),
		)
		return []archive.Article{}
	}

	articles := o.parser.Parse(html, section, date)
	if articles == nil {
		articles = []archive.Article{}
	}
	outcome := "ok"
	if len(articles) == 0 {
		outcome = "empty"
	}
	metrics.ObserveSection(section, outcome, len(articles))
	o.logger.Info("section parsed",
		zap.String("section", section),
		zap.String("date", date),
		zap.Int("articles", len(articles)),
	)
	return articles
}

func (o *Orchestrator) publish(ctx context.Context, day archive.DayArchive, persisted bool) {
	if o.publisher == nil {
		return
	}
	event := archive.ScrapeEvent{
		Date:          day.Date,
		Articles:      day.ArticleCount(),
		SectionCounts: day.SectionCounts(),
		Persisted:     persisted,
	}
	if day.CachedAt != nil {
		event.CachedAt = *day.CachedAt
	}
	if o.ids != nil {
		id, err := o.ids.NewID()
		if err != nil {
			o.logger.Warn("generate event id failed", zap.Error(err))
		}
		event.ID = id
	}
	msgID, err := o.publisher.Publish(ctx, o.cfg.Topic, event)
	if err != nil {
		o.logger.Warn("publish scrape event failed", zap.String("date", day.Date), zap.Error(err))
		return
	}
	o.logger.Debug("scrape event published", zap.String("date", day.Date), zap.String("message_id", msgID))
}

// EnsureDayExists scrapes date unless a file for it is already on disk.
// Errors are logged, not returned.
func (o *Orchestrator) EnsureDayExists(ctx context.Context, date string) {
	if o.store.Exists(date) {
		o.logger.Debug("archive already present", zap.String("date", date))
		return
	}
	o.logger.Info("precomputing archive", zap.String("date", date))
	if _, err := o.ScrapeDay(ctx, date); err != nil {
		level := o.logger.Error
		if errors.Is(err, context.Canceled) {
			level = o.logger.Warn
		}
		level("precompute failed", zap.String("date", date), zap.Error(err))
	}
}

// EnsureNextDayExists pre-warms the day after the anchored today, resolved
// when it runs. Pre-warm tasks queued by /api/today end here.
func (o *Orchestrator) EnsureNextDayExists(ctx context.Context) {
	o.EnsureDayExists(ctx, o.calendar.Tomorrow(o.clock.Now()))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("sleep interrupted: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
