// Package app initializes and holds the long-lived services of the archive
// process, acting as its dependency injection container.
package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/JakeFAU/dawn-archive/internal/api"
	"github.com/JakeFAU/dawn-archive/internal/archive"
	"github.com/JakeFAU/dawn-archive/internal/clock/system"
	"github.com/JakeFAU/dawn-archive/internal/config"
	collyfetcher "github.com/JakeFAU/dawn-archive/internal/fetcher/colly"
	"github.com/JakeFAU/dawn-archive/internal/fetcher/headless"
	"github.com/JakeFAU/dawn-archive/internal/id/uuid"
	"github.com/JakeFAU/dawn-archive/internal/orchestrator"
	"github.com/JakeFAU/dawn-archive/internal/parser"
	"github.com/JakeFAU/dawn-archive/internal/policy/ratelimit"
	"github.com/JakeFAU/dawn-archive/internal/prewarm"
	pubmemory "github.com/JakeFAU/dawn-archive/internal/publisher/memory"
	"github.com/JakeFAU/dawn-archive/internal/publisher/pubsub"
	"github.com/JakeFAU/dawn-archive/internal/storage/gcs"
	"github.com/JakeFAU/dawn-archive/internal/storage/local"
)

// recentEvents bounds the scrape results served by /api/events.
const recentEvents = 50

type closer struct {
	name string
	fn   func() error
}

// App holds the shared services built from one Config.
type App struct {
	cfg          config.Config
	logger       *zap.Logger
	calendar     *archive.Calendar
	clock        archive.Clock
	store        *local.Store
	orchestrator *orchestrator.Orchestrator
	queue        *prewarm.Queue
	dispatcher   *prewarm.Dispatcher
	server       *api.Server
	closers      []closer
}

// NewApp builds every service. It fails fast when an optional cloud
// dependency is configured but unreachable.
func NewApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{cfg: cfg, logger: logger, clock: system.New()}

	calendar, err := cfg.Calendar()
	if err != nil {
		return nil, err
	}
	a.calendar = calendar

	var mirror archive.Mirror
	if cfg.Storage.GCSBucket != "" {
		logger.Info("mirroring archives to GCS", zap.String("bucket", cfg.Storage.GCSBucket))
		blobStore, closeFn, err := gcs.Open(ctx, gcs.Config{Bucket: cfg.Storage.GCSBucket})
		if err != nil {
			return nil, fmt.Errorf("init archive mirror: %w", err)
		}
		mirror = blobStore
		a.closers = append(a.closers, closer{name: "gcs", fn: closeFn})
	}

	store, err := local.New(local.Config{
		DataDir:      cfg.Storage.DataDir,
		MirrorPrefix: cfg.Storage.GCSPrefix,
	}, mirror, logger.Named("store"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init archive store: %w", err)
	}
	a.store = store

	var downstream archive.Publisher
	if cfg.PubSub.ProjectID != "" {
		logger.Info("publishing scrape events", zap.String("topic", cfg.PubSub.Topic))
		pub, closeFn, err := pubsub.Open(ctx, cfg.PubSub.ProjectID, cfg.PubSub.Topic)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("init publisher: %w", err)
		}
		downstream = pub
		a.closers = append(a.closers, closer{name: "pubsub", fn: closeFn})
	}
	events := pubmemory.New(recentEvents, downstream)

	fetcher := a.buildFetcher()

	a.orchestrator = orchestrator.New(
		fetcher,
		parser.New(parser.Config{SiteOrigin: cfg.Scraper.SiteOrigin}, logger.Named("parser")),
		store,
		events,
		uuid.New(),
		a.clock,
		calendar,
		orchestrator.Config{
			BaseURL: cfg.Scraper.BaseURL,
			Delay:   cfg.Scraper.Delay,
			Topic:   cfg.Scraper.EventTopic,
		},
		logger.Named("orchestrator"),
	)

	var prewarmer api.Prewarmer
	if cfg.Prewarm.Enabled {
		a.queue = prewarm.NewQueue(cfg.Prewarm.QueueDepth)
		a.dispatcher = prewarm.New(a.queue, a.orchestrator, cfg.Prewarm.Workers, logger.Named("prewarm"))
		prewarmer = a.dispatcher
	}

	a.server = api.NewServer(store, a.orchestrator, prewarmer, calendar, a.clock, cfg, logger.Named("api")).
		WithEvents(events)
	return a, nil
}

func (a *App) buildFetcher() archive.Fetcher {
	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:   a.cfg.Fetcher.OriginRPS,
		DefaultBurst: a.cfg.Fetcher.OriginBurst,
	})
	if a.cfg.Fetcher.Mode == config.FetcherHTTP {
		a.logger.Info("using plain HTTP fetcher")
		return collyfetcher.New(collyfetcher.Config{
			UserAgent: a.cfg.Fetcher.UserAgent,
			Timeout:   a.cfg.Fetcher.NavTimeout,
		}, limiter, a.logger.Named("fetcher"))
	}
	session := headless.NewSession(headless.Config{
		UserAgent:         a.cfg.Fetcher.UserAgent,
		NavigationTimeout: a.cfg.Fetcher.NavTimeout,
		ViewportWidth:     a.cfg.Fetcher.ViewportWidth,
		ViewportHeight:    a.cfg.Fetcher.ViewportHeight,
		ExecPath:          a.cfg.Fetcher.ExecPath,
	}, limiter, a.logger.Named("browser"))
	a.closers = append(a.closers, closer{name: "browser", fn: func() error {
		session.Shutdown()
		return nil
	}})
	return session
}

// Logger returns the shared logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Config returns the configuration the app was built from.
func (a *App) Config() config.Config { return a.cfg }

// Handler returns the HTTP API.
func (a *App) Handler() http.Handler { return a.server.Handler() }

// Scraper returns the day orchestrator.
func (a *App) Scraper() *orchestrator.Orchestrator { return a.orchestrator }

// ScrapeDay scrapes and persists date through the orchestrator.
func (a *App) ScrapeDay(ctx context.Context, date string) (archive.DayArchive, error) {
	return a.orchestrator.ScrapeDay(ctx, date)
}

// Today returns the anchored current date.
func (a *App) Today() string { return a.calendar.Today(a.clock.Now()) }

// RunPrewarm blocks running pre-warm workers until ctx ends or Close is called.
// It returns immediately when pre-warm is disabled.
func (a *App) RunPrewarm(ctx context.Context) {
	if a.dispatcher == nil {
		return
	}
	a.logger.Info("pre-warm workers started", zap.Int("workers", a.cfg.Prewarm.Workers))
	a.dispatcher.Run(ctx)
}

// Close releases every service in reverse order of creation.
func (a *App) Close() {
	if a.queue != nil {
		a.queue.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.fn(); err != nil {
			a.logger.Warn("close failed", zap.String("service", c.name), zap.Error(err))
		}
	}
	a.closers = nil
}
