// Package headless retrieves fully rendered pages through a shared headless Chrome session.
package headless

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/dawn-archive/internal/archive"
	"github.com/JakeFAU/dawn-archive/internal/fetcher"
)

// Mode labels fetch metrics for this implementation.
const Mode = "headless"

// ErrSessionClosed is returned when fetching on a session that is shutting down.
var ErrSessionClosed = errors.New("browser session closed")

// Config controls the behavior of the browser session.
type Config struct {
	UserAgent         string
	NavigationTimeout time.Duration
	ViewportWidth     int
	ViewportHeight    int
	ExecPath          string
}

// Session owns one browser process, started lazily on first fetch and reused
// until Close. Each Fetch runs in its own tab.
type Session struct {
	cfg     Config
	limiter fetcher.Waiter
	logger  *zap.Logger

	mu            sync.Mutex
	closed        bool
	browserCtx    context.Context
	browserCancel context.CancelFunc
	allocCancel   context.CancelFunc
}

// NewSession creates a session without starting the browser.
func NewSession(cfg Config, limiter fetcher.Waiter, logger *zap.Logger) *Session {
	if cfg.UserAgent == "" {
		cfg.UserAgent = fetcher.DefaultUserAgent
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = fetcher.DefaultNavTimeout
	}
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = 1920
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = 1080
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		cfg:     cfg,
		limiter: limiter,
		logger:  logger,
	}
}

// Open starts the browser eagerly. Fetch calls it implicitly.
func (s *Session) Open(_ context.Context) error {
	_, err := s.browser()
	return err
}

// Close stops the browser process. A later Fetch starts a fresh one.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shutdownLocked()
}

// Shutdown closes the browser and rejects further fetches.
func (s *Session) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.shutdownLocked()
}

func (s *Session) shutdownLocked() {
	if s.browserCtx == nil {
		return
	}
	s.browserCancel()
	s.allocCancel()
	s.browserCtx = nil
	s.browserCancel = nil
	s.allocCancel = nil
	s.logger.Info("browser stopped")
}

func (s *Session) browser() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.browserCtx != nil {
		return s.browserCtx, nil
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), s.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	s.browserCtx = browserCtx
	s.browserCancel = browserCancel
	s.allocCancel = allocCancel
	s.logger.Info("browser started")
	return browserCtx, nil
}

func (s *Session) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.NoSandbox,
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("enable-automation", false),
		chromedp.UserAgent(s.cfg.UserAgent),
		chromedp.WindowSize(s.cfg.ViewportWidth, s.cfg.ViewportHeight),
	)
	if s.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(s.cfg.ExecPath))
	}
	return opts
}

// Fetch navigates to url in a fresh tab, waits for network idle and returns the
// rendered document. One retry is made on failure; the tab is always closed.
func (s *Session) Fetch(ctx context.Context, url string) (string, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, url); err != nil {
			return "", fmt.Errorf("%w: %s: %w", archive.ErrFetch, url, err)
		}
	}
	browserCtx, err := s.browser()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", archive.ErrFetch, url, err)
	}

	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()
	stopForward := forwardCancel(ctx, cancelTab)
	defer stopForward()

	// The first Run allocates the tab and must not carry a timeout.
	if err := chromedp.Run(tabCtx, s.setupActions()...); err != nil {
		return "", fmt.Errorf("%w: %s: prepare tab: %w", archive.ErrFetch, url, err)
	}

	s.logger.Debug("fetching", zap.String("url", url))
	return fetcher.Retry(tabCtx, url, Mode, s.cfg.NavigationTimeout, s.logger,
		func(attemptCtx context.Context) (string, error) {
			return navigateAndCapture(attemptCtx, url)
		})
}

func (s *Session) setupActions() []chromedp.Action {
	return []chromedp.Action{
		network.Enable(),
		page.SetLifecycleEventsEnabled(true),
		emulation.SetUserAgentOverride(s.cfg.UserAgent),
		chromedp.EmulateViewport(int64(s.cfg.ViewportWidth), int64(s.cfg.ViewportHeight)),
	}
}

func navigateAndCapture(ctx context.Context, url string) (string, error) {
	idle := make(chan struct{}, 1)
	listenCtx, stopListening := context.WithCancel(ctx)
	defer stopListening()

	var started atomic.Bool
	chromedp.ListenTarget(listenCtx, func(ev any) {
		lifecycle, ok := ev.(*page.EventLifecycleEvent)
		if !ok {
			return
		}
		switch lifecycle.Name {
		case "init":
			started.Store(true)
		case "networkIdle":
			if started.Load() {
				select {
				case idle <- struct{}{}:
				default:
				}
			}
		}
	})

	var html string
	actions := []chromedp.Action{
		chromedp.Navigate(url),
		waitSignal(idle),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(ctx, actions...); err != nil {
		return "", fmt.Errorf("chromedp run: %w", err)
	}
	return html, nil
}

func waitSignal(ch <-chan struct{}) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		select {
		case <-ch:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("wait for network idle: %w", ctx.Err())
		}
	})
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
