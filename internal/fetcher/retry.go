// Package fetcher holds behavior shared by the page fetcher implementations.
package fetcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/dawn-archive/internal/archive"
	"github.com/JakeFAU/dawn-archive/internal/metrics"
)

// Defaults shared by every fetcher.
const (
	MaxAttempts       = 2
	DefaultNavTimeout = 60 * time.Second
	DefaultUserAgent  = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Waiter throttles requests to an origin.
type Waiter interface {
	Wait(ctx context.Context, url string) error
}

// Attempt performs one bounded navigation and returns the page HTML.
type Attempt func(ctx context.Context) (string, error)

// Retry runs attempt up to MaxAttempts times, giving each try its own timeout.
// The final error wraps archive.ErrFetch.
func Retry(
	ctx context.Context,
	url string,
	mode string,
	timeout time.Duration,
	logger *zap.Logger,
	attempt Attempt,
) (string, error) {
	if timeout <= 0 {
		timeout = DefaultNavTimeout
	}
	var lastErr error
	for n := 1; n <= MaxAttempts; n++ {
		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		html, err := attempt(attemptCtx)
		cancel()
		if err == nil {
			metrics.ObserveFetchAttempt(mode, "ok")
			return html, nil
		}
		metrics.ObserveFetchAttempt(mode, "failed")
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		if n < MaxAttempts {
			logger.Warn("navigation failed, retrying",
				zap.String("url", url),
				zap.Int("attempt", n),
				zap.Error(err),
			)
		}
	}
	logger.Error("navigation failed", zap.String("url", url), zap.Error(lastErr))
	return "", fmt.Errorf("%w: %s: %w", archive.ErrFetch, url, lastErr)
}
