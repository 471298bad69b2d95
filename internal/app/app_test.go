package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/dawn-archive/internal/app"
	"github.com/JakeFAU/dawn-archive/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		Server:  config.ServerConfig{Port: 7860},
		Auth:    config.AuthConfig{Enabled: true, APIKey: "k"},
		Scraper: config.ScraperConfig{TimeZone: "Asia/Karachi", YearOffset: 12},
		Fetcher: config.FetcherConfig{Mode: config.FetcherHTTP, NavTimeout: time.Second},
		Storage: config.StorageConfig{DataDir: filepath.Join(t.TempDir(), "data")},
		Prewarm: config.PrewarmConfig{Enabled: true, Workers: 1, QueueDepth: 2},
	}
}

func TestNewAppServesAPI(t *testing.T) {
	t.Parallel()

	a, err := app.NewApp(context.Background(), testConfig(t), zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/files", nil)
	req.Header.Set("X-API-Key", "k")
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"files":[],"count":0}`, rec.Body.String())

	require.Len(t, a.Today(), 10)
	require.NotNil(t, a.Scraper())
	require.Equal(t, 7860, a.Config().Server.Port)
}

func TestRunPrewarmStopsOnClose(t *testing.T) {
	t.Parallel()

	a, err := app.NewApp(context.Background(), testConfig(t), nil)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		a.RunPrewarm(context.Background())
		close(done)
	}()
	a.Close()
	a.Close()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("pre-warm workers did not stop")
	}
}

func TestRunPrewarmDisabledReturns(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Prewarm.Enabled = false
	a, err := app.NewApp(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()
	a.RunPrewarm(context.Background())
}

func TestNewAppRejectsBadTimeZone(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Scraper.TimeZone = "Nowhere/Special"
	_, err := app.NewApp(context.Background(), cfg, nil)
	require.Error(t, err)
}
