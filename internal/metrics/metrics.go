// Package metrics exposes Prometheus collectors for the archive service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_http_requests_total",
			Help: "Total number of HTTP requests, labeled by method and code.",
		},
		[]string{"method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archive_http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, labeled by method and route.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
		},
		[]string{"method", "route"},
	)

	fetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_fetch_attempts_total",
			Help: "Page fetch attempts, labeled by fetcher mode and outcome.",
		},
		[]string{"mode", "outcome"},
	)

	sectionScrapesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_section_scrapes_total",
			Help: "Section scrapes, labeled by section and outcome.",
		},
		[]string{"section", "outcome"},
	)

	articlesParsedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_articles_parsed_total",
			Help: "Articles extracted from section pages, labeled by section.",
		},
		[]string{"section"},
	)

	dayScrapeDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "archive_day_scrape_duration_seconds",
			Help:    "Wall time to scrape every section of one day.",
			Buckets: []float64{5, 10, 20, 30, 60, 120, 300, 600},
		},
	)

	storeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_store_operations_total",
			Help: "Archive store operations, labeled by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	prewarmTasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_prewarm_tasks_total",
			Help: "Background pre-warm tasks, labeled by outcome.",
		},
		[]string{"outcome"},
	)

	rateLimitDelaysSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "archive_rate_limit_delays_seconds",
			Help:    "Histogram of origin rate limit wait durations.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"domain"},
	)
)

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObserveFetchAttempt records one navigation attempt.
func ObserveFetchAttempt(mode, outcome string) {
	fetchAttemptsTotal.WithLabelValues(mode, outcome).Inc()
}

// ObserveSection records one section scrape and the articles it produced.
func ObserveSection(section, outcome string, articles int) {
	sectionScrapesTotal.WithLabelValues(section, outcome).Inc()
	if articles > 0 {
		articlesParsedTotal.WithLabelValues(section).Add(float64(articles))
	}
}

// ObserveDayScrape records the duration of a full day scrape.
func ObserveDayScrape(duration time.Duration) {
	dayScrapeDurationSeconds.Observe(duration.Seconds())
}

// ObserveStore records a store operation.
func ObserveStore(op, outcome string) {
	storeOperationsTotal.WithLabelValues(op, outcome).Inc()
}

// ObservePrewarm records a pre-warm task transition.
func ObservePrewarm(outcome string) {
	prewarmTasksTotal.WithLabelValues(outcome).Inc()
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}
