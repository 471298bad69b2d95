// Package api hosts the HTTP server, middleware, and handlers of the archive
// service. Routes:
//   - GET / for a service banner.
//   - GET /api/today for the anchored current day, served from disk only.
//   - GET /api/date/{date} for any YYYY-MM-DD, scraped on demand when missing.
//   - GET /api/cache and /api/files for cache and disk listings.
//   - GET /api/events for the most recent scrape results.
//   - GET /healthz and /metrics, which skip the API key check.
//
// Every archive response schedules a background pre-warm of the following day.
package api
