// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/dawn-archive/internal/archive"
)

// Fetcher modes.
const (
	FetcherHeadless = "headless"
	FetcherHTTP     = "http"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	CORS    CORSConfig    `mapstructure:"cors"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	Fetcher FetcherConfig `mapstructure:"fetcher"`
	Storage StorageConfig `mapstructure:"storage"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Prewarm PrewarmConfig `mapstructure:"prewarm"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// CORSConfig lists origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ScraperConfig governs what is scraped and how dates are anchored.
type ScraperConfig struct {
	BaseURL    string        `mapstructure:"base_url"`
	SiteOrigin string        `mapstructure:"site_origin"`
	Delay      time.Duration `mapstructure:"delay"`
	TimeZone   string        `mapstructure:"timezone"`
	YearOffset int           `mapstructure:"year_offset"`
	EventTopic string        `mapstructure:"event_topic"`
}

// FetcherConfig configures page retrieval.
type FetcherConfig struct {
	Mode           string        `mapstructure:"mode"`
	UserAgent      string        `mapstructure:"user_agent"`
	NavTimeout     time.Duration `mapstructure:"nav_timeout"`
	ViewportWidth  int           `mapstructure:"viewport_width"`
	ViewportHeight int           `mapstructure:"viewport_height"`
	ExecPath       string        `mapstructure:"exec_path"`
	OriginRPS      float64       `mapstructure:"origin_rps"`
	OriginBurst    int           `mapstructure:"origin_burst"`
}

// StorageConfig sets where archives are written and mirrored.
type StorageConfig struct {
	DataDir   string `mapstructure:"data_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	GCSPrefix string `mapstructure:"gcs_prefix"`
}

// PubSubConfig holds metadata for scrape notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// PrewarmConfig sizes the background pre-warm pool.
type PrewarmConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	Workers    int  `mapstructure:"workers"`
	QueueDepth int  `mapstructure:"queue_depth"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment. Environment variables use the
// ARCHIVE_ prefix, e.g. ARCHIVE_SERVER_PORT.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ARCHIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	// TAIMOUR_API_KEY is the variable older deployments set.
	if err := v.BindEnv("auth.api_key", "ARCHIVE_AUTH_API_KEY", "TAIMOUR_API_KEY"); err != nil {
		return Config{}, fmt.Errorf("bind api key env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 7860)
	v.SetDefault("server.request_timeout", 0)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("auth.enabled", true)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("scraper.base_url", archive.NewspaperBase)
	v.SetDefault("scraper.site_origin", archive.SiteOrigin)
	v.SetDefault("scraper.delay", 2*time.Second)
	v.SetDefault("scraper.timezone", archive.DefaultTimeZone)
	v.SetDefault("scraper.year_offset", archive.DefaultYearOffset)
	v.SetDefault("scraper.event_topic", "archive.day.scraped")
	v.SetDefault("fetcher.mode", FetcherHeadless)
	v.SetDefault("fetcher.user_agent", "")
	v.SetDefault("fetcher.nav_timeout", 60*time.Second)
	v.SetDefault("fetcher.viewport_width", 1920)
	v.SetDefault("fetcher.viewport_height", 1080)
	v.SetDefault("fetcher.exec_path", "")
	v.SetDefault("fetcher.origin_rps", 0.0)
	v.SetDefault("fetcher.origin_burst", 1)
	v.SetDefault("storage.data_dir", "./data")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("storage.gcs_prefix", "archives/")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "")
	v.SetDefault("prewarm.enabled", true)
	v.SetDefault("prewarm.workers", 1)
	v.SetDefault("prewarm.queue_depth", 16)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key (or TAIMOUR_API_KEY) must be set when auth is enabled")
	}
	if c.Scraper.Delay < 0 {
		return fmt.Errorf("scraper.delay must be >= 0")
	}
	if c.Scraper.YearOffset < 0 {
		return fmt.Errorf("scraper.year_offset must be >= 0")
	}
	if _, err := archive.NewCalendar(c.Scraper.TimeZone, c.Scraper.YearOffset); err != nil {
		return fmt.Errorf("scraper.timezone: %w", err)
	}
	switch c.Fetcher.Mode {
	case FetcherHeadless, FetcherHTTP:
	default:
		return fmt.Errorf("fetcher.mode must be %q or %q, got %q", FetcherHeadless, FetcherHTTP, c.Fetcher.Mode)
	}
	if c.Fetcher.NavTimeout <= 0 {
		return fmt.Errorf("fetcher.nav_timeout must be > 0")
	}
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		return fmt.Errorf("storage.data_dir is required")
	}
	if (c.PubSub.ProjectID == "") != (c.PubSub.Topic == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic must be set together")
	}
	if c.Prewarm.Enabled && (c.Prewarm.Workers <= 0 || c.Prewarm.QueueDepth <= 0) {
		return fmt.Errorf("prewarm.workers and prewarm.queue_depth must be > 0 when pre-warm is enabled")
	}
	return nil
}

// Calendar builds the anchored calendar described by the scraper settings.
func (c Config) Calendar() (*archive.Calendar, error) {
	cal, err := archive.NewCalendar(c.Scraper.TimeZone, c.Scraper.YearOffset)
	if err != nil {
		return nil, fmt.Errorf("build calendar: %w", err)
	}
	return cal, nil
}
