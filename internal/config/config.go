// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/lingotag/lingotag/internal/model"
	"github.com/lingotag/lingotag/internal/store"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBPath     string `env:"LINGOTAG_DB_PATH" envDefault:"./data/lingotag.db"`
	ServerHost string `env:"LINGOTAG_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"LINGOTAG_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"LINGOTAG_ENV" envDefault:"development"`
	LogLevel   string `env:"LINGOTAG_LOG_LEVEL" envDefault:"info"`

	// Language configuration
	BaseLang    string   `env:"LINGOTAG_BASE_LANG" envDefault:"other"`    // code for canonical base records
	TargetLangs []string `env:"LINGOTAG_TARGET_LANGS" envDefault:"de,fr"` // languages fetch tasks translate into

	// Tagging pass configuration
	TagSchedule  string `env:"LINGOTAG_TAG_SCHEDULE" envDefault:"*/10 * * * *"` // cron expression
	ScanPageSize int64  `env:"LINGOTAG_SCAN_PAGE_SIZE" envDefault:"200"`        // rows per scanner page

	// Host tables to scan, one spec per entry:
	// table:id_column:scope_column:content_column:text|html
	Sources []string `env:"LINGOTAG_SOURCES" envSeparator:","`

	// Fetch worker configuration
	FetchBatchSize    int           `env:"LINGOTAG_FETCH_BATCH_SIZE" envDefault:"10"`
	FetchMaxRetries   int           `env:"LINGOTAG_FETCH_MAX_RETRIES" envDefault:"3"`
	FetchPollInterval time.Duration `env:"LINGOTAG_FETCH_POLL_INTERVAL" envDefault:"5s"` // queued-task poll cadence
	ProviderRPM       int           `env:"LINGOTAG_PROVIDER_RPM" envDefault:"60"`        // provider requests per minute
	OpenAIAPIKey      string        `env:"LINGOTAG_OPENAI_API_KEY"`
	OpenAIModel       string        `env:"LINGOTAG_OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIBaseURL     string        `env:"LINGOTAG_OPENAI_BASE_URL"` // optional, for compatible endpoints

	// Cache configuration
	RedisURL     string `env:"LINGOTAG_REDIS_URL"`                           // Optional Redis URL for distributed caching
	CachePrefix  string `env:"LINGOTAG_CACHE_PREFIX" envDefault:"lingotag:"` // Redis key prefix
	CacheTTL     int    `env:"LINGOTAG_CACHE_TTL" envDefault:"3600"`         // Default cache TTL in seconds
	CacheMaxSize int    `env:"LINGOTAG_CACHE_MAX_SIZE" envDefault:"10000"`   // Max memory cache entries
}

// IsDevelopment returns true if the application is running in development mode.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns the full server address in host:port format.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache returns true if Redis caching is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// ProviderEnabled returns true if a translation provider is configured.
func (c Config) ProviderEnabled() bool {
	return c.OpenAIAPIKey != ""
}

// SourceTables parses the Sources specs into scanner source tables.
func (c Config) SourceTables() ([]store.SourceTable, error) {
	tables := make([]store.SourceTable, 0, len(c.Sources))
	for _, spec := range c.Sources {
		parts := strings.Split(spec, ":")
		if len(parts) != 5 {
			return nil, fmt.Errorf("LINGOTAG_SOURCES: %q must have 5 colon-separated fields", spec)
		}
		var isHTML bool
		switch parts[4] {
		case "html":
			isHTML = true
		case "text":
		default:
			return nil, fmt.Errorf("LINGOTAG_SOURCES: %q content kind must be text or html", spec)
		}
		src := store.SourceTable{
			Table:         parts[0],
			IDColumn:      parts[1],
			ScopeColumn:   parts[2],
			ContentColumn: parts[3],
			IsHTML:        isHTML,
		}
		if err := src.Validate(); err != nil {
			return nil, fmt.Errorf("LINGOTAG_SOURCES: %w", err)
		}
		tables = append(tables, src)
	}
	return tables, nil
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.BaseLang == "" {
		return nil, fmt.Errorf("LINGOTAG_BASE_LANG must not be empty")
	}

	for _, lang := range cfg.TargetLangs {
		if err := model.ValidateLangCode(lang); err != nil {
			return nil, fmt.Errorf("LINGOTAG_TARGET_LANGS: %w", err)
		}
		if lang == cfg.BaseLang {
			return nil, fmt.Errorf("LINGOTAG_TARGET_LANGS: %q is the base language", lang)
		}
	}

	if cfg.FetchBatchSize <= 0 {
		return nil, fmt.Errorf("LINGOTAG_FETCH_BATCH_SIZE must be positive, got %d", cfg.FetchBatchSize)
	}
	if cfg.ScanPageSize <= 0 {
		return nil, fmt.Errorf("LINGOTAG_SCAN_PAGE_SIZE must be positive, got %d", cfg.ScanPageSize)
	}

	return cfg, nil
}
