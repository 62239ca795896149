// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package config loads the host configuration from environment variables.
package config

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/caarlos0/env/v11"
)

// Supported database drivers.
const (
	DriverSQLite  = "sqlite"  // modernc.org/sqlite, pure Go
	DriverSQLite3 = "sqlite3" // github.com/mattn/go-sqlite3, cgo
	DriverMySQL   = "mysql"
)

var supportedDrivers = []string{DriverSQLite, DriverSQLite3, DriverMySQL}

// Config holds the application configuration loaded from environment variables.
type Config struct {
	DBDriver   string `env:"CRMEVENTS_DB_DRIVER" envDefault:"sqlite"`
	DBPath     string `env:"CRMEVENTS_DB_PATH" envDefault:"./data/crmevents.db"` // SQLite file path
	DBDSN      string `env:"CRMEVENTS_DB_DSN"`                                   // MySQL DSN
	ServerHost string `env:"CRMEVENTS_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"CRMEVENTS_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"CRMEVENTS_ENV" envDefault:"development"`
	LogLevel   string `env:"CRMEVENTS_LOG_LEVEL" envDefault:"info"`

	// ExperimentalEventTracking gates every event tracking hook.
	ExperimentalEventTracking bool `env:"CRMEVENTS_EXPERIMENTAL_EVENT_TRACKING" envDefault:"false"`

	// Property catalog sampling
	CatalogPageSize int `env:"CRMEVENTS_CATALOG_PAGE_SIZE" envDefault:"500"`
	CatalogMaxRows  int `env:"CRMEVENTS_CATALOG_MAX_ROWS" envDefault:"50000"` // 0 = unbounded scan
	CatalogCacheTTL int `env:"CRMEVENTS_CATALOG_CACHE_TTL" envDefault:"0"`    // seconds, 0 = no caching

	// Subscriber info widget
	WidgetPerPage int `env:"CRMEVENTS_WIDGET_PER_PAGE" envDefault:"15"`

	// Cache configuration
	RedisURL     string `env:"CRMEVENTS_REDIS_URL"` // Optional Redis URL for the catalog cache
	CachePrefix  string `env:"CRMEVENTS_CACHE_PREFIX" envDefault:"crmevents:"`
	CacheMaxSize int    `env:"CRMEVENTS_CACHE_MAX_SIZE" envDefault:"1000"`

	// Seeding configuration
	DoSeed bool `env:"CRMEVENTS_DO_SEED" envDefault:"false"` // Seed demo subscribers and events
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

// CatalogCacheDuration returns the catalog cache TTL as a duration.
func (c Config) CatalogCacheDuration() time.Duration {
	return time.Duration(c.CatalogCacheTTL) * time.Second
}

// IsMySQL reports whether the configured driver speaks the MySQL dialect.
func (c Config) IsMySQL() bool {
	return c.DBDriver == DriverMySQL
}

// DataSource returns the connection string for the configured driver.
func (c Config) DataSource() string {
	if c.IsMySQL() {
		return c.DBDSN
	}
	return c.DBPath
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load parses environment variables and returns a Config struct.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if !slices.Contains(supportedDrivers, cfg.DBDriver) {
		return nil, fmt.Errorf("CRMEVENTS_DB_DRIVER %q is not supported; use one of %v",
			cfg.DBDriver, supportedDrivers)
	}
	if cfg.IsMySQL() && cfg.DBDSN == "" {
		return nil, fmt.Errorf("CRMEVENTS_DB_DSN is required when CRMEVENTS_DB_DRIVER is %q", DriverMySQL)
	}
	if cfg.CatalogPageSize <= 0 {
		return nil, fmt.Errorf("CRMEVENTS_CATALOG_PAGE_SIZE must be positive, got %d", cfg.CatalogPageSize)
	}
	if cfg.CatalogMaxRows < 0 || cfg.CatalogCacheTTL < 0 {
		return nil, fmt.Errorf("CRMEVENTS_CATALOG_MAX_ROWS and CRMEVENTS_CATALOG_CACHE_TTL must not be negative")
	}
	if cfg.WidgetPerPage <= 0 {
		return nil, fmt.Errorf("CRMEVENTS_WIDGET_PER_PAGE must be positive, got %d", cfg.WidgetPerPage)
	}

	if cfg.CatalogMaxRows == 0 {
		slog.Warn("CRMEVENTS_CATALOG_MAX_ROWS is 0; property catalog sampling scans the whole event table")
	}

	return cfg, nil
}
