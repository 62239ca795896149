// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"log/slog"
	"os"
	"testing"
	"time"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set %s: %v", key, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DBDriver != DriverSQLite {
		t.Errorf("DBDriver = %q, want %q", cfg.DBDriver, DriverSQLite)
	}
	if cfg.DBPath != "./data/crmevents.db" {
		t.Errorf("DBPath = %q, want %q", cfg.DBPath, "./data/crmevents.db")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 8080)
	}
	if cfg.ExperimentalEventTracking {
		t.Error("ExperimentalEventTracking should default to false")
	}
	if cfg.CatalogPageSize != 500 {
		t.Errorf("CatalogPageSize = %d, want 500", cfg.CatalogPageSize)
	}
	if cfg.CatalogMaxRows != 50000 {
		t.Errorf("CatalogMaxRows = %d, want 50000", cfg.CatalogMaxRows)
	}
	if cfg.CatalogCacheDuration() != 0 {
		t.Errorf("CatalogCacheDuration() = %v, want 0", cfg.CatalogCacheDuration())
	}
	if cfg.WidgetPerPage != 15 {
		t.Errorf("WidgetPerPage = %d, want 15", cfg.WidgetPerPage)
	}
	if cfg.UseRedisCache() {
		t.Error("UseRedisCache() should be false without CRMEVENTS_REDIS_URL")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	setEnv(t, "CRMEVENTS_DB_PATH", "/custom/path.db")
	setEnv(t, "CRMEVENTS_SERVER_HOST", "0.0.0.0")
	setEnv(t, "CRMEVENTS_SERVER_PORT", "3000")
	setEnv(t, "CRMEVENTS_LOG_LEVEL", "debug")
	setEnv(t, "CRMEVENTS_EXPERIMENTAL_EVENT_TRACKING", "true")
	setEnv(t, "CRMEVENTS_CATALOG_CACHE_TTL", "30")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.DataSource() != "/custom/path.db" {
		t.Errorf("DataSource() = %q, want %q", cfg.DataSource(), "/custom/path.db")
	}
	if cfg.ServerAddr() != "0.0.0.0:3000" {
		t.Errorf("ServerAddr() = %q, want %q", cfg.ServerAddr(), "0.0.0.0:3000")
	}
	if cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, want debug", cfg.SlogLevel())
	}
	if !cfg.ExperimentalEventTracking {
		t.Error("ExperimentalEventTracking should be true")
	}
	if cfg.CatalogCacheDuration() != 30*time.Second {
		t.Errorf("CatalogCacheDuration() = %v, want 30s", cfg.CatalogCacheDuration())
	}
}

func TestLoad_MySQLRequiresDSN(t *testing.T) {
	os.Clearenv()
	setEnv(t, "CRMEVENTS_DB_DRIVER", "mysql")

	if _, err := Load(); err == nil {
		t.Fatal("Load() should fail without CRMEVENTS_DB_DSN")
	}

	setEnv(t, "CRMEVENTS_DB_DSN", "user:pass@tcp(localhost:3306)/crm")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.IsMySQL() {
		t.Error("IsMySQL() = false, want true")
	}
	if cfg.DataSource() != "user:pass@tcp(localhost:3306)/crm" {
		t.Errorf("DataSource() = %q", cfg.DataSource())
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown driver", "CRMEVENTS_DB_DRIVER", "postgres"},
		{"zero page size", "CRMEVENTS_CATALOG_PAGE_SIZE", "0"},
		{"negative max rows", "CRMEVENTS_CATALOG_MAX_ROWS", "-1"},
		{"negative cache ttl", "CRMEVENTS_CATALOG_CACHE_TTL", "-5"},
		{"zero widget page", "CRMEVENTS_WIDGET_PER_PAGE", "0"},
		{"bad port", "CRMEVENTS_SERVER_PORT", "not-a-number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			setEnv(t, tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load() with %s=%q should fail", tt.key, tt.value)
			}
		})
	}
}

func TestSlogLevel_Default(t *testing.T) {
	cfg := Config{LogLevel: "verbose"}
	if cfg.SlogLevel() != slog.LevelInfo {
		t.Errorf("SlogLevel() = %v, want info", cfg.SlogLevel())
	}
}
