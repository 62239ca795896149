// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package moduleutil provides module-specific test helpers.
package moduleutil

import (
	"database/sql"
	"testing"

	"github.com/olegiv/crm-json-events/internal/config"
	"github.com/olegiv/crm-json-events/internal/module"
	"github.com/olegiv/crm-json-events/internal/query"
	"github.com/olegiv/crm-json-events/internal/store"
	"github.com/olegiv/crm-json-events/internal/testutil"
)

// RunMigrations runs all migrations up for the given module.
func RunMigrations(t *testing.T, db *sql.DB, migrations []module.Migration) {
	t.Helper()
	for _, mig := range migrations {
		if err := mig.Up(db); err != nil {
			t.Fatalf("migration %d up: %v", mig.Version, err)
		}
	}
}

// RunMigrationsDown rolls back migrations for the given module in reverse order.
func RunMigrationsDown(t *testing.T, db *sql.DB, migrations []module.Migration) {
	t.Helper()
	for i := len(migrations) - 1; i >= 0; i-- {
		mig := migrations[i]
		if err := mig.Down(db); err != nil {
			t.Fatalf("migration %d down: %v", mig.Version, err)
		}
	}
}

// TestConfig returns a configuration with defaults suitable for tests and
// experimental event tracking enabled.
func TestConfig() *config.Config {
	return &config.Config{
		DBDriver:                  config.DriverSQLite,
		Env:                       "test",
		ExperimentalEventTracking: true,
		CatalogPageSize:           500,
		CatalogMaxRows:            50000,
		WidgetPerPage:             15,
	}
}

// TestModuleContext creates a SQLite module.Context backed by db.
// Returns the context and the hooks registry for verifying hook behavior.
func TestModuleContext(t *testing.T, db *sql.DB) (*module.Context, *module.HookRegistry) {
	t.Helper()
	logger := testutil.TestLogger()
	hooks := module.NewHookRegistry(logger)
	return &module.Context{
		DB:      db,
		Store:   store.New(db),
		Dialect: query.SQLite,
		Logger:  logger,
		Config:  TestConfig(),
		Hooks:   hooks,
	}, hooks
}
