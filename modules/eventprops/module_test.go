// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package eventprops

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/crm-json-events/internal/config"
	"github.com/olegiv/crm-json-events/internal/module"
	"github.com/olegiv/crm-json-events/internal/query"
	"github.com/olegiv/crm-json-events/internal/testutil"
	"github.com/olegiv/crm-json-events/internal/testutil/moduleutil"
)

// testModule creates an initialized module over a fresh database.
func testModule(t *testing.T, opts Options) (*Module, *module.HookRegistry, *sql.DB) {
	t.Helper()
	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	m := New(opts)
	moduleutil.RunMigrations(t, db, m.Migrations())
	ctx, hooks := moduleutil.TestModuleContext(t, db)
	require.NoError(t, m.Init(ctx))
	return m, hooks, db
}

func enabledOptions() Options {
	return Options{Enabled: true, CatalogPageSize: 2, WidgetPerPage: 2}
}

// purchaseFixture holds subscribers used by filter and assess tests:
// fifty bought for 50 USD, seventyFive for 75, none has no purchase.
type purchaseFixture struct {
	fifty, seventyFive, none int64
}

func seedPurchases(t *testing.T, db *sql.DB) purchaseFixture {
	t.Helper()
	f := purchaseFixture{
		fifty:       testutil.CreateSubscriber(t, db, "fifty@example.com"),
		seventyFive: testutil.CreateSubscriber(t, db, "seventy-five@example.com"),
		none:        testutil.CreateSubscriber(t, db, "none@example.com"),
	}
	testutil.TrackEvent(t, db, f.fifty, "purchase", "Purchase", `{"amount":50,"currency":"USD"}`)
	testutil.TrackEvent(t, db, f.seventyFive, "purchase", "Purchase", `{"amount":75}`)
	testutil.TrackEvent(t, db, f.none, "newsletter_click", "Newsletter Click", "spring-sale")
	return f
}

func TestModuleNew(t *testing.T) {
	m := New(Options{})

	assert.Equal(t, ModuleName, m.Name())
	assert.Equal(t, ModuleVersion, m.Version())
	assert.NotEmpty(t, m.Description())
	assert.False(t, m.Enabled())
	assert.Equal(t, DefaultWidgetPerPage, m.opts.WidgetPerPage)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{
		ExperimentalEventTracking: true,
		CatalogPageSize:           100,
		CatalogMaxRows:            1000,
		CatalogCacheTTL:           30,
		WidgetPerPage:             20,
	}

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, Options{
		Enabled:         true,
		CatalogPageSize: 100,
		CatalogMaxRows:  1000,
		CatalogCacheTTL: 30 * time.Second,
		WidgetPerPage:   20,
	}, opts)
}

func TestModuleInitRequiresStore(t *testing.T) {
	m := New(enabledOptions())
	err := m.Init(&module.Context{Logger: testutil.TestLoggerSilent()})
	assert.Error(t, err)
}

func TestModuleMigrationsUpDown(t *testing.T) {
	m, _, db := testModule(t, enabledOptions())

	var count int
	require.NoError(t, db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_event_trackers_subscriber_key'",
	).Scan(&count))
	assert.Equal(t, 1, count)

	moduleutil.RunMigrationsDown(t, db, m.Migrations())
	require.NoError(t, db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_event_trackers_subscriber_key'",
	).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestModuleThroughRegistry(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()
	f := seedPurchases(t, db)

	ctx, hooks := moduleutil.TestModuleContext(t, db)
	registry := module.NewRegistry(testutil.TestLoggerSilent())
	require.NoError(t, registry.Register(New(enabledOptions())))
	require.NoError(t, registry.InitAll(ctx))

	assert.Len(t, hooks.ListHooks(), 8)

	q := query.NewContactQuery(query.SQLite)
	req, err := module.Filter(context.Background(), hooks, module.HookContactsFilterEventTrackingObjects, newFilterRequest(q,
		eventFilter("purchase:amount", ">", "60"),
	))
	require.NoError(t, err)
	assert.Equal(t, []int64{f.seventyFive}, matchingIDs(t, db, req.Query))

	// A deactivated module no longer contributes predicates.
	require.NoError(t, registry.SetActive(ModuleName, false))
	q = query.NewContactQuery(query.SQLite)
	req, err = module.Filter(context.Background(), hooks, module.HookContactsFilterEventTrackingObjects, newFilterRequest(q,
		eventFilter("purchase:amount", ">", "60"),
	))
	require.NoError(t, err)
	assert.Equal(t, 0, req.Query.PredicateCount())

	require.NoError(t, registry.ShutdownAll())
	assert.Empty(t, hooks.ListHooks())
}
