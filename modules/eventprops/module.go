// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package eventprops exposes the properties of JSON-valued tracked events to
// the CRM: a sampled property catalog for pickers, contact filters and
// automation conditions on property values, and a subscriber events widget.
// Every hook is a pass-through unless the module is constructed enabled.
package eventprops

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olegiv/crm-json-events/internal/config"
	"github.com/olegiv/crm-json-events/internal/crm"
	"github.com/olegiv/crm-json-events/internal/module"
	"github.com/olegiv/crm-json-events/internal/query"
)

// Module metadata.
const (
	ModuleName    = "eventprops"
	ModuleVersion = "1.0.0"
)

// Options configures the module.
type Options struct {
	// Enabled is the experimental event tracking flag.
	Enabled bool

	CatalogPageSize int
	CatalogMaxRows  int           // 0 = unbounded
	CatalogCacheTTL time.Duration // 0 = no catalog caching
	WidgetPerPage   int
}

// OptionsFromConfig derives module options from the host configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Enabled:         cfg.ExperimentalEventTracking,
		CatalogPageSize: cfg.CatalogPageSize,
		CatalogMaxRows:  cfg.CatalogMaxRows,
		CatalogCacheTTL: cfg.CatalogCacheDuration(),
		WidgetPerPage:   cfg.WidgetPerPage,
	}
}

// EventStore is the storage the module reads tracked events from.
type EventStore interface {
	EventValueSource
	ListSubscriberEvents(ctx context.Context, subscriberID int64, limit, offset int) ([]crm.EventRecord, error)
	CountSubscriberEvents(ctx context.Context, subscriberID int64) (int64, error)
}

// Module implements the module.Module interface.
type Module struct {
	module.BaseModule
	opts    Options
	ctx     *module.Context
	store   EventStore
	sampler *Sampler
}

// New creates the module.
func New(opts Options) *Module {
	if opts.WidgetPerPage <= 0 {
		opts.WidgetPerPage = DefaultWidgetPerPage
	}
	return &Module{
		BaseModule: module.NewBaseModule(
			ModuleName,
			ModuleVersion,
			"Filter contacts and automations by properties of JSON tracked events",
		),
		opts: opts,
	}
}

// Enabled reports whether the experimental event tracking flag is on.
func (m *Module) Enabled() bool {
	return m.opts.Enabled
}

// Init initializes the module with the given context.
func (m *Module) Init(ctx *module.Context) error {
	if ctx.Store == nil {
		return fmt.Errorf("%s: store is required", ModuleName)
	}
	if ctx.Hooks == nil {
		return fmt.Errorf("%s: hook registry is required", ModuleName)
	}
	if ctx.Dialect == nil {
		ctx.Dialect = query.SQLite
	}

	m.ctx = ctx
	m.store = ctx.Store
	m.sampler = NewSampler(ctx.Store, ctx.Cache, ctx.Logger, SamplerOptions{
		PageSize: m.opts.CatalogPageSize,
		MaxRows:  m.opts.CatalogMaxRows,
		CacheTTL: m.opts.CatalogCacheTTL,
	})

	m.registerHooks()

	ctx.Logger.Info("event properties module initialized",
		"enabled", m.opts.Enabled,
		"catalog_max_rows", m.opts.CatalogMaxRows,
		"catalog_cache_ttl", m.opts.CatalogCacheTTL,
	)
	return nil
}

// Shutdown performs cleanup when the module is shutting down.
func (m *Module) Shutdown() error {
	if m.ctx != nil {
		m.ctx.Hooks.UnregisterAll(m.Name())
		m.ctx.Logger.Info("event properties module shutting down")
	}
	return nil
}

// Migrations returns database migrations for the module.
func (m *Module) Migrations() []module.Migration {
	return []module.Migration{
		{
			Version:     1,
			Description: "Index event_trackers by subscriber and event key",
			Up: func(db *sql.DB) error {
				_, err := db.Exec(`CREATE INDEX idx_event_trackers_subscriber_key ON event_trackers (subscriber_id, event_key)`)
				return err
			},
			Down: func(db *sql.DB) error {
				stmt := `DROP INDEX IF EXISTS idx_event_trackers_subscriber_key`
				if m.ctx != nil && m.ctx.Dialect == query.MySQL {
					stmt = `DROP INDEX idx_event_trackers_subscriber_key ON event_trackers`
				}
				_, err := db.Exec(stmt)
				return err
			},
		},
	}
}

// PropertyOptions returns the sampled property catalog as picker options.
func (m *Module) PropertyOptions(ctx context.Context) ([]crm.Option, error) {
	props, err := m.sampler.Sample(ctx)
	if err != nil {
		return nil, err
	}
	options := make([]crm.Option, 0, len(props))
	for _, p := range props {
		options = append(options, p.Option())
	}
	return options, nil
}

// matchOptions keeps the options whose identity or title contains search,
// ignoring case.
func matchOptions(options []crm.Option, search string) []crm.Option {
	search = strings.ToLower(strings.TrimSpace(search))
	if search == "" {
		return options
	}
	matched := options[:0:0]
	for _, o := range options {
		if strings.Contains(strings.ToLower(o.ID), search) || strings.Contains(strings.ToLower(o.Title), search) {
			matched = append(matched, o)
		}
	}
	return matched
}

// ApplyFilters attaches a predicate for every event property filter in
// filters. Filters that cannot produce a predicate are skipped.
func (m *Module) ApplyFilters(q *query.Query, filters []crm.Filter) *query.Query {
	if !m.opts.Enabled {
		return q
	}

	for _, f := range filters {
		spec, err := ParseFilterSpec(f)
		if errors.Is(err, ErrNotEventPropFilter) {
			continue
		}
		if err == nil {
			err = spec.Apply(q)
		}
		if err != nil {
			m.ctx.Logger.Debug("skipping event property filter",
				"reason", err,
				"identity", f.ExtraValue,
				"operator", f.Operator,
			)
		}
	}
	return q
}
