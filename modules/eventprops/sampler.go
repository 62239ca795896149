// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package eventprops

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/olegiv/crm-json-events/internal/cache"
	"github.com/olegiv/crm-json-events/internal/crm"
	"github.com/olegiv/crm-json-events/internal/store"
)

// Cache keys owned by the module share cachePrefix.
const (
	cachePrefix     = "eventprops:"
	catalogCacheKey = cachePrefix + "catalog"
)

// Default sampling limits.
const (
	DefaultCatalogPageSize = 500
	DefaultCatalogMaxRows  = 50000
)

// PropertyDescriptor describes one property observed in JSON event values.
type PropertyDescriptor struct {
	EventKey     string       `json:"event_key"`
	PropertyName string       `json:"property_name"`
	Type         PropertyType `json:"type"`
	Label        string       `json:"label"`
}

// ID returns the catalog identity "event_key:property_name".
func (d PropertyDescriptor) ID() string {
	return d.EventKey + ":" + d.PropertyName
}

// Option converts the descriptor to a picker option.
func (d PropertyDescriptor) Option() crm.Option {
	return crm.Option{ID: d.ID(), Title: d.Label}
}

// EventValueSource pages through distinct stored event values ordered by
// event key.
type EventValueSource interface {
	ListDistinctEventValues(ctx context.Context, limit, offset int) ([]store.EventValue, error)
}

// SamplerOptions bounds the catalog scan.
type SamplerOptions struct {
	PageSize int           // rows per query
	MaxRows  int           // 0 = unbounded
	CacheTTL time.Duration // 0 = recompute on every call
}

// Sampler builds the property catalog from stored event values.
type Sampler struct {
	source EventValueSource
	logger *slog.Logger
	opts   SamplerOptions
	cache  *cache.TypedCache[[]PropertyDescriptor]
}

// NewSampler creates a sampler. c is consulted only when opts.CacheTTL > 0;
// it may be nil.
func NewSampler(source EventValueSource, c cache.Cache, logger *slog.Logger, opts SamplerOptions) *Sampler {
	if opts.PageSize <= 0 {
		opts.PageSize = DefaultCatalogPageSize
	}
	if opts.MaxRows < 0 {
		opts.MaxRows = 0
	}

	s := &Sampler{source: source, logger: logger, opts: opts}
	if c != nil && opts.CacheTTL > 0 {
		s.cache = cache.NewTypedCache[[]PropertyDescriptor](c, opts.CacheTTL)
	}
	return s
}

// Sample returns one descriptor per (event key, property name) in first-seen
// order. Values that are not JSON objects or arrays contribute nothing.
func (s *Sampler) Sample(ctx context.Context) ([]PropertyDescriptor, error) {
	if s.cache != nil {
		return s.cache.GetOrLoad(ctx, catalogCacheKey, s.scan)
	}
	return s.scan(ctx)
}

// Invalidate drops every cached entry owned by the module, the catalog
// included.
func (s *Sampler) Invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.DeleteByPrefix(ctx, cachePrefix)
}

func (s *Sampler) scan(ctx context.Context) ([]PropertyDescriptor, error) {
	cat := newCatalog()
	scanned := 0

	for {
		limit := s.opts.PageSize
		if s.opts.MaxRows > 0 {
			limit = min(limit, s.opts.MaxRows-scanned)
		}

		rows, err := s.source.ListDistinctEventValues(ctx, limit, scanned)
		if err != nil {
			return nil, fmt.Errorf("sampling event values: %w", err)
		}

		for _, row := range rows {
			if !cat.add(row) {
				s.logger.Debug("skipping event value without JSON shape", "event_key", row.EventKey)
			}
		}
		scanned += len(rows)

		if len(rows) < limit {
			break
		}
		if s.opts.MaxRows > 0 && scanned >= s.opts.MaxRows {
			s.logger.Warn("property catalog sampling stopped at row limit",
				"category", "catalog",
				"rows_scanned", scanned,
				"max_rows", s.opts.MaxRows,
			)
			break
		}
	}

	s.logger.Debug("property catalog sampled", "rows_scanned", scanned, "properties", len(cat.items))
	return cat.items, nil
}

// catalog accumulates descriptors, keeping the first observation of each
// identity.
type catalog struct {
	seen  map[string]struct{}
	items []PropertyDescriptor
}

func newCatalog() *catalog {
	return &catalog{seen: make(map[string]struct{})}
}

// add records the properties of one event value and reports whether the
// value was a JSON object or array.
func (c *catalog) add(row store.EventValue) bool {
	if !gjson.Valid(row.Value) {
		return false
	}
	doc := gjson.Parse(row.Value)

	switch {
	case doc.IsObject():
		doc.ForEach(func(key, value gjson.Result) bool {
			c.observe(row, key.String(), value)
			return true
		})
	case doc.IsArray():
		for i, value := range doc.Array() {
			c.observe(row, strconv.Itoa(i), value)
		}
	default:
		return false
	}
	return true
}

func (c *catalog) observe(row store.EventValue, name string, value gjson.Result) {
	id := row.EventKey + ":" + name
	if _, ok := c.seen[id]; ok {
		return
	}
	c.seen[id] = struct{}{}

	typ := InferType(value)
	c.items = append(c.items, PropertyDescriptor{
		EventKey:     row.EventKey,
		PropertyName: name,
		Type:         typ,
		Label:        fmt.Sprintf("%s: %s (%s)", row.Title, name, typ),
	})
}
