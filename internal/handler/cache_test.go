// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/crm-json-events/internal/cache"
)

func newCacheRouter(c cache.Cache) chi.Router {
	h := NewCacheHandler(c)
	r := chi.NewRouter()
	r.Get("/cache", h.Stats)
	r.Delete("/cache", h.Clear)
	return r
}

func TestCacheHandler_StatsAndClear(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache(cache.MemoryCacheOptions{})
	t.Cleanup(func() { _ = mc.Close() })
	r := newCacheRouter(mc)

	require.NoError(t, mc.Set(ctx, "eventprops:catalog", []byte("[]"), 0))
	_, err := mc.Get(ctx, "eventprops:catalog")
	require.NoError(t, err)
	_, err = mc.Get(ctx, "missing")
	require.ErrorIs(t, err, cache.ErrCacheMiss)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cache", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Success bool        `json:"success"`
		Stats   cache.Stats `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.Equal(t, int64(1), body.Stats.Hits)
	assert.Equal(t, int64(1), body.Stats.Misses)
	assert.Equal(t, int64(1), body.Stats.Sets)
	assert.Equal(t, 1, body.Stats.Items)
	assert.InDelta(t, 50.0, body.Stats.HitRate, 0.001)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/cache", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, cache.Stats{}, mc.Stats())
	_, err = mc.Get(ctx, "eventprops:catalog")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestCacheHandler_NotConfigured(t *testing.T) {
	r := newCacheRouter(nil)

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(method, "/cache", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code, method)
		assert.Contains(t, rec.Body.String(), "Cache system not initialized", method)
	}
}
