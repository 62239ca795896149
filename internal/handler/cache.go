// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/olegiv/crm-json-events/internal/cache"
)

// CacheHandler handles cache management routes.
type CacheHandler struct {
	cache cache.Cache // may be nil
}

// NewCacheHandler creates a new CacheHandler. c may be nil when no cache
// backend is configured.
func NewCacheHandler(c cache.Cache) *CacheHandler {
	return &CacheHandler{cache: c}
}

// Stats handles GET /admin/cache.
func (h *CacheHandler) Stats(w http.ResponseWriter, _ *http.Request) {
	if h.cache == nil {
		WriteJSONError(w, http.StatusNotFound, "Cache system not initialized")
		return
	}

	data := map[string]any{"stats": nil}
	if sp, ok := h.cache.(cache.StatsProvider); ok {
		data["stats"] = sp.Stats()
	}
	WriteJSONSuccess(w, data)
}

// Clear handles DELETE /admin/cache. It drops every entry and resets the
// counters.
func (h *CacheHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		WriteJSONError(w, http.StatusNotFound, "Cache system not initialized")
		return
	}

	if err := h.cache.Clear(r.Context()); err != nil {
		slog.Error("failed to clear cache", "error", err)
		WriteJSONError(w, http.StatusInternalServerError, "Failed to clear cache")
		return
	}
	if sp, ok := h.cache.(cache.StatsProvider); ok {
		sp.ResetStats()
	}
	slog.Info("cache cleared")
	WriteJSONSuccess(w, nil)
}
