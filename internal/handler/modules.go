// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/crm-json-events/internal/module"
)

// ModulesHandler exposes the module registry to administrators.
type ModulesHandler struct {
	registry *module.Registry
	hooks    *module.HookRegistry
}

// NewModulesHandler creates a new ModulesHandler.
func NewModulesHandler(registry *module.Registry, hooks *module.HookRegistry) *ModulesHandler {
	return &ModulesHandler{registry: registry, hooks: hooks}
}

// HookInfo is a hook name with the number of registered handlers.
type HookInfo struct {
	Name     string `json:"name"`
	Handlers int    `json:"handlers"`
}

// List handles GET /admin/modules.
func (h *ModulesHandler) List(w http.ResponseWriter, _ *http.Request) {
	names := h.hooks.ListHooks()
	hooks := make([]HookInfo, 0, len(names))
	for _, name := range names {
		hooks = append(hooks, HookInfo{Name: name, Handlers: h.hooks.HandlerCount(name)})
	}

	WriteJSONSuccess(w, map[string]any{
		"modules": h.registry.ListInfo(),
		"hooks":   hooks,
	})
}

type setActiveRequest struct {
	Active *bool `json:"active"`
}

// SetActive handles PUT /admin/modules/{name}/active.
func (h *ModulesHandler) SetActive(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, ok := h.registry.Get(name); !ok {
		WriteJSONError(w, http.StatusNotFound, "Module not found")
		return
	}

	var body setActiveRequest
	if err := DecodeJSON(r, &body); err != nil || body.Active == nil {
		WriteJSONError(w, http.StatusBadRequest, "Field 'active' is required")
		return
	}

	if err := h.registry.SetActive(name, *body.Active); err != nil {
		slog.Error("failed to change module status", "module", name, "error", err)
		WriteJSONError(w, http.StatusInternalServerError, "Failed to change module status")
		return
	}
	WriteJSONSuccess(w, map[string]any{"name": name, "active": *body.Active})
}
