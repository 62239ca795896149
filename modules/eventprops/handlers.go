// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package eventprops

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/crm-json-events/internal/crm"
	"github.com/olegiv/crm-json-events/internal/handler"
	"github.com/olegiv/crm-json-events/internal/module"
	"github.com/olegiv/crm-json-events/internal/query"
	"github.com/olegiv/crm-json-events/internal/store"
)

// previewLimit caps the subscriber ids returned by the contacts preview.
const previewLimit = 100

// RegisterAdminRoutes registers admin routes for the module.
func (m *Module) RegisterAdminRoutes(r chi.Router) {
	r.Route("/event-tracking", func(r chi.Router) {
		r.Get("/props", m.handleProps)
		r.Post("/props/refresh", m.handleRefreshProps)
		r.Get("/filter-options", m.handleFilterOptions)
		r.Get("/subscribers/{id}/widget", m.handleWidget)
		r.Post("/contacts/preview", m.handlePreview)
	})
}

// handleProps handles GET /admin/event-tracking/props.
func (m *Module) handleProps(w http.ResponseWriter, r *http.Request) {
	req, err := module.Filter(r.Context(), m.ctx.Hooks, module.HookAjaxOptionsEventTrackingProps, &crm.OptionsRequest{
		Args: map[string]string{"search": r.URL.Query().Get("search")},
	})
	if err != nil {
		m.ctx.Logger.Error("failed to sample event properties", "error", err)
		handler.WriteJSONError(w, http.StatusInternalServerError, "Failed to load event properties")
		return
	}

	options := req.Options
	if options == nil {
		options = []crm.Option{}
	}
	handler.WriteJSONSuccess(w, map[string]any{"options": options})
}

// handleRefreshProps handles POST /admin/event-tracking/props/refresh.
// It drops the cached catalog so the next request samples again.
func (m *Module) handleRefreshProps(w http.ResponseWriter, r *http.Request) {
	if err := m.sampler.Invalidate(r.Context()); err != nil {
		m.ctx.Logger.Error("failed to invalidate property catalog cache", "error", err)
		handler.WriteJSONError(w, http.StatusInternalServerError, "Failed to refresh event properties")
		return
	}
	handler.WriteJSONSuccess(w, nil)
}

// handleFilterOptions handles GET /admin/event-tracking/filter-options.
func (m *Module) handleFilterOptions(w http.ResponseWriter, r *http.Request) {
	groups, err := module.Filter(r.Context(), m.ctx.Hooks, module.HookAdvancedFilterOptions, crm.OptionGroups{})
	if err != nil {
		m.ctx.Logger.Error("failed to build filter options", "error", err)
		handler.WriteJSONError(w, http.StatusInternalServerError, "Failed to build filter options")
		return
	}
	handler.WriteJSONSuccess(w, map[string]any{"groups": groups})
}

// handleWidget handles GET /admin/event-tracking/subscribers/{id}/widget.
func (m *Module) handleWidget(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		handler.WriteJSONError(w, http.StatusBadRequest, "Invalid subscriber ID")
		return
	}

	subscriber, err := m.ctx.Store.GetSubscriber(r.Context(), id)
	if store.IsNotFound(err) {
		handler.WriteJSONError(w, http.StatusNotFound, "Subscriber not found")
		return
	}
	if err != nil {
		m.ctx.Logger.Error("failed to load subscriber", "error", err, "subscriber_id", id)
		handler.WriteJSONError(w, http.StatusInternalServerError, "Failed to load subscriber")
		return
	}

	req, err := module.Filter(r.Context(), m.ctx.Hooks, module.HookSubscriberInfoWidgets, &crm.WidgetRequest{
		Widgets:    crm.Widgets{},
		Subscriber: subscriber,
		Page:       handler.PageParam(r),
	})
	if err != nil {
		m.ctx.Logger.Error("failed to render subscriber widgets", "error", err, "subscriber_id", id)
		handler.WriteJSONError(w, http.StatusInternalServerError, "Failed to render widgets")
		return
	}
	handler.WriteJSONSuccess(w, map[string]any{"widgets": req.Widgets})
}

type previewRequest struct {
	Filters []crm.Filter `json:"filters"`
}

// handlePreview handles POST /admin/event-tracking/contacts/preview.
func (m *Module) handlePreview(w http.ResponseWriter, r *http.Request) {
	var body previewRequest
	if err := handler.DecodeJSON(r, &body); err != nil {
		handler.WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	q := query.NewContactQuery(m.ctx.Dialect).
		OrderBy(query.TableSubscribers + ".id").
		Limit(previewLimit)

	req, err := module.Filter(r.Context(), m.ctx.Hooks, module.HookContactsFilterEventTrackingObjects, &crm.FilterRequest{
		Query:   q,
		Filters: body.Filters,
	})
	if err != nil {
		m.ctx.Logger.Error("failed to apply contact filters", "error", err)
		handler.WriteJSONError(w, http.StatusInternalServerError, "Failed to apply filters")
		return
	}

	stmt, args, err := req.Query.ToSQL()
	if err != nil {
		m.ctx.Logger.Error("failed to build contact query", "error", err)
		handler.WriteJSONError(w, http.StatusInternalServerError, "Failed to build query")
		return
	}

	rows, err := m.ctx.DB.QueryContext(r.Context(), stmt, args...)
	if err != nil {
		m.ctx.Logger.Error("failed to query contacts", "error", err)
		handler.WriteJSONError(w, http.StatusInternalServerError, "Failed to query contacts")
		return
	}
	defer func() { _ = rows.Close() }()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			m.ctx.Logger.Error("failed to scan contact", "error", err)
			handler.WriteJSONError(w, http.StatusInternalServerError, "Failed to query contacts")
			return
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		m.ctx.Logger.Error("failed to read contacts", "error", err)
		handler.WriteJSONError(w, http.StatusInternalServerError, "Failed to query contacts")
		return
	}

	handler.WriteJSONSuccess(w, map[string]any{
		"subscriber_ids": ids,
		"predicates":     req.Query.PredicateCount(),
	})
}
