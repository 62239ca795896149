// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package crm

import "github.com/olegiv/crm-json-events/internal/query"

// OptionsRequest is passed to ajax option hooks.
// Handlers fill Options.
type OptionsRequest struct {
	Args    map[string]string
	Options []Option
}

// AssessRequest is passed to automation condition hooks.
// Handlers set Passes.
type AssessRequest struct {
	Passes     bool
	Conditions []Filter
	Subscriber Subscriber
}

// FilterRequest is passed to contact filter hooks.
// Handlers attach predicates to Query.
type FilterRequest struct {
	Query   *query.Query
	Filters []Filter
}

// WidgetRequest is passed to subscriber info widget hooks.
// Handlers add entries to Widgets.
type WidgetRequest struct {
	Widgets    Widgets
	Subscriber Subscriber
	Page       int
}
