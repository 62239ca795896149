// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package module

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Hook names for the CRM extension points. The payload type each hook
// passes through its handlers is noted per constant.
const (
	// HookAjaxOptionsEventTrackingProps fills the event property picker.
	// Payload: *crm.OptionsRequest.
	HookAjaxOptionsEventTrackingProps = "crm.ajax_options.event_tracking_props"

	// HookAssessEventTrackingObjects decides whether a subscriber matches
	// automation conditions. Payload: *crm.AssessRequest.
	HookAssessEventTrackingObjects = "crm.automation.assess.event_tracking_objects"

	// HookContactsFilterEventTrackingObjects attaches predicates to a
	// contact query. Payload: *crm.FilterRequest.
	HookContactsFilterEventTrackingObjects = "crm.contacts.filter.event_tracking_objects"

	// HookAdvancedFilterOptions extends the advanced filter option tree.
	// Payload: crm.OptionGroups.
	HookAdvancedFilterOptions = "crm.advanced_filter_options"

	// HookAutomationConditionGroups extends automation condition groups.
	// Payload: crm.OptionGroups.
	HookAutomationConditionGroups = "crm.automation.condition_groups"

	// HookEventTrackingConditionGroups extends event tracking condition
	// groups. Payload: []crm.OptionGroup.
	HookEventTrackingConditionGroups = "crm.event_tracking.condition_groups"

	// HookSubscriberInfoWidgets and HookSubscriberInfoWidgetEventTracking
	// add widgets to the contact detail screen. Payload: *crm.WidgetRequest.
	HookSubscriberInfoWidgets             = "crm.subscriber.info_widgets"
	HookSubscriberInfoWidgetEventTracking = "crm.subscriber.info_widget.event_tracking"
)

// HookFunc is a function that can be registered as a hook handler.
// It receives a context and data, and returns modified data and an error.
// If the hook returns an error, subsequent hooks are not called.
type HookFunc func(ctx context.Context, data any) (any, error)

// HookHandler wraps a HookFunc with metadata.
type HookHandler struct {
	Name     string   // Name of the handler for debugging
	Module   string   // Module that registered the handler
	Priority int      // Lower priority runs first (default: 10)
	Fn       HookFunc // The actual handler function
}

// DefaultPriority is the priority used by RegisterFunc.
const DefaultPriority = 10

// ErrHookResultType is returned by Filter when a handler returns a value of
// a different type than the payload it received.
var ErrHookResultType = errors.New("hook handler returned unexpected type")

// IsModuleActiveFunc is a function that checks if a module is active.
type IsModuleActiveFunc func(moduleName string) bool

// HookRegistry manages hook registration and execution.
type HookRegistry struct {
	hooks          map[string][]HookHandler
	logger         *slog.Logger
	isModuleActive IsModuleActiveFunc
	mu             sync.RWMutex
}

// NewHookRegistry creates a new hook registry.
func NewHookRegistry(logger *slog.Logger) *HookRegistry {
	return &HookRegistry{
		hooks:          make(map[string][]HookHandler),
		logger:         logger,
		isModuleActive: func(string) bool { return true }, // Default: all active
	}
}

// SetIsModuleActive sets the callback function to check if a module is active.
func (h *HookRegistry) SetIsModuleActive(fn IsModuleActiveFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.isModuleActive = fn
}

// Register adds a hook handler for the given hook name.
// Handlers with equal priority run in registration order.
func (h *HookRegistry) Register(hookName string, handler HookHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()

	handlers := append(h.hooks[hookName], handler)
	slices.SortStableFunc(handlers, func(a, b HookHandler) int {
		return a.Priority - b.Priority
	})
	h.hooks[hookName] = handlers

	h.logger.Debug("hook registered",
		"hook", hookName,
		"handler", handler.Name,
		"module", handler.Module,
		"priority", handler.Priority,
	)
}

// RegisterFunc registers fn with DefaultPriority.
func (h *HookRegistry) RegisterFunc(hookName, handlerName, moduleName string, fn HookFunc) {
	h.Register(hookName, HookHandler{
		Name:     handlerName,
		Module:   moduleName,
		Priority: DefaultPriority,
		Fn:       fn,
	})
}

// Call executes all handlers for the given hook name.
// Handlers are executed in priority order (lower first).
// Handlers from inactive modules are skipped.
// The data is passed through each handler, allowing modification.
// If any handler returns an error, execution stops and the error is returned.
func (h *HookRegistry) Call(ctx context.Context, hookName string, data any) (any, error) {
	h.mu.RLock()
	handlers := slices.Clone(h.hooks[hookName])
	isModuleActive := h.isModuleActive
	h.mu.RUnlock()

	if len(handlers) == 0 {
		return data, nil
	}

	h.logger.Debug("calling hooks", "hook", hookName, "handlers", len(handlers))

	currentData := data
	for _, handler := range handlers {
		if !isModuleActive(handler.Module) {
			h.logger.Debug("skipping hook handler from inactive module",
				"hook", hookName,
				"handler", handler.Name,
				"module", handler.Module,
			)
			continue
		}

		result, err := handler.Fn(ctx, currentData)
		if err != nil {
			h.logger.Error("hook handler error",
				"hook", hookName,
				"handler", handler.Name,
				"module", handler.Module,
				"error", err,
			)
			return nil, fmt.Errorf("hook %s handler %s: %w", hookName, handler.Name, err)
		}
		currentData = result
	}

	return currentData, nil
}

// Filter runs a hook whose handlers receive and return a value of type T.
func Filter[T any](ctx context.Context, h *HookRegistry, hookName string, data T) (T, error) {
	result, err := h.Call(ctx, hookName, data)
	if err != nil {
		return data, err
	}
	typed, ok := result.(T)
	if !ok {
		return data, fmt.Errorf("hook %s: %w: %T", hookName, ErrHookResultType, result)
	}
	return typed, nil
}

// HandlerCount returns the number of handlers registered for a hook.
func (h *HookRegistry) HandlerCount(hookName string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.hooks[hookName])
}

// ListHooks returns all hook names with at least one handler, sorted.
func (h *HookRegistry) ListHooks() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	names := make([]string, 0, len(h.hooks))
	for name, handlers := range h.hooks {
		if len(handlers) > 0 {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// UnregisterAll removes all handlers registered by a module.
func (h *HookRegistry) UnregisterAll(moduleName string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for hookName, handlers := range h.hooks {
		h.hooks[hookName] = slices.DeleteFunc(handlers, func(handler HookHandler) bool {
			return handler.Module == moduleName
		})
	}

	h.logger.Debug("all hooks unregistered for module", "module", moduleName)
}
