// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package eventprops

import (
	"context"
	"fmt"

	"github.com/olegiv/crm-json-events/internal/crm"
	"github.com/olegiv/crm-json-events/internal/module"
)

// payload asserts the hook payload type.
func payload[T any](hook string, data any) (T, error) {
	v, ok := data.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: %w: got %T, want %T", hook, module.ErrHookResultType, data, zero)
	}
	return v, nil
}

// registerHooks registers hook handlers for the module. Each handler returns
// its payload untouched while the module is disabled.
func (m *Module) registerHooks() {
	hooks := m.ctx.Hooks

	hooks.RegisterFunc(module.HookAjaxOptionsEventTrackingProps, "eventprops_property_options", m.Name(),
		func(ctx context.Context, data any) (any, error) {
			if !m.opts.Enabled {
				return data, nil
			}
			req, err := payload[*crm.OptionsRequest](module.HookAjaxOptionsEventTrackingProps, data)
			if err != nil {
				return nil, err
			}
			options, err := m.PropertyOptions(ctx)
			if err != nil {
				return nil, err
			}
			req.Options = matchOptions(options, req.Args["search"])
			return req, nil
		})

	hooks.RegisterFunc(module.HookAssessEventTrackingObjects, "eventprops_assess_conditions", m.Name(),
		func(ctx context.Context, data any) (any, error) {
			if !m.opts.Enabled {
				return data, nil
			}
			req, err := payload[*crm.AssessRequest](module.HookAssessEventTrackingObjects, data)
			if err != nil {
				return nil, err
			}
			passes, err := m.AssessConditions(ctx, req.Passes, req.Conditions, req.Subscriber.ID)
			if err != nil {
				return nil, err
			}
			req.Passes = passes
			return req, nil
		})

	hooks.RegisterFunc(module.HookContactsFilterEventTrackingObjects, "eventprops_contacts_filter", m.Name(),
		func(_ context.Context, data any) (any, error) {
			if !m.opts.Enabled {
				return data, nil
			}
			req, err := payload[*crm.FilterRequest](module.HookContactsFilterEventTrackingObjects, data)
			if err != nil {
				return nil, err
			}
			req.Query = m.ApplyFilters(req.Query, req.Filters)
			return req, nil
		})

	for _, hook := range []string{module.HookAdvancedFilterOptions, module.HookAutomationConditionGroups} {
		hooks.RegisterFunc(hook, "eventprops_option_group", m.Name(),
			func(_ context.Context, data any) (any, error) {
				if !m.opts.Enabled {
					return data, nil
				}
				groups, err := payload[crm.OptionGroups](hook, data)
				if err != nil {
					return nil, err
				}
				return m.AddOptionGroup(groups), nil
			})
	}

	hooks.RegisterFunc(module.HookEventTrackingConditionGroups, "eventprops_condition_groups", m.Name(),
		func(_ context.Context, data any) (any, error) {
			if !m.opts.Enabled {
				return data, nil
			}
			groups, err := payload[[]crm.OptionGroup](module.HookEventTrackingConditionGroups, data)
			if err != nil {
				return nil, err
			}
			return m.AppendConditionGroup(groups), nil
		})

	for _, hook := range []string{module.HookSubscriberInfoWidgets, module.HookSubscriberInfoWidgetEventTracking} {
		hooks.RegisterFunc(hook, "eventprops_subscriber_widget", m.Name(),
			func(ctx context.Context, data any) (any, error) {
				if !m.opts.Enabled {
					return data, nil
				}
				req, err := payload[*crm.WidgetRequest](hook, data)
				if err != nil {
					return nil, err
				}
				widgets, err := m.SubscriberWidget(ctx, req.Widgets, req.Subscriber, req.Page)
				if err != nil {
					return nil, err
				}
				req.Widgets = widgets
				return req, nil
			})
	}
}
