// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package eventprops

import "github.com/olegiv/crm-json-events/internal/crm"

// Option tree identifiers.
const (
	GroupEventTrackingObjects = "event_tracking_objects"
	OptionKeyEventProps       = "event_tracking_props"
	groupLabel                = "Event Tracking (Objects)"
)

// ConditionItems returns the selectable conditions of the event tracking
// group.
func ConditionItems() []crm.ConditionItem {
	return []crm.ConditionItem{
		{
			Label: "Event Prop Value",
			Value: FilterPropertyEventPropValue,
			Type:  "composite_optioned_compare",
			Help:  "The compare value will be matched with selected event & last recorded value of the selected event prop",
			AjaxSelector: &crm.AjaxSelector{
				Label:             "For Event Value Prop",
				OptionKey:         OptionKeyEventProps,
				ExperimentalCache: true,
				Placeholder:       "Select Event Value Prop",
			},
			ValueConfig: &crm.ValueConfig{
				Label:       "Compare Value",
				Type:        "input_text",
				Placeholder: "Prop Value",
				DataType:    "string",
			},
			CustomOperators: crm.OrderedOperators{
				{Operator: OpEqual.String(), Label: "equal"},
				{Operator: OpNotEqual.String(), Label: "not equal"},
				{Operator: OpContains.String(), Label: "includes"},
				{Operator: OpNotContains.String(), Label: "does not includes"},
				{Operator: OpGreater.String(), Label: "greater than"},
				{Operator: OpLess.String(), Label: "less than"},
			},
		},
	}
}

// ConditionGroup returns the event tracking branch of the option tree.
func ConditionGroup() crm.OptionGroup {
	return crm.OptionGroup{
		Label:    groupLabel,
		Value:    GroupEventTrackingObjects,
		Children: ConditionItems(),
	}
}

// AddOptionGroup adds the event tracking branch to groups.
func (m *Module) AddOptionGroup(groups crm.OptionGroups) crm.OptionGroups {
	if !m.opts.Enabled {
		return groups
	}
	if groups == nil {
		groups = make(crm.OptionGroups)
	}
	groups[GroupEventTrackingObjects] = ConditionGroup()
	return groups
}

// AppendConditionGroup appends the event tracking branch to a group list.
func (m *Module) AppendConditionGroup(groups []crm.OptionGroup) []crm.OptionGroup {
	if !m.opts.Enabled {
		return groups
	}
	return append(groups, ConditionGroup())
}
