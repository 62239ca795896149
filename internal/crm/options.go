// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package crm

import (
	"bytes"
	"encoding/json"
)

// OptionGroup is a branch of the filter/condition option tree.
type OptionGroup struct {
	Label    string          `json:"label"`
	Value    string          `json:"value"`
	Children []ConditionItem `json:"children"`
}

// OptionGroups maps group keys to option groups.
type OptionGroups map[string]OptionGroup

// ConditionItem describes one selectable condition in the option tree.
type ConditionItem struct {
	Label           string           `json:"label"`
	Value           string           `json:"value"`
	Type            string           `json:"type"`
	Help            string           `json:"help,omitempty"`
	AjaxSelector    *AjaxSelector    `json:"ajax_selector,omitempty"`
	ValueConfig     *ValueConfig     `json:"value_config,omitempty"`
	CustomOperators OrderedOperators `json:"custom_operators,omitempty"`
}

// AjaxSelector configures a remote option picker.
type AjaxSelector struct {
	Label             string `json:"label"`
	OptionKey         string `json:"option_key"`
	ExperimentalCache bool   `json:"experimental_cache"`
	IsMultiple        bool   `json:"is_multiple"`
	Placeholder       string `json:"placeholder"`
}

// ValueConfig configures the comparison value input.
type ValueConfig struct {
	Label       string `json:"label"`
	Type        string `json:"type"`
	Placeholder string `json:"placeholder"`
	DataType    string `json:"data_type"`
}

// OperatorLabel pairs an operator with its display label.
type OperatorLabel struct {
	Operator string
	Label    string
}

// OrderedOperators marshals to a JSON object whose keys keep slice order.
type OrderedOperators []OperatorLabel

// MarshalJSON implements json.Marshaler.
func (o OrderedOperators) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, op := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(op.Operator)
		if err != nil {
			return nil, err
		}
		label, err := json.Marshal(op.Label)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(label)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
