// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package eventprops

import (
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/olegiv/crm-json-events/internal/crm"
	"github.com/olegiv/crm-json-events/internal/query"
)

// FilterPropertyEventPropValue is the filter property handled by this module.
const FilterPropertyEventPropValue = "event_tracking_prop_value"

// Reasons a filter attaches no predicate.
var (
	ErrNotEventPropFilter   = errors.New("filter does not target an event property")
	ErrEmptyValue           = errors.New("comparison value is empty")
	ErrIncompleteIdentity   = errors.New("event key or property name is empty")
	ErrUnknownOperator      = errors.New("unknown operator")
	ErrUnsupportedProperty  = errors.New("property name cannot be addressed as a JSON path")
	ErrNonNumericComparison = errors.New("ordering comparison needs a numeric value")
)

// Operator is a comparison supported by event property filters.
type Operator int

// Supported operators.
const (
	OpEqual Operator = iota + 1
	OpNotEqual
	OpLess
	OpGreater
	OpContains
	OpNotContains
)

var operatorTokens = map[string]Operator{
	"=":            OpEqual,
	"!=":           OpNotEqual,
	"<":            OpLess,
	">":            OpGreater,
	"contains":     OpContains,
	"not_contains": OpNotContains,
}

// ParseOperator maps a UI operator token to an Operator.
func ParseOperator(token string) (Operator, bool) {
	op, ok := operatorTokens[token]
	return op, ok
}

// String returns the UI token of the operator.
func (o Operator) String() string {
	switch o {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpLess:
		return "<"
	case OpGreater:
		return ">"
	case OpContains:
		return "contains"
	case OpNotContains:
		return "not_contains"
	default:
		return "unknown"
	}
}

// negated reports whether the operator requires absence of a matching event.
func (o Operator) negated() bool {
	return o == OpNotEqual || o == OpNotContains
}

// FilterSpec is a parsed event property filter.
type FilterSpec struct {
	EventKey     string
	PropertyName string
	DeclaredType PropertyType
	Operator     Operator
	Value        string
}

// ParseFilterSpec parses a host filter. ExtraValue holds the identity
// "event_key:property_name[:type]"; the type defaults to string.
func ParseFilterSpec(f crm.Filter) (FilterSpec, error) {
	if f.Property != FilterPropertyEventPropValue {
		return FilterSpec{}, ErrNotEventPropFilter
	}
	if f.Value == "" {
		return FilterSpec{}, ErrEmptyValue
	}

	parts := strings.Split(f.ExtraValue, ":")
	spec := FilterSpec{
		EventKey:     parts[0],
		DeclaredType: TypeString,
		Value:        f.Value,
	}
	if len(parts) > 1 {
		spec.PropertyName = parts[1]
	}
	if len(parts) > 2 && parts[2] != "" {
		spec.DeclaredType = PropertyType(parts[2])
	}
	if spec.EventKey == "" || spec.PropertyName == "" {
		return FilterSpec{}, ErrIncompleteIdentity
	}

	op, ok := ParseOperator(f.Operator)
	if !ok {
		return FilterSpec{}, ErrUnknownOperator
	}
	spec.Operator = op

	return spec, nil
}

// Apply attaches the filter's predicate to a contact query. Numeric
// comparisons use floating point for every declared type. On error the
// query is left unchanged.
func (s FilterSpec) Apply(q *query.Query) error {
	path, ok := query.JSONPath(s.PropertyName)
	if !ok {
		return ErrUnsupportedProperty
	}

	number, numeric := parseNumber(s.Value)
	if (s.Operator == OpLess || s.Operator == OpGreater) && !numeric {
		return ErrNonNumericComparison
	}

	d := q.Dialect()
	match := func(sub *query.Query) {
		sub.Where(sub.Column("event_key"), "=", s.EventKey)
		value := sub.Column("value")

		switch s.Operator {
		case OpEqual, OpNotEqual:
			if numeric {
				sub.WhereRaw(d.JSONNumber(value)+" = ?", path, number)
			} else {
				sub.WhereRaw(d.JSONText(value)+" = ?", path, s.Value)
			}
		case OpLess, OpGreater:
			sub.WhereRaw(d.JSONNumber(value)+" "+s.Operator.String()+" ?", path, number)
		case OpContains, OpNotContains:
			sub.WhereRaw(d.JSONText(value)+" LIKE ?"+d.LikeEscape(), path, query.ContainsPattern(s.Value))
		}
	}

	if s.Operator.negated() {
		q.WhereDoesntHave(query.RelationTrackingEvents, match)
	} else {
		q.WhereHas(query.RelationTrackingEvents, match)
	}
	return nil
}

// parseNumber accepts finite decimal numbers, ignoring surrounding spaces.
func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
