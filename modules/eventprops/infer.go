// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package eventprops

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// PropertyType is the inferred type of a JSON event property.
type PropertyType string

// Property types reported in the catalog.
const (
	TypeInt    PropertyType = "int"
	TypeFloat  PropertyType = "float"
	TypeBool   PropertyType = "bool"
	TypeNull   PropertyType = "null"
	TypeString PropertyType = "string"
	TypeObject PropertyType = "object"
)

// typeRule maps values accepted by match to typ.
type typeRule struct {
	typ   PropertyType
	match func(v gjson.Result) bool
}

// typeRules is evaluated in order; the first match wins.
var typeRules = []typeRule{
	{TypeInt, isIntegral},
	{TypeFloat, isNumber},
	{TypeBool, isBool},
	{TypeNull, isNull},
	{TypeFloat, isNumericString},
	{TypeObject, isEncodedObject},
	{TypeObject, isContainer},
}

// InferType returns the catalog type of a JSON value, defaulting to string.
func InferType(v gjson.Result) PropertyType {
	for _, rule := range typeRules {
		if rule.match(v) {
			return rule.typ
		}
	}
	return TypeString
}

func isNumber(v gjson.Result) bool {
	return v.Type == gjson.Number
}

// isIntegral accepts number literals without fraction or exponent that fit
// in 64 bits. Larger literals are floats.
func isIntegral(v gjson.Result) bool {
	if !isNumber(v) {
		return false
	}
	_, err := strconv.ParseInt(v.Raw, 10, 64)
	return err == nil
}

func isBool(v gjson.Result) bool {
	return v.Type == gjson.True || v.Type == gjson.False
}

func isNull(v gjson.Result) bool {
	return v.Type == gjson.Null
}

// isNumericString matches strings holding a decimal number, such as "42"
// or " 9.5". Hex, Inf and NaN spellings stay strings.
func isNumericString(v gjson.Result) bool {
	if v.Type != gjson.String {
		return false
	}
	s := strings.TrimSpace(v.Str)
	if s == "" || strings.ContainsAny(s, "xXpP_") {
		return false
	}
	f, err := strconv.ParseFloat(s, 64)
	return err == nil && !math.IsInf(f, 0) && !math.IsNaN(f)
}

// isEncodedObject matches strings holding a serialized JSON object.
func isEncodedObject(v gjson.Result) bool {
	return v.Type == gjson.String && gjson.Valid(v.Str) && gjson.Parse(v.Str).IsObject()
}

func isContainer(v gjson.Result) bool {
	return v.IsObject() || v.IsArray()
}
