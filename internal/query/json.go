// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package query

import "strings"

// JSONPath returns a path addressing the top-level member name of a JSON
// object. The name is quoted so dots and spaces are taken literally.
// Names containing a double quote or backslash cannot be expressed portably
// and are rejected.
func JSONPath(name string) (string, bool) {
	if name == "" || strings.ContainsAny(name, `"\`) {
		return "", false
	}
	return `$."` + name + `"`, true
}

var likeReplacer = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes LIKE metacharacters using backslash as escape character.
func EscapeLike(s string) string {
	return likeReplacer.Replace(s)
}

// ContainsPattern returns a LIKE pattern matching s anywhere in a value.
func ContainsPattern(s string) string {
	return "%" + EscapeLike(s) + "%"
}
