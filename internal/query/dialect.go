// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package query

// Dialect supplies the SQL fragments that differ between database engines.
// JSON fragments take exactly one placeholder: the JSON path.
type Dialect interface {
	// Name returns the dialect name ("sqlite" or "mysql").
	Name() string
	// JSONText extracts the value at a path from a JSON column as text.
	// Rows whose column is not valid JSON yield NULL instead of an error.
	JSONText(column string) string
	// JSONNumber extracts the value at a path as a floating-point number.
	JSONNumber(column string) string
	// LikeEscape returns the ESCAPE clause matching EscapeLike.
	LikeEscape() string
}

// SQLite is the dialect for modernc.org/sqlite and mattn/go-sqlite3.
var SQLite Dialect = sqliteDialect{}

// MySQL is the dialect for MySQL 8 and MariaDB.
var MySQL Dialect = mysqlDialect{}

// DialectFor returns the dialect for a database/sql driver name.
func DialectFor(driver string) Dialect {
	if driver == "mysql" {
		return MySQL
	}
	return SQLite
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string { return "sqlite" }

// CASE guarantees json_extract is never evaluated on malformed JSON,
// which would otherwise abort the whole statement.
func (sqliteDialect) JSONText(column string) string {
	return "(CASE WHEN json_valid(" + column + ") THEN json_extract(" + column + ", ?) END)"
}

func (d sqliteDialect) JSONNumber(column string) string {
	return "CAST(" + d.JSONText(column) + " AS REAL)"
}

func (sqliteDialect) LikeEscape() string { return ` ESCAPE '\'` }

type mysqlDialect struct{}

func (mysqlDialect) Name() string { return "mysql" }

func (mysqlDialect) JSONText(column string) string {
	return "(CASE WHEN JSON_VALID(" + column + ") THEN JSON_UNQUOTE(JSON_EXTRACT(" + column + ", ?)) END)"
}

func (d mysqlDialect) JSONNumber(column string) string {
	return "CAST(" + d.JSONText(column) + " AS DOUBLE)"
}

func (mysqlDialect) LikeEscape() string { return ` ESCAPE '\\'` }
