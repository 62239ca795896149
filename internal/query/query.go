// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package query provides a small SQL builder for contact selection queries.
// Predicates are accumulated as AND-ed clauses with positional arguments;
// relations compile to correlated EXISTS sub-queries.
package query

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Table and relation names of the contact schema.
const (
	TableSubscribers       = "subscribers"
	TableEventTrackers     = "event_trackers"
	RelationTrackingEvents = "trackingEvents"
)

// ErrUnknownRelation is returned by ToSQL when a predicate references an
// undefined relation.
var ErrUnknownRelation = errors.New("unknown relation")

// Relation links a child table to the query's table.
type Relation struct {
	Table      string // child table
	ForeignKey string // column on the child table
	LocalKey   string // column on the parent table
}

type clause struct {
	sql  string
	args []any
}

// Query is a SELECT over a single table with AND-ed predicates.
type Query struct {
	dialect   Dialect
	table     string
	columns   []string
	relations map[string]Relation
	clauses   []clause
	orderBy   string
	limit     int
	err       error
}

// New creates a query selecting from table.
func New(d Dialect, table string) *Query {
	return &Query{
		dialect:   d,
		table:     table,
		relations: make(map[string]Relation),
	}
}

// NewContactQuery creates a query over subscribers with the trackingEvents
// relation defined.
func NewContactQuery(d Dialect) *Query {
	return New(d, TableSubscribers).
		Select(TableSubscribers+".id").
		DefineRelation(RelationTrackingEvents, Relation{
			Table:      TableEventTrackers,
			ForeignKey: "subscriber_id",
			LocalKey:   "id",
		})
}

// Dialect returns the query's SQL dialect.
func (q *Query) Dialect() Dialect { return q.dialect }

// Table returns the table the query selects from.
func (q *Query) Table() string { return q.table }

// Column qualifies a column with the query's table name.
func (q *Query) Column(name string) string { return q.table + "." + name }

// Select sets the selected columns. Default is "*".
func (q *Query) Select(columns ...string) *Query {
	q.columns = columns
	return q
}

// DefineRelation registers a named relation usable in WhereHas.
func (q *Query) DefineRelation(name string, rel Relation) *Query {
	q.relations[name] = rel
	return q
}

// Where adds "column op ?".
func (q *Query) Where(column, op string, value any) *Query {
	q.clauses = append(q.clauses, clause{
		sql:  column + " " + op + " ?",
		args: []any{value},
	})
	return q
}

// WhereRaw adds a raw predicate with positional arguments.
func (q *Query) WhereRaw(sql string, args ...any) *Query {
	q.clauses = append(q.clauses, clause{sql: sql, args: args})
	return q
}

// WhereHas requires at least one related row satisfying the predicates
// added by fn.
func (q *Query) WhereHas(relation string, fn func(sub *Query)) *Query {
	return q.whereExists(relation, fn, false)
}

// WhereDoesntHave requires that no related row satisfies the predicates
// added by fn. It is the exact negation of WhereHas with the same fn.
func (q *Query) WhereDoesntHave(relation string, fn func(sub *Query)) *Query {
	return q.whereExists(relation, fn, true)
}

func (q *Query) whereExists(relation string, fn func(*Query), negate bool) *Query {
	rel, ok := q.relations[relation]
	if !ok {
		if q.err == nil {
			q.err = fmt.Errorf("%w: %q on %s", ErrUnknownRelation, relation, q.table)
		}
		return q
	}

	sub := New(q.dialect, rel.Table)
	sub.WhereRaw(sub.Column(rel.ForeignKey) + " = " + q.Column(rel.LocalKey))
	if fn != nil {
		fn(sub)
	}
	if sub.err != nil && q.err == nil {
		q.err = sub.err
	}

	where, args := sub.whereSQL()
	prefix := "EXISTS"
	if negate {
		prefix = "NOT EXISTS"
	}
	q.clauses = append(q.clauses, clause{
		sql:  prefix + " (SELECT 1 FROM " + rel.Table + " WHERE " + where + ")",
		args: args,
	})
	return q
}

// OrderBy sets the ORDER BY expression.
func (q *Query) OrderBy(expr string) *Query {
	q.orderBy = expr
	return q
}

// Limit sets the LIMIT. Zero means no limit.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// PredicateCount returns the number of predicates attached to the query.
func (q *Query) PredicateCount() int {
	return len(q.clauses)
}

func (q *Query) whereSQL() (string, []any) {
	parts := make([]string, 0, len(q.clauses))
	var args []any
	for _, c := range q.clauses {
		parts = append(parts, "("+c.sql+")")
		args = append(args, c.args...)
	}
	return strings.Join(parts, " AND "), args
}

// ToSQL renders the query and its positional arguments.
func (q *Query) ToSQL() (string, []any, error) {
	if q.err != nil {
		return "", nil, q.err
	}

	columns := "*"
	if len(q.columns) > 0 {
		columns = strings.Join(q.columns, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(columns)
	sb.WriteString(" FROM ")
	sb.WriteString(q.table)

	where, args := q.whereSQL()
	if where != "" {
		sb.WriteString(" WHERE ")
		sb.WriteString(where)
	}
	if q.orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(q.orderBy)
	}
	if q.limit > 0 {
		sb.WriteString(" LIMIT ")
		sb.WriteString(strconv.Itoa(q.limit))
	}
	return sb.String(), args, nil
}
