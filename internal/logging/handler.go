// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package logging provides a slog handler that mirrors WARN and ERROR
// records into the database-backed event log.
package logging

import (
	"context"
	"database/sql"
	"log/slog"
	"strings"

	"github.com/tidwall/sjson"

	"github.com/olegiv/crm-json-events/internal/store"
)

// Event log levels.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Event log categories.
const (
	CategoryCatalog  = "catalog"
	CategoryFilter   = "filter"
	CategoryWidget   = "widget"
	CategoryCache    = "cache"
	CategoryDatabase = "database"
	CategorySystem   = "system"
)

// EventLogHandler is a slog.Handler that wraps another handler and also writes
// records at or above its level to the event log table.
type EventLogHandler struct {
	inner   slog.Handler
	queries *store.Queries
	level   slog.Level
	attrs   []slog.Attr
}

// NewEventLogHandler wraps inner and forwards WARN and above to the event log.
func NewEventLogHandler(inner slog.Handler, db *sql.DB) *EventLogHandler {
	return NewEventLogHandlerWithLevel(inner, db, slog.LevelWarn)
}

// NewEventLogHandlerWithLevel creates a new EventLogHandler with a custom minimum level.
func NewEventLogHandlerWithLevel(inner slog.Handler, db *sql.DB, level slog.Level) *EventLogHandler {
	return &EventLogHandler{
		inner:   inner,
		queries: store.New(db),
		level:   level,
	}
}

// Enabled implements slog.Handler.
func (h *EventLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *EventLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.inner.Handle(ctx, r); err != nil {
		return err
	}

	if r.Level >= h.level {
		h.writeToEventLog(r)
	}

	return nil
}

// WithAttrs implements slog.Handler.
func (h *EventLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &EventLogHandler{
		inner:   h.inner.WithAttrs(attrs),
		queries: h.queries,
		level:   h.level,
		attrs:   append(h.attrs[:len(h.attrs):len(h.attrs)], attrs...),
	}
}

// WithGroup implements slog.Handler.
func (h *EventLogHandler) WithGroup(name string) slog.Handler {
	return &EventLogHandler{
		inner:   h.inner.WithGroup(name),
		queries: h.queries,
		level:   h.level,
		attrs:   h.attrs,
	}
}

// writeToEventLog uses a background context so entries survive cancelled
// request contexts. Write failures are dropped to avoid logging recursion.
func (h *EventLogHandler) writeToEventLog(r slog.Record) {
	attrs := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	attrs = append(attrs, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})

	_ = h.queries.CreateLogEntry(context.Background(), store.CreateLogEntryParams{
		Level:     eventLevel(r.Level),
		Category:  category(r.Message, attrs),
		Message:   r.Message,
		Metadata:  metadata(attrs),
		CreatedAt: r.Time,
	})
}

func eventLevel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return LevelError
	case level >= slog.LevelWarn:
		return LevelWarning
	default:
		return LevelInfo
	}
}

// category prefers an explicit "category" attribute and otherwise infers
// one from the message.
func category(msg string, attrs []slog.Attr) string {
	for _, a := range attrs {
		if a.Key == "category" {
			return a.Value.String()
		}
	}

	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "catalog") || strings.Contains(msg, "sampl"):
		return CategoryCatalog
	case strings.Contains(msg, "filter") || strings.Contains(msg, "condition"):
		return CategoryFilter
	case strings.Contains(msg, "widget"):
		return CategoryWidget
	case strings.Contains(msg, "cache") || strings.Contains(msg, "redis"):
		return CategoryCache
	case strings.Contains(msg, "database") || strings.Contains(msg, "migration"):
		return CategoryDatabase
	default:
		return CategorySystem
	}
}

// metadata renders attributes as a flat JSON object of strings.
func metadata(attrs []slog.Attr) string {
	doc := "{}"
	for _, a := range attrs {
		if a.Key == "category" || a.Key == "" {
			continue
		}
		// Keys are escaped so dots and wildcards are not read as paths.
		if next, err := sjson.Set(doc, sjsonKey(a.Key), a.Value.Resolve().String()); err == nil {
			doc = next
		}
	}
	return doc
}

var sjsonEscaper = strings.NewReplacer(`\`, `\\`, ".", `\.`, "*", `\*`, "?", `\?`, "|", `\|`, "#", `\#`, "@", `\@`, ":", `\:`)

func sjsonKey(key string) string {
	return sjsonEscaper.Replace(key)
}
