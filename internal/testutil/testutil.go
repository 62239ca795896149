// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package testutil provides shared test helpers.
package testutil

import (
	"context"
	"database/sql"
	"log/slog"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/olegiv/crm-json-events/internal/store"
)

// TestLogger creates a silent test logger that only outputs warnings and errors.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
}

// TestLoggerSilent creates a completely silent test logger (error level only).
func TestLoggerSilent() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// TestDB creates a temporary SQLite test database with core migrations applied.
// Returns the database and a cleanup function that should be deferred.
func TestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "crmevents-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := store.NewDB(store.DriverSQLite, dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}

	if err := store.Migrate(db, store.DriverSQLite); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	return db, func() { _ = db.Close() }
}

// TestMemoryDB creates an in-memory SQLite database for testing.
// Useful for tests that don't need persistent storage or migrations.
func TestMemoryDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	// Every pooled connection would otherwise get its own empty database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// CreateSubscriber inserts a subscriber and returns its ID.
func CreateSubscriber(t *testing.T, db *sql.DB, email string) int64 {
	t.Helper()

	s, err := store.New(db).CreateSubscriber(context.Background(), store.CreateSubscriberParams{Email: email})
	if err != nil {
		t.Fatalf("CreateSubscriber(%s): %v", email, err)
	}
	return s.ID
}

// TrackEvent records an event for a subscriber.
func TrackEvent(t *testing.T, db *sql.DB, subscriberID int64, key, title, value string) {
	t.Helper()

	_, err := store.New(db).TrackEvent(context.Background(), store.TrackEventParams{
		SubscriberID: subscriberID,
		EventKey:     key,
		Title:        title,
		Value:        value,
	})
	if err != nil {
		t.Fatalf("TrackEvent(%d, %s): %v", subscriberID, key, err)
	}
}
