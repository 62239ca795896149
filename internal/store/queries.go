// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/crm-json-events/internal/crm"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries wraps the statements used by the host and its modules.
type Queries struct {
	db DBTX
}

// New creates a Queries bound to db.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// EventValue is one distinct (event_key, title, value) combination.
type EventValue struct {
	EventKey string
	Title    string
	Value    string
}

const listDistinctEventValues = `
SELECT event_key, title, value
FROM event_trackers
WHERE value IS NOT NULL AND value <> ''
GROUP BY event_key, title, value
ORDER BY event_key ASC, MIN(id) ASC
LIMIT ? OFFSET ?`

// ListDistinctEventValues returns a page of distinct event values ordered by
// event key, oldest first within a key.
func (q *Queries) ListDistinctEventValues(ctx context.Context, limit, offset int) ([]EventValue, error) {
	rows, err := q.db.QueryContext(ctx, listDistinctEventValues, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing event values: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []EventValue
	for rows.Next() {
		var v EventValue
		if err := rows.Scan(&v.EventKey, &v.Title, &v.Value); err != nil {
			return nil, fmt.Errorf("scanning event value: %w", err)
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

const eventColumns = `id, subscriber_id, provider, event_key, title, value, counter, created_at, updated_at`

const listSubscriberEvents = `
SELECT ` + eventColumns + `
FROM event_trackers
WHERE subscriber_id = ?
ORDER BY updated_at DESC, id DESC
LIMIT ? OFFSET ?`

// ListSubscriberEvents returns a page of a subscriber's events, most recently
// updated first.
func (q *Queries) ListSubscriberEvents(ctx context.Context, subscriberID int64, limit, offset int) ([]crm.EventRecord, error) {
	rows, err := q.db.QueryContext(ctx, listSubscriberEvents, subscriberID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing subscriber events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var items []crm.EventRecord
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// CountSubscriberEvents returns the number of events recorded for a subscriber.
func (q *Queries) CountSubscriberEvents(ctx context.Context, subscriberID int64) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM event_trackers WHERE subscriber_id = ?", subscriberID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting subscriber events: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (crm.EventRecord, error) {
	var (
		e     crm.EventRecord
		value sql.NullString
	)
	err := row.Scan(&e.ID, &e.SubscriberID, &e.Provider, &e.EventKey, &e.Title,
		&value, &e.Counter, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return crm.EventRecord{}, fmt.Errorf("scanning event: %w", err)
	}
	e.Value = value.String
	return e, nil
}

// TrackEventParams holds the fields of a tracked event.
type TrackEventParams struct {
	SubscriberID int64
	Provider     string
	EventKey     string
	Title        string
	Value        string
	At           time.Time
}

// TrackEvent records an event for a subscriber. An existing record with the
// same event key is updated in place and its counter incremented.
func (q *Queries) TrackEvent(ctx context.Context, arg TrackEventParams) (crm.EventRecord, error) {
	if arg.Provider == "" {
		arg.Provider = "custom"
	}
	if arg.At.IsZero() {
		arg.At = time.Now().UTC()
	}

	res, err := q.db.ExecContext(ctx, `
		UPDATE event_trackers
		SET title = ?, value = ?, counter = counter + 1, updated_at = ?
		WHERE subscriber_id = ? AND event_key = ?`,
		arg.Title, arg.Value, arg.At, arg.SubscriberID, arg.EventKey,
	)
	if err != nil {
		return crm.EventRecord{}, fmt.Errorf("updating event: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		_, err = q.db.ExecContext(ctx, `
			INSERT INTO event_trackers (subscriber_id, provider, event_key, title, value, counter, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, 1, ?, ?)`,
			arg.SubscriberID, arg.Provider, arg.EventKey, arg.Title, arg.Value, arg.At, arg.At,
		)
		if err != nil {
			return crm.EventRecord{}, fmt.Errorf("inserting event: %w", err)
		}
	}

	row := q.db.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM event_trackers WHERE subscriber_id = ? AND event_key = ?",
		arg.SubscriberID, arg.EventKey,
	)
	return scanEvent(row)
}

const subscriberColumns = `id, hash, email, first_name, last_name, status, created_at`

// GetSubscriber returns a subscriber by ID.
func (q *Queries) GetSubscriber(ctx context.Context, id int64) (crm.Subscriber, error) {
	var s crm.Subscriber
	err := q.db.QueryRowContext(ctx,
		"SELECT "+subscriberColumns+" FROM subscribers WHERE id = ?", id,
	).Scan(&s.ID, &s.Hash, &s.Email, &s.FirstName, &s.LastName, &s.Status, &s.CreatedAt)
	if err != nil {
		return crm.Subscriber{}, err
	}
	return s, nil
}

// CreateSubscriberParams holds the fields of a new subscriber.
type CreateSubscriberParams struct {
	Email     string
	FirstName string
	LastName  string
	Status    string
}

// CreateSubscriber inserts a subscriber with a fresh hash.
func (q *Queries) CreateSubscriber(ctx context.Context, arg CreateSubscriberParams) (crm.Subscriber, error) {
	if arg.Status == "" {
		arg.Status = "subscribed"
	}
	s := crm.Subscriber{
		Hash:      uuid.NewString(),
		Email:     arg.Email,
		FirstName: arg.FirstName,
		LastName:  arg.LastName,
		Status:    arg.Status,
		CreatedAt: time.Now().UTC(),
	}

	res, err := q.db.ExecContext(ctx, `
		INSERT INTO subscribers (hash, email, first_name, last_name, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.Hash, s.Email, s.FirstName, s.LastName, s.Status, s.CreatedAt,
	)
	if err != nil {
		return crm.Subscriber{}, fmt.Errorf("inserting subscriber: %w", err)
	}
	if s.ID, err = res.LastInsertId(); err != nil {
		return crm.Subscriber{}, fmt.Errorf("reading subscriber id: %w", err)
	}
	return s, nil
}

// GetSubscriberByEmail returns a subscriber by email.
func (q *Queries) GetSubscriberByEmail(ctx context.Context, email string) (crm.Subscriber, error) {
	var s crm.Subscriber
	err := q.db.QueryRowContext(ctx,
		"SELECT "+subscriberColumns+" FROM subscribers WHERE email = ?", email,
	).Scan(&s.ID, &s.Hash, &s.Email, &s.FirstName, &s.LastName, &s.Status, &s.CreatedAt)
	if err != nil {
		return crm.Subscriber{}, err
	}
	return s, nil
}

// CreateLogEntryParams holds the fields of an event log entry.
type CreateLogEntryParams struct {
	Level     string
	Category  string
	Message   string
	Metadata  string
	CreatedAt time.Time
}

// CreateLogEntry appends an entry to the event log.
func (q *Queries) CreateLogEntry(ctx context.Context, arg CreateLogEntryParams) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO event_log (level, category, message, metadata, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		arg.Level, arg.Category, arg.Message, arg.Metadata, arg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting log entry: %w", err)
	}
	return nil
}

// CountLogEntries returns the number of log entries at the given level.
func (q *Queries) CountLogEntries(ctx context.Context, level string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM event_log WHERE level = ?", level,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting log entries: %w", err)
	}
	return count, nil
}

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
