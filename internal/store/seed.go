// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/tidwall/sjson"
)

// demoSubscriber is a seeded contact together with its tracked events.
type demoSubscriber struct {
	email     string
	firstName string
	lastName  string
	events    []demoEvent
}

// demoEvent is a seeded event; props are applied to an empty JSON object in
// order. A nil props slice stores text as a plain (non-JSON) value.
type demoEvent struct {
	key   string
	title string
	props []demoProp
	text  string
}

type demoProp struct {
	path  string
	value any
}

var demoSubscribers = []demoSubscriber{
	{
		email: "ada@example.com", firstName: "Ada", lastName: "Lovelace",
		events: []demoEvent{
			{key: "purchase", title: "Purchase", props: []demoProp{
				{"amount", 50}, {"currency", "USD"}, {"coupon", nil},
			}},
			{key: "newsletter_click", title: "Newsletter Click", text: "spring-sale"},
		},
	},
	{
		email: "grace@example.com", firstName: "Grace", lastName: "Hopper",
		events: []demoEvent{
			{key: "purchase", title: "Purchase", props: []demoProp{{"amount", 75}}},
			{key: "trial_started", title: "Trial Started", props: []demoProp{
				{"plan", "pro"}, {"seats", 5}, {"annual", true}, {"discount", 12.5},
				{"meta", `{"source":"ads"}`},
			}},
		},
	},
	{
		email: "linus@example.com", firstName: "Linus", lastName: "Torvalds",
	},
}

// SeedDemo populates demo subscribers and tracked events when enabled.
// Existing subscribers are left untouched.
func SeedDemo(ctx context.Context, db *sql.DB, enabled bool) error {
	if !enabled {
		slog.Debug("demo seeding disabled")
		return nil
	}
	return seedSubscribers(ctx, db, demoSubscribers)
}

// seedSubscribers writes each subscriber with its events in one
// transaction, so a failed event leaves no partial contact behind.
func seedSubscribers(ctx context.Context, db *sql.DB, subscribers []demoSubscriber) error {
	queries := New(db)
	now := time.Now().UTC()

	for _, ds := range subscribers {
		if _, err := queries.GetSubscriberByEmail(ctx, ds.email); err == nil {
			slog.Debug("demo subscriber already exists, skipping", "email", ds.email)
			continue
		} else if !IsNotFound(err) {
			return fmt.Errorf("checking demo subscriber %s: %w", ds.email, err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("beginning transaction: %w", err)
		}
		if err := seedSubscriber(ctx, queries.WithTx(tx), ds, now); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing demo subscriber %s: %w", ds.email, err)
		}
		slog.Info("seeded demo subscriber", "email", ds.email, "events", len(ds.events))
	}

	return nil
}

func seedSubscriber(ctx context.Context, q *Queries, ds demoSubscriber, now time.Time) error {
	sub, err := q.CreateSubscriber(ctx, CreateSubscriberParams{
		Email:     ds.email,
		FirstName: ds.firstName,
		LastName:  ds.lastName,
	})
	if err != nil {
		return fmt.Errorf("creating demo subscriber %s: %w", ds.email, err)
	}

	for i, ev := range ds.events {
		value, err := ev.payload()
		if err != nil {
			return fmt.Errorf("building demo event %s: %w", ev.key, err)
		}
		_, err = q.TrackEvent(ctx, TrackEventParams{
			SubscriberID: sub.ID,
			EventKey:     ev.key,
			Title:        ev.title,
			Value:        value,
			At:           now.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			return fmt.Errorf("tracking demo event %s: %w", ev.key, err)
		}
	}
	return nil
}

func (e demoEvent) payload() (string, error) {
	if e.props == nil {
		return e.text, nil
	}
	doc := "{}"
	for _, p := range e.props {
		var err error
		if doc, err = sjson.Set(doc, p.path, p.value); err != nil {
			return "", err
		}
	}
	return doc, nil
}
