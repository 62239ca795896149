// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package crm defines the host data types that flow through extension hooks.
package crm

import (
	"html/template"
	"time"
)

// Subscriber is a CRM contact.
type Subscriber struct {
	ID        int64     `json:"id"`
	Hash      string    `json:"hash"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// EventRecord is a tracked event stored against a subscriber.
// Value is untyped: a JSON object, a JSON scalar or plain text.
type EventRecord struct {
	ID           int64     `json:"id"`
	SubscriberID int64     `json:"subscriber_id"`
	Provider     string    `json:"provider"`
	EventKey     string    `json:"event_key"`
	Title        string    `json:"title"`
	Value        string    `json:"value"`
	Counter      int64     `json:"counter"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Filter is a single condition submitted by the segment/filter UI.
type Filter struct {
	Property   string `json:"property"`
	Operator   string `json:"operator"`
	Value      string `json:"value"`
	ExtraValue string `json:"extra_value"`
}

// Option is an entry of an ajax-driven selection control.
type Option struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Widget is a panel rendered on the contact detail screen.
type Widget struct {
	Title         string        `json:"title"`
	Content       template.HTML `json:"content"`
	HasPagination bool          `json:"has_pagination"`
	Total         int64         `json:"total"`
	PerPage       int           `json:"per_page"`
	CurrentPage   int           `json:"current_page"`
}

// Widgets maps widget keys to widgets.
type Widgets map[string]Widget
