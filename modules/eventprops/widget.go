// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package eventprops

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/tidwall/gjson"

	"github.com/olegiv/crm-json-events/internal/crm"
)

// WidgetKeyEventTracking is the key of the subscriber events widget.
const WidgetKeyEventTracking = "event_tracking_object"

// DefaultWidgetPerPage is the widget page size.
const DefaultWidgetPerPage = 15

const widgetDateLayout = "2006-01-02 15:04:05"

var widgetTemplate = template.Must(template.New("event_tracking_widget").Parse(
	`<div class="fc_scrolled_lists"><ul class="fc_full_listed fc_event_tracking_lists">` +
		`{{range .}}<li>` +
		`<div class="el-badge"><p class="fc_type">{{.Key}}</p><sup class="el-badge__content is-fixed">{{.Counter}}</sup></div>` +
		`<p class="fl_event_title"><b>{{.Title}}</b></p>` +
		`{{if .IsObject}}{{range .Props}}<p class="fc_value"><strong>{{.Key}}:</strong> {{.Value}}</p>{{end}}` +
		`{{else if .Raw}}<p class="fc_value">{{.Raw}}</p>{{end}}` +
		`<span class="fc_date">{{.UpdatedAt}}</span>` +
		`</li>{{end}}` +
		`</ul></div>`,
))

// valuePolicy strips scripts and unsafe attributes from stored values while
// keeping basic formatting.
var valuePolicy = bluemonday.UGCPolicy()

type widgetEvent struct {
	Key       string
	Counter   int64
	Title     string
	IsObject  bool
	Props     []widgetProp
	Raw       template.HTML
	UpdatedAt string
}

type widgetProp struct {
	Key   string
	Value template.HTML
}

func sanitize(s string) template.HTML {
	return template.HTML(valuePolicy.Sanitize(s)) //nolint:gosec // sanitized by bluemonday
}

func newWidgetEvent(e crm.EventRecord) widgetEvent {
	we := widgetEvent{
		Key:       e.EventKey,
		Counter:   e.Counter,
		Title:     e.Title,
		UpdatedAt: e.UpdatedAt.UTC().Format(widgetDateLayout),
	}
	// "" and "0" are treated as no value; the event shows only its title.
	if e.Value == "" || e.Value == "0" {
		return we
	}

	if doc := gjson.Parse(e.Value); gjson.Valid(e.Value) && doc.IsObject() {
		we.IsObject = true
		doc.ForEach(func(key, value gjson.Result) bool {
			text := value.String()
			if value.IsObject() || value.IsArray() {
				text = value.Raw
			}
			we.Props = append(we.Props, widgetProp{Key: key.String(), Value: sanitize(text)})
			return true
		})
		return we
	}

	we.Raw = sanitize(e.Value)
	return we
}

// SubscriberWidget adds the paginated event list of subscriber to widgets.
// Widgets are returned unchanged when the page holds no events.
func (m *Module) SubscriberWidget(ctx context.Context, widgets crm.Widgets, subscriber crm.Subscriber, page int) (crm.Widgets, error) {
	if !m.opts.Enabled {
		return widgets, nil
	}
	if page < 1 {
		page = 1
	}
	perPage := m.opts.WidgetPerPage

	events, err := m.store.ListSubscriberEvents(ctx, subscriber.ID, perPage, (page-1)*perPage)
	if err != nil {
		return widgets, fmt.Errorf("loading subscriber events: %w", err)
	}
	if len(events) == 0 {
		return widgets, nil
	}

	total, err := m.store.CountSubscriberEvents(ctx, subscriber.ID)
	if err != nil {
		return widgets, fmt.Errorf("counting subscriber events: %w", err)
	}

	items := make([]widgetEvent, 0, len(events))
	for _, e := range events {
		items = append(items, newWidgetEvent(e))
	}

	var buf bytes.Buffer
	if err := widgetTemplate.Execute(&buf, items); err != nil {
		return widgets, fmt.Errorf("rendering event widget: %w", err)
	}

	if widgets == nil {
		widgets = make(crm.Widgets)
	}
	widgets[WidgetKeyEventTracking] = crm.Widget{
		Title:         groupLabel,
		Content:       template.HTML(buf.String()), //nolint:gosec // rendered by html/template
		HasPagination: total > int64(perPage),
		Total:         total,
		PerPage:       perPage,
		CurrentPage:   page,
	}
	return widgets, nil
}
