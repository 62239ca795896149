// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package eventprops

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/olegiv/crm-json-events/internal/crm"
	"github.com/olegiv/crm-json-events/internal/module"
	"github.com/olegiv/crm-json-events/internal/query"
)

// AssessConditions reports whether subscriberID matches conditions. The
// predicates are attached by the contacts filter hook, so every registered
// filter handler contributes.
func (m *Module) AssessConditions(ctx context.Context, passes bool, conditions []crm.Filter, subscriberID int64) (bool, error) {
	if !m.opts.Enabled {
		return passes, nil
	}

	q := query.NewContactQuery(m.ctx.Dialect)
	q.Where(q.Column("id"), "=", subscriberID).Limit(1)

	req, err := module.Filter(ctx, m.ctx.Hooks, module.HookContactsFilterEventTrackingObjects, &crm.FilterRequest{
		Query:   q,
		Filters: conditions,
	})
	if err != nil {
		return false, err
	}

	stmt, args, err := req.Query.ToSQL()
	if err != nil {
		return false, fmt.Errorf("building condition query: %w", err)
	}

	var id int64
	err = m.ctx.DB.QueryRowContext(ctx, stmt, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("assessing conditions: %w", err)
	}
	return true, nil
}
