// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package eventprops

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/crm-json-events/internal/crm"
)

func TestAssessConditions(t *testing.T) {
	m, _, db := testModule(t, enabledOptions())
	f := seedPurchases(t, db)
	ctx := context.Background()

	tests := []struct {
		name       string
		subscriber int64
		conditions []crm.Filter
		want       bool
	}{
		{"no conditions", f.none, nil, true},
		{"greater matches", f.seventyFive, []crm.Filter{eventFilter("purchase:amount", ">", "60")}, true},
		{"greater misses", f.fifty, []crm.Filter{eventFilter("purchase:amount", ">", "60")}, false},
		{"all conditions must hold", f.fifty, []crm.Filter{
			eventFilter("purchase:amount", "=", "50"),
			eventFilter("purchase:currency", "=", "EUR"),
		}, false},
		{"text equality", f.fifty, []crm.Filter{eventFilter("purchase:currency", "=", "USD")}, true},
		{"unknown subscriber", 9999, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.AssessConditions(ctx, true, tt.conditions, tt.subscriber)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssessConditions_Disabled(t *testing.T) {
	m, _, db := testModule(t, Options{})
	f := seedPurchases(t, db)
	ctx := context.Background()

	for _, passes := range []bool{true, false} {
		got, err := m.AssessConditions(ctx, passes, []crm.Filter{eventFilter("purchase:amount", ">", "60")}, f.fifty)
		require.NoError(t, err)
		assert.Equal(t, passes, got)
	}
}
