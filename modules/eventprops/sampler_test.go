// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package eventprops

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/olegiv/crm-json-events/internal/cache"
	"github.com/olegiv/crm-json-events/internal/store"
	"github.com/olegiv/crm-json-events/internal/testutil"
)

// fakeSource serves rows from memory and records requested pages.
type fakeSource struct {
	rows  []store.EventValue
	calls [][2]int
	err   error
}

func (f *fakeSource) ListDistinctEventValues(_ context.Context, limit, offset int) ([]store.EventValue, error) {
	f.calls = append(f.calls, [2]int{limit, offset})
	if f.err != nil {
		return nil, f.err
	}
	if offset >= len(f.rows) {
		return nil, nil
	}
	return f.rows[offset:min(offset+limit, len(f.rows))], nil
}

func eventValue(key, title, v string) store.EventValue {
	return store.EventValue{EventKey: key, Title: title, Value: v}
}

func TestInferType(t *testing.T) {
	tests := []struct {
		raw  string
		want PropertyType
	}{
		{`50`, TypeInt},
		{`-3`, TypeInt},
		{`1.5`, TypeFloat},
		{`1e3`, TypeFloat},
		{`99999999999999999999`, TypeFloat},
		{`true`, TypeBool},
		{`false`, TypeBool},
		{`null`, TypeNull},
		{`"USD"`, TypeString},
		{`"42"`, TypeFloat},
		{`"9.5"`, TypeFloat},
		{`" 7 "`, TypeFloat},
		{`"-1e2"`, TypeFloat},
		{`""`, TypeString},
		{`"NaN"`, TypeString},
		{`"0x1F"`, TypeString},
		{`"{\"a\":1}"`, TypeObject},
		{`"[1,2]"`, TypeString},
		{`{"x":1}`, TypeObject},
		{`[1,2]`, TypeObject},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, InferType(gjson.Parse(tt.raw)))
		})
	}
}

func TestSampler_PurchaseCatalog(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	s1 := testutil.CreateSubscriber(t, db, "one@example.com")
	s2 := testutil.CreateSubscriber(t, db, "two@example.com")
	testutil.TrackEvent(t, db, s1, "purchase", "Purchase", `{"amount":50,"currency":"USD"}`)
	testutil.TrackEvent(t, db, s2, "purchase", "Purchase", `{"amount":75}`)

	sampler := NewSampler(store.New(db), nil, testutil.TestLoggerSilent(), SamplerOptions{})
	props, err := sampler.Sample(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []PropertyDescriptor{
		{EventKey: "purchase", PropertyName: "amount", Type: TypeInt, Label: "Purchase: amount (int)"},
		{EventKey: "purchase", PropertyName: "currency", Type: TypeString, Label: "Purchase: currency (string)"},
	}, props)
	assert.Equal(t, "purchase:amount", props[0].ID())
}

func TestSampler_FirstObservationWins(t *testing.T) {
	src := &fakeSource{rows: []store.EventValue{
		eventValue("order", "Order", `{"total":10,"note":"first"}`),
		eventValue("order", "Order", `{"total":10.5,"gift":true}`),
		eventValue("order", "Order", `{"note":null}`),
	}}

	props, err := NewSampler(src, nil, testutil.TestLoggerSilent(), SamplerOptions{}).Sample(context.Background())
	require.NoError(t, err)

	require.Len(t, props, 3)
	assert.Equal(t, "order:total", props[0].ID())
	assert.Equal(t, TypeInt, props[0].Type)
	assert.Equal(t, "order:note", props[1].ID())
	assert.Equal(t, TypeString, props[1].Type)
	assert.Equal(t, "order:gift", props[2].ID())
	assert.Equal(t, TypeBool, props[2].Type)
}

func TestSampler_NumericStringsAreFloats(t *testing.T) {
	src := &fakeSource{rows: []store.EventValue{
		eventValue("order", "Order", `{"qty":"42","price":"9.5","sku":"A-1"}`),
	}}

	props, err := NewSampler(src, nil, testutil.TestLoggerSilent(), SamplerOptions{}).Sample(context.Background())
	require.NoError(t, err)

	require.Len(t, props, 3)
	assert.Equal(t, "Order: qty (float)", props[0].Label)
	assert.Equal(t, "Order: price (float)", props[1].Label)
	assert.Equal(t, TypeString, props[2].Type)
}

func TestSampler_SkipsValuesWithoutJSONShape(t *testing.T) {
	src := &fakeSource{rows: []store.EventValue{
		eventValue("click", "Click", "spring-sale"),
		eventValue("click", "Click", `{"broken":`),
		eventValue("click", "Click", `42`),
		eventValue("click", "Click", `"quoted"`),
		eventValue("view", "View", `{"page":"/pricing"}`),
	}}

	props, err := NewSampler(src, nil, testutil.TestLoggerSilent(), SamplerOptions{}).Sample(context.Background())
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, "view:page", props[0].ID())
}

func TestSampler_ArraysContributeIndexKeys(t *testing.T) {
	src := &fakeSource{rows: []store.EventValue{
		eventValue("tags", "Tags", `[10,"vip",{"a":1}]`),
	}}

	props, err := NewSampler(src, nil, testutil.TestLoggerSilent(), SamplerOptions{}).Sample(context.Background())
	require.NoError(t, err)

	require.Len(t, props, 3)
	assert.Equal(t, PropertyDescriptor{EventKey: "tags", PropertyName: "0", Type: TypeInt, Label: "Tags: 0 (int)"}, props[0])
	assert.Equal(t, TypeString, props[1].Type)
	assert.Equal(t, TypeObject, props[2].Type)
}

func TestSampler_Paging(t *testing.T) {
	src := &fakeSource{rows: []store.EventValue{
		eventValue("a", "A", `{"p":1}`),
		eventValue("b", "B", `{"p":1}`),
		eventValue("c", "C", `{"p":1}`),
		eventValue("d", "D", `{"p":1}`),
	}}

	props, err := NewSampler(src, nil, testutil.TestLoggerSilent(), SamplerOptions{PageSize: 2}).Sample(context.Background())
	require.NoError(t, err)

	assert.Len(t, props, 4)
	assert.Equal(t, [][2]int{{2, 0}, {2, 2}, {2, 4}}, src.calls)
}

func TestSampler_MaxRowsStopsAndWarns(t *testing.T) {
	src := &fakeSource{rows: []store.EventValue{
		eventValue("a", "A", `{"p":1}`),
		eventValue("b", "B", `{"p":1}`),
		eventValue("c", "C", `{"p":1}`),
		eventValue("d", "D", `{"p":1}`),
	}}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	props, err := NewSampler(src, nil, logger, SamplerOptions{PageSize: 2, MaxRows: 3}).Sample(context.Background())
	require.NoError(t, err)

	assert.Len(t, props, 3)
	assert.Equal(t, [][2]int{{2, 0}, {1, 2}}, src.calls)
	assert.Contains(t, buf.String(), "row limit")
	assert.Contains(t, buf.String(), "max_rows=3")
}

func TestSampler_SourceError(t *testing.T) {
	boom := errors.New("boom")
	src := &fakeSource{err: boom}

	_, err := NewSampler(src, nil, testutil.TestLoggerSilent(), SamplerOptions{}).Sample(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestSampler_CacheWithTTL(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{rows: []store.EventValue{eventValue("a", "A", `{"p":1}`)}}
	mc := cache.NewMemoryCache(cache.MemoryCacheOptions{})
	defer func() { _ = mc.Close() }()

	sampler := NewSampler(src, mc, testutil.TestLoggerSilent(), SamplerOptions{CacheTTL: time.Minute})

	first, err := sampler.Sample(ctx)
	require.NoError(t, err)
	src.rows = append(src.rows, eventValue("b", "B", `{"p":1}`))

	second, err := sampler.Sample(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, src.calls, 1)

	require.NoError(t, sampler.Invalidate(ctx))
	third, err := sampler.Sample(ctx)
	require.NoError(t, err)
	assert.Len(t, third, 2)
}

func TestSampler_InvalidateDropsOnlyModuleKeys(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{rows: []store.EventValue{eventValue("a", "A", `{"p":1}`)}}
	mc := cache.NewMemoryCache(cache.MemoryCacheOptions{})
	defer func() { _ = mc.Close() }()

	require.NoError(t, mc.Set(ctx, cachePrefix+"widget:1", []byte("x"), 0))
	require.NoError(t, mc.Set(ctx, "segments:all", []byte("y"), 0))

	sampler := NewSampler(src, mc, testutil.TestLoggerSilent(), SamplerOptions{CacheTTL: time.Minute})
	_, err := sampler.Sample(ctx)
	require.NoError(t, err)

	require.NoError(t, sampler.Invalidate(ctx))

	_, err = mc.Get(ctx, catalogCacheKey)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
	_, err = mc.Get(ctx, cachePrefix+"widget:1")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
	got, err := mc.Get(ctx, "segments:all")
	require.NoError(t, err)
	assert.Equal(t, []byte("y"), got)
}

func TestSampler_NoCacheWithoutTTL(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{rows: []store.EventValue{eventValue("a", "A", `{"p":1}`)}}
	mc := cache.NewMemoryCache(cache.MemoryCacheOptions{})
	defer func() { _ = mc.Close() }()

	sampler := NewSampler(src, mc, testutil.TestLoggerSilent(), SamplerOptions{})
	_, err := sampler.Sample(ctx)
	require.NoError(t, err)
	src.rows = append(src.rows, eventValue("b", "B", `{"p":1}`))

	props, err := sampler.Sample(ctx)
	require.NoError(t, err)
	assert.Len(t, props, 2)
	assert.NoError(t, sampler.Invalidate(ctx))
}
