// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package module

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func passThrough(_ context.Context, data any) (any, error) { return data, nil }

func TestNewHookRegistry(t *testing.T) {
	registry := NewHookRegistry(newTestLogger())

	if registry == nil {
		t.Fatal("NewHookRegistry() returned nil")
	}
	if registry.hooks == nil {
		t.Error("hooks map should be initialized")
	}
	if !registry.isModuleActive("anything") {
		t.Error("default isModuleActive should report every module active")
	}
}

func TestHookRegistryRegisterFunc(t *testing.T) {
	registry := NewHookRegistry(newTestLogger())

	registry.RegisterFunc(HookAdvancedFilterOptions, "options", "eventprops", passThrough)

	if count := registry.HandlerCount(HookAdvancedFilterOptions); count != 1 {
		t.Errorf("HandlerCount() = %d, want 1", count)
	}
	if registry.hooks[HookAdvancedFilterOptions][0].Priority != DefaultPriority {
		t.Errorf("Priority = %d, want %d", registry.hooks[HookAdvancedFilterOptions][0].Priority, DefaultPriority)
	}
}

func TestHookRegistryPrioritySorting(t *testing.T) {
	registry := NewHookRegistry(newTestLogger())

	var callOrder []string
	record := func(name string) HookFunc {
		return func(_ context.Context, data any) (any, error) {
			callOrder = append(callOrder, name)
			return data, nil
		}
	}

	registry.Register("test.hook", HookHandler{Name: "last", Module: "m", Priority: 100, Fn: record("last")})
	registry.Register("test.hook", HookHandler{Name: "first", Module: "m", Priority: 0, Fn: record("first")})
	registry.Register("test.hook", HookHandler{Name: "middle-a", Module: "m", Priority: 50, Fn: record("middle-a")})
	registry.Register("test.hook", HookHandler{Name: "middle-b", Module: "m", Priority: 50, Fn: record("middle-b")})

	if _, err := registry.Call(context.Background(), "test.hook", nil); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	want := []string{"first", "middle-a", "middle-b", "last"}
	if !slices.Equal(callOrder, want) {
		t.Errorf("call order = %v, want %v", callOrder, want)
	}
}

func TestHookRegistryCallChain(t *testing.T) {
	registry := NewHookRegistry(newTestLogger())

	registry.RegisterFunc("test.hook", "double", "m", func(_ context.Context, data any) (any, error) {
		return data.(int) * 2, nil
	})
	registry.RegisterFunc("test.hook", "increment", "m", func(_ context.Context, data any) (any, error) {
		return data.(int) + 1, nil
	})

	result, err := registry.Call(context.Background(), "test.hook", 5)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if result.(int) != 11 {
		t.Errorf("Call() = %v, want 11", result)
	}
}

func TestHookRegistryCallError(t *testing.T) {
	registry := NewHookRegistry(newTestLogger())
	boom := errors.New("boom")

	called := false
	registry.Register("test.hook", HookHandler{Name: "failing", Module: "m", Priority: 1, Fn: func(context.Context, any) (any, error) {
		return nil, boom
	}})
	registry.Register("test.hook", HookHandler{Name: "after", Module: "m", Priority: 2, Fn: func(_ context.Context, data any) (any, error) {
		called = true
		return data, nil
	}})

	_, err := registry.Call(context.Background(), "test.hook", "data")
	if !errors.Is(err, boom) {
		t.Errorf("Call() error = %v, want wrapped boom", err)
	}
	if called {
		t.Error("handlers after a failing handler must not run")
	}
}

func TestHookRegistryCallNoHandlers(t *testing.T) {
	registry := NewHookRegistry(newTestLogger())

	result, err := registry.Call(context.Background(), "missing.hook", "unchanged")
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if result != "unchanged" {
		t.Errorf("Call() = %v, want unchanged", result)
	}
}

func TestHookRegistrySetIsModuleActive(t *testing.T) {
	registry := NewHookRegistry(newTestLogger())

	registry.RegisterFunc("test.hook", "active", "on", func(_ context.Context, data any) (any, error) {
		return data.(string) + "+on", nil
	})
	registry.RegisterFunc("test.hook", "inactive", "off", func(_ context.Context, data any) (any, error) {
		return data.(string) + "+off", nil
	})
	registry.SetIsModuleActive(func(name string) bool { return name != "off" })

	result, err := registry.Call(context.Background(), "test.hook", "x")
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if result != "x+on" {
		t.Errorf("Call() = %v, want x+on", result)
	}
}

func TestFilter(t *testing.T) {
	registry := NewHookRegistry(newTestLogger())
	ctx := context.Background()

	type payload struct{ items []string }

	registry.RegisterFunc("typed.hook", "append", "m", func(_ context.Context, data any) (any, error) {
		p := data.(*payload)
		p.items = append(p.items, "added")
		return p, nil
	})

	got, err := Filter(ctx, registry, "typed.hook", &payload{})
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if !slices.Equal(got.items, []string{"added"}) {
		t.Errorf("items = %v, want [added]", got.items)
	}

	registry.RegisterFunc("bad.hook", "wrong", "m", func(context.Context, any) (any, error) {
		return 42, nil
	})
	in := &payload{items: []string{"keep"}}
	out, err := Filter(ctx, registry, "bad.hook", in)
	if !errors.Is(err, ErrHookResultType) {
		t.Errorf("Filter() error = %v, want ErrHookResultType", err)
	}
	if out != in {
		t.Error("Filter() should return the input on type mismatch")
	}
}

func TestHookRegistryListHooks(t *testing.T) {
	registry := NewHookRegistry(newTestLogger())

	registry.RegisterFunc(HookSubscriberInfoWidgets, "w", "m", passThrough)
	registry.RegisterFunc(HookAdvancedFilterOptions, "o", "m", passThrough)

	want := []string{HookAdvancedFilterOptions, HookSubscriberInfoWidgets}
	if got := registry.ListHooks(); !slices.Equal(got, want) {
		t.Errorf("ListHooks() = %v, want %v", got, want)
	}
}

func TestHookRegistryUnregisterAll(t *testing.T) {
	registry := NewHookRegistry(newTestLogger())

	registry.RegisterFunc("a.hook", "h1", "gone", passThrough)
	registry.RegisterFunc("b.hook", "h2", "gone", passThrough)
	registry.RegisterFunc("b.hook", "h3", "kept", passThrough)

	registry.UnregisterAll("gone")

	if count := registry.HandlerCount("a.hook"); count != 0 {
		t.Errorf("HandlerCount(a.hook) = %d, want 0", count)
	}
	if count := registry.HandlerCount("b.hook"); count != 1 {
		t.Errorf("HandlerCount(b.hook) = %d, want 1", count)
	}
	if got := registry.ListHooks(); !slices.Equal(got, []string{"b.hook"}) {
		t.Errorf("ListHooks() = %v, want [b.hook]", got)
	}
}
