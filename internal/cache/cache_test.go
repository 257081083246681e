package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"autoenter/internal/model"
	"autoenter/internal/storage"
)

type memKV struct {
	data    map[string]string
	sets    int
	deletes int
	err     error
}

func newMemKV() *memKV {
	return &memKV{data: map[string]string{}}
}

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	m.sets++
	m.data[key] = value
	return nil
}

func (m *memKV) Delete(_ context.Context, key string) error {
	m.deletes++
	delete(m.data, key)
	return nil
}

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(kv storage.KV) (*Cache, *fakeClock) {
	clk := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(kv)
	c.SetClock(clk.now)
	return c, clk
}

func TestRoundTripAndExpiry(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	c, clk := newTestCache(kv)

	if err := Set(ctx, c, "ownedGames", []int64{10, 20}, 60*time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if diff := cmp.Diff(1, kv.sets); diff != "" {
		t.Errorf("store writes mismatch (-want +got):\n%s", diff)
	}

	got, err := Get[[]int64](ctx, c, "ownedGames", nil)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff([]int64{10, 20}, got); diff != "" {
		t.Errorf("fresh Get mismatch (-want +got):\n%s", diff)
	}

	clk.t = clk.t.Add(59 * time.Minute)
	if got, _ := Get[[]int64](ctx, c, "ownedGames", nil); len(got) != 2 {
		t.Errorf("value should still be fresh before expiry, got %v", got)
	}

	clk.t = clk.t.Add(2 * time.Minute)
	got, err = Get(ctx, c, "ownedGames", []int64{-1})
	if err != nil {
		t.Fatalf("get expired: %v", err)
	}
	if diff := cmp.Diff([]int64{-1}, got); diff != "" {
		t.Errorf("expired Get should return fallback (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(1, kv.deletes); diff != "" {
		t.Errorf("store deletes mismatch (-want +got):\n%s", diff)
	}
	if _, ok := kv.data["ownedGames"]; ok {
		t.Error("expired entry should be removed from the store")
	}
}

func TestNoExpiry(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	c, clk := newTestCache(kv)

	details := map[string]model.AppDetails{
		"440": {Type: "game"},
		"500": {Type: "dlc", BaseGame: 440},
	}
	if err := Set(ctx, c, "appsDetails", details, 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	clk.t = clk.t.Add(10 * 365 * 24 * time.Hour)
	got, err := Get(ctx, c, "appsDetails", map[string]model.AppDetails{})
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff(details, got); diff != "" {
		t.Errorf("Get mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(0, kv.deletes); diff != "" {
		t.Errorf("store deletes mismatch (-want +got):\n%s", diff)
	}
}

func TestMissReturnsFallback(t *testing.T) {
	c, _ := newTestCache(newMemKV())
	got, err := Get(context.Background(), c, "nothing", "fallback")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if diff := cmp.Diff("fallback", got); diff != "" {
		t.Errorf("Get mismatch (-want +got):\n%s", diff)
	}
}

func TestLegacyValues(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	kv.data["raw"] = "plain text value"
	kv.data["ids"] = "[1,2,3]"
	c, _ := newTestCache(kv)

	s, err := Get(ctx, c, "raw", "")
	if err != nil {
		t.Fatalf("get raw: %v", err)
	}
	if diff := cmp.Diff("plain text value", s); diff != "" {
		t.Errorf("raw string mismatch (-want +got):\n%s", diff)
	}

	ids, err := Get[[]int](ctx, c, "ids", nil)
	if err != nil {
		t.Fatalf("get ids: %v", err)
	}
	if diff := cmp.Diff([]int{1, 2, 3}, ids); diff != "" {
		t.Errorf("unwrapped json mismatch (-want +got):\n%s", diff)
	}

	n, err := Get(ctx, c, "raw", 7)
	if err != nil {
		t.Fatalf("get raw as int: %v", err)
	}
	if diff := cmp.Diff(7, n); diff != "" {
		t.Errorf("undecodable legacy value should return fallback (-want +got):\n%s", diff)
	}
}

func TestStoreErrorPropagates(t *testing.T) {
	kv := newMemKV()
	kv.err = errors.New("disk on fire")
	c, _ := newTestCache(kv)

	got, err := Get(context.Background(), c, "k", 3)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if diff := cmp.Diff(3, got); diff != "" {
		t.Errorf("expected fallback on error (-want +got):\n%s", diff)
	}
}

func TestOverSQLite(t *testing.T) {
	ctx := context.Background()
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	c, clk := newTestCache(store)
	if err := Set(ctx, c, "k", "v", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if got, _ := Get(ctx, c, "k", ""); got != "v" {
		t.Errorf("Get = %q, want %q", got, "v")
	}
	clk.t = clk.t.Add(2 * time.Minute)
	if got, _ := Get(ctx, c, "k", "gone"); got != "gone" {
		t.Errorf("Get after expiry = %q, want fallback", got)
	}
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Error("expired key should be deleted from sqlite")
	}
}
