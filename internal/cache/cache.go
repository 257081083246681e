// Package cache stores JSON values with an optional expiry on top of a raw
// key-value store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"autoenter/internal/storage"
)

type envelope struct {
	Expires *time.Time      `json:"expires"`
	Value   json.RawMessage `json:"value"`
}

// Cache wraps a KV store. Callers must not race on the same key.
type Cache struct {
	store storage.KV
	now   func() time.Time
}

// New creates a Cache over store.
func New(store storage.KV) *Cache {
	return &Cache{store: store, now: time.Now}
}

// SetClock overrides the time source used for expiry.
func (c *Cache) SetClock(now func() time.Time) {
	c.now = now
}

// Get returns the value stored under key, or fallback when the key is
// missing or expired. An expired entry is deleted before returning.
// A stored value that is not a cache envelope is returned as is: raw text
// for string targets, otherwise decoded directly.
func Get[V any](ctx context.Context, c *Cache, key string, fallback V) (V, error) {
	raw, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return fallback, fmt.Errorf("cache get %q: %w", key, err)
	}
	if !ok {
		return fallback, nil
	}

	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil || env.Value == nil {
		if v, ok := legacy[V](raw); ok {
			return v, nil
		}
		return fallback, nil
	}

	if env.Expires != nil && c.now().After(*env.Expires) {
		if err := c.store.Delete(ctx, key); err != nil {
			return fallback, fmt.Errorf("cache delete %q: %w", key, err)
		}
		return fallback, nil
	}

	var v V
	if err := json.Unmarshal(env.Value, &v); err != nil {
		return fallback, fmt.Errorf("cache decode %q: %w", key, err)
	}
	return v, nil
}

func legacy[V any](raw string) (V, bool) {
	var v V
	if p, ok := any(&v).(*string); ok {
		*p = raw
		return v, true
	}
	if err := json.Unmarshal([]byte(raw), &v); err == nil {
		return v, true
	}
	return v, false
}

// Set stores value under key. A zero ttl never expires.
func Set[V any](ctx context.Context, c *Cache, key string, value V, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache encode %q: %w", key, err)
	}
	env := envelope{Value: data}
	if ttl > 0 {
		exp := c.now().Add(ttl).UTC()
		env.Expires = &exp
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("cache encode %q: %w", key, err)
	}
	if err := c.store.Set(ctx, key, string(raw)); err != nil {
		return fmt.Errorf("cache set %q: %w", key, err)
	}
	return nil
}
