// Package storage defines the persistence interfaces and their implementations.
package storage

import (
	"context"

	"autoenter/internal/model"
)

// KV is a raw string key-value store.
type KV interface {
	// Get returns the stored value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Journal records entry attempts.
type Journal interface {
	RecordEntry(ctx context.Context, e *model.Entry) error
	ListEntries(ctx context.Context, limit int) ([]model.Entry, error)
}

// Storage is the interface for all persistence operations.
type Storage interface {
	KV
	Journal
	Close() error
}
