// Package kv defines a small persistent key-value interface used for
// settings and short-lived caches (pinned repos, release check results).
package kv

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNoKey is returned by Get when the key is missing or expired.
var ErrNoKey = errors.New("kv: key not found")

// Entry is a raw KV entry with metadata.
type Entry struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	ExpiresAt *time.Time      `json:"expiresAt,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Expired reports whether the entry's TTL has passed as of now.
func (e Entry) Expired(now time.Time) bool {
	return e.ExpiresAt != nil && now.After(*e.ExpiresAt)
}

// KV is the interface for a persistent key-value store. Keys are strings,
// values are JSON-serializable. Get on a missing key returns ErrNoKey.
type KV interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any) error
	SetTTL(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Has(ctx context.Context, key string) (bool, error)
	ListKeys(ctx context.Context) ([]string, error)
}
