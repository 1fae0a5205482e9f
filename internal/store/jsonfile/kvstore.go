// Package jsonfile provides a JSON-file-backed implementation of kv.KV.
// Writes are atomic (temp file + rename) so a concurrent reader never sees
// a partially written store.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/colonyops/daycart/internal/core/kv"
)

// storeFile is the root JSON structure stored on disk.
type storeFile struct {
	Entries map[string]kv.Entry `json:"entries"`
}

// KVStore implements kv.KV using a single JSON file for persistence.
type KVStore struct {
	path string
	mu   sync.Mutex

	// now is replaceable in tests for TTL expiry.
	now func() time.Time
}

// NewKVStore creates a JSON file KV store at the given path. The file is
// created lazily on first write.
func NewKVStore(path string) *KVStore {
	return &KVStore{path: path, now: time.Now}
}

// Get retrieves a value by key. Expired entries are treated as missing.
func (s *KVStore) Get(ctx context.Context, key string, dest any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}

	entry, ok := file.Entries[key]
	if !ok || entry.Expired(s.now()) {
		return kv.ErrNoKey
	}

	if err := json.Unmarshal(entry.Value, dest); err != nil {
		return fmt.Errorf("kvstore: decode value for %q: %w", key, err)
	}
	return nil
}

// Set stores a value with no expiry.
func (s *KVStore) Set(ctx context.Context, key string, value any) error {
	return s.set(key, value, nil)
}

// SetTTL stores a value that expires after ttl.
func (s *KVStore) SetTTL(ctx context.Context, key string, value any, ttl time.Duration) error {
	expires := s.now().Add(ttl)
	return s.set(key, value, &expires)
}

// Delete removes a key. Deleting a missing key is a no-op.
func (s *KVStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := file.Entries[key]; !ok {
		return nil
	}
	delete(file.Entries, key)
	return s.save(file)
}

// Has reports whether a live (non-expired) entry exists for key.
func (s *KVStore) Has(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return false, err
	}
	entry, ok := file.Entries[key]
	return ok && !entry.Expired(s.now()), nil
}

// ListKeys returns all live keys in sorted order.
func (s *KVStore) ListKeys(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(file.Entries))
	now := s.now()
	for k, entry := range file.Entries {
		if !entry.Expired(now) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *KVStore) set(key string, value any, expiresAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("kvstore: encode value for %q: %w", key, err)
	}

	file, err := s.load()
	if err != nil {
		return err
	}

	now := s.now()
	entry := kv.Entry{
		Key:       key,
		Value:     raw,
		ExpiresAt: expiresAt,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if prev, ok := file.Entries[key]; ok {
		entry.CreatedAt = prev.CreatedAt
	}
	file.Entries[key] = entry

	return s.save(file)
}

// load reads the store file from disk. Missing or empty files yield an
// empty store.
func (s *KVStore) load() (storeFile, error) {
	file := storeFile{Entries: map[string]kv.Entry{}}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return file, nil
		}
		return file, fmt.Errorf("kvstore: read %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return file, nil
	}

	if err := json.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("kvstore: parse %s: %w", s.path, err)
	}
	if file.Entries == nil {
		file.Entries = map[string]kv.Entry{}
	}
	return file, nil
}

// save writes the store file to disk atomically.
func (s *KVStore) save(file storeFile) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("kvstore: create dir: %w", err)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("kvstore: encode: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("kvstore: write temp file: %w", err)
	}
	return os.Rename(tmp, s.path)
}
