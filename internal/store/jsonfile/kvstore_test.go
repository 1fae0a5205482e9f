package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/daycart/internal/core/kv"
)

func newTestStore(t *testing.T) *KVStore {
	t.Helper()
	return NewKVStore(filepath.Join(t.TempDir(), "kv.json"))
}

func TestSetGetRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	type payload struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}

	require.NoError(t, store.Set(ctx, "test:payload", payload{Name: "x", Count: 3}))

	var got payload
	require.NoError(t, store.Get(ctx, "test:payload", &got))
	assert.Equal(t, payload{Name: "x", Count: 3}, got)
}

func TestGetMissingKey(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	var got string
	err := store.Get(context.Background(), "nope", &got)
	assert.ErrorIs(t, err, kv.ErrNoKey)
}

func TestSetTTLExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.SetTTL(ctx, "short", "value", time.Nanosecond))
	time.Sleep(5 * time.Millisecond)

	var got string
	assert.ErrorIs(t, store.Get(ctx, "short", &got), kv.ErrNoKey)

	has, err := store.Has(ctx, "short")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Set(ctx, "k", 1))
	require.NoError(t, store.Delete(ctx, "k"))

	has, err := store.Has(ctx, "k")
	require.NoError(t, err)
	assert.False(t, has)

	// Deleting a missing key is not an error.
	assert.NoError(t, store.Delete(ctx, "k"))
}

func TestListKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Set(ctx, "a", 1))
	require.NoError(t, store.Set(ctx, "b", 2))

	keys, err := store.ListKeys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, keys)
}

func TestPersistsAcrossInstances(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.json")

	first := NewKVStore(path)
	require.NoError(t, first.Set(ctx, "sticky", "survives"))

	second := NewKVStore(path)
	var got string
	require.NoError(t, second.Get(ctx, "sticky", &got))
	assert.Equal(t, "survives", got)
}

func TestCorruptFileSurfacesError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "kv.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))

	store := NewKVStore(path)
	var got string
	err := store.Get(context.Background(), "k", &got)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, kv.ErrNoKey)
}
