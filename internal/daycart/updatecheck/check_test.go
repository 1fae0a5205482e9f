package updatecheck

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/daycart/internal/core/kv"
	"github.com/colonyops/daycart/internal/store/jsonfile"
)

func newTestKVStore(t *testing.T) kv.KV {
	t.Helper()
	return jsonfile.NewKVStore(filepath.Join(t.TempDir(), "kv.json"))
}

func cacheRelease(t *testing.T, store kv.KV, tag string) {
	t.Helper()
	cache := kv.Scoped[ReleaseInfo](store, cacheNamespace)
	err := cache.SetTTL(context.Background(), cacheKey, ReleaseInfo{TagName: tag}, cacheTTL)
	require.NoError(t, err)
}

func withStubbedFetch(t *testing.T) *int {
	t.Helper()
	calls := 0
	prevFetch := fetchLatestReleaseJSON
	fetchLatestReleaseJSON = func(context.Context) ([]byte, error) {
		calls++
		return nil, nil
	}
	t.Cleanup(func() {
		fetchLatestReleaseJSON = prevFetch
	})
	return &calls
}

func TestCheck_DevVersion(t *testing.T) {
	result, err := Check(context.Background(), nil, "dev")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestCheck_EmptyVersion(t *testing.T) {
	result, err := Check(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestCheck_InvalidVersion(t *testing.T) {
	result, err := Check(context.Background(), nil, "not-semver")
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestCheck_CurrentIsLatest(t *testing.T) {
	store := newTestKVStore(t)
	cacheRelease(t, store, "v1.3.0")
	lookups := withStubbedFetch(t)

	result, err := Check(context.Background(), store, "v1.3.0")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 0, *lookups)
}

func TestCheck_UpdateAvailable(t *testing.T) {
	store := newTestKVStore(t)
	cacheRelease(t, store, "v2.0.0")
	lookups := withStubbedFetch(t)

	result, err := Check(context.Background(), store, "v1.0.0")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "v1.0.0", result.Current)
	assert.Equal(t, "v2.0.0", result.Latest)
	assert.Equal(t, 0, *lookups)
}

func TestCheck_CurrentIsNewer(t *testing.T) {
	store := newTestKVStore(t)
	cacheRelease(t, store, "v1.0.0")
	lookups := withStubbedFetch(t)

	result, err := Check(context.Background(), store, "v2.0.0")
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 0, *lookups)
}

func TestCheck_FetchOnCacheMiss(t *testing.T) {
	store := newTestKVStore(t)

	calls := 0
	prevFetch := fetchLatestReleaseJSON
	fetchLatestReleaseJSON = func(context.Context) ([]byte, error) {
		calls++
		return json.Marshal(ReleaseInfo{TagName: "v1.5.0"})
	}
	t.Cleanup(func() { fetchLatestReleaseJSON = prevFetch })

	result, err := Check(context.Background(), store, "v1.0.0")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "v1.5.0", result.Latest)
	assert.Equal(t, 1, calls)

	// Second check within the TTL must be served from the cache.
	result, err = Check(context.Background(), store, "v1.0.0")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1, calls)
}

func TestCheck_NormalizesVersionPrefix(t *testing.T) {
	store := newTestKVStore(t)
	cacheRelease(t, store, "v1.3.0")
	lookups := withStubbedFetch(t)

	result, err := Check(context.Background(), store, "1.2.3")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "v1.2.3", result.Current)
	assert.Equal(t, "v1.3.0", result.Latest)
	assert.Equal(t, 0, *lookups)
}

func TestCheck_InvalidCachedTag(t *testing.T) {
	store := newTestKVStore(t)
	cache := kv.Scoped[ReleaseInfo](store, cacheNamespace)
	err := cache.SetTTL(context.Background(), cacheKey, ReleaseInfo{TagName: "not-semver"}, time.Hour)
	require.NoError(t, err)

	result, checkErr := Check(context.Background(), store, "v1.0.0")
	require.NoError(t, checkErr)
	assert.Nil(t, result)
}
