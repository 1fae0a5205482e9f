package statefile

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// externalWrite mimics the agent CLI: writes the document directly, without
// going through the store, so LastWrite stays untouched.
func externalWrite(t *testing.T, path string, doc Document) {
	t.Helper()
	doc.Version = Version
	doc.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	tmp := path + ".tmp"
	require.NoError(t, os.WriteFile(tmp, data, 0o644))
	require.NoError(t, os.Rename(tmp, path))
}

func TestWatcherDetectsExternalWrite(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "state.json"), zerolog.Nop())

	changes := make(chan Document, 8)
	w := NewWatcher(store, func(doc Document) { changes <- doc }, zerolog.Nop())
	w.forceNotify = true

	require.NoError(t, w.Start())
	defer w.Stop()

	externalWrite(t, store.Path(), Document{Cart: []CartEntry{{RepoFullName: "acme/widgets", IssueNumber: 1, Status: "running"}}})

	select {
	case doc := <-changes:
		require.Len(t, doc.Cart, 1)
		assert.Equal(t, "running", doc.Cart[0].Status)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for change callback")
	}
}

func TestWatcherSuppressesSelfWrite(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "state.json"), zerolog.Nop())

	var calls atomic.Int32
	w := NewWatcher(store, func(Document) { calls.Add(1) }, zerolog.Nop())
	w.forceNotify = true

	require.NoError(t, w.Start())
	defer w.Stop()

	// Our own write lands inside the suppression window: no callback.
	require.NoError(t, store.Write(Empty()))
	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load(), "self-write must not trigger reconciliation")

	// An external write after the window triggers exactly once.
	time.Sleep(selfWriteWindow)
	externalWrite(t, store.Path(), Document{Cart: []CartEntry{{RepoFullName: "acme/widgets", IssueNumber: 2}}})

	require.Eventually(t, func() bool { return calls.Load() == 1 }, 5*time.Second, 50*time.Millisecond)

	// Debounce collapses the rename burst into one callback.
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore(filepath.Join(dir, "state.json"), zerolog.Nop())

	var calls atomic.Int32
	w := NewWatcher(store, func(Document) { calls.Add(1) }, zerolog.Nop())
	w.forceNotify = true

	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte("{}"), 0o644))
	time.Sleep(600 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}

func TestWatcherPollingFallback(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "state.json"), zerolog.Nop())

	changes := make(chan Document, 8)
	w := NewWatcher(store, func(doc Document) { changes <- doc }, zerolog.Nop())
	w.forcePoll = true

	require.NoError(t, w.Start())
	defer w.Stop()

	externalWrite(t, store.Path(), Document{Cart: []CartEntry{{RepoFullName: "acme/widgets", IssueNumber: 3}}})

	select {
	case doc := <-changes:
		require.Len(t, doc.Cart, 1)
		assert.Equal(t, 3, doc.Cart[0].IssueNumber)
	case <-time.After(10 * time.Second):
		t.Fatal("timeout waiting for polling fallback to detect change")
	}
}

func TestWatcherStartStopIdempotent(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "state.json"), zerolog.Nop())
	w := NewWatcher(store, func(Document) {}, zerolog.Nop())
	w.forceNotify = true

	// Stop before start is safe.
	w.Stop()

	require.NoError(t, w.Start())
	require.NoError(t, w.Start())

	w.Stop()
	w.Stop()
}
