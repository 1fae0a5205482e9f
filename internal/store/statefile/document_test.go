package statefile

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/daycart/internal/core/cart"
)

func TestBuildPreservesRepoCacheFields(t *testing.T) {
	t.Parallel()

	existing := &Document{
		Repos: []RepoEntry{
			{
				FullName:         "acme/widgets",
				ClaudeMdCache:    "# Widgets",
				ClaudeMdCachedAt: "2026-08-30T10:00:00Z",
				LocalPath:        "/home/dev/widgets",
			},
			{FullName: "acme/gone"},
		},
	}

	repos := []cart.Repo{
		{FullName: "acme/widgets", CloneURL: "https://github.com/acme/widgets.git"},
		{FullName: "acme/new"},
	}

	doc := Build(nil, repos, existing)

	require.Len(t, doc.Repos, 2)
	assert.Equal(t, "# Widgets", doc.Repos[0].ClaudeMdCache)
	assert.Equal(t, "2026-08-30T10:00:00Z", doc.Repos[0].ClaudeMdCachedAt)
	assert.Equal(t, "/home/dev/widgets", doc.Repos[0].LocalPath)
	assert.Equal(t, "https://github.com/acme/widgets.git", doc.Repos[0].CloneURL)

	// New repos start without cache fields; dropped repos are gone.
	assert.Empty(t, doc.Repos[1].ClaudeMdCache)
}

func TestBuildSnapshotsCartItems(t *testing.T) {
	t.Parallel()

	items := []cart.Item{
		{
			Repo:        cart.Repo{FullName: "acme/widgets", CloneURL: "clone", SSHURL: "ssh"},
			IssueNumber: 9,
			IssueTitle:  "Fix crash on launch",
			IssueBody:   "stacktrace attached",
			Status:      cart.StatusPending,
			PRNumber:    101,
			PRURL:       "https://github.com/acme/widgets/pull/101",
		},
	}

	doc := Build(items, nil, nil)

	require.Len(t, doc.Cart, 1)
	entry := doc.Cart[0]
	assert.Equal(t, "HotFix/#9", entry.BranchName)
	assert.Equal(t, "pending", entry.Status)
	assert.Equal(t, 101, entry.PRNumber)
	assert.Equal(t, "acme/widgets#9", entry.Key())
}

func TestCartEntryItemDefaultsUnknownStatus(t *testing.T) {
	t.Parallel()

	entry := CartEntry{
		RepoFullName: "acme/widgets",
		IssueNumber:  4,
		Status:       "paused", // unknown, written by a newer CLI
	}

	item := entry.Item()
	assert.Equal(t, cart.StatusSoon, item.Status)
}

func TestDocumentDecodeMissingFields(t *testing.T) {
	t.Parallel()

	// A version-1 document without completion tracking.
	raw := `{"version":1,"updatedAt":"2026-01-01T00:00:00Z","repos":[],"cart":[]}`

	var doc Document
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	assert.Equal(t, 1, doc.Version)
	assert.Zero(t, doc.TodayCompletions)
	assert.Empty(t, doc.TodayCompletionsDate)
}

func TestClaudeMdStale(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	ttl := time.Hour

	doc := Document{
		Repos: []RepoEntry{
			{FullName: "acme/fresh", ClaudeMdCachedAt: now.Add(-30 * time.Minute).Format(time.RFC3339)},
			{FullName: "acme/old", ClaudeMdCachedAt: now.Add(-2 * time.Hour).Format(time.RFC3339)},
			{FullName: "acme/garbage", ClaudeMdCachedAt: "not-a-time"},
			{FullName: "acme/never"},
		},
	}

	assert.False(t, doc.ClaudeMdStale("acme/fresh", ttl, now))
	assert.True(t, doc.ClaudeMdStale("acme/old", ttl, now))
	assert.True(t, doc.ClaudeMdStale("acme/garbage", ttl, now))
	assert.True(t, doc.ClaudeMdStale("acme/never", ttl, now))
	assert.True(t, doc.ClaudeMdStale("acme/unlisted", ttl, now))
}
