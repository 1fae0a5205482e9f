// Package statefile persists the JSON document shared between daycart and
// the external coding-agent CLI. Both processes read and write the same
// file; neither side is authoritative, so writes are atomic whole-file
// replaces and reads tolerate any older schema version by defaulting absent
// fields.
package statefile

import (
	"time"

	"github.com/colonyops/daycart/internal/core/cart"
)

// Version is the schema version stamped on every write.
const Version = 3

// Document is the persisted shared state.
type Document struct {
	Version   int    `json:"version"`
	UpdatedAt string `json:"updatedAt"`

	Repos []RepoEntry `json:"repos"`
	Cart  []CartEntry `json:"cart"`

	// Daily completion counter. Optional for compatibility with older
	// documents that predate completion tracking.
	TodayCompletions     int    `json:"todayCompletions,omitempty"`
	TodayCompletionsDate string `json:"todayCompletionsDate,omitempty"`
}

// RepoEntry is a pinned repository. The cache fields are written by the
// agent CLI and carried through by Build; daycart itself only reads them.
type RepoEntry struct {
	FullName string `json:"fullName"`
	CloneURL string `json:"cloneURL"`
	SSHURL   string `json:"sshURL"`

	ClaudeMdCache    string `json:"claudeMdCache,omitempty"`
	ClaudeMdCachedAt string `json:"claudeMdCachedAt,omitempty"`
	LocalPath        string `json:"localPath,omitempty"`
}

// CartEntry is a denormalized snapshot of one cart item, self-contained so
// the CLI can act on it without other lookups.
type CartEntry struct {
	RepoFullName string `json:"repoFullName"`
	RepoCloneURL string `json:"repoCloneURL"`
	RepoSSHURL   string `json:"repoSSHURL"`
	IssueNumber  int    `json:"issueNumber"`
	IssueTitle   string `json:"issueTitle"`
	BranchName   string `json:"branchName"`
	Status       string `json:"status"`

	IssueBody string `json:"issueBody,omitempty"`
	PRNumber  int    `json:"prNumber,omitempty"`
	PRURL     string `json:"prURL,omitempty"`
}

// Key returns the entry's identity key "{repo}#{number}".
func (e CartEntry) Key() string {
	return cart.Key(e.RepoFullName, e.IssueNumber)
}

// Repo builds the cart repo reference from the denormalized fields.
func (e CartEntry) Repo() cart.Repo {
	return cart.Repo{
		FullName: e.RepoFullName,
		CloneURL: e.RepoCloneURL,
		SSHURL:   e.RepoSSHURL,
	}
}

// Item materializes a cart item stub from the entry. Unrecognized status
// strings default to soon.
func (e CartEntry) Item() cart.Item {
	return cart.Item{
		Repo:        e.Repo(),
		IssueNumber: e.IssueNumber,
		IssueTitle:  e.IssueTitle,
		IssueBody:   e.IssueBody,
		Status:      cart.ParseStatus(e.Status),
		PRNumber:    e.PRNumber,
		PRURL:       e.PRURL,
	}
}

// Empty returns a document with the current version and timestamp and no
// entries.
func Empty() Document {
	return Document{
		Version:   Version,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
		Repos:     []RepoEntry{},
		Cart:      []CartEntry{},
	}
}

// Build is the pure transform from the in-memory model plus the previous
// persisted document into the next document to write. Repo-level cache
// fields the in-memory model does not track (ClaudeMdCache, ClaudeMdCachedAt,
// LocalPath) are copied over from existing, keyed by repo full name.
func Build(items []cart.Item, repos []cart.Repo, existing *Document) Document {
	doc := Empty()

	prevRepos := map[string]RepoEntry{}
	if existing != nil {
		for _, r := range existing.Repos {
			prevRepos[r.FullName] = r
		}
	}

	doc.Repos = make([]RepoEntry, 0, len(repos))
	for _, repo := range repos {
		entry := RepoEntry{
			FullName: repo.FullName,
			CloneURL: repo.CloneURL,
			SSHURL:   repo.SSHURL,
		}
		if prev, ok := prevRepos[repo.FullName]; ok {
			entry.ClaudeMdCache = prev.ClaudeMdCache
			entry.ClaudeMdCachedAt = prev.ClaudeMdCachedAt
			entry.LocalPath = prev.LocalPath
		}
		doc.Repos = append(doc.Repos, entry)
	}

	doc.Cart = make([]CartEntry, 0, len(items))
	for _, item := range items {
		doc.Cart = append(doc.Cart, CartEntry{
			RepoFullName: item.Repo.FullName,
			RepoCloneURL: item.Repo.CloneURL,
			RepoSSHURL:   item.Repo.SSHURL,
			IssueNumber:  item.IssueNumber,
			IssueTitle:   item.IssueTitle,
			BranchName:   item.BranchName(),
			Status:       string(item.Status),
			IssueBody:    item.IssueBody,
			PRNumber:     item.PRNumber,
			PRURL:        item.PRURL,
		})
	}

	return doc
}

// RepoEntryFor returns the repo entry with the given full name, if present.
func (d Document) RepoEntryFor(fullName string) (RepoEntry, bool) {
	for _, r := range d.Repos {
		if r.FullName == fullName {
			return r, true
		}
	}
	return RepoEntry{}, false
}

// ClaudeMdStale reports whether the cached CLAUDE.md blob for the repo is
// missing or older than ttl.
func (d Document) ClaudeMdStale(fullName string, ttl time.Duration, now time.Time) bool {
	entry, ok := d.RepoEntryFor(fullName)
	if !ok || entry.ClaudeMdCachedAt == "" {
		return true
	}
	cachedAt, err := time.Parse(time.RFC3339, entry.ClaudeMdCachedAt)
	if err != nil {
		return true
	}
	return now.Sub(cachedAt) > ttl
}
