// Package daycart wires the sync engine together: the cart engine owns the
// in-memory model, the poller reconciles it against GitHub, and the watcher
// reconciles it against external writes to the shared state file.
package daycart

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/daycart/internal/core/cart"
	"github.com/colonyops/daycart/internal/core/github"
	"github.com/colonyops/daycart/internal/store/statefile"
)

const dayFormat = "2006-01-02"

// Engine is the sole in-memory owner of cart items, pinned repos, and the
// daily completion counter. All mutations funnel through its mutex, which
// is the single-writer guarantee: cart mutation is never interleaved across
// concurrent callers (poller, watcher, CLI commands).
type Engine struct {
	store *statefile.Store
	log   zerolog.Logger

	// resetHour shifts the day boundary for the completion counter.
	resetHour int

	// now and afterPersist are replaceable in tests.
	now          func() time.Time
	afterPersist func()

	mu    sync.Mutex
	items []cart.Item
	repos []cart.Repo

	completions     int
	completionsDate string

	issuesByRepo map[string][]github.Issue
	claudeMd     map[string]string
}

// NewEngine creates an engine persisting through store.
func NewEngine(store *statefile.Store, resetHour int, log zerolog.Logger) *Engine {
	return &Engine{
		store:        store,
		log:          log.With().Str("component", "engine").Logger(),
		resetHour:    resetHour,
		now:          time.Now,
		issuesByRepo: map[string][]github.Issue{},
		claudeMd:     map[string]string{},
	}
}

// Tx exposes the engine's mutating operations inside an Update call. All Tx
// methods run under the engine lock; persistence happens once, after the
// whole transaction, and only if a status-changing mutation occurred.
type Tx struct {
	e     *Engine
	dirty bool
}

// Update runs fn against the engine under its lock and persists the state
// file at most once afterwards, if fn performed a persistent mutation. This
// is how the poller bounds write amplification to one disk write per cycle.
func (e *Engine) Update(fn func(tx *Tx)) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tx := &Tx{e: e}
	fn(tx)

	if tx.dirty {
		e.persistLocked()
	}
}

// find returns the index of the item with the given identity key, or -1.
func (e *Engine) find(key string) int {
	for i := range e.items {
		if e.items[i].Key() == key {
			return i
		}
	}
	return -1
}

// Add constructs a cart item in the soon state. Adding an identity that is
// already present is a no-op.
func (tx *Tx) Add(repo cart.Repo, issue github.Issue) {
	item := cart.NewItem(repo, issue)
	if tx.e.find(item.Key()) >= 0 {
		return
	}
	tx.e.items = append(tx.e.items, item)
	tx.dirty = true
}

// Remove deletes an item by identity key. Missing identity is a no-op.
func (tx *Tx) Remove(key string) {
	idx := tx.e.find(key)
	if idx < 0 {
		return
	}
	tx.e.items = append(tx.e.items[:idx], tx.e.items[idx+1:]...)
	tx.dirty = true
}

// SetStatus moves an item to a new status. A transition into completed from
// a non-completed state bumps the daily counter, rolling the day first.
func (tx *Tx) SetStatus(key string, status cart.Status) {
	idx := tx.e.find(key)
	if idx < 0 {
		return
	}

	old := tx.e.items[idx].Status
	tx.e.items[idx].Status = status

	if status == cart.StatusCompleted && old != cart.StatusCompleted {
		tx.e.rollDayLocked()
		tx.e.completions++
	}
	tx.dirty = true
}

// ResetPending forces an item back to soon and clears its PR linkage. Used
// when a PR is closed without being merged.
func (tx *Tx) ResetPending(key string) {
	idx := tx.e.find(key)
	if idx < 0 {
		return
	}
	tx.e.items[idx].Status = cart.StatusSoon
	tx.e.items[idx].PRNumber = 0
	tx.e.items[idx].PRURL = ""
	tx.e.items[idx].PR = nil
	tx.e.items[idx].HasChangesRequested = false
	tx.dirty = true
}

// UpdatePRCache refreshes the cached PR snapshot used to derive the pending
// sub-status. Refresh-only data: it never marks the transaction dirty, so
// it alone never causes a state file write.
func (tx *Tx) UpdatePRCache(key string, pr github.PullRequest, hasChangesRequested bool) {
	idx := tx.e.find(key)
	if idx < 0 {
		return
	}
	prCopy := pr
	tx.e.items[idx].PR = &prCopy
	tx.e.items[idx].HasChangesRequested = hasChangesRequested
}

// CacheIssue refreshes the cached issue snapshot in the per-repo issue
// list. View data only, not persisted.
func (tx *Tx) CacheIssue(repo string, issue github.Issue) {
	issues := tx.e.issuesByRepo[repo]
	for i := range issues {
		if issues[i].Number == issue.Number {
			issues[i] = issue
			return
		}
	}
}

// CacheClaudeMd stores freshly fetched CLAUDE.md content for a repo. Used
// by AI title generation; not persisted (the agent CLI owns the on-disk
// cache fields).
func (tx *Tx) CacheClaudeMd(repo, content string) {
	tx.e.claudeMd[repo] = content
}

// ResetDay zeroes the counter, stamps today's date, and removes every
// completed item. User-initiated only.
func (tx *Tx) ResetDay() {
	tx.e.completions = 0
	tx.e.completionsDate = tx.e.dayString()

	kept := tx.e.items[:0]
	for _, item := range tx.e.items {
		if item.Status != cart.StatusCompleted {
			kept = append(kept, item)
		}
	}
	tx.e.items = kept
	tx.dirty = true
}

// AddItem adds an issue to the cart and persists.
func (e *Engine) AddItem(repo cart.Repo, issue github.Issue) {
	e.Update(func(tx *Tx) { tx.Add(repo, issue) })
}

// RemoveItem removes an item by identity key and persists.
func (e *Engine) RemoveItem(key string) {
	e.Update(func(tx *Tx) { tx.Remove(key) })
}

// SetStatus transitions an item and persists.
func (e *Engine) SetStatus(key string, status cart.Status) {
	e.Update(func(tx *Tx) { tx.SetStatus(key, status) })
}

// ResetPendingItem resets an item to soon, clears PR linkage, and persists.
func (e *Engine) ResetPendingItem(key string) {
	e.Update(func(tx *Tx) { tx.ResetPending(key) })
}

// UpdatePRCache refreshes the cached PR snapshot without persisting.
func (e *Engine) UpdatePRCache(key string, pr github.PullRequest, hasChangesRequested bool) {
	e.Update(func(tx *Tx) { tx.UpdatePRCache(key, pr, hasChangesRequested) })
}

// ResetDay performs the manual day reset and persists.
func (e *Engine) ResetDay() {
	e.Update(func(tx *Tx) { tx.ResetDay() })
}

// Items returns a copy of the cart in its stable iteration order.
func (e *Engine) Items() []cart.Item {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]cart.Item, len(e.items))
	copy(out, e.items)
	return out
}

// Item returns the item with the given key, if present.
func (e *Engine) Item(key string) (cart.Item, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if idx := e.find(key); idx >= 0 {
		return e.items[idx], true
	}
	return cart.Item{}, false
}

// Completions returns the daily counter after rolling it for a new day.
func (e *Engine) Completions() (count int, date string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rollDayLocked()
	return e.completions, e.completionsDate
}

// Repos returns a copy of the pinned repos.
func (e *Engine) Repos() []cart.Repo {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]cart.Repo, len(e.repos))
	copy(out, e.repos)
	return out
}

// SetRepos replaces the pinned repo list without persisting. Used at
// startup to load repos from settings.
func (e *Engine) SetRepos(repos []cart.Repo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.repos = append([]cart.Repo(nil), repos...)
}

// PinRepo appends a repo to the pinned set and persists. Already-pinned
// repos are a no-op.
func (e *Engine) PinRepo(repo cart.Repo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range e.repos {
		if r.FullName == repo.FullName {
			return
		}
	}
	e.repos = append(e.repos, repo)
	e.persistLocked()
}

// UnpinRepo removes a repo from the pinned set along with every cart item
// belonging to it, then persists.
func (e *Engine) UnpinRepo(fullName string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	repos := e.repos[:0]
	for _, r := range e.repos {
		if r.FullName != fullName {
			repos = append(repos, r)
		}
	}
	e.repos = repos

	items := e.items[:0]
	for _, item := range e.items {
		if item.Repo.FullName != fullName {
			items = append(items, item)
		}
	}
	e.items = items

	delete(e.issuesByRepo, fullName)
	e.persistLocked()
}

// Issues returns the cached issue list for a repo.
func (e *Engine) Issues(repo string) []github.Issue {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]github.Issue, len(e.issuesByRepo[repo]))
	copy(out, e.issuesByRepo[repo])
	return out
}

// SetIssues replaces the cached issue list for a repo.
func (e *Engine) SetIssues(repo string, issues []github.Issue) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.issuesByRepo[repo] = append([]github.Issue(nil), issues...)
}

// ClaudeMd returns the cached CLAUDE.md content for a repo, empty if none.
func (e *Engine) ClaudeMd(repo string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.claudeMd[repo]
}

// Reconcile makes the in-memory cart match a freshly read document. The
// document is authoritative for structural membership and status: items
// present on both sides adopt the document's status and PR linkage, items
// missing from the document are dropped, and document entries with no
// in-memory counterpart are materialized as stubs. Cached PR snapshots
// survive on items that keep their identity. Reconcile never writes the
// state file back, which would loop through the watcher.
func (e *Engine) Reconcile(doc statefile.Document) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entries := make(map[string]statefile.CartEntry, len(doc.Cart))
	for _, entry := range doc.Cart {
		entries[entry.Key()] = entry
	}

	updated := make([]cart.Item, 0, len(doc.Cart))
	for _, item := range e.items {
		entry, ok := entries[item.Key()]
		if !ok {
			// Removed externally, external deletion wins.
			continue
		}
		item.Status = cart.ParseStatus(entry.Status)
		item.PRNumber = entry.PRNumber
		item.PRURL = entry.PRURL
		updated = append(updated, item)
		delete(entries, item.Key())
	}

	// External additions win. Sorted by key for a deterministic order.
	added := make([]cart.Item, 0, len(entries))
	for _, entry := range entries {
		added = append(added, entry.Item())
	}
	sort.Slice(added, func(i, j int) bool { return added[i].Key() < added[j].Key() })
	e.items = append(updated, added...)

	// Adopt the document's counter when it is for the current day.
	today := e.dayString()
	if doc.TodayCompletionsDate == today {
		e.completions = doc.TodayCompletions
		e.completionsDate = today
	}
}

// Restore rebuilds engine state from the state file at startup: cart items
// from the persisted entries, CLAUDE.md caches from the repo entries, and
// the completion counter rolled for a new day.
func (e *Engine) Restore() {
	doc, ok := e.store.Read()

	e.mu.Lock()
	defer e.mu.Unlock()

	today := e.dayString()
	if !ok {
		e.completions = 0
		e.completionsDate = today
		return
	}

	for _, entry := range doc.Cart {
		if e.find(entry.Key()) >= 0 {
			continue
		}
		e.items = append(e.items, entry.Item())
	}

	for _, repo := range doc.Repos {
		if repo.ClaudeMdCache != "" {
			e.claudeMd[repo.FullName] = repo.ClaudeMdCache
		}
	}

	if doc.TodayCompletionsDate == today {
		e.completions = doc.TodayCompletions
	} else {
		e.completions = 0
	}
	e.completionsDate = today
}

// Persist writes the current model to the state file.
func (e *Engine) Persist() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.persistLocked()
}

// persistLocked builds the next document from the in-memory model plus the
// previous on-disk document and writes it. Failures are logged and
// swallowed: the file stays stale until the next successful write.
func (e *Engine) persistLocked() {
	var existing *statefile.Document
	if doc, ok := e.store.Read(); ok {
		existing = &doc
	}

	doc := statefile.Build(e.items, e.repos, existing)
	doc.TodayCompletions = e.completions
	doc.TodayCompletionsDate = e.completionsDate

	if err := e.store.Write(doc); err != nil {
		e.log.Warn().Err(err).Msg("persist state file")
		return
	}
	if e.afterPersist != nil {
		e.afterPersist()
	}
}

// dayString computes the counter's calendar day: now shifted backward by
// the reset hour, truncated to a date.
func (e *Engine) dayString() string {
	return e.now().Add(-time.Duration(e.resetHour) * time.Hour).Format(dayFormat)
}

// rollDayLocked zeroes the counter when its stored date is not the current
// computed day.
func (e *Engine) rollDayLocked() {
	today := e.dayString()
	if e.completionsDate != today {
		e.completions = 0
		e.completionsDate = today
	}
}
