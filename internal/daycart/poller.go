package daycart

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/daycart/internal/core/cart"
	"github.com/colonyops/daycart/internal/core/config"
	"github.com/colonyops/daycart/internal/core/github"
	"github.com/colonyops/daycart/internal/store/statefile"
)

// RemoteClient is the slice of the GitHub client the poller needs. Declared
// here so tests can substitute a fake.
type RemoteClient interface {
	GetIssue(ctx context.Context, repo string, number int) (github.Issue, error)
	GetPullRequest(ctx context.Context, repo string, number int) (github.PullRequest, error)
	GetPullRequestReviews(ctx context.Context, repo string, number int) ([]github.Review, error)
	FetchFileContent(ctx context.Context, repo, path string) (string, error)
	RateLimitRemaining() int
}

// Poller periodically reconciles cart item status against GitHub and
// refreshes cached auxiliary data. Network fetches happen outside the
// engine lock; the collected mutations are applied in a single engine
// transaction, so at most one state file write happens per cycle.
type Poller struct {
	engine *Engine
	store  *statefile.Store
	client RemoteClient
	log    zerolog.Logger

	interval time.Duration

	mu             sync.Mutex
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	lowQuotaWarned bool
}

// NewPoller creates a poller with the given interval, assumed to already be
// clamped by the config layer.
func NewPoller(engine *Engine, store *statefile.Store, client RemoteClient, interval time.Duration, log zerolog.Logger) *Poller {
	return &Poller{
		engine:   engine,
		store:    store,
		client:   client,
		interval: interval,
		log:      log.With().Str("component", "poller").Logger(),
	}
}

// Start launches the poll loop: one immediate pass, then one pass per
// interval until Stop. Idempotent: starting a running poller is a no-op.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.wg.Add(1)
	go p.loop(ctx)
}

// Stop cancels the loop, interrupting any outstanding sleep or fetch, and
// waits for it to exit. Safe to call when never started.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	p.wg.Wait()
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		p.pollOnce(ctx)
		timer.Reset(p.interval)
	}
}

// pollOnce runs a single poll cycle. Any single item's fetch failure is
// isolated and skipped; nothing here aborts the loop.
func (p *Poller) pollOnce(ctx context.Context) {
	remaining := p.client.RateLimitRemaining()
	if remaining == 0 {
		p.log.Warn().Msg("rate limit exhausted, skipping poll cycle")
		return
	}
	if remaining < config.RateLimitWarnThreshold {
		if !p.lowQuotaWarned {
			p.log.Warn().Int("remaining", remaining).Msg("GitHub rate limit quota running low")
			p.lowQuotaWarned = true
		}
	} else {
		p.lowQuotaWarned = false
	}

	// Snapshot the cart; fetches must not run under the engine lock.
	items := p.engine.Items()

	var muts []func(tx *Tx)

	for _, item := range items {
		if ctx.Err() != nil {
			return
		}

		issue, err := p.client.GetIssue(ctx, item.Repo.FullName, item.IssueNumber)
		if err != nil {
			p.log.Debug().Err(err).Str("item", item.Key()).Msg("issue fetch failed, skipping")
			continue
		}

		if issue.IsClosed() {
			// Completed items stay in the cart until the manual day reset.
			key := item.Key()
			muts = append(muts, func(tx *Tx) { tx.SetStatus(key, cart.StatusCompleted) })
			continue
		}

		repo, fresh := item.Repo.FullName, issue
		muts = append(muts, func(tx *Tx) { tx.CacheIssue(repo, fresh) })

		if item.Status != cart.StatusPending || item.PRNumber == 0 {
			continue
		}

		pr, err := p.client.GetPullRequest(ctx, item.Repo.FullName, item.PRNumber)
		if err != nil {
			p.log.Debug().Err(err).Str("item", item.Key()).Msg("PR fetch failed, skipping")
			continue
		}

		if pr.ClosedWithoutMerge() {
			key := item.Key()
			muts = append(muts, func(tx *Tx) { tx.ResetPending(key) })
			continue
		}

		reviews, err := p.client.GetPullRequestReviews(ctx, item.Repo.FullName, item.PRNumber)
		if err != nil {
			p.log.Debug().Err(err).Str("item", item.Key()).Msg("reviews fetch failed, skipping")
			continue
		}

		hasChangesRequested := false
		for _, review := range reviews {
			if review.State == github.ReviewStateChangesRequested && !review.User.IsBot() {
				hasChangesRequested = true
				break
			}
		}

		key, prCopy, hcr := item.Key(), pr, hasChangesRequested
		muts = append(muts, func(tx *Tx) { tx.UpdatePRCache(key, prCopy, hcr) })
	}

	muts = append(muts, p.refreshClaudeMd(ctx)...)

	if len(muts) == 0 {
		return
	}

	p.engine.Update(func(tx *Tx) {
		for _, mut := range muts {
			mut(tx)
		}
	})
}

// refreshClaudeMd refetches each pinned repo's CLAUDE.md when the on-disk
// cache is older than the TTL. A missing file is a normal, silent outcome.
func (p *Poller) refreshClaudeMd(ctx context.Context) []func(tx *Tx) {
	doc, _ := p.store.Read()
	ttl := config.ClaudeMdCacheTTLSeconds * time.Second

	var muts []func(tx *Tx)
	for _, repo := range p.engine.Repos() {
		if ctx.Err() != nil {
			return muts
		}
		if !doc.ClaudeMdStale(repo.FullName, ttl, time.Now()) {
			continue
		}

		content, err := p.client.FetchFileContent(ctx, repo.FullName, "CLAUDE.md")
		if err != nil {
			if !errors.Is(err, github.ErrNotFound) {
				p.log.Debug().Err(err).Str("repo", repo.FullName).Msg("CLAUDE.md fetch failed")
			}
			continue
		}

		name, body := repo.FullName, content
		muts = append(muts, func(tx *Tx) { tx.CacheClaudeMd(name, body) })
	}
	return muts
}
