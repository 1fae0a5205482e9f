package daycart

import (
	"context"
	"errors"
	"fmt"

	"github.com/colonyops/daycart/internal/core/cart"
	"github.com/colonyops/daycart/internal/core/github"
	"github.com/colonyops/daycart/internal/core/kv"
)

const settingsNamespace = "settings"

// Settings persists user preferences that do not belong in the shared state
// file: the pinned repo set and the cached GitHub identity.
type Settings struct {
	repos *kv.TypedKV[[]cart.Repo]
	user  *kv.TypedKV[github.User]
}

// NewSettings wraps a KV store with typed settings accessors.
func NewSettings(store kv.KV) *Settings {
	return &Settings{
		repos: kv.Scoped[[]cart.Repo](store, settingsNamespace),
		user:  kv.Scoped[github.User](store, settingsNamespace),
	}
}

// PinnedRepos returns the saved pinned repos, empty when none were saved.
func (s *Settings) PinnedRepos(ctx context.Context) ([]cart.Repo, error) {
	repos, err := s.repos.Get(ctx, "pinned-repos")
	if err != nil {
		if errors.Is(err, kv.ErrNoKey) {
			return nil, nil
		}
		return nil, fmt.Errorf("load pinned repos: %w", err)
	}
	return repos, nil
}

// SavePinnedRepos replaces the saved pinned repo set.
func (s *Settings) SavePinnedRepos(ctx context.Context, repos []cart.Repo) error {
	if err := s.repos.Set(ctx, "pinned-repos", repos); err != nil {
		return fmt.Errorf("save pinned repos: %w", err)
	}
	return nil
}

// CurrentUser returns the cached GitHub identity, if any.
func (s *Settings) CurrentUser(ctx context.Context) (github.User, bool) {
	user, err := s.user.Get(ctx, "current-user")
	if err != nil {
		return github.User{}, false
	}
	return user, true
}

// SaveCurrentUser caches the GitHub identity after token validation.
func (s *Settings) SaveCurrentUser(ctx context.Context, user github.User) error {
	if err := s.user.Set(ctx, "current-user", user); err != nil {
		return fmt.Errorf("save current user: %w", err)
	}
	return nil
}
