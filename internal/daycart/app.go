package daycart

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/colonyops/daycart/internal/core/anthropic"
	"github.com/colonyops/daycart/internal/core/config"
	"github.com/colonyops/daycart/internal/core/github"
	"github.com/colonyops/daycart/internal/core/secrets"
	"github.com/colonyops/daycart/internal/store/jsonfile"
	"github.com/colonyops/daycart/internal/store/statefile"
)

// App is the central entry point for all daycart operations. Commands
// consume App instead of cherry-picking raw dependencies.
type App struct {
	Config   *config.Config
	Engine   *Engine
	Store    *statefile.Store
	Settings *Settings
	Secrets  *secrets.Store
	KV       *jsonfile.KVStore
	Issues   *IssueService
	Poller   *Poller
	Watcher  *statefile.Watcher

	// GitHub is nil until a token is configured; commands that need it
	// call RequireGitHub.
	GitHub *github.Client

	Log zerolog.Logger
}

// ErrNoToken is returned when a command needs the GitHub API but no token
// has been stored yet.
var ErrNoToken = errors.New("no GitHub token configured, run 'daycart auth login'")

// NewApp wires the application from config. Credentials are loaded from the
// keychain if present; their absence is not an error here.
func NewApp(cfg *config.Config, log zerolog.Logger) *App {
	store := statefile.NewStore(cfg.StateFilePath(), log)
	engine := NewEngine(store, cfg.CompletionResetHour, log)
	kvStore := jsonfile.NewKVStore(cfg.SettingsPath())
	secretStore := secrets.NewStore()

	app := &App{
		Config:   cfg,
		Engine:   engine,
		Store:    store,
		Settings: NewSettings(kvStore),
		Secrets:  secretStore,
		KV:       kvStore,
		Log:      log,
	}

	if token, err := secretStore.Load(secrets.KindGitHubToken); err == nil {
		app.GitHub = github.NewClient(token)
	}

	var titleGen titleGenerator
	if key, err := secretStore.Load(secrets.KindAnthropicKey); err == nil {
		titleGen = anthropic.NewClient(key)
	}
	if app.GitHub != nil {
		app.Issues = NewIssueService(engine, app.GitHub, titleGen, log)
		app.Poller = NewPoller(engine, store, app.GitHub,
			time.Duration(cfg.PollIntervalSeconds)*time.Second, log)
	}

	app.Watcher = statefile.NewWatcher(store, engine.Reconcile, log)

	return app
}

// RequireGitHub returns the GitHub client or ErrNoToken.
func (a *App) RequireGitHub() (*github.Client, error) {
	if a.GitHub == nil {
		return nil, ErrNoToken
	}
	return a.GitHub, nil
}

// Bootstrap restores engine state for commands that operate on the cart:
// pinned repos from settings, then the cart itself from the state file.
func (a *App) Bootstrap(ctx context.Context) error {
	repos, err := a.Settings.PinnedRepos(ctx)
	if err != nil {
		return err
	}
	a.Engine.SetRepos(repos)
	a.Engine.Restore()
	return nil
}

// Shutdown stops the background loops. Must run before process exit so no
// write lands after teardown.
func (a *App) Shutdown() {
	if a.Poller != nil {
		a.Poller.Stop()
	}
	if a.Watcher != nil {
		a.Watcher.Stop()
	}
}
