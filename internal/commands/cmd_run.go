package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/daycart/internal/daycart/updatecheck"
)

type RunCmd struct {
	flags *Flags
}

// NewRunCmd creates a new run command
func NewRunCmd(flags *Flags) *RunCmd {
	return &RunCmd{flags: flags}
}

// Register adds the run command to the application
func (cmd *RunCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "run",
		Usage:     "Run the sync engine until interrupted",
		UsageText: "daycart run",
		Description: `Starts the state file watcher and the GitHub poller and keeps them
running until SIGINT/SIGTERM.

The watcher picks up cart changes written by the agent CLI; the poller
detects issue closes, abandoned PRs, and review activity on GitHub.`,
		Action: cmd.run,
	})

	return app
}

func (cmd *RunCmd) run(ctx context.Context, c *cli.Command) error {
	app := cmd.flags.App

	if _, err := app.RequireGitHub(); err != nil {
		return err
	}

	if err := app.Bootstrap(ctx); err != nil {
		return fmt.Errorf("restore state: %w", err)
	}

	// Write once so the CLI side sees a current document even before the
	// first poll cycle mutates anything.
	app.Engine.Persist()

	if err := app.Watcher.Start(); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	app.Poller.Start()
	defer app.Shutdown()

	go func() {
		if result, _ := updatecheck.Check(ctx, app.KV, c.Root().Version); result != nil {
			log.Info().
				Str("current", result.Current).
				Str("latest", result.Latest).
				Msg("a newer daycart release is available")
		}
	}()

	fmt.Fprintf(os.Stderr, "daycart: watching %s, polling every %ds\n",
		app.Store.Path(), app.Config.PollIntervalSeconds)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-ctx.Done():
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return nil
}
