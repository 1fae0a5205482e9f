package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/daycart/internal/core/cart"
)

type ReposCmd struct {
	flags *Flags
}

// NewReposCmd creates a new repos command
func NewReposCmd(flags *Flags) *ReposCmd {
	return &ReposCmd{flags: flags}
}

// Register adds the repos command tree to the application
func (cmd *ReposCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "repos",
		Usage:     "Manage pinned repositories",
		UsageText: "daycart repos <command>",
		Commands: []*cli.Command{
			{
				Name:      "ls",
				Usage:     "List pinned repositories",
				UsageText: "daycart repos ls",
				Action:    cmd.ls,
			},
			{
				Name:      "pin",
				Usage:     "Pin a repository",
				UsageText: "daycart repos pin <owner/repo>",
				Action:    cmd.pin,
			},
			{
				Name:      "unpin",
				Usage:     "Unpin a repository and drop its cart items",
				UsageText: "daycart repos unpin <owner/repo>",
				Action:    cmd.unpin,
			},
			{
				Name:      "search",
				Usage:     "Search GitHub repositories",
				UsageText: "daycart repos search <query>",
				Action:    cmd.search,
			},
		},
	})

	return app
}

func (cmd *ReposCmd) ls(ctx context.Context, c *cli.Command) error {
	app := cmd.flags.App
	if err := app.Bootstrap(ctx); err != nil {
		return err
	}

	repos := app.Engine.Repos()
	if len(repos) == 0 {
		fmt.Println("No pinned repositories")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REPO\tCLONE URL")
	for _, repo := range repos {
		fmt.Fprintf(w, "%s\t%s\n", repo.FullName, repo.CloneURL)
	}
	return w.Flush()
}

func (cmd *ReposCmd) pin(ctx context.Context, c *cli.Command) error {
	app := cmd.flags.App

	client, err := app.RequireGitHub()
	if err != nil {
		return err
	}
	if err := app.Bootstrap(ctx); err != nil {
		return err
	}

	if c.Args().Len() != 1 {
		return fmt.Errorf("expected <owner/repo>")
	}
	fullName := c.Args().Get(0)

	// Resolve URLs through search so clone/SSH URLs are real, not guessed.
	result, err := client.SearchRepos(ctx, "repo:"+fullName)
	if err != nil {
		return fmt.Errorf("look up %s: %w", fullName, err)
	}

	repo := cart.Repo{FullName: fullName}
	for _, found := range result.Items {
		if found.FullName == fullName {
			repo.CloneURL = found.CloneURL
			repo.SSHURL = found.SSHURL
			break
		}
	}

	app.Engine.PinRepo(repo)
	if err := app.Settings.SavePinnedRepos(ctx, app.Engine.Repos()); err != nil {
		return err
	}

	fmt.Printf("Pinned %s\n", fullName)
	return nil
}

func (cmd *ReposCmd) unpin(ctx context.Context, c *cli.Command) error {
	app := cmd.flags.App
	if err := app.Bootstrap(ctx); err != nil {
		return err
	}

	if c.Args().Len() != 1 {
		return fmt.Errorf("expected <owner/repo>")
	}
	fullName := c.Args().Get(0)

	app.Engine.UnpinRepo(fullName)
	if err := app.Settings.SavePinnedRepos(ctx, app.Engine.Repos()); err != nil {
		return err
	}

	fmt.Printf("Unpinned %s\n", fullName)
	return nil
}

func (cmd *ReposCmd) search(ctx context.Context, c *cli.Command) error {
	app := cmd.flags.App

	client, err := app.RequireGitHub()
	if err != nil {
		return err
	}

	if c.Args().Len() == 0 {
		return fmt.Errorf("expected a search query")
	}

	result, err := client.SearchRepos(ctx, c.Args().First())
	if err != nil {
		return fmt.Errorf("search repos: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REPO\tDESCRIPTION")
	for _, repo := range result.Items {
		fmt.Fprintf(w, "%s\t%s\n", repo.FullName, repo.Description)
	}
	return w.Flush()
}
