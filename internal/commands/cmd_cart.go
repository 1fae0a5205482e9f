package commands

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/daycart/internal/core/cart"
)

type CartCmd struct {
	flags *Flags
}

// NewCartCmd creates a new cart command
func NewCartCmd(flags *Flags) *CartCmd {
	return &CartCmd{flags: flags}
}

// Register adds the cart command tree to the application
func (cmd *CartCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "cart",
		Usage:     "Manage today's work items",
		UsageText: "daycart cart <command>",
		Commands: []*cli.Command{
			{
				Name:      "ls",
				Usage:     "List cart items and today's completion count",
				UsageText: "daycart cart ls",
				Action:    cmd.ls,
			},
			{
				Name:      "add",
				Usage:     "Add an issue to the cart",
				UsageText: "daycart cart add <owner/repo> <issue-number>",
				Action:    cmd.add,
			},
			{
				Name:      "rm",
				Usage:     "Remove an item from the cart",
				UsageText: "daycart cart rm <owner/repo> <issue-number>",
				Action:    cmd.rm,
			},
			{
				Name:      "reset",
				Usage:     "Reset a pending item back to soon, clearing its PR link",
				UsageText: "daycart cart reset <owner/repo> <issue-number>",
				Action:    cmd.reset,
			},
			{
				Name:      "reset-day",
				Usage:     "Zero the completion counter and drop completed items",
				UsageText: "daycart cart reset-day",
				Action:    cmd.resetDay,
			},
		},
	})

	return app
}

// itemKeyArgs parses the common "<owner/repo> <number>" argument pair.
func itemKeyArgs(c *cli.Command) (repo string, number int, err error) {
	if c.Args().Len() != 2 {
		return "", 0, fmt.Errorf("expected <owner/repo> <issue-number>")
	}
	repo = c.Args().Get(0)
	number, err = strconv.Atoi(c.Args().Get(1))
	if err != nil {
		return "", 0, fmt.Errorf("issue number %q is not a number", c.Args().Get(1))
	}
	return repo, number, nil
}

func (cmd *CartCmd) ls(ctx context.Context, c *cli.Command) error {
	app := cmd.flags.App
	if err := app.Bootstrap(ctx); err != nil {
		return err
	}

	items := app.Engine.Items()
	count, date := app.Engine.Completions()

	if len(items) == 0 {
		fmt.Printf("Cart is empty. Completed today (%s): %d\n", date, count)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ITEM\tTITLE\tBRANCH\tSTATUS\tPR")
	for _, item := range items {
		status := item.Status.DisplayName()
		if item.Status == cart.StatusPending {
			status += " (" + item.PendingSubStatus().DisplayName() + ")"
		}
		pr := "-"
		if item.PRNumber != 0 {
			pr = "#" + strconv.Itoa(item.PRNumber)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			item.Key(), item.IssueTitle, item.BranchName(), status, pr)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\nCompleted today (%s): %d\n", date, count)
	return nil
}

func (cmd *CartCmd) add(ctx context.Context, c *cli.Command) error {
	app := cmd.flags.App

	client, err := app.RequireGitHub()
	if err != nil {
		return err
	}
	if err := app.Bootstrap(ctx); err != nil {
		return err
	}

	repoName, number, err := itemKeyArgs(c)
	if err != nil {
		return err
	}

	issue, err := client.GetIssue(ctx, repoName, number)
	if err != nil {
		return fmt.Errorf("fetch issue %s#%d: %w", repoName, number, err)
	}

	repo := cart.Repo{FullName: repoName}
	for _, pinned := range app.Engine.Repos() {
		if pinned.FullName == repoName {
			repo = pinned
			break
		}
	}

	app.Engine.AddItem(repo, issue)
	fmt.Printf("Added %s to the cart (branch %s)\n",
		cart.Key(repoName, number), cart.BranchName(issue.Title, issue.Number))
	return nil
}

func (cmd *CartCmd) rm(ctx context.Context, c *cli.Command) error {
	app := cmd.flags.App
	if err := app.Bootstrap(ctx); err != nil {
		return err
	}

	repo, number, err := itemKeyArgs(c)
	if err != nil {
		return err
	}

	app.Engine.RemoveItem(cart.Key(repo, number))
	fmt.Printf("Removed %s\n", cart.Key(repo, number))
	return nil
}

func (cmd *CartCmd) reset(ctx context.Context, c *cli.Command) error {
	app := cmd.flags.App
	if err := app.Bootstrap(ctx); err != nil {
		return err
	}

	repo, number, err := itemKeyArgs(c)
	if err != nil {
		return err
	}

	app.Engine.ResetPendingItem(cart.Key(repo, number))
	fmt.Printf("Reset %s to soon\n", cart.Key(repo, number))
	return nil
}

func (cmd *CartCmd) resetDay(ctx context.Context, c *cli.Command) error {
	app := cmd.flags.App
	if err := app.Bootstrap(ctx); err != nil {
		return err
	}

	app.Engine.ResetDay()
	fmt.Println("Completion counter reset, completed items removed")
	return nil
}
