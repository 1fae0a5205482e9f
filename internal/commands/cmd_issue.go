package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
)

type IssueCmd struct {
	flags *Flags

	// flags
	body     string
	aiTitle  bool
	assignee string
}

// NewIssueCmd creates a new issue command
func NewIssueCmd(flags *Flags) *IssueCmd {
	return &IssueCmd{flags: flags}
}

// Register adds the issue command tree to the application
func (cmd *IssueCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "issue",
		Usage:     "List and create issues in pinned repositories",
		UsageText: "daycart issue <command>",
		Commands: []*cli.Command{
			{
				Name:      "ls",
				Usage:     "List open issues for a repository",
				UsageText: "daycart issue ls <owner/repo>",
				Action:    cmd.ls,
			},
			{
				Name:      "new",
				Usage:     "Create an issue, optionally with an AI-generated title",
				UsageText: "daycart issue new <owner/repo> <title or raw notes>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "body",
						Usage:       "issue body",
						Destination: &cmd.body,
					},
					&cli.BoolFlag{
						Name:        "ai-title",
						Usage:       "treat the argument as raw notes and generate the title",
						Destination: &cmd.aiTitle,
					},
					&cli.StringFlag{
						Name:        "assign",
						Usage:       "assign the new issue to a login",
						Destination: &cmd.assignee,
					},
				},
				Action: cmd.create,
			},
		},
	})

	return app
}

func (cmd *IssueCmd) ls(ctx context.Context, c *cli.Command) error {
	app := cmd.flags.App

	if _, err := app.RequireGitHub(); err != nil {
		return err
	}
	if err := app.Bootstrap(ctx); err != nil {
		return err
	}

	if c.Args().Len() != 1 {
		return fmt.Errorf("expected <owner/repo>")
	}
	repo := c.Args().Get(0)

	issues, err := app.Issues.RefreshIssues(ctx, repo)
	if err != nil {
		return err
	}

	if len(issues) == 0 {
		fmt.Println("No open issues")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NUMBER\tTITLE\tAUTHOR")
	for _, issue := range issues {
		fmt.Fprintf(w, "#%d\t%s\t%s\n", issue.Number, issue.Title, issue.User.Login)
	}
	return w.Flush()
}

func (cmd *IssueCmd) create(ctx context.Context, c *cli.Command) error {
	app := cmd.flags.App

	if _, err := app.RequireGitHub(); err != nil {
		return err
	}
	if err := app.Bootstrap(ctx); err != nil {
		return err
	}

	if c.Args().Len() < 2 {
		return fmt.Errorf("expected <owner/repo> <title or raw notes>")
	}
	repo := c.Args().Get(0)
	title := c.Args().Get(1)

	if cmd.aiTitle {
		generated, err := app.Issues.GenerateTitle(ctx, repo, title)
		if err != nil {
			return fmt.Errorf("generate title: %w", err)
		}
		title = generated
	}

	issue, err := app.Issues.CreateIssue(ctx, repo, title, cmd.body)
	if err != nil {
		return err
	}

	if cmd.assignee != "" {
		if err := app.Issues.AssignIssue(ctx, repo, issue.Number, []string{cmd.assignee}); err != nil {
			return err
		}
	}

	fmt.Printf("Created %s#%d: %s\n%s\n", repo, issue.Number, issue.Title, issue.HTMLURL)
	return nil
}
