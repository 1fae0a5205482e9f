package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/daycart/internal/core/anthropic"
	"github.com/colonyops/daycart/internal/core/github"
	"github.com/colonyops/daycart/internal/core/secrets"
)

type AuthCmd struct {
	flags *Flags

	// flags
	anthropicKey bool
}

// NewAuthCmd creates a new auth command
func NewAuthCmd(flags *Flags) *AuthCmd {
	return &AuthCmd{flags: flags}
}

// Register adds the auth command tree to the application
func (cmd *AuthCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "auth",
		Usage:     "Manage API credentials in the system keychain",
		UsageText: "daycart auth <command>",
		Commands: []*cli.Command{
			{
				Name:      "login",
				Usage:     "Validate and store a token",
				UsageText: "daycart auth login [--anthropic]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "anthropic",
						Usage:       "store an Anthropic API key instead of a GitHub token",
						Destination: &cmd.anthropicKey,
					},
				},
				Action: cmd.login,
			},
			{
				Name:      "status",
				Usage:     "Show which credentials are stored and who the token belongs to",
				UsageText: "daycart auth status",
				Action:    cmd.status,
			},
			{
				Name:      "logout",
				Usage:     "Remove stored credentials",
				UsageText: "daycart auth logout [--anthropic]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:        "anthropic",
						Usage:       "remove the Anthropic API key instead of the GitHub token",
						Destination: &cmd.anthropicKey,
					},
				},
				Action: cmd.logout,
			},
		},
	})

	return app
}

func readSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func (cmd *AuthCmd) login(ctx context.Context, c *cli.Command) error {
	app := cmd.flags.App

	if cmd.anthropicKey {
		key, err := readSecret("Anthropic API key: ")
		if err != nil {
			return err
		}

		if err := anthropic.NewClient(key).TestConnection(ctx); err != nil {
			return fmt.Errorf("key check failed: %w", err)
		}
		if err := app.Secrets.Save(secrets.KindAnthropicKey, key); err != nil {
			return err
		}
		fmt.Println("Anthropic API key stored")
		return nil
	}

	token, err := readSecret("GitHub personal access token: ")
	if err != nil {
		return err
	}

	user, err := github.NewClient(token).ValidateToken(ctx)
	if err != nil {
		return fmt.Errorf("token validation failed: %w", err)
	}

	if err := app.Secrets.Save(secrets.KindGitHubToken, token); err != nil {
		return err
	}
	if err := app.Settings.SaveCurrentUser(ctx, user); err != nil {
		return err
	}

	fmt.Printf("Logged in as %s\n", user.Login)
	return nil
}

func (cmd *AuthCmd) status(ctx context.Context, c *cli.Command) error {
	app := cmd.flags.App

	if _, err := app.Secrets.Load(secrets.KindGitHubToken); err != nil {
		fmt.Println("GitHub: not logged in")
	} else if user, ok := app.Settings.CurrentUser(ctx); ok {
		fmt.Printf("GitHub: logged in as %s\n", user.Login)
	} else {
		fmt.Println("GitHub: token stored")
	}

	if _, err := app.Secrets.Load(secrets.KindAnthropicKey); err != nil {
		fmt.Println("Anthropic: no API key")
	} else {
		fmt.Println("Anthropic: API key stored")
	}

	return nil
}

func (cmd *AuthCmd) logout(ctx context.Context, c *cli.Command) error {
	app := cmd.flags.App

	kind := secrets.KindGitHubToken
	if cmd.anthropicKey {
		kind = secrets.KindAnthropicKey
	}
	if err := app.Secrets.Delete(kind); err != nil {
		return err
	}

	fmt.Println("Credential removed")
	return nil
}
