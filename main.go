package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/daycart/internal/commands"
	"github.com/colonyops/daycart/internal/core/config"
	"github.com/colonyops/daycart/internal/daycart"
	"github.com/colonyops/daycart/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, build() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var logCloser func()

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "daycart",
		Usage:     "Track today's GitHub issues and watch your coding agent work them",
		UsageText: "daycart [global options] command [command options]",
		Description: `daycart keeps a small cart of GitHub issues picked for today and hands
them to an external coding-agent CLI through a shared state file.

A background poller watches GitHub for progress (issue closed, PR opened,
reviews submitted) and a file watcher picks up changes the agent CLI makes
to the shared file, so both sides stay in sync without talking directly.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("DAYCART_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to state dir)",
				Sources:     cli.EnvVars("DAYCART_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("DAYCART_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to the daycart data directory",
				Sources:     cli.EnvVars("DAYCART_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
			&cli.StringFlag{
				Name:        "state-file",
				Usage:       "path to the shared state file (overrides config)",
				Sources:     cli.EnvVars(config.StateFileEnvVar),
				Destination: &flags.StateFile,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logFile := flags.LogFile
			if logFile == "" {
				logFile = commands.DefaultLogFile()
			}

			logger, closer, err := logutils.New(flags.LogLevel, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			logCloser = closer
			log.Logger = logger

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, err
			}
			if flags.StateFile != "" {
				cfg.StateFile = flags.StateFile
			}
			flags.Config = cfg
			flags.App = daycart.NewApp(cfg, logger)

			return ctx, nil
		},
	}

	commands.NewRunCmd(flags).Register(app)
	commands.NewCartCmd(flags).Register(app)
	commands.NewReposCmd(flags).Register(app)
	commands.NewIssueCmd(flags).Register(app)
	commands.NewAuthCmd(flags).Register(app)

	err := app.Run(ctx, os.Args)
	if logCloser != nil {
		logCloser()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "daycart: %v\n", err)
		os.Exit(1)
	}
}
