package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/myflix/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	runner := NewRunner(RunnerOpts{Logger: logger})

	app := newApp(runner)

	if err := app.Run(context.Background(), os.Args); err != nil {
		switch {
		case errors.Is(err, shared.ErrSessionEnded), errors.Is(err, shared.ErrUnauthenticated):
			logger.Error("you are not logged in, run 'myflix auth login'", "error", err)
			os.Exit(2)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}

// newApp builds the root command around runner.
func newApp(runner *Runner) *cli.Command {
	return &cli.Command{
		Name:    "myflix",
		Usage:   "Browse the movie catalog and manage your favorites",
		Version: "0.3.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
				Sources: cli.EnvVars("MYFLIX_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Override the catalog service base URL",
				Sources: cli.EnvVars("MYFLIX_API_URL"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
			},
		},
		Before:   runner.Configure,
		After:    runner.Shutdown,
		Commands: runner.register(),
	}
}
