package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/myflix/internal/shared"
	"github.com/desertthunder/myflix/internal/ui"
)

// TUI launches the interactive terminal UI for browsing movies and managing favorites.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	logPath := r.config.Log.File
	if logPath == "" {
		logPath = "./tmp/myflix-tui.log"
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(logPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, shared.ParseLogLevel(r.config.Log.Level))
	r.SetLogger(fileLogger)

	if err := r.client(); err != nil {
		return err
	}

	model := ui.NewModel(ctx, ui.Deps{
		Accounts:  r.accounts,
		Catalog:   r.browser,
		Favorites: r.favs,
		Session:   r.store,
		Gate:      r.gate,
	})
	defer model.Close()

	p := tea.NewProgram(model)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
