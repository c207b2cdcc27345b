package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/myflix/internal/favorites"
	"github.com/desertthunder/myflix/internal/formatter"
	"github.com/desertthunder/myflix/internal/shared"
	"github.com/desertthunder/myflix/internal/tasks"
)

// FavoritesList prints the signed in user's favorite movies with their comments.
func (r *Runner) FavoritesList(ctx context.Context, cmd *cli.Command) error {
	if err := r.client(); err != nil {
		return err
	}

	movies, err := r.browser.Favorites(ctx)
	if err != nil {
		return fmt.Errorf("failed to list favorites: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(movies, true)
	}

	if len(movies) == 0 {
		return r.writePlain("No favorites yet\n")
	}

	r.writePlainHeader(fmt.Sprintf("Favorites (%d)", len(movies)))
	for i, fm := range movies {
		r.writePlain("%d. %s %s\n", i+1, formatter.FavoriteMark, fm.Movie.Title)
		r.writePlain("   ID: %s\n", fm.Movie.ID)
		if fm.Comment != "" {
			r.writePlain("   Comment: %s\n", fm.Comment)
		}
	}
	return nil
}

// FavoritesToggle adds a movie to the favorites, or removes it if it is already one.
func (r *Runner) FavoritesToggle(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: movie id", shared.ErrMissingArgument)
	}

	if err := r.client(); err != nil {
		return err
	}

	movie, err := r.browser.Movie(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get movie: %w", err)
	}

	status, err := r.favs.Toggle(ctx, *movie, cmd.String("comment"))
	if err != nil {
		return fmt.Errorf("failed to toggle favorite: %w", err)
	}
	return r.writeStatus(movie.Title, status)
}

// FavoritesAdd adds a movie to the favorites. An existing favorite keeps its comment.
func (r *Runner) FavoritesAdd(ctx context.Context, cmd *cli.Command) error {
	return r.applyIntent(ctx, cmd, favorites.IntentAdd)
}

// FavoritesRemove removes a movie from the favorites.
func (r *Runner) FavoritesRemove(ctx context.Context, cmd *cli.Command) error {
	return r.applyIntent(ctx, cmd, favorites.IntentRemove)
}

func (r *Runner) applyIntent(ctx context.Context, cmd *cli.Command, intent favorites.Intent) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: movie id", shared.ErrMissingArgument)
	}

	if err := r.client(); err != nil {
		return err
	}

	status, err := r.favs.Apply(ctx, intent, id, cmd.String("comment"))
	if err != nil {
		return fmt.Errorf("failed to %s favorite: %w", intent, err)
	}
	return r.writeStatus(id, status)
}

func (r *Runner) writeStatus(label string, status favorites.Status) error {
	if !status.IsFavorite {
		return r.writePlain("✓ %s is not in your favorites\n", label)
	}
	if status.Comment != "" {
		return r.writePlain("✓ %s %s is in your favorites (%s)\n", formatter.FavoriteMark, label, status.Comment)
	}
	return r.writePlain("✓ %s %s is in your favorites\n", formatter.FavoriteMark, label)
}

// FavoritesImport applies the rows of a CSV file with a worker pool, printing progress as rows finish.
func (r *Runner) FavoritesImport(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: CSV path", shared.ErrMissingArgument)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := tasks.ReadFavoriteRows(f)
	if err != nil {
		return err
	}

	if err := r.client(); err != nil {
		return err
	}
	if _, err := r.gate.Require("favorites import"); err != nil {
		return err
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	done := make(chan struct{})
	quiet := cmd.Bool("json")
	go func() {
		defer close(done)
		for update := range progress {
			r.logger.Debug("progress", "phase", update.Phase, "step", update.Step, "total", update.Total)
			if !quiet && update.Phase == tasks.ApplyFavorites {
				r.writePlain("%s\n", update.Message)
			}
		}
	}()

	opts := tasks.BulkFavoritesOpts{NumWorkers: int(cmd.Int("workers")), RateLimit: cmd.Float("rate")}
	result, runErr := tasks.BulkFavorites(ctx, progress, r.favs, rows, opts)
	close(progress)
	<-done

	if result != nil {
		if quiet {
			if err := r.writeJSON(importSummary(result), true); err != nil {
				return err
			}
		} else {
			r.writePlainln("Applied %d, failed %d, skipped %d of %d", result.Applied, result.Failed, result.Skipped, result.Total)
		}
	}

	if runErr != nil {
		return fmt.Errorf("favorites import stopped: %w", runErr)
	}
	if result != nil && result.Failed > 0 {
		return fmt.Errorf("%w: %d of %d rows failed", shared.ErrReconcileFailed, result.Failed, result.Total)
	}
	return nil
}

type importRow struct {
	Line       int    `json:"line"`
	MovieID    string `json:"movie_id"`
	Intent     string `json:"intent"`
	IsFavorite bool   `json:"is_favorite"`
	Error      string `json:"error,omitempty"`
}

type importResult struct {
	Total   int         `json:"total"`
	Applied int         `json:"applied"`
	Failed  int         `json:"failed"`
	Skipped int         `json:"skipped"`
	Rows    []importRow `json:"rows"`
}

func importSummary(result *tasks.BulkFavoritesResult) importResult {
	out := importResult{
		Total:   result.Total,
		Applied: result.Applied,
		Failed:  result.Failed,
		Skipped: result.Skipped,
		Rows:    make([]importRow, 0, len(result.Results)),
	}
	for _, res := range result.Results {
		row := importRow{
			Line:       res.Row.Line,
			MovieID:    res.Row.MovieID,
			Intent:     res.Row.Intent.String(),
			IsFavorite: res.Status.IsFavorite,
		}
		if res.Error != nil {
			row.Error = res.Error.Error()
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// FavoritesExport writes the favorites to a CSV, Markdown or text file.
//
// The CSV export can be fed back into favorites import.
func (r *Runner) FavoritesExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	if err := r.client(); err != nil {
		return err
	}

	movies, err := r.browser.Favorites(ctx)
	if err != nil {
		return fmt.Errorf("failed to list favorites: %w", err)
	}

	path, err := formatter.WriteFavoritesExport(r.accounts.Current().User, movies, format, cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("favorites exported", "path", path, "count", len(movies))
	return r.writePlain("✓ Exported %d favorites to %s\n", len(movies), path)
}
