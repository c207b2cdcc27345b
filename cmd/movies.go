package main

import (
	"context"
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/myflix/internal/catalog"
	"github.com/desertthunder/myflix/internal/formatter"
	"github.com/desertthunder/myflix/internal/models"
	"github.com/desertthunder/myflix/internal/shared"
)

// MoviesList prints the catalog sorted by title, marking the signed in user's favorites.
func (r *Runner) MoviesList(ctx context.Context, cmd *cli.Command) error {
	if err := r.client(); err != nil {
		return err
	}

	movies, err := r.browser.Movies(ctx)
	if err != nil {
		return fmt.Errorf("failed to list movies: %w", err)
	}

	movies = catalog.Filter(movies, cmd.String("filter"))
	catalog.SortByTitle(movies)

	if cmd.Bool("json") {
		return r.writeJSON(movies, cmd.Bool("pretty"))
	}

	if len(movies) == 0 {
		return r.writePlain("No movies found\n")
	}

	var favs models.Favorites
	if user := r.accounts.Current().User; user != nil {
		favs = user.FavoriteMovies
	}

	r.writePlainHeader(fmt.Sprintf("Movies (%d)", len(movies)))
	r.writePlain("%s\n", formatter.MovieTable(movies, favs))
	return nil
}

// MoviesShow prints one movie with the user's favorite status and comment.
func (r *Runner) MoviesShow(ctx context.Context, cmd *cli.Command) error {
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

	if cmd.Bool("copy") {
		if err := clipboard.WriteAll(movie.ID.String()); err != nil {
			r.logger.Warn("failed to copy movie id", "error", err)
		} else {
			r.logger.Info("copied movie id to clipboard", "id", movie.ID.String())
		}
	}

	if cmd.Bool("open") {
		if err := shared.OpenBrowser(movie.ImageURL); err != nil {
			r.logger.Warn("failed to open poster", "url", movie.ImageURL, "error", err)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(movie, true)
	}

	status := r.favs.Status(*movie)
	return r.writePlain("%s", formatter.MovieDetail(*movie, status.IsFavorite, status.Comment))
}
