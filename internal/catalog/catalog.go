// Package catalog reads the movie catalog for the signed-in user.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/desertthunder/myflix/internal/favorites"
	"github.com/desertthunder/myflix/internal/models"
	"github.com/desertthunder/myflix/internal/shared"
)

// API is the subset of the catalog API the browser reads.
type API interface {
	ListMovies(ctx context.Context, token string) ([]models.Movie, error)
	GetMovie(ctx context.Context, token, movieID string) (*models.Movie, error)
}

// Browser fetches catalog data on behalf of the active session.
type Browser struct {
	api   API
	guard favorites.Guard
}

// NewBrowser creates a browser.
func NewBrowser(api API, guard favorites.Guard) *Browser {
	return &Browser{api: api, guard: guard}
}

// Movies returns the full catalog.
func (b *Browser) Movies(ctx context.Context) ([]models.Movie, error) {
	snap, err := b.guard.Require("movies")
	if err != nil {
		return nil, err
	}

	movies, err := b.api.ListMovies(ctx, snap.Token)
	if err != nil {
		return nil, sessionErr("list movies", err)
	}
	return movies, nil
}

// Movie returns one catalog entry.
func (b *Browser) Movie(ctx context.Context, movieID string) (*models.Movie, error) {
	snap, err := b.guard.Require("movie")
	if err != nil {
		return nil, err
	}

	id := models.CanonicalID(movieID)
	if id == "" {
		return nil, fmt.Errorf("%w: movie id is required", shared.ErrMissingArgument)
	}

	movie, err := b.api.GetMovie(ctx, snap.Token, id)
	if err != nil {
		return nil, sessionErr("get movie "+id, err)
	}
	return movie, nil
}

// Favorites returns the signed-in user's favorite movies with their comments.
func (b *Browser) Favorites(ctx context.Context) ([]models.FavoriteMovie, error) {
	snap, err := b.guard.Require("favorites")
	if err != nil {
		return nil, err
	}

	movies, err := b.api.ListMovies(ctx, snap.Token)
	if err != nil {
		return nil, sessionErr("list favorites", err)
	}
	return favorites.FavoriteMovies(snap.User, movies), nil
}

// Filter returns the movies whose title, genre or director contains query, case-insensitively.
func Filter(movies []models.Movie, query string) []models.Movie {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return movies
	}

	var out []models.Movie
	for _, m := range movies {
		for _, field := range []string{m.Title, m.Genre.Name, m.Director.Name} {
			if strings.Contains(strings.ToLower(field), query) {
				out = append(out, m)
				break
			}
		}
	}
	return out
}

// SortByTitle sorts movies by title in place.
func SortByTitle(movies []models.Movie) {
	sort.SliceStable(movies, func(i, j int) bool {
		return strings.ToLower(movies[i].Title) < strings.ToLower(movies[j].Title)
	})
}

// sessionErr reports an authorization failure as the end of the session.
func sessionErr(op string, err error) error {
	if errors.Is(err, shared.ErrAuthorization) {
		return fmt.Errorf("%s: %w", op, shared.ErrSessionEnded)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}
