package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"

	"github.com/desertthunder/myflix/internal/favorites"
	"github.com/desertthunder/myflix/internal/formatter"
	"github.com/desertthunder/myflix/internal/models"
)

var (
	_ list.Item = movieItem{}
)

// movieItem wraps [models.Movie] to implement [list.Item].
//
// status is looked up when the item is rendered so the star follows the session.
type movieItem struct {
	movie  models.Movie
	status func(movieID any) favorites.Status
}

func (i movieItem) FilterValue() string { return i.movie.Title }
func (i movieItem) Title() string {
	if i.status != nil && i.status(i.movie.ID).IsFavorite {
		return i.movie.Title + " " + styles.star.Render(formatter.FavoriteMark)
	}
	return i.movie.Title
}
func (i movieItem) Description() string {
	parts := []string{}
	if i.movie.Director.Name != "" {
		parts = append(parts, i.movie.Director.Name)
	}
	if i.movie.Genre.Name != "" {
		parts = append(parts, i.movie.Genre.Name)
	}
	if i.movie.Rating != "" {
		parts = append(parts, string(i.movie.Rating))
	}
	return strings.Join(parts, " • ")
}
