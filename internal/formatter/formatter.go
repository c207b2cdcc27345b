// package formatter renders movies, profiles and favorites for the terminal and exports favorites to files
// (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/desertthunder/myflix/internal/models"
	"github.com/desertthunder/myflix/internal/shared"
)

// FavoriteMark is shown next to movies the user has favorited.
const FavoriteMark = "★"

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Format is an export file format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
)

// ParseFormat accepts csv, markdown (or md) and text (or txt).
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidInput, s)
	}
}

func (f Format) extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatText:
		return "txt"
	default:
		return "csv"
	}
}

// MovieTable renders movies as a bordered table, marking the ones present in favs.
func MovieTable(movies []models.Movie, favs models.Favorites) string {
	rows := make([][]string, 0, len(movies))
	for i, m := range movies {
		mark := ""
		if favs.Contains(m.ID) {
			mark = FavoriteMark
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			m.ID.String(),
			m.Title,
			m.Director.Name,
			m.Genre.Name,
			string(m.Rating),
			mark,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("#", "ID", "TITLE", "DIRECTOR", "GENRE", "RATING", "FAV").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.Render()
}

// MovieDetail renders a single movie with the user's favorite state and comment.
func MovieDetail(movie models.Movie, isFavorite bool, comment string) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "%s\n", movie.Title)
	fmt.Fprintf(&buf, "ID: %s\n", movie.ID)
	if movie.Director.Name != "" {
		fmt.Fprintf(&buf, "Director: %s", movie.Director.Name)
		if movie.Director.BirthYear > 0 {
			fmt.Fprintf(&buf, " (b. %d)", movie.Director.BirthYear)
		}
		buf.WriteString("\n")
	}
	if movie.Genre.Name != "" {
		fmt.Fprintf(&buf, "Genre: %s\n", movie.Genre.Name)
	}
	if movie.Rating != "" {
		fmt.Fprintf(&buf, "Rating: %s\n", movie.Rating)
	}
	if movie.ImageURL != "" {
		fmt.Fprintf(&buf, "Image: %s\n", movie.ImageURL)
	}
	if movie.Description != "" {
		fmt.Fprintf(&buf, "\n%s\n", movie.Description)
	}

	buf.WriteString("\n")
	if isFavorite {
		fmt.Fprintf(&buf, "%s In your favorites\n", FavoriteMark)
		if comment != "" {
			fmt.Fprintf(&buf, "Your comment: %s\n", comment)
		}
	} else {
		buf.WriteString("Not in your favorites\n")
	}
	return buf.String()
}

// Profile renders the user's account details.
func Profile(user *models.User) string {
	if user == nil {
		return "Not logged in\n"
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Username: %s\n", user.Username)
	fmt.Fprintf(&buf, "Email: %s\n", user.Email)
	if day := user.BirthDate(); day != "" {
		fmt.Fprintf(&buf, "Birthday: %s\n", day)
	}
	fmt.Fprintf(&buf, "Favorites: %d\n", len(user.FavoriteMovies))
	return buf.String()
}

// ExportFavoritesToCSV writes favorites with the columns movie_id, comment, intent.
//
// The output can be fed back to the favorites import.
func ExportFavoritesToCSV(favs models.Favorites) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"movie_id", "comment", "intent"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, entry := range favs {
		if err := writer.Write([]string{entry.MovieID.String(), entry.Comment, "add"}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportFavoritesToMarkdown renders the user's favorite movies as a Markdown document.
func ExportFavoritesToMarkdown(user *models.User, movies []models.FavoriteMovie) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s's favorites\n\n", user.Username)
	fmt.Fprintf(&buf, "**Movies**: %d\n\n", len(movies))

	for i, fm := range movies {
		details := []string{}
		if fm.Movie.Director.Name != "" {
			details = append(details, fm.Movie.Director.Name)
		}
		if fm.Movie.Genre.Name != "" {
			details = append(details, fm.Movie.Genre.Name)
		}

		line := fmt.Sprintf("%d. **%s**", i+1, fm.Movie.Title)
		if len(details) > 0 {
			line += fmt.Sprintf(" (%s)", strings.Join(details, ", "))
		}
		buf.WriteString(line + "\n")
		if fm.Comment != "" {
			fmt.Fprintf(&buf, "   > %s\n", fm.Comment)
		}
	}
	return buf.Bytes(), nil
}

// ExportFavoritesToText renders the user's favorite movies as plain text.
func ExportFavoritesToText(user *models.User, movies []models.FavoriteMovie) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Favorites of %s\n", user.Username)
	fmt.Fprintf(&buf, "Movies: %d\n\n", len(movies))

	for i, fm := range movies {
		fmt.Fprintf(&buf, "%d. %s", i+1, fm.Movie.Title)
		if fm.Comment != "" {
			fmt.Fprintf(&buf, ": %s", fm.Comment)
		}
		buf.WriteString("\n")
	}
	return buf.Bytes(), nil
}

// WriteFavoritesExport writes the user's favorites to path in the given format.
//
// Defaults to {username}_favorites.{ext} as the filename.
func WriteFavoritesExport(user *models.User, movies []models.FavoriteMovie, format Format, path string) (string, error) {
	if user == nil {
		return "", fmt.Errorf("%w: no user to export", shared.ErrInvalidInput)
	}
	if path == "" {
		path = fmt.Sprintf("%s_favorites.%s", user.Username, format.extension())
	}

	var data []byte
	var err error
	switch format {
	case FormatMarkdown:
		data, err = ExportFavoritesToMarkdown(user, movies)
	case FormatText:
		data, err = ExportFavoritesToText(user, movies)
	default:
		data, err = ExportFavoritesToCSV(user.FavoriteMovies)
	}
	if err != nil {
		return "", fmt.Errorf("failed to generate %s export: %w", format, err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}
	return path, nil
}
