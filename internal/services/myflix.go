package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/desertthunder/myflix/internal/models"
)

// LoginResponse is the body of a successful POST /login.
type LoginResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// RegisterRequest is the body of POST /users.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	Birthday string `json:"birthday,omitempty"`
}

// ProfileUpdate is the body of PUT /users/:username. An empty Password leaves it unchanged.
type ProfileUpdate struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Birthday string `json:"birthday"`
	Password string `json:"password,omitempty"`
}

type favoriteBody struct {
	Comment string `json:"comment,omitempty"`
}

// MyFlix is the typed catalog API.
type MyFlix struct {
	gw *Gateway
}

// NewMyFlix wraps gw with the catalog endpoints.
func NewMyFlix(gw *Gateway) *MyFlix {
	return &MyFlix{gw: gw}
}

// Gateway returns the underlying gateway.
func (m *MyFlix) Gateway() *Gateway {
	return m.gw
}

// Login exchanges credentials for a user record and token.
func (m *MyFlix) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	body := map[string]string{"username": username, "password": password}
	return decode[LoginResponse](m.gw.Request(ctx, http.MethodPost, "/login", body, ""))
}

// Register creates an account. It does not sign in.
func (m *MyFlix) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	return decode[models.User](m.gw.Request(ctx, http.MethodPost, "/users", req, ""))
}

// ListMovies returns the whole catalog.
func (m *MyFlix) ListMovies(ctx context.Context, token string) ([]models.Movie, error) {
	movies, err := decode[[]models.Movie](m.gw.Request(ctx, http.MethodGet, "/movies", nil, token))
	if err != nil {
		return nil, err
	}
	return *movies, nil
}

// GetMovie returns one catalog entry.
func (m *MyFlix) GetMovie(ctx context.Context, token, movieID string) (*models.Movie, error) {
	path := "/movies/" + url.PathEscape(movieID)
	return decode[models.Movie](m.gw.Request(ctx, http.MethodGet, path, nil, token))
}

// AddFavorite marks movieID as a favorite of username and returns the updated user.
func (m *MyFlix) AddFavorite(ctx context.Context, token, username, movieID, comment string) (*models.User, error) {
	return decode[models.User](m.gw.Request(ctx, http.MethodPost, favoritePath(username, movieID), favoriteBody{Comment: comment}, token))
}

// RemoveFavorite unmarks movieID and returns the updated user.
func (m *MyFlix) RemoveFavorite(ctx context.Context, token, username, movieID string) (*models.User, error) {
	return decode[models.User](m.gw.Request(ctx, http.MethodDelete, favoritePath(username, movieID), nil, token))
}

// UpdateUser replaces the profile of username and returns the updated user.
func (m *MyFlix) UpdateUser(ctx context.Context, token, username string, update ProfileUpdate) (*models.User, error) {
	return decode[models.User](m.gw.Request(ctx, http.MethodPut, userPath(username), update, token))
}

// DeleteUser deregisters username. The response body is plain text and is ignored.
func (m *MyFlix) DeleteUser(ctx context.Context, token, username string) error {
	return m.gw.Exec(ctx, http.MethodDelete, userPath(username), nil, token)
}

func userPath(username string) string {
	return "/users/" + url.PathEscape(username)
}

func favoritePath(username, movieID string) string {
	return userPath(username) + "/movies/" + url.PathEscape(movieID)
}

// decode unmarshals a gateway result, reporting bad payloads as transport failures.
func decode[T any](raw json.RawMessage, err error) (*T, error) {
	if err != nil {
		return nil, err
	}

	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &GatewayError{Kind: KindTransport, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return &out, nil
}
