package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/myflix/internal/auth"
	"github.com/desertthunder/myflix/internal/favorites"
	"github.com/desertthunder/myflix/internal/models"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgLoggedIn MsgKind = iota
	MsgMoviesFetched
	MsgFavoriteToggled
	MsgLoginRequired
	MsgSessionChanged
	MsgNotice
)

type loginResult struct {
	user *models.User
	err  error
}

type moviesResult struct {
	movies []models.Movie
	err    error
}

type toggleResult struct {
	movieID string
	status  favorites.Status
	err     error
}

// loggedInMsg is the constructor for [MsgLoggedIn]
func loggedInMsg(user *models.User, err error) Msg {
	return Msg{kind: MsgLoggedIn, data: loginResult{user, err}}
}

// moviesFetchedMsg is the constructor for [MsgMoviesFetched]
func moviesFetchedMsg(movies []models.Movie, err error) Msg {
	return Msg{kind: MsgMoviesFetched, data: moviesResult{movies, err}}
}

// favoriteToggledMsg is the constructor for [MsgFavoriteToggled]
func favoriteToggledMsg(movieID string, status favorites.Status, err error) Msg {
	return Msg{kind: MsgFavoriteToggled, data: toggleResult{movieID, status, err}}
}

// loginRequiredMsg is the constructor for [MsgLoginRequired]
func loginRequiredMsg(reason auth.Reason) Msg {
	return Msg{kind: MsgLoginRequired, data: reason}
}

// sessionChangedMsg is the constructor for [MsgSessionChanged]
func sessionChangedMsg() Msg {
	return Msg{kind: MsgSessionChanged}
}

// noticeMsg is the constructor for [MsgNotice]; err marks the notice as a failure.
func noticeMsg(text string, err error) Msg {
	return Msg{kind: MsgNotice, data: struct {
		text string
		err  error
	}{text, err}}
}
