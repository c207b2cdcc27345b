package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/myflix/internal/auth"
	"github.com/desertthunder/myflix/internal/favorites"
	"github.com/desertthunder/myflix/internal/formatter"
	"github.com/desertthunder/myflix/internal/models"
	"github.com/desertthunder/myflix/internal/session"
	"github.com/desertthunder/myflix/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoginView ViewState = iota
	MovieListView
	MovieDetailView
	ProfileView
)

// Accounts signs users in and out. [account.Service] implements it.
type Accounts interface {
	Login(ctx context.Context, username, password string) (*models.User, error)
	Logout() error
}

// Catalog lists movies for the active session. [catalog.Browser] implements it.
type Catalog interface {
	Movies(ctx context.Context) ([]models.Movie, error)
}

// Favorites changes and reports favorite state. [favorites.Reconciler] implements it.
type Favorites interface {
	Toggle(ctx context.Context, movie models.Movie, draftComment string) (favorites.Status, error)
	Status(movieID any) favorites.Status
	InFlight(movieID any) bool
}

// Session is the read side of the session store.
type Session interface {
	Snapshot() session.Snapshot
	Subscribe(fn session.Listener) func()
}

// LoginNotifier announces that the session ended. [auth.Gate] implements it.
type LoginNotifier interface {
	OnLoginRequired(fn auth.LoginRequiredFunc) func()
}

// Deps are the services the TUI drives.
type Deps struct {
	Accounts  Accounts
	Catalog   Catalog
	Favorites Favorites
	Session   Session
	Gate      LoginNotifier
	Clipboard func(text string) error // default: clipboard.WriteAll
	Open      func(url string) error  // default: shared.OpenBrowser
}

// Model represents the TUI application state.
type Model struct {
	ctx  context.Context
	deps Deps
	view ViewState

	width  int
	height int

	username textinput.Model
	password textinput.Model
	comment  textinput.Model

	movieList list.Model
	movies    []models.Movie
	selected  *models.Movie

	notice    string
	noticeErr bool

	events      chan Msg
	unsubscribe []func()

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
//
// Call [Model.Close] after the program exits to detach from the session and gate.
func NewModel(ctx context.Context, deps Deps) *Model {
	if deps.Clipboard == nil {
		deps.Clipboard = clipboard.WriteAll
	}
	if deps.Open == nil {
		deps.Open = shared.OpenBrowser
	}

	username := textinput.New()
	username.Placeholder = "username"
	username.Prompt = "Username: "

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = "Password: "
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	comment := textinput.New()
	comment.Placeholder = "why you love it (optional)"
	comment.Prompt = "Comment: "
	comment.CharLimit = 280

	movieList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	movieList.Title = "Movies"

	m := &Model{
		ctx:       ctx,
		deps:      deps,
		view:      LoginView,
		username:  username,
		password:  password,
		comment:   comment,
		movieList: movieList,
		events:    make(chan Msg, 16),
		help:      help.New(),
		keys:      newKeyMap(),
	}

	m.unsubscribe = append(m.unsubscribe,
		deps.Gate.OnLoginRequired(func(reason auth.Reason) { m.emit(loginRequiredMsg(reason)) }),
		deps.Session.Subscribe(func(session.Snapshot) { m.emit(sessionChangedMsg()) }),
	)
	return m
}

// emit queues an event for the program without blocking the sender.
func (m *Model) emit(msg Msg) {
	select {
	case m.events <- msg:
	default:
	}
}

// Close detaches the model from the session and gate.
func (m *Model) Close() {
	for _, fn := range m.unsubscribe {
		fn()
	}
	m.unsubscribe = nil
}

// ViewState returns the active view.
func (m *Model) ViewState() ViewState {
	return m.view
}

// Init starts listening for session events and, with a restored session, fetches the catalog.
func (m *Model) Init() tea.Cmd {
	if m.deps.Session.Snapshot().Authenticated() {
		m.view = MovieListView
		return tea.Batch(m.waitForEvent(), m.fetchMovies())
	}
	m.view = LoginView
	return tea.Batch(m.waitForEvent(), m.username.Focus())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.movieList.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case LoginView:
			return m.handleLoginKeys(msg)
		case MovieListView:
			return m.handleMovieListKeys(msg)
		case MovieDetailView:
			return m.handleDetailKeys(msg)
		case ProfileView:
			return m.handleProfileKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	if m.view == MovieListView {
		var cmd tea.Cmd
		m.movieList, cmd = m.movieList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgLoggedIn:
		res := msg.data.(loginResult)
		if res.err != nil {
			m.setNotice(loginFailure(res.err), true)
			return m, nil
		}
		m.password.SetValue("")
		m.password.Blur()
		m.username.Blur()
		m.view = MovieListView
		m.setNotice(fmt.Sprintf("Welcome, %s", res.user.Username), false)
		return m, m.fetchMovies()

	case MsgMoviesFetched:
		res := msg.data.(moviesResult)
		if res.err != nil {
			if !sessionGone(res.err) {
				m.setNotice(fmt.Sprintf("Could not load movies: %v", res.err), true)
			}
			return m, nil
		}
		m.setMovies(res.movies)
		return m, nil

	case MsgFavoriteToggled:
		res := msg.data.(toggleResult)
		switch {
		case res.err == nil && res.status.IsFavorite:
			m.setNotice("Added to favorites", false)
		case res.err == nil:
			m.setNotice("Removed from favorites", false)
		case errors.Is(res.err, shared.ErrToggleInProgress):
			m.setNotice("Still saving the previous change", true)
		case sessionGone(res.err):
		default:
			m.setNotice(fmt.Sprintf("Could not update favorites: %v", res.err), true)
		}
		if res.err == nil && m.selected != nil && m.selected.ID.String() == res.movieID {
			m.comment.SetValue(res.status.Comment)
		}
		return m, nil

	case MsgLoginRequired:
		reason := msg.data.(auth.Reason)
		m.toLogin()
		switch reason {
		case auth.ReasonSessionExpired:
			m.setNotice("Your session expired, please log in again", true)
		case auth.ReasonAccountDeleted:
			m.setNotice("Account deleted", false)
		default:
			m.setNotice("Logged out", false)
		}
		return m, tea.Batch(m.waitForEvent(), m.username.Focus())

	case MsgSessionChanged:
		if m.view != LoginView && !m.deps.Session.Snapshot().Authenticated() {
			m.toLogin()
			return m, tea.Batch(m.waitForEvent(), m.username.Focus())
		}
		return m, m.waitForEvent()

	case MsgNotice:
		n := msg.data.(struct {
			text string
			err  error
		})
		m.setNotice(n.text, n.err != nil)
		return m, nil
	}
	return m, nil
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab", "shift+tab", "up", "down":
		if m.username.Focused() {
			m.username.Blur()
			return m, m.password.Focus()
		}
		m.password.Blur()
		return m, m.username.Focus()
	case "enter":
		if m.username.Focused() && m.password.Value() == "" {
			m.username.Blur()
			return m, m.password.Focus()
		}
		m.setNotice("Logging in...", false)
		return m, m.login(m.username.Value(), m.password.Value())
	}

	var cmd tea.Cmd
	if m.username.Focused() {
		m.username, cmd = m.username.Update(msg)
	} else {
		m.password, cmd = m.password.Update(msg)
	}
	return m, cmd
}

func (m *Model) handleMovieListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.movieList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.movieList, cmd = m.movieList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.movieList.SelectedItem().(movieItem); ok {
			movie := item.movie
			m.selected = &movie
			m.comment.SetValue(m.deps.Favorites.Status(movie.ID).Comment)
			m.comment.Blur()
			m.view = MovieDetailView
		}
		return m, nil
	case key.Matches(msg, m.keys.profile):
		m.view = ProfileView
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.fetchMovies()
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	}

	var cmd tea.Cmd
	m.movieList, cmd = m.movieList.Update(msg)
	return m, cmd
}

func (m *Model) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.comment.Focused() {
		switch msg.String() {
		case "enter", "esc":
			m.comment.Blur()
			return m, nil
		case "ctrl+c":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.comment, cmd = m.comment.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = MovieListView
		m.selected = nil
		return m, nil
	case key.Matches(msg, m.keys.comment):
		return m, m.comment.Focus()
	case key.Matches(msg, m.keys.favorite):
		return m, m.toggle(*m.selected, m.comment.Value())
	case key.Matches(msg, m.keys.copy):
		return m, m.copyImageURL(m.selected.ImageURL)
	case key.Matches(msg, m.keys.open):
		return m, m.openImage(m.selected.ImageURL)
	case key.Matches(msg, m.keys.profile):
		m.view = ProfileView
		return m, nil
	}
	return m, nil
}

func (m *Model) handleProfileKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = MovieListView
		return m, nil
	case key.Matches(msg, m.keys.logout):
		return m, m.logout()
	}
	return m, nil
}

func (m *Model) toLogin() {
	m.view = LoginView
	m.selected = nil
	m.movies = nil
	m.movieList.SetItems(nil)
	m.password.SetValue("")
	m.password.Blur()
	m.comment.SetValue("")
	m.comment.Blur()
}

func (m *Model) setNotice(text string, isErr bool) {
	m.notice = text
	m.noticeErr = isErr
}

func (m *Model) setMovies(movies []models.Movie) {
	m.movies = movies
	items := make([]list.Item, len(movies))
	for i, mv := range movies {
		items[i] = movieItem{movie: mv, status: m.deps.Favorites.Status}
	}
	m.movieList.SetItems(items)
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-m.events:
			return msg
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) login(username, password string) tea.Cmd {
	return func() tea.Msg {
		user, err := m.deps.Accounts.Login(m.ctx, username, password)
		return loggedInMsg(user, err)
	}
}

func (m *Model) logout() tea.Cmd {
	return func() tea.Msg {
		if err := m.deps.Accounts.Logout(); err != nil {
			return noticeMsg(fmt.Sprintf("Logout did not clear stored credentials: %v", err), err)
		}
		return nil
	}
}

func (m *Model) fetchMovies() tea.Cmd {
	return func() tea.Msg {
		movies, err := m.deps.Catalog.Movies(m.ctx)
		return moviesFetchedMsg(movies, err)
	}
}

func (m *Model) toggle(movie models.Movie, draft string) tea.Cmd {
	return func() tea.Msg {
		status, err := m.deps.Favorites.Toggle(m.ctx, movie, draft)
		return favoriteToggledMsg(movie.ID.String(), status, err)
	}
}

func (m *Model) copyImageURL(url string) tea.Cmd {
	return func() tea.Msg {
		if url == "" {
			return noticeMsg("This movie has no image", shared.ErrNotFound)
		}
		if err := m.deps.Clipboard(url); err != nil {
			return noticeMsg(fmt.Sprintf("Could not copy: %v", err), err)
		}
		return noticeMsg("Image URL copied to clipboard", nil)
	}
}

func (m *Model) openImage(url string) tea.Cmd {
	return func() tea.Msg {
		if err := m.deps.Open(url); err != nil {
			return noticeMsg(fmt.Sprintf("Could not open image: %v", err), err)
		}
		return nil
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.view {
	case LoginView:
		body = m.renderLogin()
	case MovieListView:
		body = m.renderMovieList()
	case MovieDetailView:
		body = m.renderDetail()
	case ProfileView:
		body = m.renderProfile()
	}

	if m.notice == "" {
		return body
	}
	if m.noticeErr {
		return body + "\n" + styles.err.Render(m.notice)
	}
	return body + "\n" + styles.ok.Render(m.notice)
}

func (m *Model) renderLogin() string {
	title := styles.title.Render("myflix")
	form := styles.box.Render(m.username.View() + "\n" + m.password.View())

	submit := key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "log in"))
	quit := key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit"))
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.next, submit, quit})

	return fmt.Sprintf("%s\n%s\n\n%s\n", title, form, helpView)
}

func (m *Model) renderMovieList() string {
	helpKeys := []key.Binding{m.keys.enter, m.keys.profile, m.keys.refresh, m.keys.logout, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s\n", m.movieList.View(), helpView)
}

func (m *Model) renderDetail() string {
	if m.selected == nil {
		return ""
	}
	status := m.deps.Favorites.Status(m.selected.ID)

	var b strings.Builder
	b.WriteString(styles.title.Render(m.selected.Title))
	b.WriteString("\n")
	detail := formatter.MovieDetail(*m.selected, status.IsFavorite, status.Comment)
	if _, rest, ok := strings.Cut(detail, "\n"); ok {
		detail = rest
	}
	b.WriteString(detail)
	b.WriteString("\n")
	b.WriteString(m.comment.View())
	b.WriteString("\n")
	if m.deps.Favorites.InFlight(m.selected.ID) {
		b.WriteString(styles.warn.Render("Saving..."))
		b.WriteString("\n")
	}

	helpKeys := []key.Binding{m.keys.favorite, m.keys.comment, m.keys.copy, m.keys.open, m.keys.back, m.keys.quit}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(helpKeys))
	b.WriteString("\n")
	return b.String()
}

func (m *Model) renderProfile() string {
	snap := m.deps.Session.Snapshot()

	var b strings.Builder
	b.WriteString(styles.title.Render("Profile"))
	b.WriteString("\n")
	b.WriteString(formatter.Profile(snap.User))

	favs := favorites.FavoriteMovies(snap.User, m.movies)
	b.WriteString("\n")
	if len(favs) == 0 {
		b.WriteString(styles.help.Render("No favorite movies yet"))
		b.WriteString("\n")
	}
	for i, fm := range favs {
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, fm.Movie.Title, styles.star.Render(formatter.FavoriteMark))
		if fm.Comment != "" {
			fmt.Fprintf(&b, "   %s\n", styles.help.Render(fm.Comment))
		}
	}

	helpKeys := []key.Binding{m.keys.back, m.keys.logout, m.keys.quit}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(helpKeys))
	b.WriteString("\n")
	return b.String()
}

// sessionGone reports errors that the gate already turned into a login prompt.
func sessionGone(err error) bool {
	return errors.Is(err, shared.ErrSessionEnded) || errors.Is(err, shared.ErrUnauthenticated)
}

func loginFailure(err error) string {
	switch {
	case errors.Is(err, shared.ErrInvalidCredentials):
		return "Incorrect username or password"
	case errors.Is(err, shared.ErrMissingArgument):
		return "Enter a username and password"
	default:
		return fmt.Sprintf("Login failed: %v", err)
	}
}
