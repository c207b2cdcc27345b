package server

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/desertthunder/myflix/internal/models"
	"github.com/desertthunder/myflix/internal/services"
	"github.com/desertthunder/myflix/internal/shared"
)

// ValidationError lists every rejected field of a request.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Unwrap() error {
	return shared.ErrValidation
}

type account struct {
	user models.User
	hash []byte
}

type session struct {
	username string
	expires  time.Time
}

// Store is the in-memory state of the development catalog.
type Store struct {
	mu       sync.RWMutex
	accounts map[string]*account
	tokens   map[string]session
	movies   []models.Movie
	cost     int
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a store serving movies. A zero ttl means tokens never expire.
func NewStore(movies []models.Movie, cost int, ttl time.Duration) *Store {
	return &Store{
		accounts: make(map[string]*account),
		tokens:   make(map[string]session),
		movies:   append([]models.Movie(nil), movies...),
		cost:     cost,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Register creates an account.
func (s *Store) Register(req services.RegisterRequest) (*models.User, error) {
	var problems []string
	if len(strings.TrimSpace(req.Username)) < 5 {
		problems = append(problems, "Username must be at least 5 characters long")
	}
	if req.Password == "" {
		problems = append(problems, "Password is required")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		problems = append(problems, "Email does not appear to be valid")
	}
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[req.Username]; exists {
		return nil, fmt.Errorf("%w: %s already exists", shared.ErrConflict, req.Username)
	}

	acc := &account{
		user: models.User{
			ID:             models.ObjectID(newObjectID()),
			Username:       req.Username,
			Email:          req.Email,
			Birthday:       req.Birthday,
			FavoriteMovies: models.Favorites{},
		},
		hash: hash,
	}
	s.accounts[req.Username] = acc
	return acc.user.Clone(), nil
}

// Login checks credentials and issues a new bearer token.
func (s *Store) Login(username, password string) (*models.User, string, error) {
	s.mu.RLock()
	acc, ok := s.accounts[username]
	s.mu.RUnlock()
	if !ok {
		return nil, "", shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(acc.hash, []byte(password)); err != nil {
		return nil, "", shared.ErrInvalidCredentials
	}

	token := shared.GenerateID()
	sess := session{username: username}
	if s.ttl > 0 {
		sess.expires = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok = s.accounts[username]
	if !ok {
		return nil, "", shared.ErrInvalidCredentials
	}
	s.tokens[token] = sess
	return acc.user.Clone(), token, nil
}

// Authenticate returns the owner of a live token.
func (s *Store) Authenticate(token string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.tokens[token]
	if !ok {
		return "", shared.ErrAuthorization
	}
	if !sess.expires.IsZero() && !s.now().Before(sess.expires) {
		return "", fmt.Errorf("%w: token expired", shared.ErrAuthorization)
	}
	if _, ok := s.accounts[sess.username]; !ok {
		return "", shared.ErrAuthorization
	}
	return sess.username, nil
}

// Revoke invalidates every token of username, as if the sessions had expired.
func (s *Store) Revoke(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, sess := range s.tokens {
		if sess.username == username {
			delete(s.tokens, token)
		}
	}
}

// Movies returns the catalog.
func (s *Store) Movies() []models.Movie {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Movie(nil), s.movies...)
}

// Movie returns one catalog entry.
func (s *Store) Movie(id string) (*models.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.movie(id)
}

func (s *Store) movie(id string) (*models.Movie, error) {
	canonical := models.CanonicalID(id)
	for _, m := range s.movies {
		if m.ID.String() == canonical {
			movie := m
			return &movie, nil
		}
	}
	return nil, fmt.Errorf("%w: movie %s", shared.ErrNotFound, id)
}

// User returns the account record of username.
func (s *Store) User(username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[username]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, username)
	}
	return acc.user.Clone(), nil
}

// AddFavorite adds movieID to the favorites of username, or updates its comment when already present.
func (s *Store) AddFavorite(username, movieID, comment string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[username]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, username)
	}
	movie, err := s.movie(movieID)
	if err != nil {
		return nil, err
	}

	favs := acc.user.FavoriteMovies
	for i := range favs {
		if favs[i].MovieID == movie.ID {
			favs[i].Comment = comment
			return acc.user.Clone(), nil
		}
	}
	acc.user.FavoriteMovies = append(favs, models.FavoriteEntry{MovieID: movie.ID, Comment: comment})
	return acc.user.Clone(), nil
}

// RemoveFavorite drops movieID from the favorites of username. Removing a non-favorite is not an error.
func (s *Store) RemoveFavorite(username, movieID string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[username]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, username)
	}

	canonical := models.CanonicalID(movieID)
	kept := models.Favorites{}
	for _, e := range acc.user.FavoriteMovies {
		if e.MovieID.String() != canonical {
			kept = append(kept, e)
		}
	}
	acc.user.FavoriteMovies = kept
	return acc.user.Clone(), nil
}

// UpdateUser replaces the profile of username. Renaming moves live tokens to the new name.
func (s *Store) UpdateUser(username string, update services.ProfileUpdate) (*models.User, error) {
	var problems []string
	if len(strings.TrimSpace(update.Username)) < 5 {
		problems = append(problems, "Username must be at least 5 characters long")
	}
	if _, err := mail.ParseAddress(update.Email); err != nil {
		problems = append(problems, "Email does not appear to be valid")
	}
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	var hash []byte
	if update.Password != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(update.Password), s.cost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		hash = h
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[username]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", shared.ErrNotFound, username)
	}
	if update.Username != username {
		if _, taken := s.accounts[update.Username]; taken {
			return nil, fmt.Errorf("%w: %s already exists", shared.ErrConflict, update.Username)
		}
	}

	acc.user.Username = update.Username
	acc.user.Email = update.Email
	acc.user.Birthday = update.Birthday
	if hash != nil {
		acc.hash = hash
	}

	if update.Username != username {
		delete(s.accounts, username)
		s.accounts[update.Username] = acc
		for token, sess := range s.tokens {
			if sess.username == username {
				sess.username = update.Username
				s.tokens[token] = sess
			}
		}
	}
	return acc.user.Clone(), nil
}

// DeleteUser removes the account of username and revokes its tokens.
func (s *Store) DeleteUser(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[username]; !ok {
		return fmt.Errorf("%w: user %s", shared.ErrNotFound, username)
	}
	delete(s.accounts, username)
	for token, sess := range s.tokens {
		if sess.username == username {
			delete(s.tokens, token)
		}
	}
	return nil
}

// newObjectID returns a 24 character hex id shaped like the hosted service's ids.
func newObjectID() string {
	return strings.ReplaceAll(shared.GenerateID(), "-", "")[:24]
}

// isValidation reports whether err is a field validation failure and returns it.
func isValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	ok := errors.As(err, &verr)
	return verr, ok
}
