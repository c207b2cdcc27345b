// Package favorites keeps the favorite state shown to the user consistent with the server.
//
// Favorite status is never stored separately; [DeriveStatus] computes it from the session's user record
// every time. Changes go to the server first and only the user record returned by the server is applied
// to the session, so what is displayed is always the last confirmed state.
//
// At most one request per (username, movie) may be in flight. A second one fails with
// shared.ErrToggleInProgress instead of queueing, since add and remove reordered by the network would
// leave the wrong final state.
//
// Changes to different movies may run concurrently. Each response is a full user record, and a response
// the server produced early can arrive late; when it is applied, the outcomes of changes that settled
// after it started are laid back over it so no confirmed change is lost.
package favorites

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/myflix/internal/models"
	"github.com/desertthunder/myflix/internal/session"
	"github.com/desertthunder/myflix/internal/shared"
)

// Status of one movie for one user.
type Status struct {
	IsFavorite bool
	Comment    string
}

// DeriveStatus reports whether movieID is among user's favorites and with what comment.
//
// movieID may be a [models.Movie], a string, a [models.ObjectID] or a wrapped id; it is compared
// canonically. A nil user is never favoriting anything.
func DeriveStatus(user *models.User, movieID any) Status {
	if user == nil {
		return Status{}
	}
	if m, ok := movieID.(models.Movie); ok {
		movieID = m.ID
	}
	if m, ok := movieID.(*models.Movie); ok && m != nil {
		movieID = m.ID
	}
	entry, ok := user.FavoriteMovies.Find(movieID)
	if !ok {
		return Status{}
	}
	return Status{IsFavorite: true, Comment: entry.Comment}
}

// FavoriteMovies joins user's favorites with the catalog, in favorite order.
//
// Favorites whose movie is not in movies are skipped.
func FavoriteMovies(user *models.User, movies []models.Movie) []models.FavoriteMovie {
	if user == nil {
		return nil
	}

	byID := make(map[string]models.Movie, len(movies))
	for _, m := range movies {
		byID[models.CanonicalID(m.ID)] = m
	}

	out := make([]models.FavoriteMovie, 0, len(user.FavoriteMovies))
	for _, entry := range user.FavoriteMovies {
		m, ok := byID[models.CanonicalID(entry.MovieID)]
		if !ok {
			continue
		}
		out = append(out, models.FavoriteMovie{Movie: m, Comment: entry.Comment})
	}
	return out
}

// Intent is the change a caller asks for.
type Intent int

const (
	IntentToggle Intent = iota
	IntentAdd
	IntentRemove
)

func (i Intent) String() string {
	switch i {
	case IntentAdd:
		return "add"
	case IntentRemove:
		return "remove"
	default:
		return "toggle"
	}
}

// ParseIntent parses "add", "remove" or "toggle" (the default for "").
func ParseIntent(s string) (Intent, error) {
	switch s {
	case "", "toggle":
		return IntentToggle, nil
	case "add":
		return IntentAdd, nil
	case "remove":
		return IntentRemove, nil
	default:
		return IntentToggle, fmt.Errorf("%w: unknown intent %q", shared.ErrInvalidInput, s)
	}
}

// ReconcileError is a failed favorite change that left the session untouched.
type ReconcileError struct {
	Op      string
	MovieID string
	Err     error
}

func (e *ReconcileError) Error() string {
	return fmt.Sprintf("failed to %s favorite %s: %v", e.Op, e.MovieID, e.Err)
}

func (e *ReconcileError) Unwrap() []error {
	return []error{shared.ErrReconcileFailed, e.Err}
}

// API is the subset of the catalog API the reconciler calls.
type API interface {
	AddFavorite(ctx context.Context, token, username, movieID, comment string) (*models.User, error)
	RemoveFavorite(ctx context.Context, token, username, movieID string) (*models.User, error)
}

// Guard hands out the active session for protected operations.
type Guard interface {
	Require(view string) (session.Snapshot, error)
}

type inflightKey struct {
	username string
	movieID  string
}

// outcome is the confirmed status of one key, numbered in the order responses were applied.
type outcome struct {
	seq    uint64
	status Status
}

// Reconciler applies favorite changes through the API and merges the results into the session.
type Reconciler struct {
	api    API
	guard  Guard
	store  *session.Store
	logger *log.Logger

	commitMu sync.Mutex

	mu       sync.Mutex
	inflight map[inflightKey]struct{}
	seq      uint64
	outcomes map[inflightKey]outcome
}

// NewReconciler creates a reconciler.
func NewReconciler(api API, guard Guard, store *session.Store, logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Reconciler{
		api:      api,
		guard:    guard,
		store:    store,
		logger:   logger,
		inflight: make(map[inflightKey]struct{}),
		outcomes: make(map[inflightKey]outcome),
	}
}

// Status derives the current status of movieID from the session.
func (r *Reconciler) Status(movieID any) Status {
	return DeriveStatus(r.store.Snapshot().User, movieID)
}

// Toggle adds movie with draftComment when it is not a favorite and removes it otherwise.
func (r *Reconciler) Toggle(ctx context.Context, movie models.Movie, draftComment string) (Status, error) {
	return r.Apply(ctx, IntentToggle, movie.ID, draftComment)
}

// Add makes movieID a favorite. It does nothing when it already is one.
func (r *Reconciler) Add(ctx context.Context, movieID any, comment string) (Status, error) {
	return r.Apply(ctx, IntentAdd, movieID, comment)
}

// Remove drops movieID from the favorites. It does nothing when it is not one.
func (r *Reconciler) Remove(ctx context.Context, movieID any) (Status, error) {
	return r.Apply(ctx, IntentRemove, movieID, "")
}

// Apply performs intent for movieID and returns the status derived from the server's answer.
//
// Errors:
//   - shared.ErrUnauthenticated when no session is active
//   - shared.ErrToggleInProgress when a change for the same movie is already running
//   - shared.ErrSessionEnded when the server rejected the credential or the session ended meanwhile
//   - the context error when ctx was cancelled; the late response is discarded
//   - [*ReconcileError] for any other failure
func (r *Reconciler) Apply(ctx context.Context, intent Intent, movieID any, comment string) (Status, error) {
	snap, err := r.guard.Require("favorites")
	if err != nil {
		return Status{}, err
	}

	id := models.CanonicalID(movieID)
	if id == "" {
		return Status{}, fmt.Errorf("%w: movie id is required", shared.ErrInvalidInput)
	}

	key := inflightKey{username: snap.Username(), movieID: id}
	started, ok := r.acquire(key)
	if !ok {
		return r.Status(id), fmt.Errorf("%s %s: %w", intent, id, shared.ErrToggleInProgress)
	}
	defer r.release(key)

	// A change for the same key may have settled between Require and acquire; decide from the
	// session as it is now that this call owns the key.
	if snap, err = r.settled(snap); err != nil {
		return Status{}, fmt.Errorf("%s %s: %w", intent, id, err)
	}

	current := DeriveStatus(snap.User, id)
	add := !current.IsFavorite
	switch {
	case intent == IntentAdd && current.IsFavorite:
		return current, nil
	case intent == IntentRemove && !current.IsFavorite:
		return current, nil
	}

	op := "remove"
	if add {
		op = "add"
	}
	r.logger.Debug("favorite change", "op", op, "movie_id", id, "username", key.username)

	var updated *models.User
	if add {
		updated, err = r.api.AddFavorite(ctx, snap.Token, key.username, id, comment)
	} else {
		updated, err = r.api.RemoveFavorite(ctx, snap.Token, key.username, id)
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		r.logger.Debug("discarding favorite response", "op", op, "movie_id", id, "error", ctxErr)
		return r.Status(id), fmt.Errorf("%s favorite %s: %w", op, id, ctxErr)
	}

	if err != nil {
		if errors.Is(err, shared.ErrAuthorization) {
			return Status{}, fmt.Errorf("%s favorite %s: %w", op, id, shared.ErrSessionEnded)
		}
		r.logger.Warn("favorite change failed", "op", op, "movie_id", id, "error", err)
		return current, &ReconcileError{Op: op, MovieID: id, Err: err}
	}

	if err := updated.Validate(); err != nil {
		return current, &ReconcileError{Op: op, MovieID: id, Err: fmt.Errorf("%w: %v", shared.ErrTransport, err)}
	}

	if err := r.commit(key, started, snap.Epoch, updated); err != nil {
		switch {
		case errors.Is(err, shared.ErrStaleSession), errors.Is(err, shared.ErrNoActiveSession):
			r.logger.Debug("discarding favorite response for an ended session", "movie_id", id)
			return r.Status(id), fmt.Errorf("%s favorite %s: %w", op, id, shared.ErrSessionEnded)
		default:
			return current, &ReconcileError{Op: op, MovieID: id, Err: err}
		}
	}

	return DeriveStatus(updated, id), nil
}

// settled re-reads the session after the in-flight slot is taken. It fails with
// shared.ErrSessionEnded when the session behind snap is gone or was replaced.
func (r *Reconciler) settled(snap session.Snapshot) (session.Snapshot, error) {
	now := r.store.Snapshot()
	if !now.Authenticated() || now.Epoch != snap.Epoch {
		return session.Snapshot{}, shared.ErrSessionEnded
	}
	return now, nil
}

// commit writes updated into the session at epoch. Statuses of other movies for the same user that
// were confirmed after started replace what updated says about them.
func (r *Reconciler) commit(key inflightKey, started, epoch uint64, updated *models.User) error {
	r.commitMu.Lock()
	defer r.commitMu.Unlock()

	merged := updated.Clone()
	r.mu.Lock()
	for other, o := range r.outcomes {
		if other.username != key.username || other.movieID == key.movieID || o.seq <= started {
			continue
		}
		merged.FavoriteMovies = overlay(merged.FavoriteMovies, other.movieID, o.status)
	}
	r.mu.Unlock()

	if err := r.store.ReplaceUserAt(epoch, merged); err != nil {
		return err
	}

	r.mu.Lock()
	r.seq++
	r.outcomes[key] = outcome{seq: r.seq, status: DeriveStatus(updated, key.movieID)}
	r.mu.Unlock()
	return nil
}

// overlay returns favs with movieID set to status, keeping list order.
func overlay(favs models.Favorites, movieID string, status Status) models.Favorites {
	out := make(models.Favorites, 0, len(favs)+1)
	found := false
	for _, e := range favs {
		if models.CanonicalID(e.MovieID) != movieID {
			out = append(out, e)
			continue
		}
		found = true
		if status.IsFavorite {
			out = append(out, models.FavoriteEntry{MovieID: e.MovieID, Comment: status.Comment})
		}
	}
	if status.IsFavorite && !found {
		out = append(out, models.FavoriteEntry{MovieID: models.ObjectID(movieID), Comment: status.Comment})
	}
	return out
}

// acquire takes the in-flight slot for key and returns the last applied outcome number.
func (r *Reconciler) acquire(key inflightKey) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.inflight[key]; busy {
		return 0, false
	}
	r.inflight[key] = struct{}{}
	return r.seq, true
}

// release frees key. Outcomes are forgotten once nothing is in flight, since no later response can
// predate them.
func (r *Reconciler) release(key inflightKey) {
	r.mu.Lock()
	delete(r.inflight, key)
	if len(r.inflight) == 0 {
		clear(r.outcomes)
	}
	r.mu.Unlock()
}

// InFlight reports whether a change for movieID by the current user is running.
func (r *Reconciler) InFlight(movieID any) bool {
	key := inflightKey{username: r.store.Snapshot().Username(), movieID: models.CanonicalID(movieID)}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, busy := r.inflight[key]
	return busy
}
