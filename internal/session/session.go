// Package session owns the signed-in identity: the current user record and its bearer token.
//
// [Store] is the only writer of the persisted user and token slots. Every mutation is a full overwrite
// of the pair, applied to disk first and memory second, so the in-memory state never runs ahead of what
// would be restored after a restart. The pair is either fully present or fully absent.
//
// Each identity change (sign-in, sign-out) advances the session epoch. Work started under one epoch
// can detect with [Store.ReplaceUserAt] that the session it belonged to is gone and drop its result.
package session

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/myflix/internal/models"
	"github.com/desertthunder/myflix/internal/repositories"
	"github.com/desertthunder/myflix/internal/shared"
)

// Slots is the durable key/value storage behind the store.
type Slots interface {
	Get(key string) (string, bool, error)
	PutAll(values map[string]string) error
	Delete(keys ...string) error
}

// Snapshot is a point-in-time copy of the session.
//
// Epoch changes when the identity changes. Version changes on every mutation and orders notifications.
type Snapshot struct {
	User    *models.User
	Token   string
	Epoch   uint64
	Version uint64
}

// Authenticated reports whether the snapshot holds a user and token.
func (s Snapshot) Authenticated() bool {
	return s.User != nil && s.Token != ""
}

// Username returns the signed-in username or "".
func (s Snapshot) Username() string {
	if s.User == nil {
		return ""
	}
	return s.User.Username
}

// Listener receives a snapshot after each mutation.
//
// Listeners run on the mutating goroutine, outside the store lock. Concurrent mutations may deliver
// snapshots out of order; compare Version to discard older ones.
type Listener func(Snapshot)

// Store holds the session in memory and mirrors it to [Slots].
type Store struct {
	slots  Slots
	logger *log.Logger

	mu      sync.RWMutex
	user    *models.User
	token   string
	epoch   uint64
	version uint64

	lmu       sync.Mutex
	nextID    int
	listeners map[int]Listener
}

// NewStore creates an empty store. Call [Store.Load] to restore the persisted session.
func NewStore(slots Slots, logger *log.Logger) *Store {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	return &Store{slots: slots, logger: logger, listeners: make(map[int]Listener)}
}

// Load restores the session from storage and returns it.
//
// Missing, partial, or unreadable data yields an empty session; leftovers are removed from storage.
// Load never fails; storage errors are logged.
func (s *Store) Load() Snapshot {
	user, token, ok := s.read()

	s.mu.Lock()
	if ok {
		s.user, s.token = user, token
	} else {
		s.user, s.token = nil, ""
	}
	s.epoch++
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return snap
}

func (s *Store) read() (*models.User, string, bool) {
	rawUser, hasUser, err := s.slots.Get(repositories.SlotUser)
	if err != nil {
		s.logger.Error("failed to read stored user", "error", err)
		return nil, "", false
	}
	token, hasToken, err := s.slots.Get(repositories.SlotToken)
	if err != nil {
		s.logger.Error("failed to read stored token", "error", err)
		return nil, "", false
	}

	if !hasUser && !hasToken {
		return nil, "", false
	}

	discard := func(reason string, kv ...any) (*models.User, string, bool) {
		s.logger.Warn("discarding stored session", append([]any{"reason", reason}, kv...)...)
		if err := s.slots.Delete(repositories.SlotUser, repositories.SlotToken); err != nil {
			s.logger.Error("failed to remove stored session", "error", err)
		}
		return nil, "", false
	}

	token = strings.TrimSpace(token)
	if !hasUser || !hasToken || token == "" {
		return discard("incomplete", "has_user", hasUser, "has_token", hasToken && token != "")
	}

	var user models.User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		return discard("unreadable user", "error", err)
	}
	if err := user.Validate(); err != nil {
		return discard("invalid user", "error", err)
	}
	return &user, token, true
}

// SetAuthenticated starts a new session for user with token.
func (s *Store) SetAuthenticated(user *models.User, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: token is required", shared.ErrInvalidInput)
	}
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	encoded, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	s.mu.Lock()
	if err := s.slots.PutAll(map[string]string{
		repositories.SlotUser:  string(encoded),
		repositories.SlotToken: token,
	}); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to persist session: %w", err)
	}
	s.user, s.token = user.Clone(), token
	s.epoch++
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("session started", "username", user.Username)
	s.notify(snap)
	return nil
}

// ReplaceUser swaps the user record of the active session.
func (s *Store) ReplaceUser(user *models.User) error {
	return s.replaceUser(0, false, user)
}

// ReplaceUserAt swaps the user record only if the session is still the one identified by epoch.
func (s *Store) ReplaceUserAt(epoch uint64, user *models.User) error {
	return s.replaceUser(epoch, true, user)
}

func (s *Store) replaceUser(epoch uint64, checkEpoch bool, user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	encoded, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	s.mu.Lock()
	if s.token == "" {
		s.mu.Unlock()
		return shared.ErrNoActiveSession
	}
	if checkEpoch && s.epoch != epoch {
		s.mu.Unlock()
		return shared.ErrStaleSession
	}
	if err := s.slots.PutAll(map[string]string{repositories.SlotUser: string(encoded)}); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to persist user: %w", err)
	}
	s.user = user.Clone()
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// Clear ends the session. It is idempotent.
//
// Memory is cleared even when storage fails; the storage error is returned.
func (s *Store) Clear() error {
	s.mu.Lock()
	storeErr := s.slots.Delete(repositories.SlotUser, repositories.SlotToken)
	if s.user == nil && s.token == "" {
		s.mu.Unlock()
		if storeErr != nil {
			return fmt.Errorf("failed to remove stored session: %w", storeErr)
		}
		return nil
	}
	username := s.user.Username
	s.user, s.token = nil, ""
	s.epoch++
	s.version++
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info("session ended", "username", username)
	s.notify(snap)

	if storeErr != nil {
		return fmt.Errorf("failed to remove stored session: %w", storeErr)
	}
	return nil
}

// Snapshot returns a deep copy of the current session.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{User: s.user.Clone(), Token: s.token, Epoch: s.epoch, Version: s.version}
}

// Subscribe registers fn for session changes and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.lmu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.lmu.Unlock()

	return func() {
		s.lmu.Lock()
		delete(s.listeners, id)
		s.lmu.Unlock()
	}
}

func (s *Store) notify(snap Snapshot) {
	s.lmu.Lock()
	fns := make([]Listener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lmu.Unlock()

	for _, fn := range fns {
		fn(Snapshot{User: snap.User.Clone(), Token: snap.Token, Epoch: snap.Epoch, Version: snap.Version})
	}
}
