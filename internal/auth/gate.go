// Package auth decides whether protected operations may run and ends the session when the server
// rejects its credential.
//
// The [Gate] has two states, [Authenticated] and [Unauthenticated], and follows the session store.
// It is the one place that reacts to authorization failures: it subscribes to the gateway's
// unauthorized event, so a 401 from any request (catalog fetch, favorite toggle, profile change)
// clears the session and tells the presentation layer to show the login screen.
package auth

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/myflix/internal/services"
	"github.com/desertthunder/myflix/internal/session"
	"github.com/desertthunder/myflix/internal/shared"
)

// State of the gate.
type State int

const (
	Unauthenticated State = iota
	Authenticated
)

func (s State) String() string {
	if s == Authenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

// Reason explains why the login screen is required.
type Reason string

const (
	ReasonLoggedOut      Reason = "logged out"
	ReasonSessionExpired Reason = "session expired"
	ReasonAccountDeleted Reason = "account deleted"
)

// LoginRequiredFunc is called after the gate ends a session.
type LoginRequiredFunc func(reason Reason)

// Unauthorizer publishes authorization failures. [services.Gateway] implements it.
type Unauthorizer interface {
	OnUnauthorized(fn services.UnauthorizedFunc) func()
}

// Gate guards protected operations.
type Gate struct {
	store  *session.Store
	logger *log.Logger

	mu      sync.RWMutex
	state   State
	version uint64

	endMu sync.Mutex

	lmu       sync.Mutex
	nextID    int
	listeners map[int]LoginRequiredFunc

	unsubscribe []func()
}

// NewGate creates a gate that tracks store.
func NewGate(store *session.Store, logger *log.Logger) *Gate {
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}
	g := &Gate{store: store, logger: logger, listeners: make(map[int]LoginRequiredFunc)}
	g.observe(store.Snapshot())
	g.unsubscribe = append(g.unsubscribe, store.Subscribe(g.observe))
	return g
}

func (g *Gate) observe(snap session.Snapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if snap.Version < g.version {
		return
	}
	g.version = snap.Version
	if snap.Authenticated() {
		g.state = Authenticated
	} else {
		g.state = Unauthenticated
	}
}

// State returns the current gate state.
func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// Require returns the current session when authenticated, or [shared.ErrUnauthenticated].
//
// Protected operations call it before contacting the server and use the returned snapshot's
// token and epoch for the request.
func (g *Gate) Require(view string) (session.Snapshot, error) {
	snap := g.store.Snapshot()
	if !snap.Authenticated() {
		return session.Snapshot{}, fmt.Errorf("%s: %w", view, shared.ErrUnauthenticated)
	}
	return snap, nil
}

// Watch subscribes the gate to src's authorization failures.
//
// A failure for a token other than the current one belongs to an earlier session and is ignored.
func (g *Gate) Watch(src Unauthorizer) {
	unsubscribe := src.OnUnauthorized(func(token string, err *services.GatewayError) {
		if !g.endIf(ReasonSessionExpired, func(s session.Snapshot) bool { return s.Token == token }) {
			g.logger.Debug("ignoring authorization failure for a previous session", "path", err.Path)
		}
	})

	g.mu.Lock()
	g.unsubscribe = append(g.unsubscribe, unsubscribe)
	g.mu.Unlock()
}

// ForceLogout ends an active session and signals login listeners. Without a session it does nothing.
func (g *Gate) ForceLogout(reason Reason) {
	g.endIf(reason, func(session.Snapshot) bool { return true })
}

// endIf ends the session when it is active and match accepts it. Concurrent calls end it once.
func (g *Gate) endIf(reason Reason, match func(session.Snapshot) bool) bool {
	g.endMu.Lock()
	snap := g.store.Snapshot()
	if !snap.Authenticated() || !match(snap) {
		g.endMu.Unlock()
		return false
	}
	g.logger.Warn("forcing logout", "reason", reason, "username", snap.Username())
	if err := g.store.Clear(); err != nil {
		g.logger.Error("failed to clear stored session", "error", err)
	}
	g.endMu.Unlock()

	g.signal(reason)
	return true
}

// Logout ends the session, if any, and signals login listeners.
func (g *Gate) Logout() error {
	return g.End(ReasonLoggedOut)
}

// End ends the session for reason and signals login listeners.
func (g *Gate) End(reason Reason) error {
	g.endMu.Lock()
	err := g.store.Clear()
	g.endMu.Unlock()
	if err != nil {
		g.logger.Error("failed to clear stored session", "error", err)
	}

	g.signal(reason)
	return err
}

// OnLoginRequired registers fn and returns a function that removes it.
func (g *Gate) OnLoginRequired(fn LoginRequiredFunc) func() {
	g.lmu.Lock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = fn
	g.lmu.Unlock()

	return func() {
		g.lmu.Lock()
		delete(g.listeners, id)
		g.lmu.Unlock()
	}
}

func (g *Gate) signal(reason Reason) {
	g.lmu.Lock()
	fns := make([]LoginRequiredFunc, 0, len(g.listeners))
	for _, fn := range g.listeners {
		fns = append(fns, fn)
	}
	g.lmu.Unlock()

	for _, fn := range fns {
		fn(reason)
	}
}

// Close detaches the gate from the store and any watched gateways.
func (g *Gate) Close() {
	g.mu.Lock()
	fns := g.unsubscribe
	g.unsubscribe = nil
	g.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
