package server_test

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/desertthunder/myflix/internal/account"
	"github.com/desertthunder/myflix/internal/auth"
	"github.com/desertthunder/myflix/internal/catalog"
	"github.com/desertthunder/myflix/internal/favorites"
	"github.com/desertthunder/myflix/internal/repositories"
	"github.com/desertthunder/myflix/internal/server"
	"github.com/desertthunder/myflix/internal/services"
	"github.com/desertthunder/myflix/internal/session"
	"github.com/desertthunder/myflix/internal/shared"
)

// client is the full client stack wired against one slot database.
type client struct {
	store     *session.Store
	gate      *auth.Gate
	account   *account.Service
	favorites *favorites.Reconciler
	catalog   *catalog.Browser
}

func newClient(t *testing.T, baseURL string, slots session.Slots) *client {
	t.Helper()
	logger := shared.NewLogger(io.Discard)

	gw := services.NewGateway(services.GatewayOpts{BaseURL: baseURL, Logger: logger})
	api := services.NewMyFlix(gw)

	store := session.NewStore(slots, logger)
	store.Load()
	gate := auth.NewGate(store, logger)
	gate.Watch(gw)
	t.Cleanup(gate.Close)

	return &client{
		store:     store,
		gate:      gate,
		account:   account.NewService(api, store, gate, logger),
		favorites: favorites.NewReconciler(api, gate, store, logger),
		catalog:   catalog.NewBrowser(api, gate),
	}
}

func TestClientAgainstDevServer(t *testing.T) {
	srv := server.New(server.Opts{
		Logger:      shared.NewLogger(io.Discard),
		BcryptCost:  bcrypt.MinCost,
		ExtendedIDs: true,
	})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	defer db.Close()
	shared.ConfigureDatabase(db, 1, 1)
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	slots := repositories.NewSlotRepository(db)

	ctx := context.Background()
	c := newClient(t, ts.URL, slots)

	var loginRequired atomic.Value
	c.gate.OnLoginRequired(func(reason auth.Reason) { loginRequired.Store(reason) })

	if _, err := c.catalog.Movies(ctx); !errors.Is(err, shared.ErrUnauthenticated) {
		t.Fatalf("catalog should require a session, got %v", err)
	}

	if _, err := c.account.Register(ctx, services.RegisterRequest{
		Username: "alice", Password: "secret", Email: "alice@example.com", Birthday: "1990-04-01",
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := c.account.Login(ctx, "alice", "wrong"); !errors.Is(err, shared.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := c.account.Login(ctx, "alice", "secret"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if c.gate.State() != auth.Authenticated {
		t.Fatal("gate should be authenticated after login")
	}

	movies, err := c.catalog.Movies(ctx)
	if err != nil {
		t.Fatalf("failed to list movies: %v", err)
	}
	if len(movies) != len(server.SeedMovies()) {
		t.Fatalf("expected %d movies, got %d", len(server.SeedMovies()), len(movies))
	}
	movie := movies[0]

	t.Run("Toggle Adds With Comment", func(t *testing.T) {
		status, err := c.favorites.Toggle(ctx, movie, "so good")
		if err != nil {
			t.Fatalf("toggle failed: %v", err)
		}
		if !status.IsFavorite || status.Comment != "so good" {
			t.Errorf("unexpected status %+v", status)
		}
		if got := c.favorites.Status(movie.ID); got != status {
			t.Errorf("derived status %+v should match returned %+v", got, status)
		}
	})

	t.Run("Session Survives Restart", func(t *testing.T) {
		restarted := newClient(t, ts.URL, slots)
		snap := restarted.store.Snapshot()
		if !snap.Authenticated() || snap.Username() != "alice" {
			t.Fatalf("expected restored session for alice, got %+v", snap)
		}
		if !favorites.DeriveStatus(snap.User, movie).IsFavorite {
			t.Error("restored user should still favorite the movie")
		}

		joined, err := restarted.catalog.Favorites(ctx)
		if err != nil {
			t.Fatalf("failed to load favorites: %v", err)
		}
		if len(joined) != 1 || joined[0].Movie.ID != movie.ID || joined[0].Comment != "so good" {
			t.Errorf("unexpected favorites %+v", joined)
		}
	})

	t.Run("Explicit Add Is A No-op For A Favorite", func(t *testing.T) {
		status, err := c.favorites.Add(ctx, movie.ID, "ignored")
		if err != nil {
			t.Fatalf("add failed: %v", err)
		}
		if status.Comment != "so good" {
			t.Errorf("no-op add should keep the comment, got %+v", status)
		}
	})

	t.Run("Profile Update", func(t *testing.T) {
		user, err := c.account.UpdateProfile(ctx, services.ProfileUpdate{Email: "alice@new.example.com"})
		if err != nil {
			t.Fatalf("update failed: %v", err)
		}
		if user.Email != "alice@new.example.com" || c.store.Snapshot().User.Email != user.Email {
			t.Errorf("session should carry the updated email, got %+v", c.store.Snapshot().User)
		}
		if !c.store.Snapshot().User.FavoriteMovies.Contains(movie.ID) {
			t.Error("favorites should survive a profile update")
		}
	})

	t.Run("Expired Token Ends The Session", func(t *testing.T) {
		srv.Store().Revoke("alice")

		_, err := c.favorites.Toggle(ctx, movie, "")
		if !errors.Is(err, shared.ErrSessionEnded) {
			t.Fatalf("expected ErrSessionEnded, got %v", err)
		}
		if c.gate.State() != auth.Unauthenticated {
			t.Error("gate should be unauthenticated")
		}
		if reason, _ := loginRequired.Load().(auth.Reason); reason != auth.ReasonSessionExpired {
			t.Errorf("expected login required for expired session, got %q", reason)
		}
		if stored, _ := slots.List(); len(stored) != 0 {
			t.Errorf("expected persisted slots to be cleared, got %+v", stored)
		}
	})

	t.Run("Delete Account", func(t *testing.T) {
		if _, err := c.account.Login(ctx, "alice", "secret"); err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if err := c.account.DeleteAccount(ctx); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		if c.store.Snapshot().Authenticated() {
			t.Error("session should be cleared after deleting the account")
		}
		if _, err := c.account.Login(ctx, "alice", "secret"); !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Errorf("deleted account should not log in, got %v", err)
		}
	})
}
