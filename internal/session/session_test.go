package session

import (
	"errors"
	"sync"
	"testing"

	"github.com/desertthunder/myflix/internal/models"
	"github.com/desertthunder/myflix/internal/repositories"
	"github.com/desertthunder/myflix/internal/shared"
	tu "github.com/desertthunder/myflix/internal/testing"
)

func alice() *models.User {
	return &models.User{ID: "u1", Username: "alice", Email: "alice@example.com", FavoriteMovies: models.Favorites{}}
}

// assertPaired fails when exactly one of user and token is present.
func assertPaired(t *testing.T, snap Snapshot) {
	t.Helper()
	if (snap.User == nil) != (snap.Token == "") {
		t.Errorf("user and token must be both present or both absent: user=%v token=%q", snap.User, snap.Token)
	}
}

func TestStoreLoad(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		store := NewStore(tu.NewMemorySlots(nil), nil)
		snap := store.Load()
		if snap.Authenticated() {
			t.Error("expected empty session")
		}
		assertPaired(t, snap)
	})

	t.Run("Restores Stored Session", func(t *testing.T) {
		slots := tu.NewMemorySlots(map[string]string{
			repositories.SlotUser:  `{"_id":{"$oid":"u1"},"username":"alice","favoriteMovies":[{"movieId":{"$oid":"m1"}}]}`,
			repositories.SlotToken: "tok",
		})
		store := NewStore(slots, nil)

		snap := store.Load()
		if !snap.Authenticated() || snap.Username() != "alice" || snap.Token != "tok" {
			t.Fatalf("unexpected snapshot %+v", snap)
		}
		if !snap.User.FavoriteMovies.Contains("m1") {
			t.Error("expected favorites to survive a reload")
		}
	})

	tc := []struct {
		name  string
		slots map[string]string
	}{
		{name: "Only User", slots: map[string]string{repositories.SlotUser: `{"username":"alice"}`}},
		{name: "Only Token", slots: map[string]string{repositories.SlotToken: "tok"}},
		{name: "Empty Token", slots: map[string]string{repositories.SlotUser: `{"username":"alice"}`, repositories.SlotToken: "  "}},
		{name: "Corrupt User", slots: map[string]string{repositories.SlotUser: `{not json`, repositories.SlotToken: "tok"}},
		{name: "User Without Username", slots: map[string]string{repositories.SlotUser: `{}`, repositories.SlotToken: "tok"}},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			slots := tu.NewMemorySlots(tt.slots)
			store := NewStore(slots, nil)

			snap := store.Load()
			if snap.Authenticated() {
				t.Error("expected empty session")
			}
			assertPaired(t, snap)

			if left := slots.Snapshot(); len(left) != 0 {
				t.Errorf("expected leftovers to be removed, got %v", left)
			}
		})
	}

	t.Run("Read Failure", func(t *testing.T) {
		slots := tu.NewMemorySlots(map[string]string{repositories.SlotToken: "tok"})
		slots.FailReads = true

		snap := NewStore(slots, nil).Load()
		if snap.Authenticated() {
			t.Error("expected empty session on read failure")
		}
	})
}

func TestStoreMutations(t *testing.T) {
	t.Run("SetAuthenticated", func(t *testing.T) {
		slots := tu.NewMemorySlots(nil)
		store := NewStore(slots, nil)
		before := store.Snapshot().Epoch

		if err := store.SetAuthenticated(alice(), "tok"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		snap := store.Snapshot()
		if !snap.Authenticated() || snap.Epoch == before {
			t.Errorf("expected new authenticated epoch, got %+v", snap)
		}

		stored := slots.Snapshot()
		if stored[repositories.SlotToken] != "tok" || stored[repositories.SlotUser] == "" {
			t.Errorf("expected both slots persisted, got %v", stored)
		}

		reloaded := NewStore(slots, nil).Load()
		if reloaded.Username() != "alice" {
			t.Errorf("expected session to survive restart, got %+v", reloaded)
		}
	})

	t.Run("SetAuthenticated Requires Token", func(t *testing.T) {
		store := NewStore(tu.NewMemorySlots(nil), nil)
		if err := store.SetAuthenticated(alice(), ""); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if err := store.SetAuthenticated(nil, "tok"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for nil user, got %v", err)
		}
		assertPaired(t, store.Snapshot())
	})

	t.Run("Persistence Failure Leaves Memory Unchanged", func(t *testing.T) {
		slots := tu.NewMemorySlots(nil)
		store := NewStore(slots, nil)
		slots.FailWrites = true

		if err := store.SetAuthenticated(alice(), "tok"); err == nil {
			t.Fatal("expected persistence error")
		}
		if store.Snapshot().Authenticated() {
			t.Error("memory should not change when persistence fails")
		}
	})

	t.Run("ReplaceUser", func(t *testing.T) {
		store := NewStore(tu.NewMemorySlots(nil), nil)

		if err := store.ReplaceUser(alice()); !errors.Is(err, shared.ErrNoActiveSession) {
			t.Errorf("expected ErrNoActiveSession, got %v", err)
		}

		store.SetAuthenticated(alice(), "tok")
		epoch := store.Snapshot().Epoch

		updated := alice()
		updated.FavoriteMovies = models.Favorites{{MovieID: "m1", Comment: "great film"}}
		if err := store.ReplaceUser(updated); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		snap := store.Snapshot()
		if snap.Token != "tok" || snap.Epoch != epoch {
			t.Error("replacing the user should keep the token and epoch")
		}
		if !snap.User.FavoriteMovies.Contains("m1") {
			t.Error("expected replaced user")
		}

		updated.FavoriteMovies[0].Comment = "mutated"
		if got, _ := store.Snapshot().User.FavoriteMovies.Find("m1"); got.Comment != "great film" {
			t.Error("store should not share memory with the caller")
		}
	})

	t.Run("ReplaceUserAt Stale Epoch", func(t *testing.T) {
		store := NewStore(tu.NewMemorySlots(nil), nil)
		store.SetAuthenticated(alice(), "tok")
		epoch := store.Snapshot().Epoch

		store.Clear()
		bob := &models.User{Username: "bob"}
		store.SetAuthenticated(bob, "tok2")

		if err := store.ReplaceUserAt(epoch, alice()); !errors.Is(err, shared.ErrStaleSession) {
			t.Errorf("expected ErrStaleSession, got %v", err)
		}
		if store.Snapshot().Username() != "bob" {
			t.Error("stale response must not overwrite the newer session")
		}
	})

	t.Run("Clear", func(t *testing.T) {
		slots := tu.NewMemorySlots(nil)
		store := NewStore(slots, nil)
		store.SetAuthenticated(alice(), "tok")

		if err := store.Clear(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := store.Clear(); err != nil {
			t.Fatalf("clear should be idempotent, got %v", err)
		}

		snap := store.Snapshot()
		if snap.Authenticated() {
			t.Error("expected empty session")
		}
		assertPaired(t, snap)
		if len(slots.Snapshot()) != 0 {
			t.Error("expected slots removed")
		}
	})

	t.Run("Clear Always Ends Session", func(t *testing.T) {
		slots := tu.NewMemorySlots(nil)
		store := NewStore(slots, nil)
		store.SetAuthenticated(alice(), "tok")
		slots.FailWrites = true

		if err := store.Clear(); err == nil {
			t.Error("expected storage error to be reported")
		}
		if store.Snapshot().Authenticated() {
			t.Error("memory must be cleared even when storage fails")
		}
	})
}

func TestStoreSubscribe(t *testing.T) {
	store := NewStore(tu.NewMemorySlots(nil), nil)

	var (
		mu    sync.Mutex
		snaps []Snapshot
	)
	unsubscribe := store.Subscribe(func(s Snapshot) {
		assertPaired(t, s)
		mu.Lock()
		snaps = append(snaps, s)
		mu.Unlock()
	})

	store.SetAuthenticated(alice(), "tok")
	store.ReplaceUser(alice())
	store.Clear()
	store.Clear()

	mu.Lock()
	if len(snaps) != 3 {
		t.Fatalf("expected 3 notifications, got %d", len(snaps))
	}
	if !snaps[0].Authenticated() || !snaps[1].Authenticated() || snaps[2].Authenticated() {
		t.Errorf("unexpected notification sequence %+v", snaps)
	}
	for i := 1; i < len(snaps); i++ {
		if snaps[i].Version <= snaps[i-1].Version {
			t.Error("versions should increase with each mutation")
		}
	}
	mu.Unlock()

	unsubscribe()
	store.SetAuthenticated(alice(), "tok")

	mu.Lock()
	defer mu.Unlock()
	if len(snaps) != 3 {
		t.Error("unsubscribed listener should not be called")
	}
}

func TestStoreConcurrentReaders(t *testing.T) {
	store := NewStore(tu.NewMemorySlots(nil), nil)
	store.SetAuthenticated(alice(), "tok")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assertPaired(t, store.Snapshot())
			}
		}()
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				store.Clear()
			} else {
				store.SetAuthenticated(alice(), "tok")
			}
		}(i)
	}
	wg.Wait()
	assertPaired(t, store.Snapshot())
}
