package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/desertthunder/myflix/internal/repositories"
	"github.com/desertthunder/myflix/internal/server"
	"github.com/desertthunder/myflix/internal/shared"
	tu "github.com/desertthunder/myflix/internal/testing"
)

const anora = "67a1f0c2e4b0a1c3d5e7f901"

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			slots := tu.NewMemorySlots(nil)

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Slots:      slots,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.slots != slots {
				t.Error("expected slots to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil input uses stdin", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Input: nil})

			if runner.input != os.Stdin {
				t.Error("expected input to default to os.Stdin")
			}
		})

		t.Run("does not build the client stack", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.store != nil || runner.gate != nil || runner.db != nil {
				t.Error("expected client stack to be built lazily")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("formats output", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("Hello %s, count: %d", "World", 42); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "Hello World, count: 42" {
				t.Errorf("unexpected output %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			if err := runner.writePlain("test"); err == nil {
				t.Fatal("expected error from failing writer")
			}
			if err := runner.writePlainln("test"); err == nil {
				t.Fatal("expected error from failing writer")
			}
		})

		t.Run("writePlainln surrounds with newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			runner.writePlainln("Next steps:")
			if output.String() != "\nNext steps:\n" {
				t.Errorf("unexpected output %q", output.String())
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		names := map[string]bool{}
		for _, c := range runner.register() {
			names[c.Name] = true
		}

		for _, want := range []string{"setup", "auth", "movies", "favorites", "profile", "serve", "tui"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})

	t.Run("password", func(t *testing.T) {
		t.Run("prefers the flag", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Input: strings.NewReader("other\n")})

			got, err := runner.password("secret")
			if err != nil || got != "secret" {
				t.Errorf("expected flag value, got %q (%v)", got, err)
			}
		})

		t.Run("reads one line from input", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Input: strings.NewReader("hunter22\r\nignored\n")})

			got, err := runner.password("")
			if err != nil || got != "hunter22" {
				t.Errorf("expected hunter22, got %q (%v)", got, err)
			}
		})

		t.Run("empty input is a missing argument", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}, Input: strings.NewReader("")})

			if _, err := runner.password(""); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})
	})
}

// cliHarness runs commands the way separate invocations of the binary would: a fresh Runner each
// time, sharing only the session slots.
type cliHarness struct {
	t      *testing.T
	srv    *server.Server
	url    string
	slots  *tu.MemorySlots
	config string
}

func newCLIHarness(t *testing.T) *cliHarness {
	t.Helper()

	srv := server.New(server.Opts{
		Logger:     shared.NewLogger(io.Discard),
		BcryptCost: bcrypt.MinCost,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &cliHarness{
		t:      t,
		srv:    srv,
		url:    ts.URL,
		slots:  tu.NewMemorySlots(nil),
		config: filepath.Join(t.TempDir(), "missing.toml"),
	}
}

func (h *cliHarness) run(input string, args ...string) (string, error) {
	h.t.Helper()

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Logger: shared.NewLogger(io.Discard),
		Output: output,
		Input:  strings.NewReader(input),
		Slots:  h.slots,
	})

	app := newApp(runner)
	app.Writer = io.Discard
	app.ErrWriter = io.Discard

	argv := append([]string{"myflix", "--config", h.config, "--api-url", h.url}, args...)
	err := app.Run(context.Background(), argv)
	return output.String(), err
}

func (h *cliHarness) mustRun(args ...string) string {
	h.t.Helper()

	out, err := h.run("", args...)
	if err != nil {
		h.t.Fatalf("%s: unexpected error: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestCommands(t *testing.T) {
	t.Run("signed out commands require a session", func(t *testing.T) {
		h := newCLIHarness(t)

		for _, args := range [][]string{
			{"auth", "whoami"},
			{"movies", "list"},
			{"favorites", "list"},
			{"profile", "show"},
		} {
			if _, err := h.run("", args...); !errors.Is(err, shared.ErrUnauthenticated) {
				t.Errorf("%v: expected ErrUnauthenticated, got %v", args, err)
			}
		}
	})

	t.Run("register, browse and manage favorites", func(t *testing.T) {
		h := newCLIHarness(t)

		out := h.mustRun("auth", "register", "-u", "alice1", "-p", "secret", "-e", "alice@example.com", "--login")
		if !strings.Contains(out, "Account alice1 created") || !strings.Contains(out, "Logged in as alice1") {
			t.Errorf("unexpected register output %q", out)
		}
		if _, ok := h.slots.Snapshot()[repositories.SlotToken]; !ok {
			t.Fatal("expected token to be persisted")
		}

		if out := h.mustRun("auth", "whoami"); out != "alice1\n" {
			t.Errorf("expected whoami to print alice1, got %q", out)
		}

		out = h.mustRun("movies", "list")
		if !strings.Contains(out, "Movies (8)") || !strings.Contains(out, "Anora") {
			t.Errorf("unexpected movie list %q", out)
		}

		out = h.mustRun("movies", "list", "--filter", "brutal")
		if !strings.Contains(out, "Movies (1)") || !strings.Contains(out, "The Brutalist") {
			t.Errorf("unexpected filtered list %q", out)
		}

		out = h.mustRun("favorites", "add", "--comment", "loved it", anora)
		if !strings.Contains(out, "is in your favorites (loved it)") {
			t.Errorf("unexpected add output %q", out)
		}

		out = h.mustRun("movies", "show", anora)
		if !strings.HasPrefix(out, "Anora\n") || !strings.Contains(out, "Your comment: loved it") {
			t.Errorf("unexpected movie detail %q", out)
		}

		out = h.mustRun("favorites", "list")
		if !strings.Contains(out, "Favorites (1)") || !strings.Contains(out, "Comment: loved it") {
			t.Errorf("unexpected favorites list %q", out)
		}

		out = h.mustRun("favorites", "toggle", anora)
		if !strings.Contains(out, "Anora is not in your favorites") {
			t.Errorf("unexpected toggle output %q", out)
		}

		user, err := h.srv.Store().User("alice1")
		if err != nil {
			t.Fatalf("failed to read server user: %v", err)
		}
		if len(user.FavoriteMovies) != 0 {
			t.Errorf("expected server favorites to be empty, got %v", user.FavoriteMovies)
		}

		out = h.mustRun("auth", "logout")
		if !strings.Contains(out, "Logged out alice1") {
			t.Errorf("unexpected logout output %q", out)
		}
		if len(h.slots.Snapshot()) != 0 {
			t.Errorf("expected slots to be cleared, got %v", h.slots.Snapshot())
		}

		if out := h.mustRun("auth", "logout"); out != "Not logged in\n" {
			t.Errorf("expected second logout to be a no-op, got %q", out)
		}
	})

	t.Run("login reads password from input", func(t *testing.T) {
		h := newCLIHarness(t)
		h.mustRun("auth", "register", "-u", "bobby", "-p", "secret", "-e", "bobby@example.com")

		out, err := h.run("wrong\n", "auth", "login", "-u", "bobby")
		if !errors.Is(err, shared.ErrInvalidCredentials) {
			t.Errorf("expected ErrInvalidCredentials, got %v", err)
		}
		if strings.Contains(out, "Logged in") {
			t.Errorf("unexpected output %q", out)
		}

		out, err = h.run("secret\n", "auth", "login", "-u", "bobby")
		if err != nil {
			t.Fatalf("expected login to succeed, got %v", err)
		}
		if !strings.Contains(out, "Password: ") || !strings.Contains(out, "Logged in as bobby") {
			t.Errorf("unexpected login output %q", out)
		}
	})

	t.Run("export then import restores favorites", func(t *testing.T) {
		h := newCLIHarness(t)
		h.mustRun("auth", "register", "-u", "carol", "-p", "secret", "-e", "carol@example.com", "--login")
		h.mustRun("favorites", "add", "--comment", "best picture", anora)
		h.mustRun("favorites", "add", "67a1f0c2e4b0a1c3d5e7f903")

		path := filepath.Join(t.TempDir(), "favs.csv")
		out := h.mustRun("favorites", "export", "--format", "csv", "--output", path)
		if !strings.Contains(out, "Exported 2 favorites") {
			t.Errorf("unexpected export output %q", out)
		}
		tu.AssertFileExists(t, path)

		h.mustRun("favorites", "remove", anora)
		h.mustRun("favorites", "remove", "67a1f0c2e4b0a1c3d5e7f903")

		out = h.mustRun("favorites", "import", "--workers", "2", "--rate", "100", path)
		if !strings.Contains(out, "Applied 2, failed 0, skipped 0 of 2") {
			t.Errorf("unexpected import output %q", out)
		}

		user, err := h.srv.Store().User("carol")
		if err != nil {
			t.Fatalf("failed to read server user: %v", err)
		}
		entry, ok := user.FavoriteMovies.Find(anora)
		if !ok || entry.Comment != "best picture" {
			t.Errorf("expected restored favorite with comment, got %+v", user.FavoriteMovies)
		}
	})

	t.Run("import reports failed rows", func(t *testing.T) {
		h := newCLIHarness(t)
		h.mustRun("auth", "register", "-u", "dave1", "-p", "secret", "-e", "dave@example.com", "--login")

		path := filepath.Join(t.TempDir(), "rows.csv")
		body := "movie_id,comment,intent\n" + anora + ",,add\n000000000000000000000000,,add\n"
		if err := os.WriteFile(path, []byte(body), 0644); err != nil {
			t.Fatalf("failed to write CSV: %v", err)
		}

		out, err := h.run("", "favorites", "import", "--json", path)
		if !errors.Is(err, shared.ErrReconcileFailed) {
			t.Errorf("expected ErrReconcileFailed, got %v", err)
		}
		if !strings.Contains(out, `"applied": 1`) || !strings.Contains(out, `"failed": 1`) {
			t.Errorf("unexpected import summary %q", out)
		}
	})

	t.Run("profile update and delete", func(t *testing.T) {
		h := newCLIHarness(t)
		h.mustRun("auth", "register", "-u", "erin1", "-p", "secret", "-e", "erin@example.com", "--login")

		if _, err := h.run("", "profile", "update"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument for empty update, got %v", err)
		}

		out := h.mustRun("profile", "update", "--email", "erin@example.org")
		if !strings.Contains(out, "Profile updated") || !strings.Contains(out, "erin@example.org") {
			t.Errorf("unexpected update output %q", out)
		}

		if out := h.mustRun("profile", "show"); !strings.Contains(out, "erin@example.org") {
			t.Errorf("expected stored profile to be updated, got %q", out)
		}

		if _, err := h.run("", "profile", "delete"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected delete without --yes to be refused, got %v", err)
		}

		out = h.mustRun("profile", "delete", "--yes")
		if !strings.Contains(out, "Account erin1 deleted") {
			t.Errorf("unexpected delete output %q", out)
		}
		if len(h.slots.Snapshot()) != 0 {
			t.Errorf("expected session to be cleared, got %v", h.slots.Snapshot())
		}
		if _, err := h.srv.Store().User("erin1"); err == nil {
			t.Error("expected server account to be gone")
		}
	})

	t.Run("revoked token ends the stored session", func(t *testing.T) {
		h := newCLIHarness(t)
		h.mustRun("auth", "register", "-u", "frank", "-p", "secret", "-e", "frank@example.com", "--login")

		h.srv.Store().Revoke("frank")

		if _, err := h.run("", "movies", "list"); !errors.Is(err, shared.ErrSessionEnded) {
			t.Errorf("expected ErrSessionEnded, got %v", err)
		}
		if len(h.slots.Snapshot()) != 0 {
			t.Errorf("expected session to be cleared, got %v", h.slots.Snapshot())
		}
		if _, err := h.run("", "auth", "whoami"); !errors.Is(err, shared.ErrUnauthenticated) {
			t.Errorf("expected ErrUnauthenticated after expiry, got %v", err)
		}
	})

	t.Run("setup creates config and database", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: output})

		if err := setupCommand(runner).Run(context.Background(), []string{"setup"}); err != nil {
			t.Fatalf("setup failed: %v", err)
		}

		tu.AssertFileExists(t, filepath.Join(dir, "config.toml"))
		tu.AssertFileExists(t, filepath.Join(dir, "myflix.db"))
		if !strings.Contains(output.String(), "Session database ready") {
			t.Errorf("unexpected setup output %q", output.String())
		}
	})
}
