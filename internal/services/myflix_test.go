package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/myflix/internal/shared"
)

func newTestAPI(t *testing.T, handler http.HandlerFunc) *MyFlix {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewMyFlix(NewGateway(GatewayOpts{BaseURL: server.URL}))
}

func TestMyFlix(t *testing.T) {
	t.Run("Login", func(t *testing.T) {
		api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/login" || r.Method != http.MethodPost {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["username"] != "alice" || body["password"] != "secret" {
				t.Errorf("unexpected credentials %v", body)
			}
			io.WriteString(w, `{"user":{"_id":{"$oid":"u1"},"username":"alice","favoriteMovies":[]},"token":"tok"}`)
		})

		resp, err := api.Login(context.Background(), "alice", "secret")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if resp.Token != "tok" || resp.User == nil || resp.User.Username != "alice" {
			t.Errorf("unexpected login response %+v", resp)
		}
	})

	t.Run("Register Conflict", func(t *testing.T) {
		api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusConflict)
			io.WriteString(w, "alice already exists")
		})

		_, err := api.Register(context.Background(), RegisterRequest{Username: "alice", Password: "pw", Email: "a@example.com"})
		if !errors.Is(err, shared.ErrConflict) {
			t.Errorf("expected conflict, got %v", err)
		}
	})

	t.Run("ListMovies", func(t *testing.T) {
		api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer tok" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			io.WriteString(w, `[{"_id":{"$oid":"m1"},"title":"Anora"},{"_id":"m2","title":"Flow"}]`)
		})

		movies, err := api.ListMovies(context.Background(), "tok")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(movies) != 2 || movies[0].ID != "m1" || movies[1].ID != "m2" {
			t.Errorf("unexpected movies %+v", movies)
		}
	})

	t.Run("GetMovie Escapes Id", func(t *testing.T) {
		api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.EscapedPath() != "/movies/a%2Fb" {
				t.Errorf("expected escaped path, got %s", r.URL.EscapedPath())
			}
			io.WriteString(w, `{"_id":"a/b","title":"Slashed"}`)
		})

		movie, err := api.GetMovie(context.Background(), "tok", "a/b")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if movie.Title != "Slashed" {
			t.Errorf("unexpected movie %+v", movie)
		}
	})

	t.Run("AddFavorite", func(t *testing.T) {
		api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/users/alice/movies/m1" {
				t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			}
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["comment"] != "great film" {
				t.Errorf("expected comment, got %v", body)
			}
			io.WriteString(w, `{"username":"alice","favoriteMovies":[{"movieId":"m1","comment":"great film"}]}`)
		})

		user, err := api.AddFavorite(context.Background(), "tok", "alice", "m1", "great film")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if entry, ok := user.FavoriteMovies.Find("m1"); !ok || entry.Comment != "great film" {
			t.Errorf("expected m1 with comment, got %+v", user.FavoriteMovies)
		}
	})

	t.Run("RemoveFavorite", func(t *testing.T) {
		api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodDelete {
				t.Errorf("expected DELETE, got %s", r.Method)
			}
			if r.ContentLength > 0 {
				t.Error("remove should not send a body")
			}
			io.WriteString(w, `{"username":"alice","favoriteMovies":[]}`)
		})

		user, err := api.RemoveFavorite(context.Background(), "tok", "alice", "m1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(user.FavoriteMovies) != 0 {
			t.Errorf("expected no favorites, got %+v", user.FavoriteMovies)
		}
	})

	t.Run("UpdateUser Omits Empty Password", func(t *testing.T) {
		api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			if _, ok := body["password"]; ok {
				t.Error("empty password should be omitted")
			}
			if body["email"] != "new@example.com" {
				t.Errorf("unexpected body %v", body)
			}
			io.WriteString(w, `{"username":"alice","email":"new@example.com"}`)
		})

		user, err := api.UpdateUser(context.Background(), "tok", "alice", ProfileUpdate{Username: "alice", Email: "new@example.com"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if user.Email != "new@example.com" {
			t.Errorf("unexpected user %+v", user)
		}
	})

	t.Run("DeleteUser Ignores Text Body", func(t *testing.T) {
		api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, "alice was deleted.")
		})

		if err := api.DeleteUser(context.Background(), "tok", "alice"); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("Malformed Payload", func(t *testing.T) {
		api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, `{"username": 12}`)
		})

		_, err := api.UpdateUser(context.Background(), "tok", "alice", ProfileUpdate{})
		if !errors.Is(err, shared.ErrTransport) {
			t.Errorf("expected transport failure, got %v", err)
		}
	})
}
