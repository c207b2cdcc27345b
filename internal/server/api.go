package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/myflix/internal/models"
	"github.com/desertthunder/myflix/internal/services"
	"github.com/desertthunder/myflix/internal/shared"
)

// API serves the catalog endpoints from a [Store].
type API struct {
	store       *Store
	extendedIDs bool
}

// NewAPI creates the catalog handler.
func NewAPI(store *Store, extendedIDs bool) *API {
	return &API{store: store, extendedIDs: extendedIDs}
}

// Routes returns the catalog route table.
func (a *API) Routes() []Route {
	return []Route{
		{Method: http.MethodPost, Path: "/login", Handler: a.login},
		{Method: http.MethodPost, Path: "/users", Handler: a.register},
		{Method: http.MethodGet, Path: "/movies", Handler: RequireToken(a.store, a.listMovies)},
		{Method: http.MethodGet, Path: "/movies/{id}", Handler: RequireToken(a.store, a.getMovie)},
		{Method: http.MethodPut, Path: "/users/{username}", Handler: RequireToken(a.store, a.owner(a.updateUser))},
		{Method: http.MethodDelete, Path: "/users/{username}", Handler: RequireToken(a.store, a.owner(a.deleteUser))},
		{Method: http.MethodPost, Path: "/users/{username}/movies/{movieId}", Handler: RequireToken(a.store, a.owner(a.addFavorite))},
		{Method: http.MethodDelete, Path: "/users/{username}/movies/{movieId}", Handler: RequireToken(a.store, a.owner(a.removeFavorite))},
	}
}

// owner rejects requests whose token belongs to someone other than the {username} in the path.
func (a *API) owner(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("username") != Username(r.Context()) {
			writeError(w, http.StatusForbidden, "permission denied")
			return
		}
		next(w, r)
	}
}

func (a *API) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if body.Username == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, token, err := a.store.Login(body.Username, body.Password)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Incorrect username or password."})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": a.userView(user), "token": token})
}

func (a *API) register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.store.Register(req)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a.userView(user))
}

func (a *API) listMovies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.store.Movies())
}

func (a *API) getMovie(w http.ResponseWriter, r *http.Request) {
	movie, err := a.store.Movie(r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, movie)
}

func (a *API) updateUser(w http.ResponseWriter, r *http.Request) {
	var update services.ProfileUpdate
	if err := readJSON(r, &update); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := a.store.UpdateUser(r.PathValue("username"), update)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.userView(user))
}

func (a *API) deleteUser(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if err := a.store.DeleteUser(username); err != nil {
		writeStoreError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "%s was deleted.", username)
}

func (a *API) addFavorite(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Comment string `json:"comment"`
	}
	if r.ContentLength != 0 {
		if err := readJSON(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	user, err := a.store.AddFavorite(r.PathValue("username"), r.PathValue("movieId"), body.Comment)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.userView(user))
}

func (a *API) removeFavorite(w http.ResponseWriter, r *http.Request) {
	user, err := a.store.RemoveFavorite(r.PathValue("username"), r.PathValue("movieId"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.userView(user))
}

type favoriteView struct {
	MovieID any    `json:"movieId"`
	Comment string `json:"comment,omitempty"`
}

type userView struct {
	ID             models.ObjectID `json:"_id"`
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	Birthday       string          `json:"birthday,omitempty"`
	FavoriteMovies []favoriteView  `json:"favoriteMovies"`
}

// userView renders a user as the hosted service does, optionally with extended JSON favorite ids.
func (a *API) userView(u *models.User) userView {
	favs := make([]favoriteView, 0, len(u.FavoriteMovies))
	for _, e := range u.FavoriteMovies {
		var id any = e.MovieID.String()
		if a.extendedIDs {
			id = map[string]string{"$oid": e.MovieID.String()}
		}
		favs = append(favs, favoriteView{MovieID: id, Comment: e.Comment})
	}
	return userView{
		ID:             u.ID,
		Username:       u.Username,
		Email:          u.Email,
		Birthday:       u.Birthday,
		FavoriteMovies: favs,
	}
}

func readJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %v", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeStoreError maps store errors to the hosted service's status codes and bodies.
func writeStoreError(w http.ResponseWriter, err error) {
	if verr, ok := isValidation(err); ok {
		type problem struct {
			Msg string `json:"msg"`
		}
		problems := make([]problem, 0, len(verr.Problems))
		for _, p := range verr.Problems {
			problems = append(problems, problem{Msg: p})
		}
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": problems})
		return
	}

	switch {
	case errors.Is(err, shared.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, shared.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
