package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ObjectID is the canonical string form of a server-issued identifier.
type ObjectID string

// String returns the id with surrounding whitespace removed.
func (id ObjectID) String() string {
	return strings.TrimSpace(string(id))
}

// IsZero reports whether the id is empty.
func (id ObjectID) IsZero() bool {
	return id.String() == ""
}

// UnmarshalJSON accepts a plain string, a wrapped {"$oid": "..."} object, a number, or null.
func (id *ObjectID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ObjectID(strings.TrimSpace(s))
		return nil
	case '{':
		var wrapped struct {
			OID *ObjectID `json:"$oid"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return err
		}
		if wrapped.OID == nil {
			return fmt.Errorf("object id: missing $oid field")
		}
		*id = *wrapped.OID
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("object id: unsupported value %s", data)
		}
		*id = ObjectID(n.String())
		return nil
	}
}

// MarshalJSON always writes the plain string form.
func (id ObjectID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// CanonicalID normalizes any identifier representation to a comparable string.
//
// Unknown shapes normalize to "" which never matches a real id.
func CanonicalID(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case ObjectID:
		return t.String()
	case *ObjectID:
		if t == nil {
			return ""
		}
		return t.String()
	case map[string]any:
		return CanonicalID(t["$oid"])
	case map[string]string:
		return CanonicalID(t["$oid"])
	case json.RawMessage:
		var id ObjectID
		if err := json.Unmarshal(t, &id); err != nil {
			return ""
		}
		return id.String()
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case fmt.Stringer:
		return strings.TrimSpace(t.String())
	default:
		return ""
	}
}

// FavoriteEntry marks one movie as a favorite, with an optional comment.
type FavoriteEntry struct {
	MovieID ObjectID `json:"movieId"`
	Comment string   `json:"comment,omitempty"`
}

// UnmarshalJSON accepts the entry object or, for older payloads, a bare id.
func (e *FavoriteEntry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '{' {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(data, &probe); err != nil {
			return err
		}
		if _, flat := probe["$oid"]; !flat {
			type entry FavoriteEntry
			var decoded entry
			if err := json.Unmarshal(data, &decoded); err != nil {
				return err
			}
			*e = FavoriteEntry(decoded)
			return nil
		}
	}

	var id ObjectID
	if err := json.Unmarshal(data, &id); err != nil {
		return fmt.Errorf("favorite entry: %w", err)
	}
	*e = FavoriteEntry{MovieID: id}
	return nil
}

// Favorites is a user's ordered favorite list; movie ids are unique within it.
type Favorites []FavoriteEntry

// UnmarshalJSON decodes the list and drops entries whose id repeats an earlier one or is empty.
func (f *Favorites) UnmarshalJSON(data []byte) error {
	var raw []FavoriteEntry
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*f = Dedupe(raw)
	return nil
}

// Dedupe returns entries with empty and repeated ids removed, keeping first occurrences in order.
func Dedupe(entries []FavoriteEntry) Favorites {
	out := make(Favorites, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		key := CanonicalID(e.MovieID)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, FavoriteEntry{MovieID: ObjectID(key), Comment: e.Comment})
	}
	return out
}

// Find returns the entry for id, compared canonically.
func (f Favorites) Find(id any) (FavoriteEntry, bool) {
	key := CanonicalID(id)
	if key == "" {
		return FavoriteEntry{}, false
	}
	for _, e := range f {
		if CanonicalID(e.MovieID) == key {
			return e, true
		}
	}
	return FavoriteEntry{}, false
}

// Contains reports whether id is in the list.
func (f Favorites) Contains(id any) bool {
	_, ok := f.Find(id)
	return ok
}

// IDs returns the canonical ids in list order.
func (f Favorites) IDs() []string {
	ids := make([]string, 0, len(f))
	for _, e := range f {
		ids = append(ids, CanonicalID(e.MovieID))
	}
	return ids
}

// User is the authenticated account as returned by the server.
//
// A User is replaced wholesale on every server response; it is never patched in place.
type User struct {
	ID             ObjectID  `json:"_id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Birthday       string    `json:"birthday,omitempty"`
	FavoriteMovies Favorites `json:"favoriteMovies"`
}

// UnmarshalJSON accepts either "_id" or "id" for the identifier.
func (u *User) UnmarshalJSON(data []byte) error {
	type user User
	aux := struct {
		*user
		AltID *ObjectID `json:"id"`
	}{user: (*user)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if u.ID.IsZero() && aux.AltID != nil {
		u.ID = *aux.AltID
	}
	if u.FavoriteMovies == nil {
		u.FavoriteMovies = Favorites{}
	}
	return nil
}

// BirthDate returns the birthday as YYYY-MM-DD, dropping any time component.
func (u *User) BirthDate() string {
	if u == nil {
		return ""
	}
	day, _, _ := strings.Cut(u.Birthday, "T")
	return day
}

// Clone returns a deep copy so callers cannot mutate shared state through the favorites slice.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.FavoriteMovies = append(Favorites{}, u.FavoriteMovies...)
	return &c
}

// Validate checks the fields a session requires.
func (u *User) Validate() error {
	if u == nil {
		return fmt.Errorf("user is nil")
	}
	if strings.TrimSpace(u.Username) == "" {
		return fmt.Errorf("username is required")
	}
	return nil
}

// Director of a movie.
type Director struct {
	Name      string `json:"name"`
	Bio       string `json:"bio,omitempty"`
	BirthYear int    `json:"birthYear,omitempty"`
}

// Genre of a movie.
type Genre struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Rating is a content rating such as "PG-13"; numeric ratings decode to their decimal text.
type Rating string

func (r *Rating) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Rating(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("rating: unsupported value %s", data)
	}
	*r = Rating(n.String())
	return nil
}

// Movie is a catalog entry. The client never mutates one.
type Movie struct {
	ID          ObjectID `json:"_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	ImageURL    string   `json:"imageURL,omitempty"`
	Director    Director `json:"director"`
	Genre       Genre    `json:"genre"`
	Rating      Rating   `json:"rating,omitempty"`
}

// UnmarshalJSON accepts either "_id" or "id" for the identifier.
func (m *Movie) UnmarshalJSON(data []byte) error {
	type movie Movie
	aux := struct {
		*movie
		AltID *ObjectID `json:"id"`
	}{movie: (*movie)(m)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if m.ID.IsZero() && aux.AltID != nil {
		m.ID = *aux.AltID
	}
	return nil
}

// FavoriteMovie is a catalog movie paired with the user's comment on it.
type FavoriteMovie struct {
	Movie   Movie  `json:"movie"`
	Comment string `json:"comment,omitempty"`
}
