// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI has four views:
//  1. [LoginView] : Sign in with username and password
//  2. [MovieListView] : Browse and filter the catalog, favorites marked with a star
//  3. [MovieDetailView] : Read a movie, write a comment and toggle it as a favorite
//  4. [ProfileView] : Account details and favorite movies with comments
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Favorite state is never cached by a view: every render derives it from the session store, so a change made
// in one view shows up in all of them. Session and gate events reach the model through a channel, the same way
// progress updates do: when the gate ends the session the model drops back to the login view.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
