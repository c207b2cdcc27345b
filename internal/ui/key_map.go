package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	enter    key.Binding
	back     key.Binding
	next     key.Binding
	favorite key.Binding
	comment  key.Binding
	copy     key.Binding
	open     key.Binding
	profile  key.Binding
	refresh  key.Binding
	logout   key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		next:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		favorite: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "toggle favorite")),
		comment:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "edit comment")),
		copy:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy image url")),
		open:     key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open image")),
		profile:  key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "profile")),
		refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		logout:   key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log out")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.favorite, k.comment, k.copy, k.open},
		{k.profile, k.refresh, k.logout, k.quit},
	}
}
