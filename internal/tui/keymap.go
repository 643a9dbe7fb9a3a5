package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings of the two-pane view.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding

	Focus   key.Binding
	Sync    key.Binding
	Older   key.Binding
	Newer   key.Binding
	NextObj key.Binding
	PrevObj key.Binding
	Copy    key.Binding
	Edit    key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup", "ctrl+u"),
			key.WithHelp("PgUp", "half page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown", "ctrl+d"),
			key.WithHelp("PgDn", "half page down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "bottom"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch pane"),
		),
		Sync: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "toggle synced scrolling"),
		),
		Older: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "older snapshot"),
		),
		Newer: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "newer snapshot"),
		),
		NextObj: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next object"),
		),
		PrevObj: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "previous object"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy diff"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "open in nvim"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
