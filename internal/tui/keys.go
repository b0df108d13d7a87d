package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all shell key bindings with built-in help text.
type KeyMap struct {
	// Global
	Quit      key.Binding
	ForceQuit key.Binding
	Escape    key.Binding

	// Tabs
	NextTab key.Binding
	PrevTab key.Binding

	// Actions
	NewSource   key.Binding
	Preferences key.Binding

	// Wizard
	NextField   key.Binding
	PrevField   key.Binding
	Submit      key.Binding
	Cycle       key.Binding
	AddProvider key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "force quit"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "close"),
		),
		NextTab: key.NewBinding(
			key.WithKeys("tab", "right", "l"),
			key.WithHelp("tab", "next tab"),
		),
		PrevTab: key.NewBinding(
			key.WithKeys("shift+tab", "left", "h"),
			key.WithHelp("shift+tab", "previous tab"),
		),
		NewSource: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new source"),
		),
		Preferences: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "preferences"),
		),
		NextField: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "next field"),
		),
		PrevField: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "previous field"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "add source"),
		),
		Cycle: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "cycle choices"),
		),
		AddProvider: key.NewBinding(
			key.WithKeys("ctrl+a"),
			key.WithHelp("ctrl+a", "add another provider"),
		),
	}
}

// ShortHelp renders bindings as "key action" pairs.
func ShortHelp(bindings ...key.Binding) []string {
	out := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		out = append(out, h.Key+" "+h.Desc)
	}
	return out
}
