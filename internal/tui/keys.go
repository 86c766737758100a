package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the tree view key bindings.
type KeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Top       key.Binding
	Bottom    key.Binding
	Expand    key.Binding
	Collapse  key.Binding
	Toggle    key.Binding
	Refresh   key.Binding
	CopyID    key.Binding
	CopyRef   key.Binding
	Open      key.Binding
	Download  key.Binding
	Detail    key.Binding
	Logs      key.Binding
	LogFilter key.Binding
	Quit      key.Binding
	ClearErr  key.Binding
	PromptYes key.Binding
	PromptNo  key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Top:       key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
		Bottom:    key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
		Expand:    key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "expand")),
		Collapse:  key.NewBinding(key.WithKeys("left", "backspace"), key.WithHelp("←", "collapse")),
		Toggle:    key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "toggle")),
		Refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		CopyID:    key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "copy id")),
		CopyRef:   key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy library ref")),
		Open:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "open in browser")),
		Download:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "download")),
		Detail:    key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "details")),
		Logs:      key.NewBinding(key.WithKeys("l", "L"), key.WithHelp("l", "logs")),
		LogFilter: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter logs")),
		Quit:      key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ClearErr:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear error")),
		PromptYes: key.NewBinding(key.WithKeys("y", "Y", "enter"), key.WithHelp("y", "yes")),
		PromptNo:  key.NewBinding(key.WithKeys("n", "N", "esc"), key.WithHelp("n", "no")),
	}
}

// helpLine renders bindings as "key: desc" pairs.
func helpLine(bindings ...key.Binding) string {
	var out string
	for i, b := range bindings {
		if i > 0 {
			out += " • "
		}
		h := b.Help()
		out += h.Key + ": " + h.Desc
	}
	return out
}
