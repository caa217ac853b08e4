package ui

// MenuHint describes a keyboard shortcut for display in the menu bar.
type MenuHint struct {
	Key         string
	Description string
}

// Component is implemented by the focusable panes.
type Component interface {
	Name() string
	Hints() []MenuHint
}
