package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Next     key.Binding
	Prev     key.Binding
	Decrease key.Binding
	Increase key.Binding
	Browse   key.Binding
	Accept   key.Binding
	Submit   key.Binding
	New      key.Binding
	Retry    key.Binding
	Scroll   key.Binding
	Help     key.Binding
	Back     key.Binding
	Quit     key.Binding
	ForceQ   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Next:     key.NewBinding(key.WithKeys("tab", "down"), key.WithHelp("tab", "next field")),
		Prev:     key.NewBinding(key.WithKeys("shift+tab", "up"), key.WithHelp("shift+tab", "prev field")),
		Decrease: key.NewBinding(key.WithKeys("left", "h", "-"), key.WithHelp("←/→", "adjust")),
		Increase: key.NewBinding(key.WithKeys("right", "l", "+")),
		Browse:   key.NewBinding(key.WithKeys("ctrl+o"), key.WithHelp("ctrl+o", "browse")),
		Accept:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Submit:   key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "generate")),
		New:      key.NewBinding(key.WithKeys("n", "enter"), key.WithHelp("n", "generate new")),
		Retry:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		Scroll:   key.NewBinding(key.WithKeys("up", "down", "pgup", "pgdown"), key.WithHelp("↑/↓", "scroll")),
		Help:     key.NewBinding(key.WithKeys("f1", "?"), key.WithHelp("?", "help")),
		Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Quit:     key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
		ForceQ:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}
