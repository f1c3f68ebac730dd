package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap holds the dashboard bindings. It satisfies help.KeyMap.
type KeyMap struct {
	Quit         key.Binding
	Pause        key.Binding
	FailuresOnly key.Binding
	Spreads      key.Binding
	Clear        key.Binding
	ClearErrors  key.Binding
	Up           key.Binding
	Down         key.Binding
}

func bind(helpKey, desc string, keys ...string) key.Binding {
	return key.NewBinding(key.WithKeys(keys...), key.WithHelp(helpKey, desc))
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit:         bind("q", "quit", "q", "ctrl+c"),
		Pause:        bind("p", "freeze", "p"),
		FailuresOnly: bind("f", "failures only", "f"),
		Spreads:      bind("s", "spreads", "s"),
		Clear:        bind("c", "clear spreads", "c"),
		ClearErrors:  bind("e", "clear errors", "e"),
		Up:           bind("↑/k", "scroll", "up", "k"),
		Down:         bind("↓/j", "scroll", "down", "j"),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Pause, k.FailuresOnly, k.Spreads, k.Up, k.Down}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Quit, k.Pause, k.FailuresOnly, k.Spreads},
		{k.Clear, k.ClearErrors, k.Up, k.Down},
	}
}
