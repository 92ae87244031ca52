package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Start        key.Binding
	Green        key.Binding
	Red          key.Binding
	Mode         key.Binding
	Level        key.Binding
	Code         key.Binding
	Restart      key.Binding
	Next         key.Binding
	Instructions key.Binding
	Name         key.Binding
	Submit       key.Binding
	Leaderboard  key.Binding
	Dismiss      key.Binding
	Quit         key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Start:        key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "start")),
		Green:        key.NewBinding(key.WithKeys("g", "left"), key.WithHelp("g/←", "green")),
		Red:          key.NewBinding(key.WithKeys("r", "right"), key.WithHelp("r/→", "red")),
		Mode:         key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mode")),
		Level:        key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"), key.WithHelp("1-9", "level")),
		Code:         key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "secret code")),
		Restart:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "restart")),
		Next:         key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next level")),
		Instructions: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "how to play")),
		Name:         key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "player name")),
		Submit:       key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "submit score")),
		Leaderboard:  key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "leaderboard")),
		Dismiss:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close")),
		Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Green, k.Red, k.Mode, k.Instructions, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Start, k.Green, k.Red, k.Mode},
		{k.Level, k.Code, k.Restart, k.Next},
		{k.Name, k.Submit, k.Leaderboard, k.Instructions},
		{k.Dismiss, k.Quit},
	}
}
