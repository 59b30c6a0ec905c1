package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"github.com/cj3636/gblame/internal/config"
)

// keyMap holds the bindings of every action. It implements help.KeyMap.
type keyMap struct {
	Quit              key.Binding
	Help              key.Binding
	ToggleAuthor      key.Binding
	ToggleLineNumbers key.Binding
	ShowCommit        key.Binding
	ClosePanel        key.Binding
	BlameParent       key.Binding
	Reload            key.Binding
	CopyCommit        key.Binding
	Down              key.Binding
	Up                key.Binding
	PageDown          key.Binding
	PageUp            key.Binding
	Top               key.Binding
	Bottom            key.Binding
	NextCommit        key.Binding
	PrevCommit        key.Binding
}

func newKeyMap(kb config.Keybindings) keyMap {
	bind := func(action, desc string) key.Binding {
		keys := kb[action]
		b := key.NewBinding(
			key.WithKeys(keys...),
			key.WithHelp(strings.Join(keys, "/"), desc),
		)
		if len(keys) == 0 {
			b.SetEnabled(false)
		}
		return b
	}

	return keyMap{
		Quit:              bind("quit", "quit"),
		Help:              bind("toggle_help", "help"),
		ToggleAuthor:      bind("toggle_author", "author column"),
		ToggleLineNumbers: bind("toggle_line_numbers", "line numbers"),
		ShowCommit:        bind("show_commit", "commit details"),
		ClosePanel:        bind("close_panel", "close details"),
		BlameParent:       bind("blame_parent", "blame parent"),
		Reload:            bind("reload", "reload"),
		CopyCommit:        bind("copy_commit", "copy commit id"),
		Down:              bind("scroll_down", "down"),
		Up:                bind("scroll_up", "up"),
		PageDown:          bind("page_down", "half page down"),
		PageUp:            bind("page_up", "half page up"),
		Top:               bind("go_top", "top"),
		Bottom:            bind("go_bottom", "bottom"),
		NextCommit:        bind("next_commit", "next commit"),
		PrevCommit:        bind("prev_commit", "previous commit"),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.ShowCommit, k.BlameParent, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Down, k.Up, k.PageDown, k.PageUp, k.Top, k.Bottom},
		{k.NextCommit, k.PrevCommit, k.ShowCommit, k.ClosePanel, k.BlameParent, k.Reload},
		{k.CopyCommit, k.ToggleAuthor, k.ToggleLineNumbers, k.Help, k.Quit},
	}
}
