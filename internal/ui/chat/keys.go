// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/jeranaias/citeview/internal/ui/components"
)

// =============================================================================
// KEY MAP DEFINITION
// =============================================================================

// KeyMap defines all keyboard bindings for the chat screen.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	NextCite key.Binding
	PrevCite key.Binding
	Popover  key.Binding
	View     key.Binding
	Copy     key.Binding

	Submit  key.Binding
	Back    key.Binding
	Insert  key.Binding
	Sidebar key.Binding

	Search key.Binding
	Rename key.Binding
	Delete key.Binding
	New    key.Binding
	Open   key.Binding

	Quit key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("PgUp", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("PgDn", "page down"),
		),
		NextCite: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next citation"),
		),
		PrevCite: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("S-tab", "prev citation"),
		),
		Popover: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "details"),
		),
		View: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "view source"),
		),
		Copy: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "copy reply"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Insert: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "type"),
		),
		Sidebar: key.NewBinding(
			key.WithKeys("ctrl+b"),
			key.WithHelp("C-b", "chats"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Rename: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "rename"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new chat"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("C-c", "quit"),
		),
	}
}

func hint(b key.Binding) components.KeyHint {
	h := b.Help()
	return components.KeyHint{Key: h.Key, Action: h.Desc}
}

// helpFor returns the hints shown in the help bar for the focused area.
func (k KeyMap) helpFor(f focus) []components.KeyHint {
	switch f {
	case focusMessages:
		return []components.KeyHint{
			hint(k.NextCite), hint(k.Popover), hint(k.View), hint(k.Copy),
			hint(k.Insert), hint(k.Sidebar), hint(k.Quit),
		}
	case focusSidebar:
		return []components.KeyHint{
			hint(k.Open), hint(k.Search), hint(k.Rename), hint(k.Delete),
			hint(k.New), hint(k.Back), hint(k.Quit),
		}
	default:
		return []components.KeyHint{
			hint(k.Submit), hint(k.NextCite), hint(k.Back), hint(k.Sidebar), hint(k.Quit),
		}
	}
}
