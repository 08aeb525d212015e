// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

package viewerui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the document viewer TUI.
type KeyMap struct {
	// Page navigation.
	NextPage     key.Binding
	PreviousPage key.Binding
	FirstPage    key.Binding
	LastPage     key.Binding

	// Jump to an absolute page number (: then digits then enter).
	JumpActivate key.Binding

	// Document search.
	SearchActivate key.Binding
	SearchNext     key.Binding
	SearchPrevious key.Binding

	// Reload the document from disk.
	Reload key.Binding

	// CancelInput leaves search or jump input mode.
	CancelInput key.Binding

	Quit key.Binding
}

// DefaultKeyMap is the built-in key binding set. Vim-style navigation
// (j/k) alongside standard arrow keys and page up/down.
var DefaultKeyMap = KeyMap{
	NextPage: key.NewBinding(
		key.WithKeys("j", "down", "right", "pgdown", " "),
		key.WithHelp("j/↓", "next page"),
	),
	PreviousPage: key.NewBinding(
		key.WithKeys("k", "up", "left", "pgup"),
		key.WithHelp("k/↑", "previous page"),
	),
	FirstPage: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "first page"),
	),
	LastPage: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "last page"),
	),
	JumpActivate: key.NewBinding(
		key.WithKeys(":"),
		key.WithHelp(":", "go to page"),
	),
	SearchActivate: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	SearchNext: key.NewBinding(
		key.WithKeys("n"),
		key.WithHelp("n", "next match"),
	),
	SearchPrevious: key.NewBinding(
		key.WithKeys("N"),
		key.WithHelp("N", "prev match"),
	),
	Reload: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reload"),
	),
	CancelInput: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("Esc", "cancel"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
