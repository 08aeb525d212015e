// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

package viewerui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// SearchModel holds the search input line and the most recent result
// set. The input composes with the status bar: while active it replaces
// the normal status text, and once results arrive the bar shows the
// current match position.
type SearchModel struct {
	// Input is the current query text.
	Input string

	// Active is true when the search input has keyboard focus
	// (the user pressed / to start typing).
	Active bool

	// Term is the submitted query the results belong to.
	Term string

	// Results holds the matching page indices, ascending.
	Results []int

	// Position is the index into Results of the current match, or -1
	// when there are no results.
	Position int
}

// HandleRune processes a character typed while the search is active.
func (search *SearchModel) HandleRune(character rune) {
	search.Input += string(character)
}

// HandleBackspace removes the last character from the search input.
// Returns true if the input changed.
func (search *SearchModel) HandleBackspace() bool {
	if len(search.Input) == 0 {
		return false
	}
	runes := []rune(search.Input)
	search.Input = string(runes[:len(runes)-1])
	return true
}

// Submit deactivates the input and returns the query to send. Empty
// queries submit nothing.
func (search *SearchModel) Submit() (string, bool) {
	search.Active = false
	if search.Input == "" {
		return "", false
	}
	return search.Input, true
}

// SetResults installs a result set for the given term and resets the
// match position to the first result.
func (search *SearchModel) SetResults(term string, pages []int) {
	search.Term = term
	search.Results = pages
	if len(pages) == 0 {
		search.Position = -1
		return
	}
	search.Position = 0
}

// Advance moves the current match position by delta, wrapping at both
// ends. Returns the page index of the new current match.
func (search *SearchModel) Advance(delta int) (int, bool) {
	if len(search.Results) == 0 {
		return 0, false
	}
	search.Position = (search.Position + delta + len(search.Results)) % len(search.Results)
	return search.Results[search.Position], true
}

// Clear resets all search state.
func (search *SearchModel) Clear() {
	search.Input = ""
	search.Active = false
	search.Term = ""
	search.Results = nil
	search.Position = -1
}

// StatusText renders the search portion of the status bar: the live
// input while typing, or the match position once results are in.
func (search *SearchModel) StatusText(theme Theme) string {
	if search.Active {
		cursor := lipgloss.NewStyle().
			Foreground(theme.AccentForeground).
			Bold(true).
			Render("▎")
		return " /" + search.Input + cursor
	}
	if search.Term == "" {
		return ""
	}
	if len(search.Results) == 0 {
		return fmt.Sprintf(" /%s: no matches", search.Term)
	}
	return fmt.Sprintf(" /%s: match %d/%d", search.Term, search.Position+1, len(search.Results))
}
