// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

package viewerui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/folio-foundation/folio/lib/geometry"
	"github.com/folio-foundation/folio/lib/pipeline"
	"github.com/folio-foundation/folio/lib/termgfx"
)

// sessionEventMsg wraps a pipeline Event for delivery through the
// bubbletea message loop.
type sessionEventMsg struct {
	event pipeline.Event
}

// SessionDoneMsg reports that the pipeline session's Run has returned.
// The program driving the model sends it when the run goroutine exits.
type SessionDoneMsg struct {
	Err error
}

// InputMode identifies where keystrokes are routed.
type InputMode int

const (
	// ModeView means keys navigate pages.
	ModeView InputMode = iota
	// ModeSearch means keystrokes go to the search input.
	ModeSearch
	// ModeJump means keystrokes go to the page number input.
	ModeJump
)

// Model is the top-level bubbletea model for the document viewer.
type Model struct {
	session *pipeline.Session
	theme   Theme
	keys    KeyMap
	font    geometry.FontSize

	// Document title shown in the status bar.
	title string

	// Terminal dimensions (set by WindowSizeMsg).
	width  int
	height int
	ready  bool

	// Page state. pages is indexed by page number; a nil entry means
	// the pipeline has not delivered that page yet.
	count   int
	pages   []*termgfx.Artifact
	current int

	mode      InputMode
	search    SearchModel
	jumpInput string

	// Pipeline completion state.
	completed bool
	runErr    error
	notice    string
}

// NewModel creates a Model attached to a running pipeline session.
// The title appears in the status bar, typically the document path.
func NewModel(session *pipeline.Session, font geometry.FontSize, title string) Model {
	return Model{
		session: session,
		theme:   DefaultTheme,
		keys:    DefaultKeyMap,
		font:    font,
		title:   title,
		search:  SearchModel{Position: -1},
	}
}

// Init implements tea.Model. Starts draining the session event stream.
func (model Model) Init() tea.Cmd {
	return listenForSessionEvent(model.session.Events())
}

// listenForSessionEvent returns a tea.Cmd that blocks until a pipeline
// event arrives, then delivers it as a sessionEventMsg. Returns nil
// when the stream closes, which stops the listen loop.
func listenForSessionEvent(events <-chan pipeline.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return sessionEventMsg{event: event}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		return model.handleKey(message)

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		// One row is reserved for the status bar; the rest is the
		// page viewport.
		model.session.SetArea(geometry.Rect{
			Width:  message.Width,
			Height: message.Height - 1,
		})

	case sessionEventMsg:
		model.handleEvent(message.event)
		return model, listenForSessionEvent(model.session.Events())

	case SessionDoneMsg:
		if message.Err != nil {
			model.runErr = message.Err
		}
	}
	return model, nil
}

// handleEvent folds one pipeline event into the model.
func (model *Model) handleEvent(event pipeline.Event) {
	switch event := event.(type) {
	case pipeline.PageCountEvent:
		model.count = event.Count
		model.pages = make([]*termgfx.Artifact, event.Count)

	case pipeline.PageReadyEvent:
		page := event.Page
		if page.Num >= 0 && page.Num < len(model.pages) {
			artifact := page.Artifact
			model.pages[page.Num] = &artifact
		}

	case pipeline.SearchResultsEvent:
		model.search.SetResults(event.Term, event.Pages)
		if page, ok := model.search.Advance(0); ok {
			model.setPage(page)
		}

	case pipeline.ReloadedEvent:
		model.notice = "reloaded"

	case pipeline.CompletedEvent:
		model.completed = true
	}
}

// handleKey routes keyboard input based on the current input mode.
func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch model.mode {
	case ModeSearch:
		return model.handleSearchKey(message)
	case ModeJump:
		return model.handleJumpKey(message)
	}

	model.notice = ""

	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.NextPage):
		model.setPage(model.current + 1)

	case key.Matches(message, model.keys.PreviousPage):
		model.setPage(model.current - 1)

	case key.Matches(message, model.keys.FirstPage):
		model.setPage(0)

	case key.Matches(message, model.keys.LastPage):
		model.setPage(model.count - 1)

	case key.Matches(message, model.keys.JumpActivate):
		model.mode = ModeJump
		model.jumpInput = ""

	case key.Matches(message, model.keys.SearchActivate):
		model.mode = ModeSearch
		model.search.Active = true
		model.search.Input = ""

	case key.Matches(message, model.keys.SearchNext):
		if page, ok := model.search.Advance(1); ok {
			model.setPage(page)
		}

	case key.Matches(message, model.keys.SearchPrevious):
		if page, ok := model.search.Advance(-1); ok {
			model.setPage(page)
		}

	case key.Matches(message, model.keys.Reload):
		model.session.Reload()

	case key.Matches(message, model.keys.CancelInput):
		model.search.Clear()
	}
	return model, nil
}

// handleSearchKey processes input while the search line has focus.
func (model Model) handleSearchKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch message.Type {
	case tea.KeyRunes, tea.KeySpace:
		for _, character := range message.Runes {
			model.search.HandleRune(character)
		}

	case tea.KeyBackspace:
		model.search.HandleBackspace()

	case tea.KeyEnter:
		model.mode = ModeView
		if term, ok := model.search.Submit(); ok {
			model.session.Search(term)
		}

	case tea.KeyEscape, tea.KeyCtrlC:
		model.mode = ModeView
		model.search.Clear()
	}
	return model, nil
}

// handleJumpKey processes input while the page number line has focus.
func (model Model) handleJumpKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch message.Type {
	case tea.KeyRunes:
		for _, character := range message.Runes {
			if character >= '0' && character <= '9' {
				model.jumpInput += string(character)
			}
		}

	case tea.KeyBackspace:
		if len(model.jumpInput) > 0 {
			model.jumpInput = model.jumpInput[:len(model.jumpInput)-1]
		}

	case tea.KeyEnter:
		model.mode = ModeView
		if number, err := strconv.Atoi(model.jumpInput); err == nil {
			// Users count pages from 1.
			model.setPage(number - 1)
		}
		model.jumpInput = ""

	case tea.KeyEscape, tea.KeyCtrlC:
		model.mode = ModeView
		model.jumpInput = ""
	}
	return model, nil
}

// setPage clamps the target to the known page range, makes it current,
// and retargets the pipeline so rendering and conversion concentrate
// around it.
func (model *Model) setPage(page int) {
	if model.count == 0 {
		return
	}
	if page < 0 {
		page = 0
	}
	if page >= model.count {
		page = model.count - 1
	}
	if page == model.current {
		return
	}
	model.current = page
	model.session.GoToPage(page)
}

// View implements tea.Model. The page area fills all but the last row;
// the status bar occupies the bottom row.
func (model Model) View() string {
	if !model.ready {
		return "starting..."
	}

	viewportRows := model.height - 1
	if viewportRows < 1 {
		viewportRows = 1
	}

	var body string
	bodyRows := 0
	if model.count > 0 && model.current < len(model.pages) && model.pages[model.current] != nil {
		artifact := model.pages[model.current]
		body = string(artifact.Data)
		bodyRows = artifact.Rows
	} else {
		placeholder := "opening document..."
		if model.count > 0 {
			placeholder = fmt.Sprintf("rendering page %d...", model.current+1)
		}
		body = lipgloss.NewStyle().
			Foreground(model.theme.FaintText).
			Render(placeholder)
		bodyRows = 1
	}

	// Pad the body to push the status bar to the bottom row. Artifact
	// data positions itself with escape sequences rather than
	// newlines, so padding counts rows, not lines in the string.
	padding := viewportRows - bodyRows
	if padding < 0 {
		padding = 0
	}

	return body + strings.Repeat("\n", padding) + "\n" + model.statusBar()
}

// statusBar renders the bottom chrome row: title, page position, and
// whichever of search state, notice, or error is active.
func (model Model) statusBar() string {
	style := lipgloss.NewStyle().
		Foreground(model.theme.StatusForeground).
		Background(model.theme.StatusBackground).
		Width(model.width)

	left := " " + model.title
	if model.count > 0 {
		left += fmt.Sprintf("  page %d/%d", model.current+1, model.count)
	}
	if model.completed {
		left += "  ✓"
	}

	switch {
	case model.runErr != nil:
		errStyle := lipgloss.NewStyle().Foreground(model.theme.ErrorForeground)
		left += errStyle.Render("  " + model.runErr.Error())
	case model.mode == ModeJump:
		left += "  :" + model.jumpInput
	default:
		left += model.search.StatusText(model.theme)
	}

	if model.notice != "" {
		left += "  [" + model.notice + "]"
	}

	// Long titles or error messages must not wrap the bar onto a
	// second row.
	if ansi.StringWidth(left) > model.width {
		left = ansi.Truncate(left, model.width-1, "…")
	}
	return style.Render(left)
}
