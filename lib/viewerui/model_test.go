// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

package viewerui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/folio-foundation/folio/lib/convert"
	"github.com/folio-foundation/folio/lib/geometry"
	"github.com/folio-foundation/folio/lib/pipeline"
	"github.com/folio-foundation/folio/lib/render"
	"github.com/folio-foundation/folio/lib/termgfx"
	"github.com/folio-foundation/folio/lib/testutil"
)

const timeout = 2 * time.Second

// viewerHarness holds a model wired to a session whose worker-side
// queue endpoints the test can observe directly.
type viewerHarness struct {
	model       Model
	session     *pipeline.Session
	renderCmds  <-chan render.Notif
	convertCmds <-chan convert.Msg
}

func newHarness(t *testing.T) *viewerHarness {
	t.Helper()
	session := pipeline.NewSession(nil)
	renderCmds, _ := session.RenderEndpoints()
	convertCmds, _ := session.ConvertEndpoints()
	return &viewerHarness{
		model:       NewModel(session, geometry.DefaultFontSize, "test.pdf"),
		session:     session,
		renderCmds:  renderCmds,
		convertCmds: convertCmds,
	}
}

// apply runs one Update and keeps the concrete model type.
func (h *viewerHarness) apply(t *testing.T, message tea.Msg) {
	t.Helper()
	updated, _ := h.model.Update(message)
	model, ok := updated.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", updated)
	}
	h.model = model
}

func (h *viewerHarness) typeKey(t *testing.T, keys string) {
	t.Helper()
	for _, character := range keys {
		h.apply(t, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{character}})
	}
}

// announceCount folds a PageCountEvent into the model.
func (h *viewerHarness) announceCount(t *testing.T, count int) {
	t.Helper()
	h.apply(t, sessionEventMsg{event: pipeline.PageCountEvent{Count: count}})
}

func TestWindowSizeReservesStatusRow(t *testing.T) {
	h := newHarness(t)
	h.apply(t, tea.WindowSizeMsg{Width: 80, Height: 24})

	notif := testutil.RequireReceive(t, h.renderCmds, timeout, "area notification")
	area, ok := notif.(render.AreaNotif)
	if !ok {
		t.Fatalf("notification = %T, want AreaNotif", notif)
	}
	if area.Area.Width != 80 || area.Area.Height != 23 {
		t.Errorf("area = %dx%d, want 80x23 (one row for the status bar)",
			area.Area.Width, area.Area.Height)
	}
}

func TestNextPageRetargetsPipeline(t *testing.T) {
	h := newHarness(t)
	h.apply(t, tea.WindowSizeMsg{Width: 80, Height: 24})
	testutil.RequireReceive(t, h.renderCmds, timeout, "area notification")
	h.announceCount(t, 3)

	h.typeKey(t, "j")

	notif := testutil.RequireReceive(t, h.renderCmds, timeout, "jump notification")
	if jump, ok := notif.(render.JumpNotif); !ok || jump.Page != 1 {
		t.Errorf("render command = %#v, want JumpNotif{Page: 1}", notif)
	}
	command := testutil.RequireReceive(t, h.convertCmds, timeout, "go-to-page command")
	if goTo, ok := command.(convert.GoToPageMsg); !ok || goTo.Page != 1 {
		t.Errorf("convert command = %#v, want GoToPageMsg{Page: 1}", command)
	}

	if !strings.Contains(h.model.View(), "page 2/3") {
		t.Errorf("status bar missing page 2/3:\n%s", h.model.View())
	}
}

func TestPreviousPageClampsAtFirst(t *testing.T) {
	h := newHarness(t)
	h.apply(t, tea.WindowSizeMsg{Width: 80, Height: 24})
	testutil.RequireReceive(t, h.renderCmds, timeout, "area notification")
	h.announceCount(t, 3)

	// Already on page 0: no command should go out.
	h.typeKey(t, "k")
	testutil.RequireNoReceive(t, h.renderCmds, 50*time.Millisecond, "clamped navigation")
}

func TestJumpInputGoesToPage(t *testing.T) {
	h := newHarness(t)
	h.apply(t, tea.WindowSizeMsg{Width: 80, Height: 24})
	testutil.RequireReceive(t, h.renderCmds, timeout, "area notification")
	h.announceCount(t, 10)

	h.typeKey(t, ":5")
	h.apply(t, tea.KeyMsg{Type: tea.KeyEnter})

	notif := testutil.RequireReceive(t, h.renderCmds, timeout, "jump notification")
	// Page 5 as the user counts it is index 4.
	if jump, ok := notif.(render.JumpNotif); !ok || jump.Page != 4 {
		t.Errorf("render command = %#v, want JumpNotif{Page: 4}", notif)
	}
}

func TestSearchSubmitAndResults(t *testing.T) {
	h := newHarness(t)
	h.apply(t, tea.WindowSizeMsg{Width: 80, Height: 24})
	testutil.RequireReceive(t, h.renderCmds, timeout, "area notification")
	h.announceCount(t, 5)

	h.typeKey(t, "/agenda")
	h.apply(t, tea.KeyMsg{Type: tea.KeyEnter})

	notif := testutil.RequireReceive(t, h.renderCmds, timeout, "search notification")
	if search, ok := notif.(render.SearchNotif); !ok || search.Term != "agenda" {
		t.Fatalf("render command = %#v, want SearchNotif{Term: agenda}", notif)
	}

	// Results jump the viewer to the first match.
	h.apply(t, sessionEventMsg{event: pipeline.SearchResultsEvent{Term: "agenda", Pages: []int{2, 4}}})
	jumpNotif := testutil.RequireReceive(t, h.renderCmds, timeout, "jump to first match")
	if jump, ok := jumpNotif.(render.JumpNotif); !ok || jump.Page != 2 {
		t.Errorf("render command = %#v, want JumpNotif{Page: 2}", jumpNotif)
	}
	testutil.RequireReceive(t, h.convertCmds, timeout, "convert retarget")

	if !strings.Contains(h.model.View(), "match 1/2") {
		t.Errorf("status bar missing match position:\n%s", h.model.View())
	}

	// n advances and wraps.
	h.typeKey(t, "n")
	jumpNotif = testutil.RequireReceive(t, h.renderCmds, timeout, "jump to next match")
	if jump, ok := jumpNotif.(render.JumpNotif); !ok || jump.Page != 4 {
		t.Errorf("render command = %#v, want JumpNotif{Page: 4}", jumpNotif)
	}
}

func TestPageReadyShowsArtifact(t *testing.T) {
	h := newHarness(t)
	h.apply(t, tea.WindowSizeMsg{Width: 80, Height: 24})
	testutil.RequireReceive(t, h.renderCmds, timeout, "area notification")
	h.announceCount(t, 2)

	h.apply(t, sessionEventMsg{event: pipeline.PageReadyEvent{
		Page: convert.Page{
			Num:      0,
			Artifact: termgfx.Artifact{Data: []byte("PAGE-ZERO-CELLS"), Rows: 1, Columns: 15},
		},
	}})

	if !strings.Contains(h.model.View(), "PAGE-ZERO-CELLS") {
		t.Errorf("view missing delivered page artifact:\n%s", h.model.View())
	}
}

func TestRunErrorShownInStatusBar(t *testing.T) {
	h := newHarness(t)
	h.apply(t, tea.WindowSizeMsg{Width: 80, Height: 24})
	testutil.RequireReceive(t, h.renderCmds, timeout, "area notification")

	h.apply(t, SessionDoneMsg{Err: pipeline.ErrPrematureExit})
	if !strings.Contains(h.model.View(), pipeline.ErrPrematureExit.Error()) {
		t.Errorf("status bar missing run error:\n%s", h.model.View())
	}
}

func TestQuitKey(t *testing.T) {
	h := newHarness(t)
	updated, cmd := h.model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if _, ok := updated.(Model); !ok {
		t.Fatalf("Update returned %T, want Model", updated)
	}
	if cmd == nil {
		t.Fatal("quit key produced no command")
	}
}
