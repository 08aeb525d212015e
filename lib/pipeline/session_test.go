// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/folio-foundation/folio/lib/convert"
	"github.com/folio-foundation/folio/lib/queue"
	"github.com/folio-foundation/folio/lib/render"
	"github.com/folio-foundation/folio/lib/testutil"
)

// harness drives a session without real workers: tests inject render
// and convert results directly and observe the command streams the
// orchestrator produces.
type harness struct {
	session         *Session
	renderCommands  <-chan render.Notif
	renderResults   *queue.Queue[render.Result]
	convertCommands <-chan convert.Msg
	convertResults  *queue.Queue[convert.Result]
	done            chan runOutcome
}

type runOutcome struct {
	pages []convert.Page
	err   error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	session := NewSession(nil)
	h := &harness{session: session, done: make(chan runOutcome, 1)}
	h.renderCommands, h.renderResults = session.RenderEndpoints()
	h.convertCommands, h.convertResults = session.ConvertEndpoints()

	go func() {
		pages, err := session.Run(context.Background())
		h.done <- runOutcome{pages: pages, err: err}
	}()
	return h
}

func (h *harness) sendInfo(info render.Info) {
	h.renderResults.Send(render.Result{Info: info})
}

func (h *harness) sendArtifact(num int) {
	h.convertResults.Send(convert.Result{Page: convert.Page{Num: num}})
}

func (h *harness) raster(num int) render.Raster {
	return render.Raster{Page: num, Image: image.NewRGBA(image.Rect(0, 0, 1, 1))}
}

// expectConvertCommand receives the next convert command, failing on
// stream end or timeout.
func (h *harness) expectConvertCommand(t *testing.T) convert.Msg {
	t.Helper()
	return testutil.RequireReceive(t, h.convertCommands, 5*time.Second, "convert command")
}

func (h *harness) outcome(t *testing.T) runOutcome {
	t.Helper()
	return testutil.RequireReceive(t, h.done, 5*time.Second, "session outcome")
}

// announcePages sends the page count and waits for its forwarded
// convert command. Tests that inject artifacts directly need this
// barrier: without it the artifact could win the select race against
// the count and be misread as a pre-allocation fill.
func (h *harness) announcePages(t *testing.T, count int) {
	t.Helper()
	h.sendInfo(render.NumPagesInfo{Count: count})
	command := h.expectConvertCommand(t)
	if _, ok := command.(convert.NumPagesMsg); !ok {
		t.Fatalf("first convert command = %T, want NumPagesMsg", command)
	}
}

func TestPageCountAllocatesAndForwards(t *testing.T) {
	h := newHarness(t)
	h.sendInfo(render.NumPagesInfo{Count: 3})

	command := h.expectConvertCommand(t)
	numPages, ok := command.(convert.NumPagesMsg)
	if !ok {
		t.Fatalf("first convert command = %T, want NumPagesMsg", command)
	}
	if numPages.Count != 3 {
		t.Errorf("forwarded count = %d, want 3", numPages.Count)
	}

	event := testutil.RequireReceive(t, h.session.Events(), 5*time.Second, "page count event")
	if counted, ok := event.(PageCountEvent); !ok || counted.Count != 3 {
		t.Errorf("event = %#v, want PageCountEvent{3}", event)
	}

	h.renderResults.Close() // tear down; premature exit expected
	h.outcome(t)
}

func TestDuplicatePageCountIsProtocolViolation(t *testing.T) {
	h := newHarness(t)
	h.sendInfo(render.NumPagesInfo{Count: 2})
	h.sendInfo(render.NumPagesInfo{Count: 2})

	outcome := h.outcome(t)
	if !errors.Is(outcome.err, ErrDuplicatePageCount) {
		t.Fatalf("err = %v, want ErrDuplicatePageCount", outcome.err)
	}
	var workerErr *WorkerError
	if !errors.As(outcome.err, &workerErr) || workerErr.Side != SideRender {
		t.Errorf("error not attributed to the render side: %v", outcome.err)
	}
}

func TestRastersAreRelayedVerbatim(t *testing.T) {
	h := newHarness(t)
	h.sendInfo(render.NumPagesInfo{Count: 2})
	h.expectConvertCommand(t) // NumPages

	raster := h.raster(1)
	h.sendInfo(render.PageInfo{Raster: raster})

	command := h.expectConvertCommand(t)
	added, ok := command.(convert.AddImageMsg)
	if !ok {
		t.Fatalf("convert command = %T, want AddImageMsg", command)
	}
	if added.Raster.Page != 1 || added.Raster.Image != raster.Image {
		t.Error("raster was not relayed unchanged")
	}

	h.renderResults.Close()
	h.outcome(t)
}

// TestRenderCommandsStayOpenUntilTermination covers the shutdown
// ordering: the render worker must be able to receive commands for as
// long as any slot is empty, and both command streams are released
// only after the buffer completes.
func TestRenderCommandsStayOpenUntilTermination(t *testing.T) {
	h := newHarness(t)
	h.announcePages(t, 2)

	h.sendArtifact(0)
	command := h.expectConvertCommand(t)
	if goTo, ok := command.(convert.GoToPageMsg); !ok || goTo.Page != 1 {
		t.Fatalf("convert command = %#v, want GoToPageMsg{Page: 1}", command)
	}

	// Mid-session, with slot 1 still empty: the render command stream
	// must be open and quiet. RequireNoReceive fails on a closed
	// channel, so this catches an early close.
	testutil.RequireNoReceive(t, h.renderCommands, 50*time.Millisecond, "render command stream mid-session")

	h.sendArtifact(1)
	outcome := h.outcome(t)
	if outcome.err != nil {
		t.Fatalf("Run: %v", outcome.err)
	}

	// Only after termination do both command streams end.
	testutil.RequireStreamEnd(t, h.renderCommands, 5*time.Second, "render command stream after termination")
	testutil.RequireStreamEnd(t, h.convertCommands, 5*time.Second, "convert command stream after termination")
}

// TestScenarioThreePagesOutOfOrder is the n=3 scenario: rasters arrive
// 0,2,1; artifacts fill in that order; the loop terminates with a full
// buffer and no retarget after the final fill.
func TestScenarioThreePagesOutOfOrder(t *testing.T) {
	h := newHarness(t)

	h.sendInfo(render.NumPagesInfo{Count: 3})
	for _, num := range []int{0, 2, 1} {
		h.sendInfo(render.PageInfo{Raster: h.raster(num)})
	}

	// Consume the forwarded commands: 1 NumPages + 3 AddImage.
	for i := 0; i < 4; i++ {
		h.expectConvertCommand(t)
	}

	h.sendArtifact(0)
	command := h.expectConvertCommand(t)
	if goTo, ok := command.(convert.GoToPageMsg); !ok || goTo.Page != 1 {
		t.Fatalf("after filling 0: command = %#v, want GoToPageMsg{1}", command)
	}

	h.sendArtifact(2)
	command = h.expectConvertCommand(t)
	if goTo, ok := command.(convert.GoToPageMsg); !ok || goTo.Page != 1 {
		t.Fatalf("after filling 2: command = %#v, want GoToPageMsg{1}", command)
	}

	h.sendArtifact(1)
	// Final fill: no GoToPage, the command stream just closes.
	testutil.RequireStreamEnd(t, h.convertCommands, 5*time.Second, "convert commands after completion")

	outcome := h.outcome(t)
	if outcome.err != nil {
		t.Fatalf("Run: %v", outcome.err)
	}
	if len(outcome.pages) != 3 {
		t.Fatalf("returned %d pages, want 3", len(outcome.pages))
	}
	for i, p := range outcome.pages {
		if p.Num != i {
			t.Errorf("pages[%d].Num = %d, want %d", i, p.Num, i)
		}
	}
}

// TestScenarioConvertFailure is the n=2 scenario: the convert worker
// reports a failure; the session aborts, discards the partial buffer,
// and issues no retarget after the error.
func TestScenarioConvertFailure(t *testing.T) {
	h := newHarness(t)

	h.sendInfo(render.NumPagesInfo{Count: 2})
	h.sendInfo(render.PageInfo{Raster: h.raster(0)})
	h.expectConvertCommand(t) // NumPages
	h.expectConvertCommand(t) // AddImage(0)

	h.sendArtifact(0)
	command := h.expectConvertCommand(t)
	if goTo, ok := command.(convert.GoToPageMsg); !ok || goTo.Page != 1 {
		t.Fatalf("command = %#v, want GoToPageMsg{1}", command)
	}

	encodeFailure := errors.New("encode failure on page 1")
	h.convertResults.Send(convert.Result{Err: encodeFailure})

	outcome := h.outcome(t)
	if !errors.Is(outcome.err, encodeFailure) {
		t.Fatalf("err = %v, want wrapped encode failure", outcome.err)
	}
	var workerErr *WorkerError
	if !errors.As(outcome.err, &workerErr) || workerErr.Side != SideConvert {
		t.Errorf("error not attributed to the convert side: %v", outcome.err)
	}
	if outcome.pages != nil {
		t.Error("partial buffer was returned on failure")
	}

	// No further GoToPage after the error, only stream end.
	testutil.RequireStreamEnd(t, h.convertCommands, 5*time.Second, "convert commands after abort")
}

func TestAnyInterleavingCompletes(t *testing.T) {
	h := newHarness(t)

	// Interleave the two streams aggressively: artifacts race ahead of
	// rasters for other pages.
	h.announcePages(t, 5)
	h.sendInfo(render.PageInfo{Raster: h.raster(4)})
	h.sendArtifact(4)
	h.sendInfo(render.PageInfo{Raster: h.raster(0)})
	h.sendArtifact(2)
	h.sendInfo(render.PageInfo{Raster: h.raster(2)})
	h.sendArtifact(0)
	h.sendArtifact(3)
	h.sendInfo(render.PageInfo{Raster: h.raster(1)})
	h.sendInfo(render.PageInfo{Raster: h.raster(3)})
	h.sendArtifact(1)

	outcome := h.outcome(t)
	if outcome.err != nil {
		t.Fatalf("Run: %v", outcome.err)
	}
	if len(outcome.pages) != 5 {
		t.Fatalf("returned %d pages, want 5", len(outcome.pages))
	}
}

func TestDoubleFillIsProtocolViolation(t *testing.T) {
	h := newHarness(t)
	h.announcePages(t, 2)
	h.sendArtifact(0)
	h.sendArtifact(0)

	outcome := h.outcome(t)
	if !errors.Is(outcome.err, ErrPageRefilled) {
		t.Fatalf("err = %v, want ErrPageRefilled", outcome.err)
	}
}

func TestOutOfRangeFillIsProtocolViolation(t *testing.T) {
	h := newHarness(t)
	h.announcePages(t, 2)
	h.sendArtifact(7)

	outcome := h.outcome(t)
	if !errors.Is(outcome.err, ErrPageOutOfRange) {
		t.Fatalf("err = %v, want ErrPageOutOfRange", outcome.err)
	}
}

func TestRenderErrorAbortsSession(t *testing.T) {
	h := newHarness(t)
	h.sendInfo(render.NumPagesInfo{Count: 2})

	decodeFailure := errors.New("document unreadable")
	h.renderResults.Send(render.Result{Err: decodeFailure})

	outcome := h.outcome(t)
	if !errors.Is(outcome.err, decodeFailure) {
		t.Fatalf("err = %v, want wrapped decode failure", outcome.err)
	}
	var workerErr *WorkerError
	if !errors.As(outcome.err, &workerErr) || workerErr.Side != SideRender {
		t.Errorf("error not attributed to the render side: %v", outcome.err)
	}
}

// TestPrematureStreamCloseIsDistinctError checks that a worker stream
// ending before completion is surfaced as ErrPrematureExit on the
// right side, distinguishable from worker-reported failures.
func TestPrematureStreamCloseIsDistinctError(t *testing.T) {
	t.Run("render", func(t *testing.T) {
		h := newHarness(t)
		h.announcePages(t, 2)
		h.sendArtifact(0) // one slot filled; not complete
		h.renderResults.Close()

		outcome := h.outcome(t)
		if !errors.Is(outcome.err, ErrPrematureExit) {
			t.Fatalf("err = %v, want ErrPrematureExit", outcome.err)
		}
		var workerErr *WorkerError
		if !errors.As(outcome.err, &workerErr) || workerErr.Side != SideRender {
			t.Errorf("error not attributed to the render side: %v", outcome.err)
		}
	})

	t.Run("convert", func(t *testing.T) {
		h := newHarness(t)
		h.announcePages(t, 2)
		h.convertResults.Close()

		outcome := h.outcome(t)
		if !errors.Is(outcome.err, ErrPrematureExit) {
			t.Fatalf("err = %v, want ErrPrematureExit", outcome.err)
		}
		var workerErr *WorkerError
		if !errors.As(outcome.err, &workerErr) || workerErr.Side != SideConvert {
			t.Errorf("error not attributed to the convert side: %v", outcome.err)
		}
	})
}

func TestInformationalResultsBecomeEvents(t *testing.T) {
	h := newHarness(t)
	h.announcePages(t, 1)
	h.sendInfo(render.ReloadedInfo{})
	h.sendInfo(render.SearchResultsInfo{Term: "needle", Pages: []int{0}})

	var sawReloaded, sawSearch bool
	for !sawReloaded || !sawSearch {
		event := testutil.RequireReceive(t, h.session.Events(), 5*time.Second, "event")
		switch e := event.(type) {
		case ReloadedEvent:
			sawReloaded = true
		case SearchResultsEvent:
			if e.Term != "needle" || len(e.Pages) != 1 || e.Pages[0] != 0 {
				t.Errorf("search event = %#v", e)
			}
			sawSearch = true
		}
	}

	h.sendArtifact(0)
	outcome := h.outcome(t)
	if outcome.err != nil {
		t.Fatalf("Run: %v", outcome.err)
	}
}

func TestContextCancellationTearsDown(t *testing.T) {
	session := NewSession(nil)
	_, renderResults := session.RenderEndpoints()
	convertCommands, _ := session.ConvertEndpoints()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan runOutcome, 1)
	go func() {
		pages, err := session.Run(ctx)
		done <- runOutcome{pages: pages, err: err}
	}()

	renderResults.Send(render.Result{Info: render.NumPagesInfo{Count: 3}})
	cancel()

	outcome := testutil.RequireReceive(t, done, 5*time.Second, "cancelled outcome")
	if !errors.Is(outcome.err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", outcome.err)
	}

	// Teardown closes the command queues even on cancellation.
	for {
		if _, open := <-convertCommands; !open {
			break
		}
	}
}

func TestCompletionEventEmitted(t *testing.T) {
	h := newHarness(t)
	h.announcePages(t, 1)
	h.sendArtifact(0)

	h.outcome(t)

	var sawCompleted bool
	for event := range h.session.Events() {
		if _, ok := event.(CompletedEvent); ok {
			sawCompleted = true
		}
	}
	if !sawCompleted {
		t.Error("no CompletedEvent before the event stream closed")
	}
}
