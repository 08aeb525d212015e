// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"fmt"
	"log/slog"
	"runtime"

	"github.com/folio-foundation/folio/lib/geometry"
	"github.com/folio-foundation/folio/lib/queue"
)

// Config carries the construction-time parameters of the render worker.
type Config struct {
	// Window is the terminal's cell grid and pixel dimensions, used to
	// convert viewport rectangles to pixel sizes.
	Window geometry.WindowSize

	// Area is the initial viewport rectangle. It may be empty; the
	// worker then waits for the first AreaNotif before rendering.
	Area geometry.Rect

	// Logger receives per-page debug records. Nil disables logging.
	Logger *slog.Logger
}

// Start launches the render worker on its own goroutine and returns
// immediately. The goroutine is pinned to an OS thread: rasterization
// backends are frequently cgo-based and long CPU-bound calls must not
// share a thread with the cooperatively scheduled side of the pipeline.
//
// The worker runs until notifs is closed or a fatal error occurs. A
// fatal error is delivered as the final Result on results; results is
// closed when the worker exits, whatever the reason.
func Start(document Document, results *queue.Queue[Result], notifs <-chan Notif, config Config) {
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		Run(document, results, notifs, config)
	}()
}

// Run executes the render worker loop on the calling goroutine. Most
// callers want [Start]; Run is exported for harnesses that manage their
// own threads.
func Run(document Document, results *queue.Queue[Result], notifs <-chan Notif, config Config) {
	defer results.Close()

	w := &worker{
		document: document,
		results:  results,
		notifs:   notifs,
		window:   config.Window,
		area:     config.Area,
		logger:   config.Logger,
	}
	if w.logger == nil {
		w.logger = slog.New(slog.DiscardHandler)
	}

	if err := w.run(); err != nil {
		results.Send(Result{Err: err})
	}
}

type worker struct {
	document Document
	results  *queue.Queue[Result]
	notifs   <-chan Notif
	window   geometry.WindowSize
	area     geometry.Rect
	logger   *slog.Logger

	count    int
	target   int
	rendered []bool
	done     bool // notifs closed, shut down after current step
}

func (w *worker) run() error {
	count, err := w.document.PageCount()
	if err != nil {
		return fmt.Errorf("reading page count: %w", err)
	}
	if count < 0 {
		return fmt.Errorf("document reported negative page count %d", count)
	}
	w.count = count
	w.rendered = make([]bool, count)

	// The page count announcement is the first result of the session,
	// always, so the orchestrator can size the page buffer before any
	// page arrives.
	w.results.Send(Result{Info: NumPagesInfo{Count: count}})

	for !w.done {
		// Commands waiting in the queue take effect before the next
		// page is rendered, so a retarget or viewport change is never
		// delayed behind a full fan-out pass.
		if err := w.drainNotifs(); err != nil {
			return err
		}
		if w.done {
			return nil
		}

		page, ok := w.nextPage()
		if !ok || w.area.Empty() {
			// Nothing renderable right now: either every page is done
			// at the current geometry or there is no viewport yet.
			// Block until the next command (or shutdown).
			notif, open := <-w.notifs
			if !open {
				return nil
			}
			if err := w.apply(notif); err != nil {
				return err
			}
			continue
		}

		if err := w.renderPage(page); err != nil {
			return err
		}
	}
	return nil
}

// drainNotifs applies every command currently queued without blocking.
func (w *worker) drainNotifs() error {
	for {
		select {
		case notif, open := <-w.notifs:
			if !open {
				w.done = true
				return nil
			}
			if err := w.apply(notif); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (w *worker) apply(notif Notif) error {
	switch n := notif.(type) {
	case AreaNotif:
		if n.Area == w.area {
			return nil
		}
		w.area = n.Area
		// Geometry changed: every already-delivered raster is the
		// wrong size now.
		w.invalidate()
		w.logger.Debug("viewport changed", "width", n.Area.Width, "height", n.Area.Height)

	case JumpNotif:
		w.target = clamp(n.Page, 0, w.count-1)

	case SearchNotif:
		pages, err := w.document.Search(n.Term)
		if err != nil {
			return fmt.Errorf("searching for %q: %w", n.Term, err)
		}
		w.results.Send(Result{Info: SearchResultsInfo{Term: n.Term, Pages: pages}})

	case ReloadNotif:
		if err := w.document.Reload(); err != nil {
			return fmt.Errorf("reloading document: %w", err)
		}
		count, err := w.document.PageCount()
		if err != nil {
			return fmt.Errorf("reading page count after reload: %w", err)
		}
		if count != w.count {
			// The page count is immutable for the session; a document
			// that changed length underneath us cannot be reconciled
			// with the already-sized page buffer.
			return fmt.Errorf("page count changed on reload: had %d, now %d", w.count, count)
		}
		w.invalidate()
		w.results.Send(Result{Info: ReloadedInfo{}})
	}
	return nil
}

func (w *worker) invalidate() {
	for i := range w.rendered {
		w.rendered[i] = false
	}
}

// nextPage picks the unrendered page nearest the current target,
// preferring the forward direction on ties. This is the fan-out that
// biases work toward what the consumer is looking at.
func (w *worker) nextPage() (int, bool) {
	for offset := 0; offset < w.count; offset++ {
		if page := w.target + offset; page < w.count && !w.rendered[page] {
			return page, true
		}
		if page := w.target - offset; offset > 0 && page >= 0 && !w.rendered[page] {
			return page, true
		}
	}
	return 0, false
}

func (w *worker) renderPage(page int) error {
	width, height := w.area.PixelSize(w.window.Font())
	img, err := w.document.RenderPage(page, width, height)
	if err != nil {
		return fmt.Errorf("rendering page %d: %w", page, err)
	}
	w.rendered[page] = true
	w.results.Send(Result{Info: PageInfo{Raster: Raster{Page: page, Image: img}}})
	w.logger.Debug("page rendered", "page", page, "width", width, "height", height)
	return nil
}

func clamp(v, low, high int) int {
	if high < low {
		return low
	}
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
