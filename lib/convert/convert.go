// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

// Package convert defines the convert worker side of the pipeline: the
// command and result messages exchanged with the orchestrator and the
// worker loop that turns raw rasters into terminal-protocol artifacts.
//
// The worker is lazy by design. It holds every raster it receives but
// only encodes pages within a fixed prerender window around its current
// target page; pages outside the window wait until a GoToPage command
// recenters the window on them. This bounds the CPU and memory spent
// encoding pages the consumer may never look at, and it is why the
// orchestrator's gap-filling feedback loop exists: without retargeting,
// pages outside the first window would never be encoded.
package convert

import (
	"fmt"
	"image"
	"log/slog"

	"github.com/folio-foundation/folio/lib/queue"
	"github.com/folio-foundation/folio/lib/render"
	"github.com/folio-foundation/folio/lib/termgfx"
)

// Msg is a command to the convert worker. Implementations are the
// *Msg types below; the interface is sealed.
type Msg interface {
	isMsg()
}

// NumPagesMsg sizes the worker's bookkeeping. Forwarded verbatim from
// the render worker's announcement; must arrive before any AddImageMsg.
type NumPagesMsg struct {
	Count int
}

// AddImageMsg delivers one raw raster for encoding. The worker takes
// ownership of the image.
type AddImageMsg struct {
	Raster render.Raster
}

// GoToPageMsg recenters the prerender window on the given page index.
// Out-of-range indices are clamped.
type GoToPageMsg struct {
	Page int
}

func (NumPagesMsg) isMsg() {}
func (AddImageMsg) isMsg() {}
func (GoToPageMsg) isMsg() {}

// Page is one encoded page artifact, tagged with its page index.
type Page struct {
	Num      int
	Artifact termgfx.Artifact
}

// Result is one element of the convert result stream: an encoded page
// or a fatal error. A Result with Err set is the worker's last message.
type Result struct {
	Page Page
	Err  error
}

// Encoder encodes one raster image into a terminal artifact.
// termgfx.Encoder is the production implementation; tests substitute
// fakes.
type Encoder interface {
	Encode(img image.Image) (termgfx.Artifact, error)
}

// Cache is an optional artifact cache consulted before encoding and
// populated after. Implementations must treat all failures as misses;
// the worker never sees cache errors.
type Cache interface {
	Load(raster render.Raster) (termgfx.Artifact, bool)
	Store(raster render.Raster, artifact termgfx.Artifact)
}

// Config carries the construction-time parameters of the convert
// worker.
type Config struct {
	// Encoder produces artifacts. Required.
	Encoder Encoder

	// Prerender is the window half-width: pages within Prerender of
	// the current target are encoded proactively. Zero means only the
	// exact target page is encoded without an explicit retarget.
	Prerender int

	// Cache, when non-nil, is consulted before each encode and
	// populated after.
	Cache Cache

	// Logger receives per-page debug records. Nil disables logging.
	Logger *slog.Logger
}

// Start launches the convert worker on its own goroutine. The worker
// is cooperative — it suspends whenever it waits for a command and
// between page encodes — so it shares the runtime with the
// orchestrator without starving it.
//
// The worker runs until commands is closed or a fatal error occurs.
// results is closed when the worker exits.
func Start(commands <-chan Msg, results *queue.Queue[Result], config Config) {
	go Run(commands, results, config)
}

// Run executes the convert worker loop on the calling goroutine.
func Run(commands <-chan Msg, results *queue.Queue[Result], config Config) {
	defer results.Close()

	w := &converter{
		commands:  commands,
		results:   results,
		encoder:   config.Encoder,
		prerender: config.Prerender,
		cache:     config.Cache,
		logger:    config.Logger,
		count:     -1,
	}
	if w.logger == nil {
		w.logger = slog.New(slog.DiscardHandler)
	}

	if err := w.run(); err != nil {
		results.Send(Result{Err: err})
	}
}

type converter struct {
	commands  <-chan Msg
	results   *queue.Queue[Result]
	encoder   Encoder
	prerender int
	cache     Cache
	logger    *slog.Logger

	count   int // -1 until NumPagesMsg
	target  int
	pending map[int]render.Raster
	done    []bool
	closed  bool
}

func (w *converter) run() error {
	for {
		// Commands take effect before the next encode so a retarget
		// reorders remaining work immediately.
		if err := w.drainCommands(); err != nil {
			return err
		}
		if w.closed {
			return nil
		}

		page, ok := w.nextEligible()
		if !ok {
			command, open := <-w.commands
			if !open {
				return nil
			}
			if err := w.apply(command); err != nil {
				return err
			}
			continue
		}

		if err := w.encodePage(page); err != nil {
			return err
		}
	}
}

func (w *converter) drainCommands() error {
	for {
		select {
		case command, open := <-w.commands:
			if !open {
				w.closed = true
				return nil
			}
			if err := w.apply(command); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

func (w *converter) apply(command Msg) error {
	switch m := command.(type) {
	case NumPagesMsg:
		if w.count >= 0 {
			return fmt.Errorf("page count announced twice (%d, then %d)", w.count, m.Count)
		}
		if m.Count < 0 {
			return fmt.Errorf("negative page count %d", m.Count)
		}
		w.count = m.Count
		w.done = make([]bool, m.Count)
		w.pending = make(map[int]render.Raster, m.Count)

	case AddImageMsg:
		if w.count < 0 {
			return fmt.Errorf("raster for page %d arrived before the page count", m.Raster.Page)
		}
		if m.Raster.Page < 0 || m.Raster.Page >= w.count {
			return fmt.Errorf("raster page %d out of range 0..%d", m.Raster.Page, w.count-1)
		}
		w.pending[m.Raster.Page] = m.Raster

	case GoToPageMsg:
		if w.count > 0 {
			w.target = clamp(m.Page, 0, w.count-1)
		}
	}
	return nil
}

// nextEligible picks the unencoded pending page nearest the target that
// falls inside the prerender window, preferring the forward direction
// on ties.
func (w *converter) nextEligible() (int, bool) {
	for offset := 0; offset <= w.prerender; offset++ {
		if page := w.target + offset; w.isPending(page) {
			return page, true
		}
		if page := w.target - offset; offset > 0 && w.isPending(page) {
			return page, true
		}
	}
	return 0, false
}

func (w *converter) isPending(page int) bool {
	if page < 0 || page >= w.count || w.done[page] {
		return false
	}
	_, ok := w.pending[page]
	return ok
}

func (w *converter) encodePage(page int) error {
	raster := w.pending[page]

	if w.cache != nil {
		if artifact, ok := w.cache.Load(raster); ok {
			w.finish(page, artifact)
			w.logger.Debug("page served from cache", "page", page)
			return nil
		}
	}

	artifact, err := w.encoder.Encode(raster.Image)
	if err != nil {
		return fmt.Errorf("encoding page %d: %w", page, err)
	}
	if w.cache != nil {
		w.cache.Store(raster, artifact)
	}
	w.finish(page, artifact)
	w.logger.Debug("page encoded", "page", page, "bytes", len(artifact.Data))
	return nil
}

func (w *converter) finish(page int, artifact termgfx.Artifact) {
	// Encode-once: drop the raster so a duplicate delivery after a
	// reload replaces it instead of leaking, and mark the slot done so
	// this session never encodes the page again.
	delete(w.pending, page)
	w.done[page] = true
	w.results.Send(Result{Page: Page{Num: page, Artifact: artifact}})
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
