// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"context"
	"log/slog"

	"github.com/folio-foundation/folio/lib/convert"
	"github.com/folio-foundation/folio/lib/geometry"
	"github.com/folio-foundation/folio/lib/queue"
	"github.com/folio-foundation/folio/lib/render"
)

// Event is a consumer-facing notification emitted by the session while
// the reconciliation loop runs. Events carry everything an interactive
// viewer needs; a headless consumer can ignore them and wait for Run to
// return.
type Event interface {
	isEvent()
}

// PageCountEvent reports that the page count is known and the buffer
// has been allocated. Emitted at most once.
type PageCountEvent struct {
	Count int
}

// PageReadyEvent hands one encoded page to the consumer. Ownership of
// the artifact transfers with the event; the page also remains in the
// buffer returned by Run.
type PageReadyEvent struct {
	Page convert.Page
}

// SearchResultsEvent relays the render worker's response to a Search.
type SearchResultsEvent struct {
	Term  string
	Pages []int
}

// ReloadedEvent relays the render worker's reload notification. The
// core does not invalidate filled slots on reload; the viewer decides
// what, if anything, to do with it.
type ReloadedEvent struct{}

// CompletedEvent reports that every page slot is filled and the session
// is about to finish.
type CompletedEvent struct{}

func (PageCountEvent) isEvent()     {}
func (PageReadyEvent) isEvent()     {}
func (SearchResultsEvent) isEvent() {}
func (ReloadedEvent) isEvent()      {}
func (CompletedEvent) isEvent()     {}

// Session owns one document's pipeline: the four queues, the page
// buffer, and the reconciliation loop. Create with NewSession, wire the
// workers (or use [Start], which does both), then call Run.
type Session struct {
	renderCommands  *queue.Queue[render.Notif]
	renderResults   *queue.Queue[render.Result]
	convertCommands *queue.Queue[convert.Msg]
	convertResults  *queue.Queue[convert.Result]

	events *queue.Queue[Event]
	buffer PageBuffer
	logger *slog.Logger
}

// NewSession creates a session with all four queues open and an empty
// page buffer. Nil logger disables logging.
func NewSession(logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Session{
		renderCommands:  queue.New[render.Notif](),
		renderResults:   queue.New[render.Result](),
		convertCommands: queue.New[convert.Msg](),
		convertResults:  queue.New[convert.Result](),
		events:          queue.New[Event](),
		logger:          logger,
	}
}

// RenderEndpoints returns the render worker's side of the session
// queues: the command stream it consumes and the result queue it sends
// on.
func (s *Session) RenderEndpoints() (<-chan render.Notif, *queue.Queue[render.Result]) {
	return s.renderCommands.Out(), s.renderResults
}

// ConvertEndpoints returns the convert worker's side of the session
// queues.
func (s *Session) ConvertEndpoints() (<-chan convert.Msg, *queue.Queue[convert.Result]) {
	return s.convertCommands.Out(), s.convertResults
}

// Events returns the consumer notification stream. It is closed when
// Run returns. Events are delivered through an unbounded queue, so a
// slow consumer never stalls the reconciliation loop.
func (s *Session) Events() <-chan Event {
	return s.events.Out()
}

// SetArea reconfigures the viewport rectangle. Safe to call from any
// goroutine while Run is active.
func (s *Session) SetArea(area geometry.Rect) {
	s.renderCommands.Send(render.AreaNotif{Area: area})
}

// Search triggers a document-wide search; results arrive as a
// SearchResultsEvent.
func (s *Session) Search(term string) {
	s.renderCommands.Send(render.SearchNotif{Term: term})
}

// Reload asks the render worker to re-open the document.
func (s *Session) Reload() {
	s.renderCommands.Send(render.ReloadNotif{})
}

// GoToPage retargets both workers at the given page index, shifting
// render fan-out and the convert prerender window toward what the
// consumer is looking at.
func (s *Session) GoToPage(page int) {
	s.renderCommands.Send(render.JumpNotif{Page: page})
	s.convertCommands.Send(convert.GoToPageMsg{Page: page})
}

// Run executes the reconciliation loop until the page buffer completes,
// a fatal error occurs, or ctx is cancelled. On success it returns the
// complete, ordered page slice. On any error the partial buffer is
// discarded — the contract is a complete document or an explicit error,
// never a silent partial render.
//
// Run tears the pipeline down on return: both command queues are
// closed, which the workers observe as shutdown. The render command
// queue is deliberately not closed any earlier — the render worker
// treats a closed command stream as "consumer gone" and would stop
// producing before the pipeline drained.
func (s *Session) Run(ctx context.Context) ([]convert.Page, error) {
	defer s.events.Close()
	defer s.renderCommands.Close()
	defer s.convertCommands.Close()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case result, open := <-s.renderResults.Out():
			if !open {
				return nil, renderError(ErrPrematureExit)
			}
			if err := s.handleRender(result); err != nil {
				return nil, err
			}

		case result, open := <-s.convertResults.Out():
			if !open {
				return nil, convertError(ErrPrematureExit)
			}
			if err := s.handleConvert(result); err != nil {
				return nil, err
			}
			if s.buffer.Complete() {
				s.events.Send(CompletedEvent{})
				s.logger.Info("page buffer complete", "pages", s.buffer.Len())
				return s.buffer.Pages(), nil
			}
		}
	}
}

// handleRender processes one render result: allocation on the page
// count announcement, pure relay for rasters, event forwarding for the
// informational kinds.
func (s *Session) handleRender(result render.Result) error {
	if result.Err != nil {
		return renderError(result.Err)
	}

	switch info := result.Info.(type) {
	case render.NumPagesInfo:
		if err := s.buffer.Allocate(info.Count); err != nil {
			return renderError(err)
		}
		// The convert worker must learn the count before any raster so
		// it can size its own bookkeeping; command-queue FIFO ordering
		// preserves that here.
		s.convertCommands.Send(convert.NumPagesMsg{Count: info.Count})
		s.events.Send(PageCountEvent{Count: info.Count})
		s.logger.Debug("page count announced", "pages", info.Count)

	case render.PageInfo:
		s.convertCommands.Send(convert.AddImageMsg{Raster: info.Raster})

	case render.ReloadedInfo:
		s.events.Send(ReloadedEvent{})

	case render.SearchResultsInfo:
		s.events.Send(SearchResultsEvent{Term: info.Term, Pages: info.Pages})
	}
	return nil
}

// handleConvert processes one convert result: move the artifact into
// its buffer slot, then retarget the convert worker at the first
// remaining gap so its prerender window eventually covers every page.
func (s *Session) handleConvert(result convert.Result) error {
	if result.Err != nil {
		return convertError(result.Err)
	}

	if err := s.buffer.Fill(result.Page); err != nil {
		return convertError(err)
	}
	s.events.Send(PageReadyEvent{Page: result.Page})

	if first, ok := s.buffer.FirstEmpty(); ok {
		s.convertCommands.Send(convert.GoToPageMsg{Page: first})
	}
	return nil
}
