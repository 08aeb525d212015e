// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

// Package render defines the render worker side of the pipeline: the
// command and result message types exchanged with the orchestrator, the
// [Document] interface that rasterization backends implement, and the
// worker loop that fans page rendering out from the page the consumer
// is looking at.
//
// The worker owns the open document exclusively. The orchestrator never
// touches document internals; everything crosses the boundary as
// immutable messages. Results carry no shared state — a [Raster] is
// handed off to the convert side and never written again.
package render

import (
	"image"

	"github.com/folio-foundation/folio/lib/geometry"
)

// Raster is one rasterized page: the page index plus its RGBA image
// sized for the current viewport. Ownership moves with the message;
// after sending, the worker does not retain or mutate the image.
type Raster struct {
	Page  int
	Image *image.RGBA
}

// Notif is a command to the render worker. Implementations are the
// *Notif types below; the interface is sealed.
type Notif interface {
	isNotif()
}

// AreaNotif reconfigures the viewport rectangle pages are rendered
// into. All previously rendered pages are invalidated and re-rendered
// at the new geometry.
type AreaNotif struct {
	Area geometry.Rect
}

// SearchNotif triggers a document-wide search. Results arrive
// asynchronously as a [SearchResultsInfo].
type SearchNotif struct {
	Term string
}

// JumpNotif retargets the worker's fan-out to center on the given page
// index. Out-of-range indices are clamped.
type JumpNotif struct {
	Page int
}

// ReloadNotif re-opens the document from its source. Every page is
// re-rendered and re-delivered; a [ReloadedInfo] announces the reload
// to downstream consumers.
type ReloadNotif struct{}

func (AreaNotif) isNotif()   {}
func (SearchNotif) isNotif() {}
func (JumpNotif) isNotif()   {}
func (ReloadNotif) isNotif() {}

// Info is a result from the render worker. Implementations are the
// *Info types below; the interface is sealed.
type Info interface {
	isInfo()
}

// NumPagesInfo announces the document's page count. Sent exactly once
// per session, before any PageInfo.
type NumPagesInfo struct {
	Count int
}

// PageInfo delivers one rasterized page. A given index is delivered at
// most once per viewport geometry; only an explicit reload or area
// change causes redelivery.
type PageInfo struct {
	Raster Raster
}

// ReloadedInfo reports that the document was reloaded from its source.
// Informational: the orchestration core does not react to it, but a
// viewer may.
type ReloadedInfo struct{}

// SearchResultsInfo reports the pages matching a prior SearchNotif.
type SearchResultsInfo struct {
	Term  string
	Pages []int
}

func (NumPagesInfo) isInfo()      {}
func (PageInfo) isInfo()          {}
func (ReloadedInfo) isInfo()      {}
func (SearchResultsInfo) isInfo() {}

// Result is one element of the render result stream: either an Info or
// a fatal error. A Result with Err set is the worker's last message;
// the session aborts on receipt.
type Result struct {
	Info Info
	Err  error
}

// Document is a rasterization backend. Implementations live outside
// this package (see imagedoc for the image-bundle backend); the worker
// and orchestrator depend only on this boundary.
//
// PageCount must be stable across the life of the document; Reload may
// refresh page contents but must not change the count.
type Document interface {
	// PageCount returns the number of pages.
	PageCount() (int, error)

	// RenderPage rasterizes one page into an RGBA image no larger than
	// width x height pixels, preserving the page's aspect ratio.
	RenderPage(page, width, height int) (*image.RGBA, error)

	// Search returns the indices of pages matching term, in ascending
	// order.
	Search(term string) ([]int, error)

	// Reload refreshes page contents from the document's source.
	Reload() error
}

// Fingerprinted is implemented by documents whose contents can be
// summarized as a stable 32-byte digest. The digest keys the on-disk
// page cache; documents without one are simply never cached.
type Fingerprinted interface {
	Fingerprint() ([32]byte, error)
}
