// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"errors"
	"fmt"
)

// Side identifies which half of the pipeline an error came from. Fatal
// errors always name their side so the consumer can report whether
// rendering or conversion failed.
type Side int

const (
	// SideRender is the render worker and its result stream.
	SideRender Side = iota + 1
	// SideConvert is the convert worker and its result stream.
	SideConvert
)

// String returns the side name used in error messages.
func (s Side) String() string {
	switch s {
	case SideRender:
		return "render"
	case SideConvert:
		return "convert"
	default:
		return fmt.Sprintf("side(%d)", int(s))
	}
}

// Protocol violations: message sequences that break a pipeline
// invariant. These indicate a bug in a worker, not a bad document, and
// are never recovered.
var (
	// ErrDuplicatePageCount is returned when a second page count
	// announcement arrives. The count is immutable per session.
	ErrDuplicatePageCount = errors.New("page count announced twice")

	// ErrPageOutOfRange is returned when an artifact's page index does
	// not fit the allocated buffer.
	ErrPageOutOfRange = errors.New("page index out of buffer range")

	// ErrPageRefilled is returned when an artifact arrives for a slot
	// that is already filled. Each page is encoded at most once.
	ErrPageRefilled = errors.New("page slot filled twice")

	// ErrPageBeforeCount is returned when an artifact arrives before
	// the buffer has been allocated.
	ErrPageBeforeCount = errors.New("page artifact arrived before the page count")

	// ErrPrematureExit is returned when a worker's result stream ends
	// before the page buffer is complete. Distinct from a worker-
	// reported failure: the worker went away without saying why.
	ErrPrematureExit = errors.New("worker exited before the page buffer completed")
)

// WorkerError attributes a fatal error to one side of the pipeline.
type WorkerError struct {
	Side Side
	Err  error
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("%s worker: %v", e.Side, e.Err)
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

func renderError(err error) error {
	return &WorkerError{Side: SideRender, Err: err}
}

func convertError(err error) error {
	return &WorkerError{Side: SideConvert, Err: err}
}
