// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"fmt"

	"github.com/folio-foundation/folio/lib/convert"
)

// PageBuffer is the ordered, fixed-length collection of per-page slots
// that accumulates pipeline output. Before the page count is known the
// buffer has length zero; Allocate sets the length exactly once. A slot,
// once filled, is never overwritten or cleared for the life of the
// session.
//
// PageBuffer is not safe for concurrent use. It is owned exclusively by
// the session's reconciliation loop; consumers only ever see pages that
// have been moved out of it.
type PageBuffer struct {
	slots     []*convert.Page
	filled    int
	allocated bool
}

// Allocate sets the buffer length. Called when the page count
// announcement arrives; a second call is the duplicate-count protocol
// violation.
func (b *PageBuffer) Allocate(count int) error {
	if b.allocated {
		return fmt.Errorf("%w (had %d, got %d)", ErrDuplicatePageCount, len(b.slots), count)
	}
	if count < 0 {
		return fmt.Errorf("negative page count %d", count)
	}
	b.slots = make([]*convert.Page, count)
	b.allocated = true
	return nil
}

// Fill moves one encoded page into its slot. The index must be in
// range and the slot empty.
func (b *PageBuffer) Fill(page convert.Page) error {
	if !b.allocated {
		return fmt.Errorf("%w (page %d)", ErrPageBeforeCount, page.Num)
	}
	if page.Num < 0 || page.Num >= len(b.slots) {
		return fmt.Errorf("%w (page %d, buffer length %d)", ErrPageOutOfRange, page.Num, len(b.slots))
	}
	if b.slots[page.Num] != nil {
		return fmt.Errorf("%w (page %d)", ErrPageRefilled, page.Num)
	}
	b.slots[page.Num] = &page
	b.filled++
	return nil
}

// FirstEmpty returns the lowest empty slot index, or ok=false when the
// buffer is complete (or still unallocated).
func (b *PageBuffer) FirstEmpty() (int, bool) {
	for i, slot := range b.slots {
		if slot == nil {
			return i, true
		}
	}
	return 0, false
}

// Complete reports the termination condition: the buffer is non-empty
// and every slot is filled. The non-emptiness conjunct prevents a
// false positive before the page count has arrived.
func (b *PageBuffer) Complete() bool {
	return len(b.slots) > 0 && b.filled == len(b.slots)
}

// Len returns the allocated length (zero before allocation).
func (b *PageBuffer) Len() int {
	return len(b.slots)
}

// Filled returns the number of filled slots.
func (b *PageBuffer) Filled() int {
	return b.filled
}

// Pages returns the buffer contents as a dense slice. Only meaningful
// once Complete; earlier calls return a slice with zero-value holes.
func (b *PageBuffer) Pages() []convert.Page {
	pages := make([]convert.Page, len(b.slots))
	for i, slot := range b.slots {
		if slot != nil {
			pages[i] = *slot
		}
	}
	return pages
}
