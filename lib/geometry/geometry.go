// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

// Package geometry provides the cell-grid and pixel measurements shared
// by the render and convert sides of the pipeline. Terminals address
// content in character cells while rasterizers work in pixels; the types
// here carry both so each side can convert without re-probing the
// terminal.
package geometry

// FontSize is the pixel dimensions of one terminal cell. When the
// terminal does not report pixel dimensions (common over SSH), a fixed
// fallback font size is assumed; 8x14 matches the most common bitmap
// font metrics and only affects aspect ratio, not correctness.
type FontSize struct {
	Width  int
	Height int
}

// DefaultFontSize is used when the terminal reports no pixel dimensions.
var DefaultFontSize = FontSize{Width: 8, Height: 14}

// WindowSize describes the full terminal: cell grid plus pixel
// dimensions. Pixel dimensions of zero mean "unreported".
type WindowSize struct {
	Columns int
	Rows    int
	Width   int // pixels, 0 if unknown
	Height  int // pixels, 0 if unknown
}

// Font returns the per-cell pixel size for this window, falling back to
// DefaultFontSize when the terminal did not report pixel dimensions.
func (w WindowSize) Font() FontSize {
	if w.Columns <= 0 || w.Rows <= 0 || w.Width <= 0 || w.Height <= 0 {
		return DefaultFontSize
	}
	return FontSize{Width: w.Width / w.Columns, Height: w.Height / w.Rows}
}

// Rect is a rectangle on the terminal cell grid. X and Y are the top
// left corner; Width and Height are in cells.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// PixelSize returns the pixel dimensions of the rectangle given the
// per-cell font size.
func (r Rect) PixelSize(font FontSize) (width, height int) {
	return r.Width * font.Width, r.Height * font.Height
}
