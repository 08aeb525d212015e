// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

package termgfx

import (
	"bytes"
	"fmt"
	"image"

	"github.com/muesli/termenv"
	xdraw "golang.org/x/image/draw"

	"github.com/folio-foundation/folio/lib/geometry"
)

// encodeHalfblocks renders the image as upper-half-block glyphs: each
// cell shows two vertically stacked pixels, the upper as foreground and
// the lower as background color. The image is first downsampled to the
// cell grid (one pixel per column, two per row), then every color is
// clamped against the black/white thresholds and converted through the
// terminal's color profile.
//
// Rows are separated by cursor-down + carriage-return rather than a
// newline so the artifact can be replayed at any cursor column without
// tearing.
func (e Encoder) encodeHalfblocks(img image.Image) (Artifact, error) {
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()

	font := e.Font
	if font.Width <= 0 || font.Height <= 0 {
		font = geometry.DefaultFontSize
	}
	columns := width / font.Width
	rows := height / font.Height
	if columns <= 0 {
		columns = 1
	}
	if rows <= 0 {
		rows = 1
	}

	// Two pixels per cell vertically.
	grid := image.NewRGBA(image.Rect(0, 0, columns, rows*2))
	xdraw.ApproxBiLinear.Scale(grid, grid.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	profile := e.Profile
	var out bytes.Buffer
	for row := 0; row < rows; row++ {
		if row > 0 {
			// Next cell row, same starting column.
			out.WriteString("\x1b[1B\x1b[")
			fmt.Fprintf(&out, "%dD", columns)
		}
		var lastUpper, lastLower string
		for col := 0; col < columns; col++ {
			upper := e.displayColor(profile, grid, col, row*2)
			lower := e.displayColor(profile, grid, col, row*2+1)

			// Only emit SGR when the colors change; runs of identical
			// cells are common in page margins.
			if upper != lastUpper || lower != lastLower {
				out.WriteString("\x1b[")
				out.WriteString(upper)
				out.WriteByte(';')
				out.WriteString(lower)
				out.WriteByte('m')
				lastUpper, lastLower = upper, lower
			}
			out.WriteString("▀")
		}
		out.WriteString("\x1b[m")
	}

	return Artifact{
		Protocol: Halfblocks,
		Data:     out.Bytes(),
		Columns:  columns,
		Rows:     rows,
		Width:    width,
		Height:   height,
	}, nil
}

// displayColor clamps one grid pixel against the luminance thresholds
// and converts it to the terminal profile, returning the SGR fragment
// (without the CSI prefix or trailing m). background selects the 48;...
// form used for the lower pixel of a cell.
func (e Encoder) displayColor(profile termenv.Profile, grid *image.RGBA, x, y int) string {
	background := y%2 == 1
	offset := grid.PixOffset(x, y)
	r := int(grid.Pix[offset])
	g := int(grid.Pix[offset+1])
	b := int(grid.Pix[offset+2])

	r, g, b = e.clamp(r, g, b)

	color := profile.Convert(termenv.RGBColor(fmt.Sprintf("#%02x%02x%02x", r, g, b)))
	sequence := ""
	if color != nil {
		sequence = color.Sequence(background)
	}
	if sequence == "" {
		// Ascii profile: no color support, reset to defaults.
		if background {
			return "49"
		}
		return "39"
	}
	return sequence
}

// clamp applies the black/white luminance thresholds. Thresholds of
// (0, 255) are a no-op.
func (e Encoder) clamp(r, g, b int) (int, int, int) {
	// ITU-R BT.601 luma, integer arithmetic.
	luminance := (299*r + 587*g + 114*b) / 1000
	if e.Black > 0 && luminance <= e.Black {
		return 0, 0, 0
	}
	if e.White > 0 && e.White < 255 && luminance >= e.White {
		return 255, 255, 255
	}
	return r, g, b
}
