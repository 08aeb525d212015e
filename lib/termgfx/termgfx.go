// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

// Package termgfx encodes raster images into terminal graphics
// protocols. Three encodings are supported: kitty graphics (chunked
// base64 APC sequences, optionally zlib-compressed), iTerm2 inline
// images (OSC 1337 with an embedded PNG), and unicode halfblocks (two
// pixels per cell using the upper-half-block glyph, colored through the
// terminal's detected color profile).
//
// An [Artifact] is a finished page: escape sequence bytes plus the cell
// footprint they occupy. Artifacts are self-contained — writing the
// bytes at the cursor position draws the page — so they can be cached
// verbatim and replayed across sessions.
package termgfx

import (
	"fmt"
	"image"

	"github.com/muesli/termenv"
	xdraw "golang.org/x/image/draw"

	"github.com/folio-foundation/folio/lib/geometry"
)

// Protocol identifies a terminal graphics encoding. The numeric values
// are stored in cached page records; changing them invalidates caches.
type Protocol uint8

const (
	// Halfblocks draws two pixels per cell with the upper-half-block
	// glyph. Works on every terminal; quality bound by cell resolution.
	Halfblocks Protocol = 0

	// Kitty is the kitty graphics protocol (APC G sequences). Pixel
	// perfect on kitty, ghostty, and compatible terminals.
	Kitty Protocol = 1

	// ITerm2 is the iTerm2 inline image protocol (OSC 1337 File=).
	ITerm2 Protocol = 2
)

// String returns the name used in flags and config files.
func (p Protocol) String() string {
	switch p {
	case Halfblocks:
		return "halfblocks"
	case Kitty:
		return "kitty"
	case ITerm2:
		return "iterm2"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(p))
	}
}

// ParseProtocol parses a protocol name from flags or config.
func ParseProtocol(name string) (Protocol, error) {
	switch name {
	case "halfblocks":
		return Halfblocks, nil
	case "kitty":
		return Kitty, nil
	case "iterm2":
		return ITerm2, nil
	default:
		return 0, fmt.Errorf("unknown graphics protocol: %q", name)
	}
}

// Artifact is one encoded page: the escape sequence bytes that draw it
// plus the cell footprint the drawing occupies. Data is immutable after
// encoding.
type Artifact struct {
	Protocol Protocol
	Data     []byte
	Columns  int
	Rows     int
	Width    int // source pixels
	Height   int // source pixels
}

// Encoder converts rasters into artifacts for one fixed protocol and
// terminal. Encoders are stateless and safe for concurrent use.
type Encoder struct {
	// Protocol selects the target encoding.
	Protocol Protocol

	// Profile is the terminal's color capability, used by the
	// halfblocks encoder to convert RGB values into displayable colors.
	Profile termenv.Profile

	// Black and White are luminance clamp thresholds (0-255) applied
	// before color conversion on non-true-color output. Pixels at or
	// below Black become pure black; at or above White, pure white.
	// This keeps paper texture and scanner noise from turning into
	// dithered gray mush on 256-color terminals.
	Black int
	White int

	// Font is the per-cell pixel size, used to compute how many cells
	// an image occupies.
	Font geometry.FontSize
}

// Encode converts one raster image into an artifact.
func (e Encoder) Encode(img image.Image) (Artifact, error) {
	bounds := img.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return Artifact{}, fmt.Errorf("cannot encode empty %dx%d image", bounds.Dx(), bounds.Dy())
	}

	switch e.Protocol {
	case Kitty:
		return e.encodeKitty(img)
	case ITerm2:
		return e.encodeITerm2(img)
	case Halfblocks:
		return e.encodeHalfblocks(img)
	default:
		return Artifact{}, fmt.Errorf("unknown graphics protocol: %d", e.Protocol)
	}
}

// cellFootprint returns how many cells an image of the given pixel size
// occupies, rounding up.
func (e Encoder) cellFootprint(width, height int) (columns, rows int) {
	font := e.Font
	if font.Width <= 0 || font.Height <= 0 {
		font = geometry.DefaultFontSize
	}
	columns = (width + font.Width - 1) / font.Width
	rows = (height + font.Height - 1) / font.Height
	return columns, rows
}

// toRGBA returns img as *image.RGBA without copying when possible.
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	xdraw.Draw(rgba, rgba.Bounds(), img, bounds.Min, xdraw.Src)
	return rgba
}
