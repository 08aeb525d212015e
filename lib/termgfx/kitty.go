// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

package termgfx

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"

	"github.com/klauspost/compress/zlib"
)

const (
	// kittyChunkSize is the maximum base64 payload per APC escape.
	// 4096 is the limit the kitty protocol documents.
	kittyChunkSize = 4096

	// kittyCompressFloor is the raw payload size below which zlib
	// compression is skipped; tiny images spend more on headers than
	// they save.
	kittyCompressFloor = 2048
)

// encodeKitty emits the kitty graphics protocol: raw 32-bit RGBA pixel
// data, zlib-compressed when large enough to benefit, base64-encoded
// and split into chunked APC sequences. The image is transmitted and
// displayed in one action (a=T) at the cursor position; q=2 suppresses
// terminal responses so the artifact can be replayed blind.
func (e Encoder) encodeKitty(img image.Image) (Artifact, error) {
	rgba := toRGBA(img)
	width := rgba.Bounds().Dx()
	height := rgba.Bounds().Dy()

	raw := rawRGBA(rgba)

	compressed := false
	payload := raw
	if len(raw) >= kittyCompressFloor {
		var buf bytes.Buffer
		writer := zlib.NewWriter(&buf)
		if _, err := writer.Write(raw); err != nil {
			return Artifact{}, fmt.Errorf("compressing kitty payload: %w", err)
		}
		if err := writer.Close(); err != nil {
			return Artifact{}, fmt.Errorf("compressing kitty payload: %w", err)
		}
		// Keep the smaller of the two; photographic pages sometimes
		// do not compress at all.
		if buf.Len() < len(raw) {
			payload = buf.Bytes()
			compressed = true
		}
	}

	encoded := base64.StdEncoding.EncodeToString(payload)

	var out bytes.Buffer
	first := true
	for len(encoded) > 0 {
		chunk := encoded
		if len(chunk) > kittyChunkSize {
			chunk = chunk[:kittyChunkSize]
		}
		encoded = encoded[len(chunk):]
		more := 0
		if len(encoded) > 0 {
			more = 1
		}

		out.WriteString("\x1b_G")
		if first {
			fmt.Fprintf(&out, "a=T,f=32,q=2,s=%d,v=%d", width, height)
			if compressed {
				out.WriteString(",o=z")
			}
			fmt.Fprintf(&out, ",m=%d", more)
			first = false
		} else {
			fmt.Fprintf(&out, "m=%d", more)
		}
		out.WriteByte(';')
		out.WriteString(chunk)
		out.WriteString("\x1b\\")
	}

	columns, rows := e.cellFootprint(width, height)
	return Artifact{
		Protocol: Kitty,
		Data:     out.Bytes(),
		Columns:  columns,
		Rows:     rows,
		Width:    width,
		Height:   height,
	}, nil
}

// rawRGBA returns the pixel data as tightly packed RGBA rows. The
// image's Pix slice may have row padding (Stride > 4*width), which the
// kitty protocol does not allow.
func rawRGBA(img *image.RGBA) []byte {
	width := img.Bounds().Dx()
	height := img.Bounds().Dy()
	rowBytes := width * 4
	if img.Stride == rowBytes {
		return img.Pix[:rowBytes*height]
	}
	packed := make([]byte, rowBytes*height)
	for y := 0; y < height; y++ {
		copy(packed[y*rowBytes:(y+1)*rowBytes], img.Pix[y*img.Stride:y*img.Stride+rowBytes])
	}
	return packed
}
