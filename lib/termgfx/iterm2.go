// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

package termgfx

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
)

// encodeITerm2 emits the iTerm2 inline image protocol: a single OSC
// 1337 sequence carrying a base64 PNG. Width and height are given in
// cells so the terminal scales the image to the footprint the viewer
// reserves for it.
func (e Encoder) encodeITerm2(img image.Image) (Artifact, error) {
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return Artifact{}, fmt.Errorf("encoding page PNG: %w", err)
	}

	width := img.Bounds().Dx()
	height := img.Bounds().Dy()
	columns, rows := e.cellFootprint(width, height)

	var out bytes.Buffer
	fmt.Fprintf(&out, "\x1b]1337;File=inline=1;size=%d;width=%d;height=%d;preserveAspectRatio=1:",
		pngBuf.Len(), columns, rows)
	encoder := base64.NewEncoder(base64.StdEncoding, &out)
	if _, err := encoder.Write(pngBuf.Bytes()); err != nil {
		return Artifact{}, fmt.Errorf("encoding page base64: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return Artifact{}, fmt.Errorf("encoding page base64: %w", err)
	}
	// BEL terminator rather than ST: single byte, survives tmux and
	// SSH layering intact.
	out.WriteByte('\x07')

	return Artifact{
		Protocol: ITerm2,
		Data:     out.Bytes(),
		Columns:  columns,
		Rows:     rows,
		Width:    width,
		Height:   height,
	}, nil
}
