// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

// Package imagedoc implements render.Document over a bundle of image
// files: either a directory of PNG/JPEG files (sorted by name, one page
// each) or an explicit file list. It is the built-in backend that makes
// Folio usable end to end without an external document engine; format-
// specific backends plug in through the same render.Document interface.
package imagedoc

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/zeebo/blake3"
	xdraw "golang.org/x/image/draw"

	// Page decoders, registered for image.Decode. GIF is included
	// because scanned single-page faxes still show up as GIF.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Document is an image-bundle document. Safe for use by a single
// render worker; Reload and rendering never run concurrently.
type Document struct {
	mu    sync.Mutex
	dir   string // non-empty when opened from a directory
	paths []string
}

// Open opens a document from a path: a directory becomes one page per
// image file (sorted by filename), a single image file becomes a
// one-page document.
func Open(path string) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("opening document %s: %w", path, err)
	}

	if !info.IsDir() {
		if !isImagePath(path) {
			return nil, fmt.Errorf("unsupported document format: %s", path)
		}
		return &Document{paths: []string{path}}, nil
	}

	document := &Document{dir: path}
	if err := document.scan(); err != nil {
		return nil, err
	}
	return document, nil
}

// FromFiles builds a document from an explicit page list, in order.
func FromFiles(paths []string) (*Document, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("document has no pages")
	}
	for _, path := range paths {
		if !isImagePath(path) {
			return nil, fmt.Errorf("unsupported page format: %s", path)
		}
	}
	return &Document{paths: append([]string(nil), paths...)}, nil
}

// scan relists the backing directory. Caller holds no lock (Open) or
// the document lock (Reload).
func (d *Document) scan() error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("listing document directory: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !isImagePath(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(d.dir, entry.Name()))
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return fmt.Errorf("document directory %s contains no image pages", d.dir)
	}
	d.paths = paths
	return nil
}

// PageCount implements render.Document.
func (d *Document) PageCount() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.paths), nil
}

// RenderPage implements render.Document: decode the page image and
// scale it to fit within width x height, preserving aspect ratio.
// Catmull-Rom resampling keeps text edges readable at terminal
// resolutions.
func (d *Document) RenderPage(page, width, height int) (*image.RGBA, error) {
	d.mu.Lock()
	if page < 0 || page >= len(d.paths) {
		d.mu.Unlock()
		return nil, fmt.Errorf("page %d out of range 0..%d", page, len(d.paths)-1)
	}
	path := d.paths[page]
	d.mu.Unlock()

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening page %d (%s): %w", page, path, err)
	}
	defer file.Close()

	source, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decoding page %d (%s): %w", page, path, err)
	}

	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("page %d rendered into empty %dx%d viewport", page, width, height)
	}

	fitWidth, fitHeight := fit(source.Bounds().Dx(), source.Bounds().Dy(), width, height)
	scaled := image.NewRGBA(image.Rect(0, 0, fitWidth, fitHeight))
	xdraw.CatmullRom.Scale(scaled, scaled.Bounds(), source, source.Bounds(), xdraw.Src, nil)
	return scaled, nil
}

// Search implements render.Document. Image pages have no extractable
// text, so search matches against page filenames; "scan-agenda" finds
// the page scanned from agenda.png. Case-insensitive substring match.
func (d *Document) Search(term string) ([]int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	needle := strings.ToLower(term)
	var matches []int
	for i, path := range d.paths {
		if strings.Contains(strings.ToLower(filepath.Base(path)), needle) {
			matches = append(matches, i)
		}
	}
	return matches, nil
}

// Reload implements render.Document. For directory documents the
// directory is rescanned; the page count must not change (the render
// worker enforces this, but rescanning keeps renamed files working).
func (d *Document) Reload() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dir == "" {
		return nil
	}
	return d.scan()
}

// Fingerprint implements render.Fingerprinted: a BLAKE3 hash over each
// page file's contents, in page order. Any content or ordering change
// changes the fingerprint, which invalidates cached artifacts.
func (d *Document) Fingerprint() ([32]byte, error) {
	d.mu.Lock()
	paths := append([]string(nil), d.paths...)
	d.mu.Unlock()

	hasher := blake3.New()
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return [32]byte{}, fmt.Errorf("fingerprinting %s: %w", path, err)
		}
		fmt.Fprintf(hasher, "%s\x00%d\x00", filepath.Base(path), len(data))
		hasher.Write(data)
	}

	var fingerprint [32]byte
	hasher.Digest().Read(fingerprint[:])
	return fingerprint, nil
}

// fit scales (width, height) down (or up) to the largest size that
// fits in (maxWidth, maxHeight) while preserving aspect ratio.
func fit(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 {
		return 1, 1
	}
	scaleW := float64(maxWidth) / float64(width)
	scaleH := float64(maxHeight) / float64(height)
	scale := scaleW
	if scaleH < scale {
		scale = scaleH
	}
	fitWidth := int(float64(width) * scale)
	fitHeight := int(float64(height) * scale)
	if fitWidth < 1 {
		fitWidth = 1
	}
	if fitHeight < 1 {
		fitHeight = 1
	}
	return fitWidth, fitHeight
}

func isImagePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif":
		return true
	default:
		return false
	}
}
