// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"log/slog"

	"github.com/folio-foundation/folio/lib/convert"
	"github.com/folio-foundation/folio/lib/geometry"
	"github.com/folio-foundation/folio/lib/pagecache"
	"github.com/folio-foundation/folio/lib/render"
	"github.com/folio-foundation/folio/lib/termgfx"
)

// Options configures a fully wired session.
type Options struct {
	// Window is the terminal's cell grid and pixel dimensions.
	Window geometry.WindowSize

	// Area is the initial viewport rectangle pages are rendered into.
	Area geometry.Rect

	// Encoder is the terminal graphics encoder for the convert worker.
	Encoder termgfx.Encoder

	// Prerender is the convert worker's window half-width.
	Prerender int

	// Cache, when non-nil, serves encoded pages across sessions. Only
	// used when the document implements render.Fingerprinted.
	Cache *pagecache.Cache

	// Logger receives pipeline records. Nil disables logging.
	Logger *slog.Logger
}

// Start creates a session and launches both workers against it: the
// render worker on a dedicated OS thread, the convert worker as an
// ordinary goroutine. The caller drives the session with Run.
func Start(document render.Document, options Options) *Session {
	session := NewSession(options.Logger)

	renderCommands, renderResults := session.RenderEndpoints()
	render.Start(document, renderResults, renderCommands, render.Config{
		Window: options.Window,
		Area:   options.Area,
		Logger: options.Logger,
	})

	convertCommands, convertResults := session.ConvertEndpoints()
	convert.Start(convertCommands, convertResults, convert.Config{
		Encoder:   options.Encoder,
		Prerender: options.Prerender,
		Cache:     newCacheAdapter(options.Cache, document, options.Encoder, options.Logger),
		Logger:    options.Logger,
	})

	return session
}

// cacheAdapter binds the page cache to one document and encoder,
// deriving cache keys from the raster and the encoder settings that
// influence artifact bytes.
type cacheAdapter struct {
	cache       *pagecache.Cache
	fingerprint [32]byte
	encoder     termgfx.Encoder
}

// newCacheAdapter returns a convert.Cache, or nil when caching is
// disabled or the document has no stable fingerprint.
func newCacheAdapter(cache *pagecache.Cache, document render.Document, encoder termgfx.Encoder, logger *slog.Logger) convert.Cache {
	if cache == nil {
		return nil
	}
	fingerprinted, ok := document.(render.Fingerprinted)
	if !ok {
		return nil
	}
	fingerprint, err := fingerprinted.Fingerprint()
	if err != nil {
		if logger != nil {
			logger.Warn("document fingerprint failed, cache disabled", "error", err)
		}
		return nil
	}
	return &cacheAdapter{cache: cache, fingerprint: fingerprint, encoder: encoder}
}

func (a *cacheAdapter) key(raster render.Raster) pagecache.Key {
	bounds := raster.Image.Bounds()
	return pagecache.ComputeKey(pagecache.KeyInputs{
		Fingerprint: a.fingerprint,
		Page:        raster.Page,
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Protocol:    a.encoder.Protocol,
		Black:       a.encoder.Black,
		White:       a.encoder.White,
	})
}

func (a *cacheAdapter) Load(raster render.Raster) (termgfx.Artifact, bool) {
	return a.cache.Load(a.key(raster))
}

func (a *cacheAdapter) Store(raster render.Raster, artifact termgfx.Artifact) {
	a.cache.Store(a.key(raster), artifact)
}
