// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

// Package pagecache stores encoded page artifacts on disk so that
// reopening a document skips re-rendering and re-encoding pages whose
// inputs have not changed.
//
// Entries are content-addressed: the key is a keyed BLAKE3 hash over
// everything that influences an artifact's bytes — the document
// fingerprint, the page index, the viewport pixel geometry, the
// graphics protocol, and the color thresholds. Any input change yields
// a different key, so stale entries are never served; they are simply
// never looked up again and can be garbage-collected by mtime.
//
// Values are deterministic CBOR records, compressed per the configured
// tag. All cache failures are soft: a missed or corrupt entry means
// the page is encoded again, never a session abort.
package pagecache

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/folio-foundation/folio/lib/termgfx"
)

// Key addresses one cached artifact. 32 bytes of keyed BLAKE3.
type Key [32]byte

// String returns the lowercase hex form used as the entry filename.
func (k Key) String() string {
	return hex.EncodeToString(k[:])
}

// keyDomain is the BLAKE3 key for cache-key hashing. Domain separation
// keeps these hashes from colliding with any other BLAKE3 use of the
// same inputs. ASCII so the key is readable in a debugger; BLAKE3
// keyed mode treats it as an opaque 32-byte value.
var keyDomain = [32]byte{
	'f', 'o', 'l', 'i', 'o', '.', 'p', 'a', 'g', 'e', 'c', 'a', 'c', 'h', 'e', '.',
	'k', 'e', 'y', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// KeyInputs collects everything that determines an artifact's bytes.
type KeyInputs struct {
	// Fingerprint identifies the document contents (see
	// render.Fingerprinted).
	Fingerprint [32]byte

	// Page is the page index.
	Page int

	// Width and Height are the raster's pixel dimensions.
	Width  int
	Height int

	// Protocol is the graphics encoding.
	Protocol termgfx.Protocol

	// Black and White are the encoder's luminance thresholds.
	Black int
	White int
}

// ComputeKey derives the cache key for the given inputs.
func ComputeKey(inputs KeyInputs) Key {
	hasher, err := blake3.NewKeyed(keyDomain[:])
	if err != nil {
		// NewKeyed only fails on a wrong key length; keyDomain is a
		// compile-time 32-byte array.
		panic("pagecache: keyed hasher initialization failed: " + err.Error())
	}
	hasher.Write(inputs.Fingerprint[:])
	fmt.Fprintf(hasher, "|%d|%d|%d|%d|%d|%d",
		inputs.Page, inputs.Width, inputs.Height, inputs.Protocol, inputs.Black, inputs.White)

	var key Key
	hasher.Digest().Read(key[:])
	return key
}

// record is the CBOR value stored for one entry. Field names are wire
// format; renaming breaks existing caches.
type record struct {
	Protocol uint8  `cbor:"protocol"`
	Columns  int    `cbor:"columns"`
	Rows     int    `cbor:"rows"`
	Width    int    `cbor:"width"`
	Height   int    `cbor:"height"`
	Data     []byte `cbor:"data"`
}

// encMode is configured for Core Deterministic Encoding so identical
// artifacts produce identical entry bytes.
var encMode cbor.EncMode

// decMode accepts standard CBOR, ignoring unknown fields for forward
// compatibility.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("pagecache: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("pagecache: CBOR decoder initialization failed: " + err.Error())
	}
}

// Cache is a directory of compressed artifact records. The zero value
// is not usable; construct with [New]. Safe for concurrent use — every
// write goes through an atomic rename.
type Cache struct {
	dir    string
	tag    CompressionTag
	logger *slog.Logger
}

// New opens (creating if needed) a cache rooted at dir. Entries are
// written with the given compression tag; entries written with other
// tags remain readable.
func New(dir string, tag CompressionTag, logger *slog.Logger) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Cache{dir: dir, tag: tag, logger: logger}, nil
}

// Load returns the cached artifact for key, or ok=false on a miss.
// Corrupt entries are removed and reported as misses.
func (c *Cache) Load(key Key) (termgfx.Artifact, bool) {
	path := c.entryPath(key)
	entry, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			c.logger.Warn("cache read failed", "key", key.String(), "error", err)
		}
		return termgfx.Artifact{}, false
	}

	raw, err := decompress(entry)
	if err != nil {
		c.logger.Warn("corrupt cache entry removed", "key", key.String(), "error", err)
		os.Remove(path)
		return termgfx.Artifact{}, false
	}

	var rec record
	if err := decMode.Unmarshal(raw, &rec); err != nil {
		c.logger.Warn("corrupt cache entry removed", "key", key.String(), "error", err)
		os.Remove(path)
		return termgfx.Artifact{}, false
	}

	return termgfx.Artifact{
		Protocol: termgfx.Protocol(rec.Protocol),
		Data:     rec.Data,
		Columns:  rec.Columns,
		Rows:     rec.Rows,
		Width:    rec.Width,
		Height:   rec.Height,
	}, true
}

// Store writes an artifact under key. Failures are logged and
// swallowed: the cache is an optimization, never a correctness
// dependency.
func (c *Cache) Store(key Key, artifact termgfx.Artifact) {
	raw, err := encMode.Marshal(record{
		Protocol: uint8(artifact.Protocol),
		Columns:  artifact.Columns,
		Rows:     artifact.Rows,
		Width:    artifact.Width,
		Height:   artifact.Height,
		Data:     artifact.Data,
	})
	if err != nil {
		c.logger.Warn("cache encode failed", "key", key.String(), "error", err)
		return
	}

	entry, err := compress(c.tag, raw)
	if err != nil {
		c.logger.Warn("cache compress failed", "key", key.String(), "error", err)
		return
	}

	path := c.entryPath(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		c.logger.Warn("cache write failed", "key", key.String(), "error", err)
		return
	}

	// Write-then-rename so concurrent readers never see a partial
	// entry.
	temporary := path + ".tmp"
	if err := os.WriteFile(temporary, entry, 0o644); err != nil {
		c.logger.Warn("cache write failed", "key", key.String(), "error", err)
		return
	}
	if err := os.Rename(temporary, path); err != nil {
		os.Remove(temporary)
		c.logger.Warn("cache write failed", "key", key.String(), "error", err)
	}
}

// entryPath shards entries by the first key byte to keep directory
// sizes manageable for large documents.
func (c *Cache) entryPath(key Key) string {
	name := key.String()
	return filepath.Join(c.dir, name[:2], name[2:])
}
