// Copyright 2026 The Folio Authors
// SPDX-License-Identifier: Apache-2.0

package pagecache

import (
	"encoding/binary"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionTag identifies the compression algorithm of a cache entry.
// The tag is the first byte of every entry file — changing these values
// invalidates existing caches.
type CompressionTag uint8

const (
	// CompressionNone stores entries uncompressed. Useful when the
	// cache directory lives on a compressed filesystem.
	CompressionNone CompressionTag = 0

	// CompressionLZ4 uses LZ4 block compression: modest ratios but
	// near-free decompression, the default for interactive startup.
	CompressionLZ4 CompressionTag = 1

	// CompressionZstd uses zstd at the default level. Escape-sequence
	// artifacts are text-like and compress 3-5x; worth it for large
	// documents on slow disks.
	CompressionZstd CompressionTag = 2
)

// String returns the name used in config files.
func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(tag))
	}
}

// ParseCompressionTag parses a compression name from config.
func ParseCompressionTag(name string) (CompressionTag, error) {
	switch name {
	case "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression tag: %q", name)
	}
}

// entry framing: [1-byte tag][8-byte big-endian raw length][payload].
// The raw length is needed by LZ4 block decompression, which requires
// the caller to size the destination buffer, and doubles as a sanity
// check for the other algorithms.
const entryHeaderSize = 9

// An LZ4 block cannot expand its input by more than this factor, so a
// framed raw length beyond payload*ratio can only come from a corrupt
// header. Checked before allocating the destination buffer — the
// header bytes come straight off disk and must not size an allocation
// unvalidated.
const lz4MaxExpansionRatio = 255

var zstdEncoder, _ = zstd.NewWriter(nil)
var zstdDecoder, _ = zstd.NewReader(nil)

// compress frames and compresses raw with the given tag.
func compress(tag CompressionTag, raw []byte) ([]byte, error) {
	header := make([]byte, entryHeaderSize)
	header[0] = byte(tag)
	binary.BigEndian.PutUint64(header[1:], uint64(len(raw)))

	switch tag {
	case CompressionNone:
		return append(header, raw...), nil

	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(raw)))
		n, err := lz4.CompressBlock(raw, buf, nil)
		if err != nil {
			return nil, fmt.Errorf("lz4 compression: %w", err)
		}
		if n == 0 {
			// Incompressible: LZ4 signals this with a zero length.
			// Store uncompressed under the none tag instead.
			return compress(CompressionNone, raw)
		}
		return append(header, buf[:n]...), nil

	case CompressionZstd:
		return zstdEncoder.EncodeAll(raw, header), nil

	default:
		return nil, fmt.Errorf("unknown compression tag: %d", tag)
	}
}

// decompress reverses compress, validating the framed raw length.
func decompress(entry []byte) ([]byte, error) {
	if len(entry) < entryHeaderSize {
		return nil, fmt.Errorf("cache entry truncated: %d bytes", len(entry))
	}
	tag := CompressionTag(entry[0])
	rawLength := binary.BigEndian.Uint64(entry[1:entryHeaderSize])
	payload := entry[entryHeaderSize:]

	var raw []byte
	switch tag {
	case CompressionNone:
		raw = payload

	case CompressionLZ4:
		if rawLength > uint64(len(payload))*lz4MaxExpansionRatio {
			return nil, fmt.Errorf("cache entry length implausible: header says %d for %d-byte payload",
				rawLength, len(payload))
		}
		raw = make([]byte, rawLength)
		n, err := lz4.UncompressBlock(payload, raw)
		if err != nil {
			return nil, fmt.Errorf("lz4 decompression: %w", err)
		}
		raw = raw[:n]

	case CompressionZstd:
		var err error
		raw, err = zstdDecoder.DecodeAll(payload, nil)
		if err != nil {
			return nil, fmt.Errorf("zstd decompression: %w", err)
		}

	default:
		return nil, fmt.Errorf("unknown compression tag in cache entry: %d", tag)
	}

	if uint64(len(raw)) != rawLength {
		return nil, fmt.Errorf("cache entry length mismatch: header says %d, got %d", rawLength, len(raw))
	}
	return raw, nil
}
