// Package cache defines the disk cache contract used by the emoji loader
// and its BadgerDB-backed implementation.
//
// The cache stores serialized renderer frames keyed by a 128-bit key derived
// from a document's base cache key plus a size-tag sub-index, so the same
// document rendered at two sizes occupies two slots. Reads are asynchronous
// and misses are silent: the loader falls through to the decode path.
package cache

import (
	"encoding/binary"

	"github.com/marmos91/glyphcache/pkg/document"
)

// keyShiftBase is the fixed constant combined with the size-tag sub-index
// to offset emoji cache entries inside a document's cache keyspace.
const keyShiftBase = 0x0F

// Key addresses one cache entry.
type Key struct {
	High uint64
	Low  uint64
}

// Zero reports whether the key is the zero value.
func (k Key) Zero() bool {
	return k.High == 0 && k.Low == 0
}

// Encode returns the 16-byte big-endian representation of the key.
func (k Key) Encode() []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[:8], k.High)
	binary.BigEndian.PutUint64(buf[8:], k.Low)
	return buf
}

// Shift returns the key offset for a size-tag sub-index.
func Shift(sizeIndex int) uint64 {
	return uint64(keyShiftBase)<<8 | uint64(sizeIndex&0xFF)
}

// KeyFor derives the cache key for a document's base key and a size-tag
// sub-index. Returns ok=false when the document has no base key, in which
// case the cache is skipped entirely.
func KeyFor(base document.CacheKey, sizeIndex int) (Key, bool) {
	if base.Zero() {
		return Key{}, false
	}
	return Key{
		High: base.High,
		Low:  base.Low + Shift(sizeIndex),
	}, true
}

// Cache is the disk cache collaborator contract.
//
// Get is asynchronous: done is invoked exactly once, possibly on another
// goroutine, with the stored bytes or nil on a miss. Put is fire-and-forget;
// failures are logged, never surfaced.
type Cache interface {
	Get(key Key, done func(value []byte))
	Put(key Key, value []byte)
	Close() error
}

// Metrics receives cache observation callbacks. A nil Metrics is valid and
// means zero overhead.
type Metrics interface {
	ObserveHit(bytes int)
	ObserveMiss()
	ObservePut(bytes int)
}
