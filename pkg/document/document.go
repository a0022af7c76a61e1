// Package document defines the resolved custom emoji document record and
// the stores that persist it on the resolution service side.
package document

import "github.com/marmos91/glyphcache/pkg/emoji"

// StickerType declares the animation container format of a document's
// content bytes. It selects the frame generator used to decode them.
type StickerType uint8

const (
	// TypeVector is a vector animation (lottie-style JSON).
	TypeVector StickerType = iota
	// TypeVideo is a short video clip (webm-style).
	TypeVideo
	// TypeImage is a static raster image.
	TypeImage
)

func (t StickerType) String() string {
	switch t {
	case TypeVector:
		return "vector"
	case TypeVideo:
		return "video"
	case TypeImage:
		return "image"
	default:
		return "unknown"
	}
}

// CacheKey is the base key of a document in the disk cache keyspace.
// A zero key means the document has no cache slot and lookups skip the
// cache entirely.
type CacheKey struct {
	High uint64 `json:"high"`
	Low  uint64 `json:"low"`
}

// Zero reports whether the key is the zero value.
func (k CacheKey) Zero() bool {
	return k.High == 0 && k.Low == 0
}

// Document is a fully resolved custom emoji asset record.
type Document struct {
	// ID is the numeric document id.
	ID uint64 `json:"id"`

	// OwnerID is the account the document was resolved for.
	OwnerID uint64 `json:"owner_id"`

	// Type selects the frame generator for the content bytes.
	Type StickerType `json:"type"`

	// Alt is the plain emoji this custom emoji stands in for.
	Alt string `json:"alt,omitempty"`

	// Width and Height are the native dimensions in pixels.
	Width  int `json:"width"`
	Height int `json:"height"`

	// ContentKey addresses the raw content bytes in the payload store.
	ContentKey string `json:"content_key"`

	// BaseCacheKey is the document's base slot in the disk cache.
	// Zero disables caching for this document.
	BaseCacheKey CacheKey `json:"base_cache_key"`

	// ThumbnailPath holds inline thumbnail vector path data, if the
	// document carries one. Used for best-effort previews before the
	// full asset is decoded.
	ThumbnailPath string `json:"thumbnail_path,omitempty"`
}

// EmojiID returns the emoji identifier for the document.
func (d Document) EmojiID() emoji.ID {
	return emoji.ID{DocumentID: d.ID, OwnerID: d.OwnerID}
}

// Token returns the serialized emoji token for the document.
func (d Document) Token() string {
	return emoji.Serialize(d.EmojiID())
}
