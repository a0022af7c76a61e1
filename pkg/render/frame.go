// Package render produces successive animation frames for custom emoji.
//
// A FrameGenerator decodes one container format (vector animation, video,
// static image) into raw RGBA frames. The Renderer drives a generator,
// serves frames to render sites and, as a side effect of the first full
// pass, writes the serialized frames back to the disk cache so the next
// loader for the same document and size resolves without decoding.
//
// Vector and video decoding is delegated to pluggable decoder functions:
// the actual codec libraries are collaborators of this module, not part of
// it. Static images decode through the standard library image registry.
package render

import (
	"errors"
	"fmt"
	"time"

	"github.com/marmos91/glyphcache/pkg/document"
)

// ErrNoDecoder is returned when no decoder is registered for a document's
// container format.
var ErrNoDecoder = errors.New("no decoder registered for container format")

// Frame is one decoded animation frame: tightly packed RGBA pixels of a
// Size×Size square and the display duration before the next frame is due.
type Frame struct {
	Pix      []byte
	Size     int
	Duration time.Duration
}

// FrameGenerator decodes successive frames at a fixed square size.
// NextFrame returns nil when the animation is exhausted. Generators are
// single-pass; the Renderer owns looping.
type FrameGenerator interface {
	NextFrame() (*Frame, error)
	Close() error
}

// DecoderFunc builds a FrameGenerator for raw content bytes at the given
// square pixel size.
type DecoderFunc func(data []byte, size int) (FrameGenerator, error)

var (
	vectorDecoder DecoderFunc
	videoDecoder  DecoderFunc
)

// RegisterVectorDecoder installs the decoder used for vector animation
// documents. Call once at program start.
func RegisterVectorDecoder(fn DecoderFunc) {
	vectorDecoder = fn
}

// RegisterVideoDecoder installs the decoder used for video documents.
// Call once at program start.
func RegisterVideoDecoder(fn DecoderFunc) {
	videoDecoder = fn
}

// NewGenerator selects a frame generator implementation by the document's
// declared container format.
func NewGenerator(typ document.StickerType, data []byte, size int) (FrameGenerator, error) {
	switch typ {
	case document.TypeVector:
		if vectorDecoder == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoDecoder, typ)
		}
		return vectorDecoder(data, size)
	case document.TypeVideo:
		if videoDecoder == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoDecoder, typ)
		}
		return videoDecoder(data, size)
	case document.TypeImage:
		return newImageGenerator(data, size)
	default:
		return nil, fmt.Errorf("unknown container format %d", typ)
	}
}
