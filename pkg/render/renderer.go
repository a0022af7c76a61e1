package render

import (
	"fmt"
	"sync"
	"time"
)

// RendererDescriptor configures a decoding Renderer.
type RendererDescriptor struct {
	// Generator produces the frames.
	Generator FrameGenerator

	// Put receives the serialized frame blob once the first full pass
	// completes. Nil disables cache write-back.
	Put func(blob []byte)

	// Size is the square frame size in pixels.
	Size int
}

// Renderer serves successive animation frames for one emoji instance.
//
// A decoding renderer pulls frames from its generator on demand; once the
// generator is exhausted, the accumulated frames are serialized and handed
// to Put, making the cache self-healing: every successful decode populates
// the cache for next time. A cached renderer starts from deserialized
// frames and never touches a generator.
type Renderer struct {
	mu     sync.Mutex
	frames []Frame
	gen    FrameGenerator
	put    func(blob []byte)
	size   int
	pos    int
	failed error
}

// NewRenderer creates a decoding renderer.
func NewRenderer(desc RendererDescriptor) *Renderer {
	return &Renderer{
		gen:  desc.Generator,
		put:  desc.Put,
		size: desc.Size,
	}
}

// NewCachedRenderer creates a renderer from a serialized cache entry.
func NewCachedRenderer(blob []byte, size int) (*Renderer, error) {
	frames, err := DecodeFrames(blob, size)
	if err != nil {
		return nil, err
	}
	return &Renderer{
		frames: frames,
		size:   size,
		pos:    0,
	}, nil
}

// Size returns the square frame size in pixels.
func (r *Renderer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// NextFrame returns the next frame, looping once the animation is
// complete. The first pass over a decoding renderer generates frames; the
// loop replays them.
func (r *Renderer) NextFrame() (Frame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failed != nil {
		return Frame{}, r.failed
	}

	// Still decoding the first pass.
	if r.gen != nil {
		frame, err := r.gen.NextFrame()
		if err != nil {
			r.failed = fmt.Errorf("frame decode failed: %w", err)
			r.closeGenerator()
			return Frame{}, r.failed
		}
		if frame != nil {
			r.frames = append(r.frames, *frame)
			return *frame, nil
		}

		// First pass complete: write back to cache and switch to replay.
		r.closeGenerator()
		if len(r.frames) == 0 {
			r.failed = fmt.Errorf("frame decode produced no frames")
			return Frame{}, r.failed
		}
		if r.put != nil {
			if blob, err := EncodeFrames(r.frames, r.size); err == nil {
				r.put(blob)
			}
			r.put = nil
		}
		r.pos = 0
	}

	frame := r.frames[r.pos]
	r.pos = (r.pos + 1) % len(r.frames)
	return frame, nil
}

// FrameCount returns the number of frames decoded so far.
func (r *Renderer) FrameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// Animated reports whether more than one frame is known.
func (r *Renderer) Animated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.gen != nil || len(r.frames) > 1
}

// Duration returns the display duration of the most recently served frame,
// used to bucket repaint scheduling.
func (r *Renderer) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return 0
	}
	idx := r.pos - 1
	if idx < 0 {
		idx = len(r.frames) - 1
	}
	return r.frames[idx].Duration
}

// Close releases the generator if decoding is still in progress.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closeGenerator()
	return nil
}

// closeGenerator must be called with r.mu held.
func (r *Renderer) closeGenerator() {
	if r.gen != nil {
		_ = r.gen.Close()
		r.gen = nil
	}
}
