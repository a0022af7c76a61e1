package render

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"

	// Register common raster formats with the image package.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// imageGenerator serves a single frame decoded from a static raster image.
type imageGenerator struct {
	data []byte
	size int
	done bool
}

func newImageGenerator(data []byte, size int) (FrameGenerator, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid frame size %d", size)
	}
	return &imageGenerator{data: data, size: size}, nil
}

// NextFrame decodes the image and scales it to the target square. The
// second call returns nil: a static image is a one-frame animation.
func (g *imageGenerator) NextFrame() (*Frame, error) {
	if g.done {
		return nil, nil
	}
	g.done = true

	src, _, err := image.Decode(bytes.NewReader(g.data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, g.size, g.size))
	scaleInto(rgba, src)

	return &Frame{
		Pix:  rgba.Pix,
		Size: g.size,
	}, nil
}

func (g *imageGenerator) Close() error {
	g.data = nil
	return nil
}

// scaleInto draws src into dst with nearest-neighbor sampling.
func scaleInto(dst *image.RGBA, src image.Image) {
	b := src.Bounds()
	if b.Dx() == dst.Rect.Dx() && b.Dy() == dst.Rect.Dy() {
		draw.Draw(dst, dst.Rect, src, b.Min, draw.Src)
		return
	}
	for y := 0; y < dst.Rect.Dy(); y++ {
		sy := b.Min.Y + y*b.Dy()/dst.Rect.Dy()
		for x := 0; x < dst.Rect.Dx(); x++ {
			sx := b.Min.X + x*b.Dx()/dst.Rect.Dx()
			dst.Set(x, y, src.At(sx, sy))
		}
	}
}
