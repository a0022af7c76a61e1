package client

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/glyphcache/pkg/api"
	"github.com/marmos91/glyphcache/pkg/config"
	"github.com/marmos91/glyphcache/pkg/document"
	"github.com/marmos91/glyphcache/pkg/payload"
	"github.com/marmos91/glyphcache/pkg/render"
)

func pngBytes(t *testing.T, size int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestEndToEndStaticEmoji(t *testing.T) {
	ctx := context.Background()
	docs := document.NewMemoryStore()
	content := payload.NewMemoryStore()

	require.NoError(t, content.WriteContent(ctx, "glyphs/11", pngBytes(t, 24)))
	require.NoError(t, docs.Put(ctx, document.Document{
		ID:         11,
		OwnerID:    3,
		Type:       document.TypeImage,
		Alt:        "star",
		Width:      24,
		Height:     24,
		ContentKey: "glyphs/11",
	}))

	srv := httptest.NewServer(api.NewRouter(docs, content))
	defer srv.Close()

	cfg := config.GetDefaultConfig()
	cfg.Cache.Path = "" // decode from source
	cfg.Resolver.BaseURL = srv.URL
	cfg.Resolver.BatchDelay = 5 * time.Millisecond

	c, err := New(cfg, render.SizeNormal)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	h := c.Acquire("11:3", nil)
	require.NotNil(t, h)
	defer h.Release()
	assert.Equal(t, "11:3", h.Token())

	var frame render.Frame
	require.Eventually(t, func() bool {
		f, ok := h.Frame()
		if ok {
			frame = f
		}
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 36, frame.Size)
	assert.Len(t, frame.Pix, 36*36*4)
	assert.NoError(t, h.Err())
}

func TestAcquireMalformedToken(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Cache.Path = ""
	cfg.Resolver.BaseURL = "http://localhost:0"

	c, err := New(cfg, render.SizeNormal)
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	assert.Nil(t, c.Acquire("bogus", nil))
	assert.Nil(t, c.Acquire("1:2:3", nil))
}
