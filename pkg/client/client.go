// Package client assembles the client-side emoji pipeline from
// configuration: the batched resolver, the remote content fetch, the
// local frame cache and the instance manager.
package client

import (
	"fmt"

	"github.com/marmos91/glyphcache/internal/logger"
	"github.com/marmos91/glyphcache/pkg/cache"
	"github.com/marmos91/glyphcache/pkg/config"
	"github.com/marmos91/glyphcache/pkg/loader"
	"github.com/marmos91/glyphcache/pkg/manager"
	"github.com/marmos91/glyphcache/pkg/metrics"
	"github.com/marmos91/glyphcache/pkg/payload/remote"
	"github.com/marmos91/glyphcache/pkg/render"
	"github.com/marmos91/glyphcache/pkg/resolver"
)

// Client is an assembled emoji pipeline bound to one render size class.
type Client struct {
	mgr        *manager.Manager
	frameCache cache.Cache
}

// New builds a Client from configuration.
//
// An empty cache path disables the frame cache; every load then decodes
// from source.
func New(cfg *config.Config, tag render.SizeTag) (*Client, error) {
	var frameCache cache.Cache
	if cfg.Cache.Path != "" {
		var err error
		frameCache, err = cache.NewBadgerCache(cache.BadgerConfig{
			Path:    cfg.Cache.Path,
			MaxSize: cfg.Cache.MaxSize,
		}, metrics.NewCacheMetrics())
		if err != nil {
			return nil, fmt.Errorf("failed to open frame cache: %w", err)
		}
	} else {
		logger.Warn("Frame cache disabled, every load decodes from source")
	}

	res := metrics.InstrumentResolver(resolver.NewClient(cfg.Resolver.BaseURL))

	mgr := manager.New(manager.Config{
		Resolver: res,
		Loader: loader.Deps{
			Cache:   frameCache,
			Content: remote.New(cfg.Resolver.BaseURL),
			Sizing: render.Sizing{
				NormalPx:   cfg.Render.NormalPx,
				LargePx:    cfg.Render.LargePx,
				PixelRatio: cfg.Render.PixelRatio,
			},
		},
		SizeTag:    tag,
		BatchDelay: cfg.Resolver.BatchDelay,
	})

	return &Client{
		mgr:        mgr,
		frameCache: frameCache,
	}, nil
}

// Acquire returns a handle to the shared instance for a serialized emoji
// token, or nil on a malformed token. The update callback fires whenever
// the asset needs repainting.
func (c *Client) Acquire(token string, onUpdate func()) *manager.Handle {
	return c.mgr.Create(token, onUpdate)
}

// Manager exposes the underlying instance manager.
func (c *Client) Manager() *manager.Manager {
	return c.mgr
}

// Close stops batching and repaint timers and closes the frame cache.
func (c *Client) Close() error {
	c.mgr.Close()
	if c.frameCache != nil {
		return c.frameCache.Close()
	}
	return nil
}
