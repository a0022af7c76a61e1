// Package loader implements the per-asset state machine that turns an
// emoji identifier into a renderable asset.
//
// A Loader moves through three mutually exclusive states:
//
//	Resolving:   identifier known, document record not yet fetched
//	CacheLookup: document known, disk cache read pending or idle
//	Decoding:    document known, content fetch and decode pending or idle
//
// Transitions run Resolving to CacheLookup (when the record arrives) to
// Decoding (on cache miss), then the result is delivered. A Loader may be
// asked to load
// from several call sites concurrently; at most one cache read or content
// fetch is ever in flight, and all waiting callers share its completion.
package loader

import (
	"context"
	"sync"

	"github.com/marmos91/glyphcache/pkg/cache"
	"github.com/marmos91/glyphcache/pkg/document"
	"github.com/marmos91/glyphcache/pkg/emoji"
	"github.com/marmos91/glyphcache/pkg/payload"
	"github.com/marmos91/glyphcache/pkg/render"
)

// Factory recreates an equivalent Loader later, for cache invalidation and
// re-fetch scenarios.
type Factory func() *Loader

// Result is the outcome of a successful load: a renderer paired with the
// asset's serialized token and a factory for re-derivation.
type Result struct {
	Token     string
	Renderer  *render.Renderer
	Reload    Factory
	FromCache bool
}

// Callback receives the shared completion of a load. Exactly one of the
// result and error is meaningful.
type Callback func(Result, error)

// Deps are the loader's collaborators.
type Deps struct {
	// Cache is the disk cache; nil skips cache lookups and write-back.
	Cache cache.Cache

	// Content fetches raw asset bytes on a cache miss.
	Content payload.ContentStore

	// Sizing computes pixel sizes per size tag.
	Sizing render.Sizing
}

type stateKind uint8

const (
	stateResolving stateKind = iota
	stateCacheLookup
	stateDecoding
)

// process is one in-flight cache read or content fetch. Completion
// callbacks compare pointer identity against the loader's current process,
// so completions racing with Cancel find a different (or nil) process and
// are no-ops.
type process struct {
	waiters []Callback
	cancel  context.CancelFunc
}

// Loader resolves one emoji asset at one size.
type Loader struct {
	mu   sync.Mutex
	deps Deps
	tag  render.SizeTag

	kind stateKind

	// Resolving state.
	token   string
	pending []Callback

	// CacheLookup / Decoding state.
	doc     document.Document
	process *process
}

// New creates a Loader for an identifier. If the document record is
// already known, the loader starts in CacheLookup; otherwise it starts in
// Resolving and waits for Resolved.
func New(id emoji.ID, known *document.Document, tag render.SizeTag, deps Deps) *Loader {
	if known != nil {
		return NewForDocument(*known, tag, deps)
	}
	return &Loader{
		deps:  deps,
		tag:   tag,
		kind:  stateResolving,
		token: emoji.Serialize(id),
	}
}

// NewForDocument creates a Loader for an already resolved document.
func NewForDocument(doc document.Document, tag render.SizeTag, deps Deps) *Loader {
	return &Loader{
		deps: deps,
		tag:  tag,
		kind: stateCacheLookup,
		doc:  doc,
	}
}

// Resolving reports whether the loader is still waiting for its document
// record.
func (l *Loader) Resolving() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.kind == stateResolving
}

// Loading reports whether a completion is pending.
func (l *Loader) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.kind == stateResolving {
		return len(l.pending) > 0
	}
	return l.process != nil
}

// Token returns the serialized identifier for the asset.
func (l *Loader) Token() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.kind == stateResolving {
		return l.token
	}
	return l.doc.Token()
}

// SizeTag returns the loader's render size class.
func (l *Loader) SizeTag() render.SizeTag {
	return l.tag
}

// Resolved delivers the document record. Valid only in Resolving state.
// If a load was requested while resolving, it is re-issued immediately
// against the new state.
func (l *Loader) Resolved(doc document.Document) {
	l.mu.Lock()
	if l.kind != stateResolving {
		l.mu.Unlock()
		return
	}
	requested := l.pending
	l.pending = nil
	l.token = ""
	l.kind = stateCacheLookup
	l.doc = doc
	l.mu.Unlock()

	for _, done := range requested {
		l.Load(done)
	}
}

// Load registers a completion callback. If a cache read or content fetch
// is already in flight, the callback joins the waiters of that process;
// otherwise a new process starts. In Resolving state the callback is
// parked until Resolved.
func (l *Loader) Load(done Callback) {
	l.mu.Lock()

	switch l.kind {
	case stateResolving:
		l.pending = append(l.pending, done)
		l.mu.Unlock()

	case stateCacheLookup:
		if l.process != nil {
			l.process.waiters = append(l.process.waiters, done)
			l.mu.Unlock()
			return
		}
		l.startCacheLookupLocked(done)

	case stateDecoding:
		if l.process != nil {
			l.process.waiters = append(l.process.waiters, done)
			l.mu.Unlock()
			return
		}
		l.startDecodeLocked(done)
	}
}

// Cancel discards any in-flight process. In Decoding state it also aborts
// the underlying content fetch. Idempotent.
func (l *Loader) Cancel() {
	l.mu.Lock()
	p := l.process
	l.process = nil
	l.pending = nil
	l.mu.Unlock()

	if p != nil && p.cancel != nil {
		p.cancel()
	}
}

// Preview returns a best-effort placeholder once the document record is
// known and carries an inline thumbnail shaped as a vector path.
func (l *Loader) Preview() render.Preview {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.kind == stateResolving {
		return render.Preview{}
	}
	if l.doc.ThumbnailPath == "" || l.doc.Width <= 0 {
		return render.Preview{}
	}
	size := l.deps.Sizing.SizeFor(l.tag)
	return render.Preview{
		PathData: l.doc.ThumbnailPath,
		Scale:    float64(size) / (l.deps.Sizing.Ratio() * float64(l.doc.Width)),
	}
}

// cacheKey derives the loader's disk cache key. ok=false means the
// document has no cache slot and lookups skip the cache.
func (l *Loader) cacheKey() (cache.Key, bool) {
	return cache.KeyFor(l.doc.BaseCacheKey, l.tag.CacheIndex())
}

// factory returns a Factory recreating an equivalent loader.
func (l *Loader) factory() Factory {
	doc := l.doc
	tag := l.tag
	deps := l.deps
	return func() *Loader {
		return NewForDocument(doc, tag, deps)
	}
}

// startCacheLookupLocked begins the disk cache read. Called with l.mu
// held; releases it.
func (l *Loader) startCacheLookupLocked(done Callback) {
	key, ok := l.cacheKey()
	if !ok || l.deps.Cache == nil {
		// No cache slot: go straight to decode.
		l.kind = stateDecoding
		l.startDecodeLocked(done)
		return
	}

	p := &process{waiters: []Callback{done}}
	l.process = p
	cacheStore := l.deps.Cache
	size := l.deps.Sizing.SizeFor(l.tag)
	l.mu.Unlock()

	cacheStore.Get(key, func(value []byte) {
		l.lookupDone(p, value, size)
	})
}

// lookupDone resumes after the cache read. A hit delivers a cached
// renderer; a miss or corrupt entry falls through to the decode path.
func (l *Loader) lookupDone(p *process, value []byte, size int) {
	l.mu.Lock()
	if l.process != p {
		// Cancelled, or a different process superseded this one.
		l.mu.Unlock()
		return
	}

	if value != nil {
		if renderer, err := render.NewCachedRenderer(value, size); err == nil {
			l.process = nil
			result := Result{
				Token:     l.doc.Token(),
				Renderer:  renderer,
				Reload:    l.factory(),
				FromCache: true,
			}
			waiters := p.waiters
			l.mu.Unlock()
			for _, done := range waiters {
				done(result, nil)
			}
			return
		}
	}

	// Miss: hand the same waiters to the decode path.
	l.kind = stateDecoding
	l.process = nil
	l.startDecodeWaitersLocked(p.waiters)
}

// startDecodeLocked begins the content fetch and decode. Called with l.mu
// held; releases it.
func (l *Loader) startDecodeLocked(done Callback) {
	l.startDecodeWaitersLocked([]Callback{done})
}

// startDecodeWaitersLocked is startDecodeLocked for an inherited waiter
// list. Called with l.mu held; releases it.
func (l *Loader) startDecodeWaitersLocked(waiters []Callback) {
	ctx, cancelFn := context.WithCancel(context.Background())
	p := &process{waiters: waiters, cancel: cancelFn}
	l.process = p

	content := l.deps.Content
	key := l.doc.ContentKey
	l.mu.Unlock()

	go func() {
		data, err := content.ReadContent(ctx, key)
		l.decodeDone(p, data, err)
	}()
}

// decodeDone resumes after the content fetch, builds the frame generator
// and delivers the decoding renderer. Fetch or generator errors are
// delivered once; the loader returns to an idle state so a later load may
// retry.
func (l *Loader) decodeDone(p *process, data []byte, fetchErr error) {
	l.mu.Lock()
	if l.process != p {
		l.mu.Unlock()
		return
	}
	l.process = nil
	waiters := p.waiters

	if fetchErr != nil {
		l.kind = stateCacheLookup
		l.mu.Unlock()
		for _, done := range waiters {
			done(Result{}, fetchErr)
		}
		return
	}

	size := l.deps.Sizing.SizeFor(l.tag)
	gen, err := render.NewGenerator(l.doc.Type, data, size)
	if err != nil {
		l.kind = stateCacheLookup
		l.mu.Unlock()
		for _, done := range waiters {
			done(Result{}, err)
		}
		return
	}

	var put func([]byte)
	if key, ok := l.cacheKey(); ok && l.deps.Cache != nil {
		cacheStore := l.deps.Cache
		put = func(blob []byte) {
			cacheStore.Put(key, blob)
		}
	}

	result := Result{
		Token: l.doc.Token(),
		Renderer: render.NewRenderer(render.RendererDescriptor{
			Generator: gen,
			Put:       put,
			Size:      size,
		}),
		Reload: l.factory(),
	}
	l.mu.Unlock()

	for _, done := range waiters {
		done(result, nil)
	}
}
