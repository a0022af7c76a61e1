package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/glyphcache/pkg/cache"
	"github.com/marmos91/glyphcache/pkg/document"
	"github.com/marmos91/glyphcache/pkg/loader"
	"github.com/marmos91/glyphcache/pkg/payload"
	"github.com/marmos91/glyphcache/pkg/render"
)

type fakeResolver struct {
	mu      sync.Mutex
	batches [][]uint64
	fail    bool
	gate    chan struct{}
	docs    map[uint64]document.Document
}

func (r *fakeResolver) Resolve(ctx context.Context, ids []uint64) ([]document.Document, error) {
	if r.gate != nil {
		select {
		case <-r.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	r.mu.Lock()
	r.batches = append(r.batches, append([]uint64(nil), ids...))
	r.mu.Unlock()

	if r.fail {
		return nil, errors.New("backend unavailable")
	}
	docs := make([]document.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := r.docs[id]; ok {
			docs = append(docs, doc)
			continue
		}
		docs = append(docs, document.Document{ID: id, OwnerID: 1, Type: document.TypeImage})
	}
	return docs, nil
}

func (r *fakeResolver) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func (r *fakeResolver) batch(i int) []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.batches[i]
}

func newTestManager(res *fakeResolver, deps loader.Deps) *Manager {
	return New(Config{
		Resolver:   res,
		Loader:     deps,
		SizeTag:    render.SizeNormal,
		BatchDelay: 20 * time.Millisecond,
	})
}

func TestBatchesDrainMostRecentFirst(t *testing.T) {
	res := &fakeResolver{}
	m := newTestManager(res, loader.Deps{Content: payload.NewMemoryStore()})
	defer m.Close()

	const total = 250
	handles := make([]*Handle, 0, total)
	for i := 1; i <= total; i++ {
		h := m.Create(fmt.Sprintf("%d:1", i), nil)
		require.NotNil(t, h)
		handles = append(handles, h)
	}

	require.Eventually(t, func() bool {
		return res.calls() == 3 && m.PendingCount() == 0
	}, 2*time.Second, 10*time.Millisecond)

	require.Len(t, res.batch(0), 100)
	require.Len(t, res.batch(1), 100)
	require.Len(t, res.batch(2), 50)

	// Most recently queued ids go out first, batch by batch.
	next := uint64(total)
	for i := 0; i < 3; i++ {
		for _, id := range res.batch(i) {
			require.Equal(t, next, id)
			next--
		}
	}

	require.Eventually(t, func() bool {
		for _, h := range handles {
			if h.inst.ldr.Resolving() {
				return false
			}
		}
		return true
	}, 2*time.Second, 10*time.Millisecond)

	for _, h := range handles {
		h.Release()
	}
	assert.Equal(t, 0, m.InstanceCount())
}

func TestCreateSharesInstance(t *testing.T) {
	res := &fakeResolver{gate: make(chan struct{})}
	m := newTestManager(res, loader.Deps{Content: payload.NewMemoryStore()})
	defer m.Close()

	h1 := m.Create("7:1", nil)
	h2 := m.Create("7:1", nil)
	require.NotNil(t, h1)
	require.NotNil(t, h2)
	require.Same(t, h1.inst, h2.inst)
	require.Equal(t, 1, m.InstanceCount())

	h1.Release()
	require.Equal(t, 1, m.InstanceCount())
	h2.Release()
	h2.Release() // idempotent
	require.Equal(t, 0, m.InstanceCount())
}

func TestCreateRacingReleaseGetsLiveInstance(t *testing.T) {
	res := &fakeResolver{}
	m := newTestManager(res, loader.Deps{Content: payload.NewMemoryStore()})
	defer m.Close()

	// Race Create against the last Release of the same token. The new
	// handle must always reference a live, registered instance so its
	// update callback can still fire.
	const token = "42:7"
	for n := 0; n < 5000; n++ {
		h1 := m.Create(token, nil)
		require.NotNil(t, h1)

		done := make(chan struct{})
		go func() {
			h1.Release()
			close(done)
		}()
		h2 := m.Create(token, nil)
		<-done

		require.NotNil(t, h2)
		require.True(t, h2.inst.alive(), "Create returned a dead instance")
		m.mu.Lock()
		current := m.instances[h2.inst.id]
		m.mu.Unlock()
		require.Same(t, h2.inst, current, "held handle's instance is not registered")
		h2.Release()
	}
	require.Equal(t, 0, m.InstanceCount())
}

func TestCreateMalformedToken(t *testing.T) {
	res := &fakeResolver{}
	m := newTestManager(res, loader.Deps{})
	defer m.Close()

	require.Nil(t, m.Create("not-a-token", nil))
	require.Nil(t, m.Create("7:1:extra", nil))
	require.Equal(t, 0, m.InstanceCount())
}

func TestReleasedWaiterSkippedOnDelivery(t *testing.T) {
	res := &fakeResolver{gate: make(chan struct{})}
	m := newTestManager(res, loader.Deps{Content: payload.NewMemoryStore()})
	defer m.Close()

	h := m.Create("9:1", nil)
	require.NotNil(t, h)
	ldr := h.inst.ldr

	// Drop the last reference while the batch is still in flight.
	h.Release()
	require.Equal(t, 0, m.InstanceCount())

	close(res.gate)
	require.Eventually(t, func() bool {
		return res.calls() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// The delivered record never reaches the dead instance's loader.
	time.Sleep(50 * time.Millisecond)
	assert.True(t, ldr.Resolving())
}

func TestBatchFailureIsNotRetried(t *testing.T) {
	res := &fakeResolver{fail: true}
	m := newTestManager(res, loader.Deps{Content: payload.NewMemoryStore()})
	defer m.Close()

	h := m.Create("3:1", nil)
	require.NotNil(t, h)
	defer h.Release()

	require.Eventually(t, func() bool {
		return res.calls() == 1
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, res.calls())
	assert.Equal(t, 0, m.PendingCount())

	// A fresh identifier triggers a new batch naturally.
	h2 := m.Create("4:1", nil)
	require.NotNil(t, h2)
	defer h2.Release()
	require.Eventually(t, func() bool {
		return res.calls() == 2
	}, 2*time.Second, 10*time.Millisecond)
}

func TestKnownDocumentSkipsResolution(t *testing.T) {
	res := &fakeResolver{docs: map[uint64]document.Document{
		5: {ID: 5, OwnerID: 1, Type: document.TypeImage, ContentKey: "five"},
	}}
	m := newTestManager(res, loader.Deps{Content: payload.NewMemoryStore()})
	defer m.Close()

	h := m.Create("5:1", nil)
	require.NotNil(t, h)
	require.Eventually(t, func() bool {
		return !h.inst.ldr.Resolving()
	}, 2*time.Second, 10*time.Millisecond)
	h.Release()

	// The record survives the instance: a re-created handle starts
	// straight in cache lookup and queues nothing.
	h2 := m.Create("5:1", nil)
	require.NotNil(t, h2)
	defer h2.Release()
	assert.False(t, h2.inst.ldr.Resolving())
	assert.Equal(t, 0, m.PendingCount())
	assert.Equal(t, 1, res.calls())
}

func TestAnimatedFrameSchedulesRepaint(t *testing.T) {
	base := document.CacheKey{High: 11, Low: 22}
	doc := document.Document{
		ID:           6,
		OwnerID:      1,
		Type:         document.TypeVector,
		Width:        36,
		Height:       36,
		ContentKey:   "six",
		BaseCacheKey: base,
	}
	res := &fakeResolver{docs: map[uint64]document.Document{6: doc}}

	sizing := render.DefaultSizing()
	size := sizing.SizeFor(render.SizeNormal)
	frames := []render.Frame{
		{Pix: make([]byte, size*size*4), Size: size, Duration: 40 * time.Millisecond},
		{Pix: make([]byte, size*size*4), Size: size, Duration: 40 * time.Millisecond},
	}
	blob, err := render.EncodeFrames(frames, size)
	require.NoError(t, err)

	mem := cache.NewMemoryCache()
	key, ok := cache.KeyFor(base, render.SizeNormal.CacheIndex())
	require.True(t, ok)
	mem.Put(key, blob)

	m := newTestManager(res, loader.Deps{
		Cache:   mem,
		Content: payload.NewMemoryStore(),
		Sizing:  sizing,
	})
	defer m.Close()

	var updates int
	h := m.Create("6:1", func() { updates++ })
	require.NotNil(t, h)
	defer h.Release()

	require.Eventually(t, func() bool {
		return !h.inst.ldr.Resolving()
	}, 2*time.Second, 10*time.Millisecond)

	// First call starts the load; the memory cache completes it inline.
	_, ok = h.Frame()
	require.False(t, ok)
	require.Equal(t, 1, updates)
	require.NoError(t, h.Err())

	frame, ok := h.Frame()
	require.True(t, ok)
	require.Equal(t, size, frame.Size)
	require.Equal(t, 40*time.Millisecond, frame.Duration)
	assert.False(t, m.repaints.empty())

	// The single repaint timer is created on the first scheduled repaint.
	m.timerMu.Lock()
	armed := m.repaintTimer != nil
	m.timerMu.Unlock()
	assert.True(t, armed)
}
