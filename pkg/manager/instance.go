package manager

import (
	"sync"
	"sync/atomic"

	"github.com/marmos91/glyphcache/pkg/emoji"
	"github.com/marmos91/glyphcache/pkg/loader"
	"github.com/marmos91/glyphcache/pkg/render"
)

// Instance is the shared per-identifier asset state: one loader plus the
// renderer it eventually produces. All handles created for the same
// identifier reference one Instance; its lifetime is the longest-held
// reference among them.
type Instance struct {
	mgr *Manager
	id  emoji.ID

	// live is the weak-reference liveness flag. Weak holders (the
	// resolution waiter registry, repaint bunches) check it instead of
	// keeping the instance reachable.
	live atomic.Bool

	mu       sync.Mutex
	ldr      *loader.Loader
	renderer *render.Renderer
	loadErr  error
	loading  bool
	refs     int
	handles  map[*Handle]struct{}
}

func newInstance(mgr *Manager, id emoji.ID, ldr *loader.Loader) *Instance {
	inst := &Instance{
		mgr:     mgr,
		id:      id,
		ldr:     ldr,
		handles: make(map[*Handle]struct{}),
	}
	inst.live.Store(true)
	return inst
}

// ID returns the instance's emoji identifier.
func (i *Instance) ID() emoji.ID {
	return i.id
}

// alive implements repaintTarget.
func (i *Instance) alive() bool {
	return i.live.Load()
}

// repaint implements repaintTarget: every handle's update callback fires
// independently.
func (i *Instance) repaint() {
	i.mu.Lock()
	updates := make([]func(), 0, len(i.handles))
	for h := range i.handles {
		if h.update != nil {
			updates = append(updates, h.update)
		}
	}
	i.mu.Unlock()

	for _, update := range updates {
		update()
	}
}

// attach creates a new handle referencing the instance.
func (i *Instance) attach(update func()) *Handle {
	h := &Handle{inst: i, update: update}
	i.mu.Lock()
	i.refs++
	i.handles[h] = struct{}{}
	i.mu.Unlock()
	return h
}

// detach drops a handle reference. When the last reference goes, the
// manager retires the instance: weak holders see it dead, the loader's
// in-flight work is cancelled and the registry entry is removed.
func (i *Instance) detach(h *Handle) {
	i.mu.Lock()
	if _, ok := i.handles[h]; !ok {
		i.mu.Unlock()
		return
	}
	delete(i.handles, h)
	i.refs--
	last := i.refs == 0
	i.mu.Unlock()

	if last {
		i.mgr.release(i)
	}
}

// ensureLoad starts the loader once; concurrent calls when a load is
// already running are no-ops. Completion stores the renderer (or error)
// and repaints all handles.
func (i *Instance) ensureLoad() {
	i.mu.Lock()
	if i.renderer != nil || i.loading {
		i.mu.Unlock()
		return
	}
	i.loading = true
	ldr := i.ldr
	i.mu.Unlock()

	ldr.Load(func(result loader.Result, err error) {
		i.mu.Lock()
		i.loading = false
		if err != nil {
			i.loadErr = err
		} else {
			i.renderer = result.Renderer
			i.loadErr = nil
		}
		i.mu.Unlock()

		if i.alive() {
			i.repaint()
		}
	})
}

// currentRenderer returns the renderer once loaded, else nil.
func (i *Instance) currentRenderer() *render.Renderer {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.renderer
}

// Handle is a lightweight reference to a shared Instance, bound to one
// render site's update callback.
type Handle struct {
	inst     *Instance
	update   func()
	released atomic.Bool
}

// Token returns the serialized identifier for the asset.
func (h *Handle) Token() string {
	return h.inst.ldr.Token()
}

// Preview returns a best-effort placeholder while the asset loads.
func (h *Handle) Preview() render.Preview {
	return h.inst.ldr.Preview()
}

// Err returns the last load failure, if any. A later Frame call retries.
func (h *Handle) Err() error {
	h.inst.mu.Lock()
	defer h.inst.mu.Unlock()
	return h.inst.loadErr
}

// Frame returns the next animation frame when the asset is ready. While
// the asset is still loading it starts the load (once across all handles)
// and reports ok=false; the handle's update callback fires when frames
// become available. Serving a frame of an animated asset schedules the
// next coalesced repaint.
func (h *Handle) Frame() (render.Frame, bool) {
	if h.released.Load() {
		return render.Frame{}, false
	}

	renderer := h.inst.currentRenderer()
	if renderer == nil {
		h.inst.ensureLoad()
		return render.Frame{}, false
	}

	frame, err := renderer.NextFrame()
	if err != nil {
		h.inst.mu.Lock()
		h.inst.loadErr = err
		h.inst.mu.Unlock()
		return render.Frame{}, false
	}

	if renderer.Animated() && frame.Duration > 0 {
		now := h.inst.mgr.now()
		h.inst.mgr.repaintLater(h.inst, RepaintRequest{
			Duration: frame.Duration,
			When:     now.Add(frame.Duration),
		})
	}
	return frame, true
}

// Release drops the handle's reference to the shared instance.
// Idempotent.
func (h *Handle) Release() {
	if h.released.Swap(true) {
		return
	}
	h.inst.detach(h)
}
