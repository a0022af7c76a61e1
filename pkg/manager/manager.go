// Package manager implements the process-wide custom emoji registry.
//
// The Manager deduplicates concurrent requests for the same asset behind
// shared Instances, batches unresolved identifiers into bounded network
// requests (most recently requested first, at most one batch in flight,
// chained until the pending set drains), and coalesces repaint callbacks
// for time-animated assets into a single timer.
package manager

import (
	"context"
	"sync"
	"time"

	"github.com/marmos91/glyphcache/internal/logger"
	"github.com/marmos91/glyphcache/pkg/document"
	"github.com/marmos91/glyphcache/pkg/emoji"
	"github.com/marmos91/glyphcache/pkg/loader"
	"github.com/marmos91/glyphcache/pkg/render"
	"github.com/marmos91/glyphcache/pkg/resolver"
)

// Config configures a Manager.
type Config struct {
	// Resolver performs the batched document lookup.
	Resolver resolver.Resolver

	// Loader carries the collaborators handed to every created loader.
	Loader loader.Deps

	// SizeTag is the render size class for created instances.
	SizeTag render.SizeTag

	// BatchDelay is how long the first queued id waits before the batch
	// request fires, coalescing identifiers created close together.
	// Default 10ms.
	BatchDelay time.Duration

	// Now overrides the time source. Used in tests.
	Now func() time.Time
}

// weakLoaderRef is a weakly-referenced loader awaiting resolution. The
// manager never owns a loader whose instance has been released: liveness
// is checked through the owning instance at delivery time.
type weakLoaderRef struct {
	ldr  *loader.Loader
	inst *Instance
}

// Manager is the process-wide emoji instance registry.
type Manager struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	instances  map[emoji.ID]*Instance
	documents  map[uint64]document.Document
	waiters    map[uint64][]weakLoaderRef
	pending    []uint64 // stack: most recently queued ids drain first
	pendingSet map[uint64]struct{}
	inFlight   bool
	scheduled  bool
	closed     bool

	repaints     *repaintScheduler
	timerMu      sync.Mutex
	repaintTimer *time.Timer
}

// New creates a Manager.
func New(cfg Config) *Manager {
	if cfg.BatchDelay <= 0 {
		cfg.BatchDelay = 10 * time.Millisecond
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:        cfg,
		ctx:        ctx,
		cancel:     cancel,
		instances:  make(map[emoji.ID]*Instance),
		documents:  make(map[uint64]document.Document),
		waiters:    make(map[uint64][]weakLoaderRef),
		pendingSet: make(map[uint64]struct{}),
	}

	m.repaints = newRepaintScheduler(cfg.Now, m.armRepaint)

	return m
}

// armRepaint programs the single repaint timer, creating it on the first
// scheduled repaint.
func (m *Manager) armRepaint(d time.Duration) {
	if d < 0 {
		d = 0
	}
	m.timerMu.Lock()
	defer m.timerMu.Unlock()
	if m.repaintTimer == nil {
		m.repaintTimer = time.AfterFunc(d, func() { m.repaints.fire() })
		return
	}
	m.repaintTimer.Reset(d)
}

func (m *Manager) now() time.Time {
	return m.cfg.Now()
}

// Create parses a token and returns a handle to the shared instance for
// that identifier, creating it (and queueing resolution if the document
// record is unknown) on first use. Returns nil on a malformed token. The
// update callback fires whenever the instance needs repainting.
func (m *Manager) Create(token string, onUpdate func()) *Handle {
	id, ok := emoji.Parse(token)
	if !ok {
		return nil
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}

	inst := m.instances[id]
	if inst == nil {
		var known *document.Document
		if doc, ok := m.documents[id.DocumentID]; ok {
			known = &doc
		}
		ldr := loader.New(id, known, m.cfg.SizeTag, m.cfg.Loader)
		inst = newInstance(m, id, ldr)
		m.instances[id] = inst

		if ldr.Resolving() {
			m.waiters[id.DocumentID] = append(m.waiters[id.DocumentID], weakLoaderRef{
				ldr:  ldr,
				inst: inst,
			})
			if _, queued := m.pendingSet[id.DocumentID]; !queued {
				m.pendingSet[id.DocumentID] = struct{}{}
				m.pending = append(m.pending, id.DocumentID)
			}
			if !m.inFlight && !m.scheduled {
				m.scheduled = true
				time.AfterFunc(m.cfg.BatchDelay, m.request)
			}
		}
	}
	handle := inst.attach(onUpdate)
	m.mu.Unlock()

	return handle
}

// InstanceCount returns the number of live shared instances.
func (m *Manager) InstanceCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.instances)
}

// PendingCount returns the number of ids awaiting a batch request.
func (m *Manager) PendingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// release retires an instance whose last handle was dropped. The liveness
// flip and the registry removal commit together under the registry lock,
// so a concurrent Create for the same identifier either attaches before
// the death (keeping the instance alive and registered) or misses the
// evicted entry and builds a fresh one. It never observes a registered
// instance that is dead.
func (m *Manager) release(inst *Instance) {
	m.mu.Lock()
	inst.mu.Lock()
	if inst.refs > 0 {
		// A concurrent Create reattached. The instance stays.
		inst.mu.Unlock()
		m.mu.Unlock()
		return
	}
	inst.live.Store(false)
	inst.mu.Unlock()

	if current, ok := m.instances[inst.id]; ok && current == inst {
		delete(m.instances, inst.id)
	}
	m.mu.Unlock()

	inst.ldr.Cancel()
}

// repaintLater schedules a coalesced repaint for an animated instance.
func (m *Manager) repaintLater(inst *Instance, req RepaintRequest) {
	m.repaints.add(inst, req)
}

// request drains up to resolver.MaxPerRequest pending ids, most recently
// queued first, and issues one batch call. At most one batch is in flight
// at a time; newly arriving ids accumulate until it completes.
func (m *Manager) request() {
	m.mu.Lock()
	m.scheduled = false
	if m.inFlight || m.closed || len(m.pending) == 0 {
		m.mu.Unlock()
		return
	}

	take := len(m.pending)
	if take > resolver.MaxPerRequest {
		take = resolver.MaxPerRequest
	}
	ids := make([]uint64, 0, take)
	for n := 0; n < take; n++ {
		id := m.pending[len(m.pending)-1]
		m.pending = m.pending[:len(m.pending)-1]
		delete(m.pendingSet, id)
		ids = append(ids, id)
	}
	m.inFlight = true
	m.mu.Unlock()

	go func() {
		docs, err := m.cfg.Resolver.Resolve(m.ctx, ids)
		if err != nil {
			// No automatic retry of this batch. Ids it carried are
			// eligible again on the next natural trigger.
			logger.Error("Failed to resolve emoji documents",
				"ids", len(ids),
				"error", err)
		} else {
			for _, doc := range docs {
				m.deliver(doc)
			}
		}
		m.requestFinished()
	}()
}

// deliver routes one resolved record to every live waiter.
func (m *Manager) deliver(doc document.Document) {
	m.mu.Lock()
	m.documents[doc.ID] = doc
	waiting := m.waiters[doc.ID]
	delete(m.waiters, doc.ID)
	m.mu.Unlock()

	for _, w := range waiting {
		if w.inst.alive() {
			w.ldr.Resolved(doc)
		}
	}
}

// requestFinished chains the next batch if ids are still pending, which
// guarantees eventual resolution of all queued ids without caller
// intervention.
func (m *Manager) requestFinished() {
	m.mu.Lock()
	m.inFlight = false
	more := len(m.pending) > 0 && !m.closed
	m.mu.Unlock()

	if more {
		m.request()
	}
}

// Close stops the repaint timer, aborts any in-flight batch call and
// rejects further Create calls.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.timerMu.Lock()
	if m.repaintTimer != nil {
		m.repaintTimer.Stop()
	}
	m.timerMu.Unlock()
}
