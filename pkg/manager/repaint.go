package manager

import (
	"sync"
	"time"
)

// RepaintRequest asks for a repaint of an animated instance.
type RepaintRequest struct {
	// Duration is the display duration of the current frame. It buckets
	// targets so instances animating at the same rate share one wakeup.
	Duration time.Duration

	// When is the absolute time the repaint is due.
	When time.Time
}

// repaintTarget is the render-target contract: a weak-reference capable
// object exposing a repaint notification. Dead targets are skipped when a
// bunch fires.
type repaintTarget interface {
	repaint()
	alive() bool
}

// bunch groups repaint targets sharing an animation-duration bucket and a
// common due time.
type bunch struct {
	when    time.Time
	targets []repaintTarget
}

// repaintScheduler coalesces repaint requests into a single timer.
//
// Invariant: the armed timer always corresponds to the minimum due time
// across all non-empty bunches. Firing flushes every bunch whose due time
// has passed, notifies its still-alive targets exactly once, and re-arms
// the timer for the next-soonest remaining bunch.
type repaintScheduler struct {
	mu      sync.Mutex
	now     func() time.Time
	arm     func(d time.Duration)
	bunches map[time.Duration]*bunch
	next    time.Time
}

// newRepaintScheduler creates a scheduler. now supplies the current time;
// arm programs the single timer to call fire after d.
func newRepaintScheduler(now func() time.Time, arm func(d time.Duration)) *repaintScheduler {
	return &repaintScheduler{
		now:     now,
		arm:     arm,
		bunches: make(map[time.Duration]*bunch),
	}
}

// add inserts a target into the bunch for its duration bucket, extending
// the bunch's due time to the later of current and requested, and
// reprograms the timer if the minimum due time moved.
func (s *repaintScheduler) add(target repaintTarget, req RepaintRequest) {
	s.mu.Lock()
	b := s.bunches[req.Duration]
	if b == nil {
		b = &bunch{}
		s.bunches[req.Duration] = b
	}
	if b.when.Before(req.When) {
		b.when = req.When
	}
	b.targets = append(b.targets, target)
	s.scheduleLocked()
	s.mu.Unlock()
}

// scheduleLocked re-arms the timer for the minimum due time across all
// bunches. No-op if the timer is already armed for an earlier or equal
// instant. Called with s.mu held.
func (s *repaintScheduler) scheduleLocked() {
	var next time.Time
	for _, b := range s.bunches {
		if next.IsZero() || b.when.Before(next) {
			next = b.when
		}
	}
	if next.IsZero() {
		s.next = time.Time{}
		return
	}
	if !s.next.IsZero() && !next.Before(s.next) {
		return
	}
	s.next = next
	s.arm(next.Sub(s.now()))
}

// fire flushes every elapsed bunch and re-arms for the remainder. Called
// when the timer fires.
func (s *repaintScheduler) fire() {
	s.mu.Lock()
	now := s.now()
	var flush []repaintTarget
	for duration, b := range s.bunches {
		if b.when.After(now) {
			continue
		}
		flush = append(flush, b.targets...)
		delete(s.bunches, duration)
	}
	s.next = time.Time{}
	s.scheduleLocked()
	s.mu.Unlock()

	for _, target := range flush {
		if target.alive() {
			target.repaint()
		}
	}
}

// empty reports whether no bunches remain. Used in tests.
func (s *repaintScheduler) empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bunches) == 0
}
