package manager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	repaints int
	dead     bool
}

func (t *fakeTarget) repaint()    { t.repaints++ }
func (t *fakeTarget) alive() bool { return !t.dead }

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func TestRepaintCoalescing(t *testing.T) {
	base := time.Unix(1000, 0)
	clock := &fakeClock{now: base}
	var armed []time.Duration
	s := newRepaintScheduler(clock.Now, func(d time.Duration) {
		armed = append(armed, d)
	})

	a := &fakeTarget{}
	b := &fakeTarget{}
	s.add(a, RepaintRequest{Duration: 100 * time.Millisecond, When: base.Add(100 * time.Millisecond)})
	s.add(b, RepaintRequest{Duration: 150 * time.Millisecond, When: base.Add(150 * time.Millisecond)})

	// One timer, armed for the earliest bunch only.
	require.Equal(t, []time.Duration{100 * time.Millisecond}, armed)

	// Firing at t=100 flushes only the first bunch and reprograms for 150.
	clock.now = base.Add(100 * time.Millisecond)
	s.fire()
	require.Equal(t, 1, a.repaints)
	require.Equal(t, 0, b.repaints)
	require.Equal(t, []time.Duration{100 * time.Millisecond, 50 * time.Millisecond}, armed)

	// Firing at t=150 flushes the rest.
	clock.now = base.Add(150 * time.Millisecond)
	s.fire()
	require.Equal(t, 1, a.repaints)
	require.Equal(t, 1, b.repaints)
	require.True(t, s.empty())
}

func TestRepaintDueTimeOnlyExtends(t *testing.T) {
	base := time.Unix(1000, 0)
	clock := &fakeClock{now: base}
	s := newRepaintScheduler(clock.Now, func(time.Duration) {})

	a := &fakeTarget{}
	b := &fakeTarget{}
	d := 100 * time.Millisecond
	s.add(a, RepaintRequest{Duration: d, When: base.Add(120 * time.Millisecond)})
	s.add(b, RepaintRequest{Duration: d, When: base.Add(80 * time.Millisecond)})

	// The bunch keeps the later due time; firing before it flushes nothing.
	clock.now = base.Add(100 * time.Millisecond)
	s.fire()
	require.Equal(t, 0, a.repaints)
	require.Equal(t, 0, b.repaints)

	clock.now = base.Add(120 * time.Millisecond)
	s.fire()
	require.Equal(t, 1, a.repaints)
	require.Equal(t, 1, b.repaints)
}

func TestRepaintSkipsDeadTargets(t *testing.T) {
	base := time.Unix(1000, 0)
	clock := &fakeClock{now: base}
	s := newRepaintScheduler(clock.Now, func(time.Duration) {})

	live := &fakeTarget{}
	dead := &fakeTarget{dead: true}
	d := 50 * time.Millisecond
	s.add(live, RepaintRequest{Duration: d, When: base.Add(d)})
	s.add(dead, RepaintRequest{Duration: d, When: base.Add(d)})

	clock.now = base.Add(d)
	s.fire()
	require.Equal(t, 1, live.repaints)
	require.Equal(t, 0, dead.repaints)
}

func TestRepaintRearmNoOpForLaterBunch(t *testing.T) {
	base := time.Unix(1000, 0)
	clock := &fakeClock{now: base}
	var armed []time.Duration
	s := newRepaintScheduler(clock.Now, func(d time.Duration) {
		armed = append(armed, d)
	})

	a := &fakeTarget{}
	s.add(a, RepaintRequest{Duration: 50 * time.Millisecond, When: base.Add(50 * time.Millisecond)})
	s.add(a, RepaintRequest{Duration: 200 * time.Millisecond, When: base.Add(200 * time.Millisecond)})
	s.add(a, RepaintRequest{Duration: 30 * time.Millisecond, When: base.Add(30 * time.Millisecond)})

	// Later bunches do not rearm; an earlier one does.
	require.Equal(t, []time.Duration{50 * time.Millisecond, 30 * time.Millisecond}, armed)
}
