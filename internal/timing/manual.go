package timing

import (
	"sort"
	"time"
)

// Manual is a virtual-time Scheduler for tests. Nothing fires until Advance
// is called; callbacks then run in deadline order (ties in scheduling
// order) on the caller's goroutine, with Now() set to each deadline.
type Manual struct {
	now     time.Time
	seq     int
	pending []*manualTimer
}

// NewManual returns a Manual clock starting at start.
func NewManual(start time.Time) *Manual { return &Manual{now: start} }

// Now implements Scheduler.
func (m *Manual) Now() time.Time { return m.now }

// AfterFunc implements Scheduler.
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	if d < 0 {
		d = 0
	}
	m.seq++
	t := &manualTimer{m: m, at: m.now.Add(d), seq: m.seq, f: f}
	m.pending = append(m.pending, t)
	return t
}

// Advance moves virtual time forward by d, firing every callback that
// comes due, including ones scheduled by callbacks during the advance.
func (m *Manual) Advance(d time.Duration) {
	end := m.now.Add(d)
	for {
		t := m.nextDue(end)
		if t == nil {
			break
		}
		m.remove(t)
		if t.at.After(m.now) {
			m.now = t.at
		}
		t.f()
	}
	m.now = end
}

// Pending returns the number of outstanding callbacks.
func (m *Manual) Pending() int { return len(m.pending) }

func (m *Manual) nextDue(end time.Time) *manualTimer {
	if len(m.pending) == 0 {
		return nil
	}
	sort.SliceStable(m.pending, func(i, j int) bool {
		a, b := m.pending[i], m.pending[j]
		if !a.at.Equal(b.at) {
			return a.at.Before(b.at)
		}
		return a.seq < b.seq
	})
	if first := m.pending[0]; !first.at.After(end) {
		return first
	}
	return nil
}

func (m *Manual) remove(t *manualTimer) bool {
	for i, p := range m.pending {
		if p == t {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return true
		}
	}
	return false
}

type manualTimer struct {
	m   *Manual
	at  time.Time
	seq int
	f   func()
}

func (t *manualTimer) Stop() bool { return t.m.remove(t) }
