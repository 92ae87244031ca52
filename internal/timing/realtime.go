package timing

import (
	"context"
	"sync/atomic"
	"time"
)

// Realtime schedules callbacks on wall-clock timers. Fired timers are passed
// to dispatch, which must run them on the goroutine that owns the state
// machine (for example by sending them into a bubbletea program or a Loop).
type Realtime struct {
	dispatch func(func())
}

// NewRealtime returns a wall-clock scheduler that funnels callbacks through
// dispatch.
func NewRealtime(dispatch func(func())) *Realtime {
	return &Realtime{dispatch: dispatch}
}

// Now returns the wall-clock time.
func (r *Realtime) Now() time.Time { return time.Now() }

// AfterFunc implements Scheduler.
func (r *Realtime) AfterFunc(d time.Duration, f func()) Timer {
	rt := &realTimer{}
	rt.t = time.AfterFunc(d, func() {
		r.dispatch(func() {
			// A Stop issued after the timer fired but before this ran
			// still wins.
			if rt.stopped.CompareAndSwap(false, true) {
				f()
			}
		})
	})
	return rt
}

type realTimer struct {
	t       *time.Timer
	stopped atomic.Bool
}

func (rt *realTimer) Stop() bool {
	rt.t.Stop()
	return rt.stopped.CompareAndSwap(false, true)
}

// Loop is a serial executor: functions posted to it run one at a time on the
// goroutine that calls Run.
type Loop struct {
	queue chan func()
}

// NewLoop returns a Loop with a buffered queue.
func NewLoop(buffer int) *Loop {
	if buffer <= 0 {
		buffer = 64
	}
	return &Loop{queue: make(chan func(), buffer)}
}

// Post enqueues f. It is safe from any goroutine.
func (l *Loop) Post(f func()) { l.queue <- f }

// Run executes posted functions until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f := <-l.queue:
			f()
		}
	}
}

// Scheduler returns a Realtime scheduler dispatching onto the loop.
func (l *Loop) Scheduler() *Realtime { return NewRealtime(l.Post) }
