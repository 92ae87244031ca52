package timing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func TestGuessSeconds_Schedule(t *testing.T) {
	cases := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, 5},
		{99 * time.Second, 5},
		{100 * time.Second, 4},
		{250 * time.Second, 3},
		{399 * time.Second, 2},
		{400 * time.Second, 1},
		{3 * time.Hour, 1},
		{-time.Second, 5},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, GuessSeconds(tc.elapsed), "elapsed=%s", tc.elapsed)
	}
}

func TestGuessSeconds_NonIncreasingAndFloored(t *testing.T) {
	prev := GuessSeconds(0)
	for s := 0; s <= 2000; s++ {
		got := GuessSeconds(time.Duration(s) * time.Second)
		require.LessOrEqual(t, got, prev)
		require.GreaterOrEqual(t, got, MinGuessSeconds)
		prev = got
	}
}

func TestGuessDeadline_NotBeforeDisplay(t *testing.T) {
	for _, e := range []time.Duration{0, 150 * time.Second, 10 * time.Minute} {
		display := time.Duration(GuessSeconds(e)) * time.Second
		assert.Greater(t, GuessDeadline(e), display)
	}
}

func TestWholeSeconds(t *testing.T) {
	assert.Equal(t, 0, WholeSeconds(999*time.Millisecond))
	assert.Equal(t, 12, WholeSeconds(12999*time.Millisecond))
	assert.Equal(t, 0, WholeSeconds(-time.Second))
}

func TestManual_FiresInDeadlineOrder(t *testing.T) {
	m := NewManual(epoch)
	var got []string
	m.AfterFunc(300*time.Millisecond, func() { got = append(got, "c") })
	m.AfterFunc(100*time.Millisecond, func() { got = append(got, "a") })
	m.AfterFunc(100*time.Millisecond, func() { got = append(got, "b") })

	m.Advance(99 * time.Millisecond)
	assert.Empty(t, got)

	m.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Equal(t, epoch.Add(1099*time.Millisecond), m.Now())
}

func TestManual_NowIsDeadlineDuringCallback(t *testing.T) {
	m := NewManual(epoch)
	var at time.Time
	m.AfterFunc(250*time.Millisecond, func() { at = m.Now() })
	m.Advance(10 * time.Second)
	assert.Equal(t, epoch.Add(250*time.Millisecond), at)
}

func TestManual_CallbackSchedulesCallback(t *testing.T) {
	m := NewManual(epoch)
	count := 0
	var tick func()
	tick = func() {
		count++
		if count < 5 {
			m.AfterFunc(time.Second, tick)
		}
	}
	m.AfterFunc(time.Second, tick)
	m.Advance(10 * time.Second)
	assert.Equal(t, 5, count)
	assert.Zero(t, m.Pending())
}

func TestManual_Stop(t *testing.T) {
	m := NewManual(epoch)
	fired := false
	tm := m.AfterFunc(time.Second, func() { fired = true })
	assert.True(t, tm.Stop())
	assert.False(t, tm.Stop())
	m.Advance(time.Minute)
	assert.False(t, fired)
}

func TestSlot_CancelThenArm(t *testing.T) {
	m := NewManual(epoch)
	s := NewSlot("guess")
	var fired []int
	s.Arm(m, time.Second, func() { fired = append(fired, 1) })
	s.Arm(m, 2*time.Second, func() { fired = append(fired, 2) })
	assert.Equal(t, 1, m.Pending(), "re-arming must cancel the previous handle")

	m.Advance(5 * time.Second)
	assert.Equal(t, []int{2}, fired)
	assert.False(t, s.Pending())
	assert.Equal(t, "guess", s.Name())
}

func TestSlot_CallbackMayRearm(t *testing.T) {
	m := NewManual(epoch)
	s := NewSlot("tick")
	n := 0
	var step func()
	step = func() {
		n++
		if n < 3 {
			s.Arm(m, time.Second, step)
		}
	}
	s.Arm(m, time.Second, step)
	m.Advance(10 * time.Second)
	assert.Equal(t, 3, n)
	assert.False(t, s.Pending())
}

func TestSlot_Cancel(t *testing.T) {
	m := NewManual(epoch)
	s := NewSlot("step")
	s.Cancel()
	fired := false
	s.Arm(m, time.Second, func() { fired = true })
	s.Cancel()
	m.Advance(time.Minute)
	assert.False(t, fired)
	assert.Zero(t, m.Pending())
}

func TestRealtime_RunsOnLoop(t *testing.T) {
	loop := NewLoop(8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = loop.Run(ctx) }()

	sched := loop.Scheduler()
	done := make(chan struct{})
	loop.Post(func() {
		sched.AfterFunc(5*time.Millisecond, func() { close(done) })
	})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timer never fired")
	}
}

func TestRealtime_StopAfterFireStillCancels(t *testing.T) {
	// Without a running loop the fired callback sits in the queue; Stop
	// must still prevent it from running once the loop drains.
	loop := NewLoop(8)
	sched := loop.Scheduler()
	fired := false
	tm := sched.AfterFunc(time.Millisecond, func() { fired = true })

	require.Eventually(t, func() bool { return len(loop.queue) == 1 }, time.Second, time.Millisecond)
	assert.True(t, tm.Stop())

	f := <-loop.queue
	f()
	assert.False(t, fired)
}

func TestLoop_StopsOnCancel(t *testing.T) {
	loop := NewLoop(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, loop.Run(ctx), context.Canceled)
}
