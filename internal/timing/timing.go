// internal/timing/timing.go
//
// Cancellable delayed callbacks for the game state machine.
// Responsibilities:
//   - Scheduler abstraction over wall-clock and virtual time.
//   - Slot: one outstanding handle per timer class, cancel-then-arm.
//   - Speed-rush budget for challenge guesses.
//
// Notes:
//   - Callbacks always run on the owner's goroutine. Realtime hands fired
//     timers to a dispatch function; Manual runs them inside Advance.
//   - Stop is synchronous: once it returns, the callback will not run.

package timing

import "time"

// Timer is a pending callback.
type Timer interface {
	// Stop cancels the callback. It reports whether the callback was still
	// pending.
	Stop() bool
}

// Scheduler schedules callbacks and reports the current time.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

// Slot owns at most one pending Timer of a given class.
type Slot struct {
	name string
	t    Timer
}

// NewSlot returns an empty slot. The name only shows up in logs.
func NewSlot(name string) *Slot { return &Slot{name: name} }

// Name returns the slot's timer class.
func (s *Slot) Name() string { return s.name }

// Arm cancels any pending callback and schedules f after d.
// The slot is emptied before f runs, so f may re-arm the same slot.
func (s *Slot) Arm(sched Scheduler, d time.Duration, f func()) {
	s.Cancel()
	var mine Timer
	mine = sched.AfterFunc(d, func() {
		if s.t == mine {
			s.t = nil
		}
		f()
	})
	s.t = mine
}

// Cancel stops the pending callback, if any.
func (s *Slot) Cancel() {
	if s.t != nil {
		s.t.Stop()
		s.t = nil
	}
}

// Pending reports whether a callback is outstanding.
func (s *Slot) Pending() bool { return s.t != nil }

// Speed-rush budget.
const (
	MaxGuessSeconds  = 5
	MinGuessSeconds  = 1
	RushStepSeconds  = 100
	GuessGraceBuffer = 150 * time.Millisecond
)

// GuessSeconds returns the seconds allowed for one challenge guess after
// elapsed survival time: max(1, 5 - floor(elapsed/100s)).
func GuessSeconds(elapsed time.Duration) int {
	if elapsed < 0 {
		elapsed = 0
	}
	n := MaxGuessSeconds - int(elapsed/time.Second)/RushStepSeconds
	if n < MinGuessSeconds {
		return MinGuessSeconds
	}
	return n
}

// GuessDeadline is the authoritative timeout for a guess armed after
// elapsed survival time. It is never shorter than the display countdown.
func GuessDeadline(elapsed time.Duration) time.Duration {
	return time.Duration(GuessSeconds(elapsed))*time.Second + GuessGraceBuffer
}

// WholeSeconds floors d to whole seconds (negative durations count as 0).
func WholeSeconds(d time.Duration) int {
	if d < 0 {
		return 0
	}
	return int(d.Milliseconds() / 1000)
}
