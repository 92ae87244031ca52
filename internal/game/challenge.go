package game

import (
	"github.com/robalobadob/patternrush/internal/pattern"
	"github.com/robalobadob/patternrush/internal/timing"
)

func (m *Machine) startChallenge() {
	r := &challengeRun{sequence: m.gen.Generate(ChallengeStartLength)}
	m.round = r
	m.setPhase(PhaseShowing)
	m.after(m.step, ChallengeDisplay, func() {
		// The survival clock starts here, not when the run was requested.
		r.started = m.sched.Now()
		m.setPhase(PhasePlaying)
		m.armGuess(r)
	})
}

// armGuess starts the authoritative deadline and the display countdown for
// the guess at r.index. The budget shrinks with total survival time.
func (m *Machine) armGuess(r *challengeRun) {
	elapsed := m.sched.Now().Sub(r.started)
	r.guessTimer = timing.GuessSeconds(elapsed)
	m.after(m.guess, timing.GuessDeadline(elapsed), func() {
		if m.round != r || m.phase != PhasePlaying {
			return
		}
		r.score = m.survived(r)
		m.log.Debug().Int("index", r.index).Int("score", r.score).Msg("guess timed out")
		m.gameOver()
	})
	m.armTick(r)
}

// armTick drives the display countdown. It never ends a run; the guess slot
// owns that.
func (m *Machine) armTick(r *challengeRun) {
	if r.guessTimer <= 0 {
		return
	}
	m.after(m.tick, CountdownTick, func() {
		if m.round != r {
			return
		}
		r.guessTimer--
		m.armTick(r)
	})
}

func (m *Machine) clickChallenge(r *challengeRun, c pattern.Color) {
	if r.advancing || r.started.IsZero() {
		return
	}
	r.score = m.survived(r)
	if r.sequence[r.index] != c {
		m.gameOver()
		return
	}
	r.guesses++
	m.guess.Cancel()
	m.tick.Cancel()
	r.advancing = true
	m.after(m.step, GuessPause, func() {
		r.sequence = m.gen.Extend(r.sequence, ChallengeGrowth)
		r.index++
		r.advancing = false
		m.armGuess(r)
	})
}

// survived is the run's score: whole seconds since rolling began.
func (m *Machine) survived(r *challengeRun) int {
	if r.started.IsZero() {
		return 0
	}
	return timing.WholeSeconds(m.sched.Now().Sub(r.started))
}
