package game

import (
	"fmt"
	"math"

	"github.com/robalobadob/patternrush/internal/pattern"
)

// PatternLength is the levels-mode pattern length for level.
func PatternLength(level int) int { return BasePatternLength + level }

// TimeBudget is the levels-mode time budget in seconds for level.
func TimeBudget(level int) int { return BaseTimeBudget + level*TimePerLevel }

// PatternScore is the score earned for reproducing a pattern of length n at
// level with timeRemaining seconds left.
func PatternScore(n, timeRemaining, level int) int {
	mult := math.Max(0.5, float64(timeRemaining)/float64(BaseTimeBudget))
	return int(math.Round(float64(n*10) * mult * float64(level)))
}

// TimeBonus is the level-complete bonus for timeRemaining seconds left.
func TimeBonus(timeRemaining int) int {
	return int(math.Round(float64(timeRemaining) * 5))
}

func (m *Machine) startLevels() {
	level := m.prog.CurrentLevel
	r := &levelsRound{
		pattern:       m.gen.Generate(PatternLength(level)),
		timeRemaining: TimeBudget(level),
	}
	m.round = r
	m.setPhase(PhaseShowing)
	m.revealNext(r)
}

// revealNext shows one more color, or hides the pattern once all are shown.
func (m *Machine) revealNext(r *levelsRound) {
	if r.revealed >= len(r.pattern) {
		m.setPhase(PhaseWaiting)
		m.after(m.step, WaitingPause, func() {
			m.setPhase(PhasePlaying)
			m.armCountdown(r)
		})
		return
	}
	r.revealed++
	m.after(m.step, RevealStep, func() { m.revealNext(r) })
}

func (m *Machine) armCountdown(r *levelsRound) {
	m.after(m.countdown, CountdownTick, func() {
		if m.phase != PhasePlaying || m.round != r {
			return
		}
		r.timeRemaining--
		if r.timeRemaining <= 0 {
			r.timeRemaining = 0
			m.log.Debug().Int("level", m.prog.CurrentLevel).Msg("time is up")
			m.gameOver()
			return
		}
		m.armCountdown(r)
	})
}

func (m *Machine) clickLevels(r *levelsRound, c pattern.Color) {
	r.input = append(r.input, c)
	i := len(r.input) - 1
	if r.pattern[i] != c {
		m.gameOver()
		return
	}
	if len(r.input) == len(r.pattern) {
		m.completeLevel(r)
	}
}

// completeLevel scores the attempt, records the level's code and unlocks the
// next level.
func (m *Machine) completeLevel(r *levelsRound) {
	m.cancelAll()
	level := m.prog.CurrentLevel
	earned := PatternScore(len(r.pattern), r.timeRemaining, level)
	m.prog.CurrentScore += earned
	m.setPhase(PhaseComplete)

	code := CodeFor(level)
	if m.prog.LevelCodes == nil {
		m.prog.LevelCodes = map[int]string{}
	}
	m.prog.LevelCodes[level] = code
	if next := min(level+1, MaxLevel+1); m.prog.UnlockedLevels < next {
		m.prog.UnlockedLevels = next
	}

	bonus := TimeBonus(r.timeRemaining)
	m.lastLevel = LevelResult{
		Level:         level,
		SecretCode:    code,
		EarnedScore:   earned,
		TimeBonus:     bonus,
		AccuracyBonus: AccuracyBonus,
		TotalScore:    earned + bonus + AccuracyBonus,
	}
	m.levelCompleteOpen = true
	m.pushNotice(NoticeInfo, "Level Complete!", fmt.Sprintf("Secret code: %s", code))
	m.log.Debug().Int("level", level).Int("earned", earned).Msg("level complete")
}
