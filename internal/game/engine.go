// internal/game/engine.go
//
// Core state machine for a single player session.
// Responsibilities:
//   - Own mode, phase, the current round and durable progress.
//   - Drive timed phase transitions through four timer slots.
//   - Route input events to the levels or challenge rules.
//   - Mirror durable progress to the persistence adapter after every change.
//
// Notes:
//   - A Machine is not safe for concurrent use. Every method and every timer
//     callback must run on one goroutine; timing.Realtime dispatches fired
//     timers onto that goroutine.
//   - Every transition that schedules a timer cancels the pending handle of
//     the same class first (timing.Slot).
package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/robalobadob/patternrush/internal/leaderboard"
	"github.com/robalobadob/patternrush/internal/pattern"
	"github.com/robalobadob/patternrush/internal/progress"
	"github.com/robalobadob/patternrush/internal/timing"
)

const (
	// MaxLevel caps level progression; it matches the scoreboard's level range.
	MaxLevel = leaderboard.MaxLevel

	BasePatternLength = 3
	BaseTimeBudget    = 30 // seconds
	TimePerLevel      = 3  // extra seconds per level
	AccuracyBonus     = 100

	ChallengeStartLength = 5
	ChallengeGrowth      = 2
	WindowSize           = 4

	RevealStep       = 800 * time.Millisecond
	WaitingPause     = 2000 * time.Millisecond
	ChallengeDisplay = 2000 * time.Millisecond
	GuessPause       = 500 * time.Millisecond
	CountdownTick    = time.Second
)

var (
	ErrInvalidCode     = errors.New("invalid secret code")
	ErrLevelLocked     = errors.New("level is locked")
	ErrRoundActive     = errors.New("a round is in progress")
	ErrInvalidMode     = errors.New("unknown game mode")
	ErrInvalidName     = errors.New("invalid player name")
	ErrNothingToSubmit = errors.New("no score to submit")
	ErrSubmitInFlight  = errors.New("a submission is already in flight")
)

// Config wires a Machine to its collaborators.
type Config struct {
	Scheduler timing.Scheduler   // required
	Generator *pattern.Generator // nil: time-seeded random
	Progress  *progress.Adapter  // nil: progress lives in memory only
	Logger    *zerolog.Logger    // nil: discard
	OnChange  func(Snapshot)     // called after every mutation
}

// Machine is the game state machine.
type Machine struct {
	ctx     context.Context // session lifetime; bounds every progress save
	sched   timing.Scheduler
	gen     *pattern.Generator
	store   *progress.Adapter
	log     zerolog.Logger
	observe func(Snapshot)

	mode  Mode
	phase Phase
	round round
	prog  progress.State
	saved progress.State

	gameOverOpen      bool
	lastGameOver      GameOverResult
	levelCompleteOpen bool
	lastLevel         LevelResult
	instructionsOpen  bool

	submitting bool
	loadErr    string
	saveWarn   string
	notice     Notice
	closed     bool

	step      *timing.Slot // reveal steps, waiting pause, challenge display, guess pause
	countdown *timing.Slot // levels time budget
	guess     *timing.Slot // authoritative challenge deadline
	tick      *timing.Slot // challenge display countdown
}

// New builds a Machine and hydrates durable progress. A load problem is not
// fatal: defaults are used and the problem is exposed as Snapshot.Error.
//
// ctx is the session's lifetime context. Saves happen from inputs and timer
// callbacks alike, so it is kept for the life of the Machine rather than
// passed per call.
func New(ctx context.Context, cfg Config) *Machine {
	m := &Machine{
		ctx:       ctx,
		sched:     cfg.Scheduler,
		gen:       cfg.Generator,
		store:     cfg.Progress,
		log:       zerolog.Nop(),
		observe:   cfg.OnChange,
		mode:      ModeLevels,
		phase:     PhaseIdle,
		prog:      progress.Default(),
		step:      timing.NewSlot("step"),
		countdown: timing.NewSlot("countdown"),
		guess:     timing.NewSlot("guess"),
		tick:      timing.NewSlot("tick"),
	}
	if cfg.Logger != nil {
		m.log = *cfg.Logger
	}
	if m.gen == nil {
		m.gen = pattern.NewGenerator(nil)
	}
	if m.store != nil {
		st, err := m.store.Load(ctx)
		if err != nil {
			m.log.Warn().Err(err).Msg("load progress")
			m.loadErr = "Saved progress could not be restored; starting fresh."
			m.pushNotice(NoticeWarning, "Progress reset", m.loadErr)
		}
		m.prog = clampProgress(st)
	}
	m.saved = m.prog.Clone()
	return m
}

func clampProgress(s progress.State) progress.State {
	if s.CurrentLevel > MaxLevel {
		s.CurrentLevel = MaxLevel
	}
	if s.UnlockedLevels > MaxLevel+1 {
		s.UnlockedLevels = MaxLevel + 1
	}
	if s.CurrentLevel > s.UnlockedLevels {
		s.CurrentLevel = s.UnlockedLevels
	}
	return s
}

// ----------------------------- inputs --------------------------------------

// SelectMode switches between levels and challenge. Switching is refused
// while an attempt is underway.
func (m *Machine) SelectMode(mode Mode) error {
	if !mode.Valid() {
		return ErrInvalidMode
	}
	if m.closed || mode == m.mode {
		return nil
	}
	if m.phase.Active() {
		return ErrRoundActive
	}
	m.cancelAll()
	m.mode = mode
	m.round = nil
	m.gameOverOpen = false
	m.levelCompleteOpen = false
	m.setPhase(PhaseIdle)
	m.changed()
	return nil
}

// StartPattern begins a new attempt in the current mode. It does nothing
// while an attempt is already showing, waiting or playing.
func (m *Machine) StartPattern() {
	if m.closed || m.phase.Active() {
		return
	}
	m.cancelAll()
	m.gameOverOpen = false
	m.levelCompleteOpen = false
	switch m.mode {
	case ModeChallenge:
		m.startChallenge()
	default:
		m.startLevels()
	}
	m.changed()
}

// ClickColor feeds one color input. It is ignored unless phase is playing.
func (m *Machine) ClickColor(c pattern.Color) {
	if m.closed || m.phase != PhasePlaying || !c.Valid() {
		return
	}
	switch r := m.round.(type) {
	case *levelsRound:
		m.clickLevels(r, c)
	case *challengeRun:
		m.clickChallenge(r, c)
	}
	m.changed()
}

// SubmitSecretCode jumps to the level unlocked by code. A wrong code leaves
// state untouched and returns ErrInvalidCode.
func (m *Machine) SubmitSecretCode(code string) (int, error) {
	if m.closed {
		return 0, ErrInvalidCode
	}
	level, ok := LevelForCode(code)
	if !ok {
		m.pushNotice(NoticeError, "Invalid secret code", "Please check your code and try again")
		m.changed()
		return 0, ErrInvalidCode
	}
	m.cancelAll()
	m.prog.CurrentLevel = level
	if m.prog.UnlockedLevels < level {
		m.prog.UnlockedLevels = level
	}
	m.round = nil
	m.gameOverOpen = false
	m.levelCompleteOpen = false
	m.setPhase(PhaseIdle)
	m.pushNotice(NoticeInfo, "Secret code accepted!", fmt.Sprintf("Unlocked level %d", level))
	m.changed()
	return level, nil
}

// SelectLevel moves to an unlocked level.
func (m *Machine) SelectLevel(level int) error {
	if m.closed {
		return nil
	}
	if level < 1 || level > MaxLevel || level > m.prog.UnlockedLevels {
		return fmt.Errorf("%w: %d", ErrLevelLocked, level)
	}
	m.cancelAll()
	m.prog.CurrentLevel = level
	m.round = nil
	m.gameOverOpen = false
	m.levelCompleteOpen = false
	m.setPhase(PhaseIdle)
	m.changed()
	return nil
}

// Restart abandons the current attempt. In levels mode the level and
// accumulated score go back to the start; unlocked levels are kept.
func (m *Machine) Restart() {
	if m.closed {
		return
	}
	m.cancelAll()
	m.round = nil
	m.gameOverOpen = false
	if m.mode == ModeLevels {
		m.prog.CurrentScore = 0
		m.prog.CurrentLevel = 1
	}
	m.setPhase(PhaseIdle)
	m.changed()
}

// NextLevel advances to the following level (capped at MaxLevel). A next
// level that is not unlocked yet returns ErrLevelLocked and changes nothing.
func (m *Machine) NextLevel() error {
	if m.closed {
		return nil
	}
	next := m.prog.CurrentLevel + 1
	if next <= MaxLevel && next > m.prog.UnlockedLevels {
		return fmt.Errorf("%w: %d", ErrLevelLocked, next)
	}
	m.cancelAll()
	if next <= MaxLevel {
		m.prog.CurrentLevel = next
	}
	m.round = nil
	m.levelCompleteOpen = false
	m.setPhase(PhaseIdle)
	m.changed()
	return nil
}

// ShowInstructions opens the instructions panel.
func (m *Machine) ShowInstructions() { m.setInstructions(true) }

// CloseInstructions closes the instructions panel.
func (m *Machine) CloseInstructions() { m.setInstructions(false) }

func (m *Machine) setInstructions(open bool) {
	if m.closed || m.instructionsOpen == open {
		return
	}
	m.instructionsOpen = open
	m.changed()
}

// DismissGameOver closes the game-over panel without changing phase.
func (m *Machine) DismissGameOver() {
	if m.gameOverOpen {
		m.gameOverOpen = false
		m.changed()
	}
}

// DismissLevelComplete closes the level-complete panel without advancing.
func (m *Machine) DismissLevelComplete() {
	if m.levelCompleteOpen {
		m.levelCompleteOpen = false
		m.changed()
	}
}

// SetPlayerName stores the name used for leaderboard submissions.
func (m *Machine) SetPlayerName(name string) error {
	clean, err := leaderboard.CheckName(name)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidName, err)
	}
	if m.closed || clean == m.prog.PlayerName {
		return nil
	}
	m.prog.PlayerName = clean
	m.changed()
	return nil
}

// BeginSubmit marks a leaderboard submission as in flight and returns its
// payload. The caller performs the network call and reports back through
// FinishSubmit.
func (m *Machine) BeginSubmit() (leaderboard.Submission, error) {
	if m.submitting {
		return leaderboard.Submission{}, ErrSubmitInFlight
	}
	if m.prog.PlayerName == "" {
		return leaderboard.Submission{}, fmt.Errorf("%w: player name is required", ErrInvalidName)
	}
	score := m.score()
	if score <= 0 {
		return leaderboard.Submission{}, ErrNothingToSubmit
	}
	if score > leaderboard.MaxScore {
		score = leaderboard.MaxScore
	}
	level := m.prog.CurrentLevel
	if m.mode == ModeChallenge {
		level = min(max(1, score/100), MaxLevel)
	}
	m.submitting = true
	m.changed()
	return leaderboard.Submission{
		PlayerName:    m.prog.PlayerName,
		Score:         score,
		Level:         level,
		TimeCompleted: m.sched.Now().Unix(),
	}, nil
}

// FinishSubmit records the outcome of the submission started by BeginSubmit.
// Local score state is never touched.
func (m *Machine) FinishSubmit(err error) {
	m.submitting = false
	if err != nil {
		m.log.Warn().Err(err).Msg("submit score")
		m.pushNotice(NoticeError, "Failed to submit score", "Please try again later")
	} else {
		m.pushNotice(NoticeInfo, "Score submitted!", "Your score has been added to the leaderboard")
	}
	m.changed()
}

// Close cancels every pending timer. Timer callbacks and inputs arriving
// afterwards are ignored.
func (m *Machine) Close() {
	m.cancelAll()
	m.closed = true
}

// ---------------------------- transitions ----------------------------------

func (m *Machine) setPhase(p Phase) {
	if p == m.phase {
		return
	}
	m.log.Debug().Str("mode", string(m.mode)).Str("from", string(m.phase)).Str("to", string(p)).Msg("phase")
	m.phase = p
}

// gameOver ends the attempt: all timers stop and the final score is taken.
func (m *Machine) gameOver() {
	m.cancelAll()
	m.setPhase(PhaseFailed)
	res := GameOverResult{Mode: m.mode}
	switch r := m.round.(type) {
	case *challengeRun:
		res.FinalScore = r.score
		res.Guesses = r.guesses
	default:
		res.FinalScore = m.prog.CurrentScore
		res.LevelsCompleted = m.prog.UnlockedLevels - 1
	}
	m.lastGameOver = res
	m.gameOverOpen = true
}

func (m *Machine) cancelAll() {
	m.step.Cancel()
	m.countdown.Cancel()
	m.guess.Cancel()
	m.tick.Cancel()
}

// after arms slot and wraps f so it is dropped once the machine is closed
// and is followed by a change notification.
func (m *Machine) after(slot *timing.Slot, d time.Duration, f func()) {
	slot.Arm(m.sched, d, func() {
		if m.closed {
			return
		}
		f()
		m.changed()
	})
}

func (m *Machine) pushNotice(kind NoticeKind, title, msg string) {
	m.notice = Notice{Seq: m.notice.Seq + 1, Kind: kind, Title: title, Message: msg}
}

// changed persists durable progress when it differs from the last save and
// notifies the observer.
func (m *Machine) changed() {
	if m.store != nil && !sameProgress(m.prog, m.saved) {
		if err := m.store.Save(m.ctx, m.prog); err != nil {
			m.log.Warn().Err(err).Msg("save progress")
			m.saveWarn = "Progress could not be saved; it is kept for this session only."
		} else {
			m.saved = m.prog.Clone()
			m.saveWarn = ""
		}
	}
	if m.observe != nil {
		m.observe(m.Snapshot())
	}
}

func sameProgress(a, b progress.State) bool {
	if a.CurrentLevel != b.CurrentLevel || a.CurrentScore != b.CurrentScore ||
		a.UnlockedLevels != b.UnlockedLevels || a.PlayerName != b.PlayerName ||
		len(a.LevelCodes) != len(b.LevelCodes) {
		return false
	}
	for k, v := range a.LevelCodes {
		if b.LevelCodes[k] != v {
			return false
		}
	}
	return true
}

// ------------------------------ queries ------------------------------------

// Mode returns the selected mode.
func (m *Machine) Mode() Mode { return m.mode }

// Phase returns the current phase.
func (m *Machine) Phase() Phase { return m.phase }

func (m *Machine) score() int {
	if r, ok := m.round.(*challengeRun); ok {
		return r.score
	}
	if m.mode == ModeChallenge {
		return 0
	}
	return m.prog.CurrentScore
}

// Snapshot returns a deep copy of the current state.
func (m *Machine) Snapshot() Snapshot {
	s := Snapshot{
		Mode:              m.mode,
		Phase:             m.phase,
		Progress:          m.prog.Clone(),
		Score:             m.score(),
		TimeRemaining:     TimeBudget(m.prog.CurrentLevel),
		GameOverOpen:      m.gameOverOpen,
		GameOver:          m.lastGameOver,
		LevelCompleteOpen: m.levelCompleteOpen,
		LevelComplete:     m.lastLevel,
		InstructionsOpen:  m.instructionsOpen,
		Submitting:        m.submitting,
		Error:             m.loadErr,
		Warning:           m.saveWarn,
		Notice:            m.notice,
	}
	switch r := m.round.(type) {
	case *levelsRound:
		s.TimeRemaining = r.timeRemaining
		s.Levels = &LevelsView{
			Pattern:  append([]pattern.Color(nil), r.pattern...),
			Input:    append([]pattern.Color(nil), r.input...),
			Revealed: r.revealed,
		}
	case *challengeRun:
		s.TimeRemaining = r.guessTimer
		s.Challenge = &ChallengeView{
			Sequence:   append([]pattern.Color(nil), r.sequence...),
			Index:      r.index,
			Window:     r.window(),
			GuessTimer: r.guessTimer,
			StartedAt:  r.started,
			Guesses:    r.guesses,
			Advancing:  r.advancing,
		}
	}
	return s
}
