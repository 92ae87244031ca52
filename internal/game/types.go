// internal/game/types.go
//
// Core type definitions for the game state machine.
// Defines:
//   - Mode and Phase enums.
//   - The per-mode round variants (levelsRound, challengeRun).
//   - Snapshot: the read-only view handed to the presentation layer.
//   - Result payloads for the level-complete and game-over notifications.

package game

import (
	"time"

	"github.com/robalobadob/patternrush/internal/pattern"
	"github.com/robalobadob/patternrush/internal/progress"
)

// Mode selects the rules of a round.
type Mode string

const (
	ModeLevels    Mode = "levels"
	ModeChallenge Mode = "challenge"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool { return m == ModeLevels || m == ModeChallenge }

// Phase is the step within one attempt.
//   - idle:     no active pattern.
//   - showing:  sequence revealed (levels) or initial challenge display.
//   - waiting:  levels only; sequence hidden, input not yet accepted.
//   - playing:  input accepted.
//   - complete: levels only; pattern reproduced.
//   - failed:   wrong input or timeout.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseShowing  Phase = "showing"
	PhaseWaiting  Phase = "waiting"
	PhasePlaying  Phase = "playing"
	PhaseComplete Phase = "complete"
	PhaseFailed   Phase = "failed"
)

// Active reports whether an attempt is underway.
func (p Phase) Active() bool {
	return p == PhaseShowing || p == PhaseWaiting || p == PhasePlaying
}

// round is the per-mode state of the current attempt. Exactly one of the
// concrete variants is live at a time, matching the machine's mode.
type round interface {
	mode() Mode
}

// levelsRound holds one levels-mode attempt.
type levelsRound struct {
	pattern       []pattern.Color
	input         []pattern.Color
	revealed      int // colors shown so far during PhaseShowing
	timeRemaining int // seconds
}

func (*levelsRound) mode() Mode { return ModeLevels }

// challengeRun holds one challenge-mode run.
type challengeRun struct {
	sequence   []pattern.Color
	index      int       // next hidden position to guess
	started    time.Time // set once when rolling begins; zero while showing
	guessTimer int       // display seconds for the current guess
	advancing  bool      // pause after a correct guess; clicks ignored
	guesses    int       // correct guesses so far
	score      int       // whole seconds survived at the last scoring event
}

func (*challengeRun) mode() Mode { return ModeChallenge }

// window returns up to WindowSize colors after the hidden index.
func (r *challengeRun) window() []pattern.Color {
	lo := r.index + 1
	hi := lo + WindowSize
	if lo > len(r.sequence) {
		lo = len(r.sequence)
	}
	if hi > len(r.sequence) {
		hi = len(r.sequence)
	}
	return append([]pattern.Color(nil), r.sequence[lo:hi]...)
}

// LevelResult is raised when a levels pattern is completed.
type LevelResult struct {
	Level         int    `json:"level"`
	SecretCode    string `json:"secretCode"`
	EarnedScore   int    `json:"earnedScore"`
	TimeBonus     int    `json:"timeBonus"`
	AccuracyBonus int    `json:"accuracyBonus"`
	TotalScore    int    `json:"totalScore"`
}

// GameOverResult is raised when an attempt fails.
type GameOverResult struct {
	Mode            Mode `json:"mode"`
	FinalScore      int  `json:"finalScore"`
	LevelsCompleted int  `json:"levelsCompleted"`
	Guesses         int  `json:"guesses"`
}

// NoticeKind grades a notice for presentation.
type NoticeKind string

const (
	NoticeInfo    NoticeKind = "info"
	NoticeWarning NoticeKind = "warning"
	NoticeError   NoticeKind = "error"
)

// Notice is a transient, toast-style message. Seq increases with every new
// notice so observers can tell a repeat from a new one.
type Notice struct {
	Seq     int        `json:"seq"`
	Kind    NoticeKind `json:"kind"`
	Title   string     `json:"title"`
	Message string     `json:"message"`
}

// LevelsView is the levels half of a Snapshot.
type LevelsView struct {
	Pattern  []pattern.Color `json:"pattern"`
	Input    []pattern.Color `json:"input"`
	Revealed int             `json:"revealed"`
}

// ChallengeView is the challenge half of a Snapshot.
type ChallengeView struct {
	Sequence   []pattern.Color `json:"sequence"`
	Index      int             `json:"index"`
	Window     []pattern.Color `json:"window"`
	GuessTimer int             `json:"guessTimer"`
	StartedAt  time.Time       `json:"startedAt"`
	Guesses    int             `json:"guesses"`
	Advancing  bool            `json:"advancing"`
}

// Snapshot is a deep copy of everything the presentation layer renders.
type Snapshot struct {
	Mode          Mode           `json:"mode"`
	Phase         Phase          `json:"phase"`
	Progress      progress.State `json:"progress"`
	Score         int            `json:"score"`
	TimeRemaining int            `json:"timeRemaining"`

	Levels    *LevelsView    `json:"levels,omitempty"`
	Challenge *ChallengeView `json:"challenge,omitempty"`

	GameOverOpen      bool           `json:"gameOverOpen"`
	GameOver          GameOverResult `json:"gameOver"`
	LevelCompleteOpen bool           `json:"levelCompleteOpen"`
	LevelComplete     LevelResult    `json:"levelComplete"`
	InstructionsOpen  bool           `json:"instructionsOpen"`

	Submitting bool   `json:"submitting"`
	Error      string `json:"error,omitempty"`
	Warning    string `json:"warning,omitempty"`
	Notice     Notice `json:"notice"`
}
