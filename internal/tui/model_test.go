package tui

import (
	"context"
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robalobadob/patternrush/internal/game"
	"github.com/robalobadob/patternrush/internal/leaderboard"
	"github.com/robalobadob/patternrush/internal/pattern"
	"github.com/robalobadob/patternrush/internal/progress"
	"github.com/robalobadob/patternrush/internal/store"
	"github.com/robalobadob/patternrush/internal/timing"
)

type fakeBoard struct {
	top       []leaderboard.Entry
	subs      []leaderboard.Submission
	submitErr error
	fetchErr  error
}

func (f *fakeBoard) Leaderboard(context.Context) ([]leaderboard.Entry, error) {
	return f.top, f.fetchErr
}

func (f *fakeBoard) Submit(_ context.Context, sub leaderboard.Submission) (leaderboard.Entry, error) {
	if f.submitErr != nil {
		return leaderboard.Entry{}, f.submitErr
	}
	f.subs = append(f.subs, sub)
	e := leaderboard.Entry{ID: int64(len(f.subs)), PlayerName: sub.PlayerName, Score: sub.Score, Level: sub.Level}
	f.top = append([]leaderboard.Entry{e}, f.top...)
	return e, nil
}

type liveBoard struct {
	fakeBoard
	feed chan []leaderboard.Entry
}

func (l *liveBoard) Watch(context.Context) (<-chan []leaderboard.Entry, error) { return l.feed, nil }

type driver struct {
	t     *testing.T
	m     *Model
	clock *timing.Manual
}

func newDriver(t *testing.T, board Scoreboard) *driver {
	t.Helper()
	clock := timing.NewManual(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	opts := Options{
		Scheduler: clock,
		Generator: pattern.NewGenerator(pattern.Force(pattern.Green, pattern.Red, pattern.Green, pattern.Red)),
		Progress:  progress.NewAdapter(store.NewMemory()),
	}
	if board != nil {
		opts.Scoreboard = board
	}
	m := New(context.Background(), opts)
	t.Cleanup(m.Close)
	return &driver{t: t, m: m, clock: clock}
}

func (d *driver) send(msg tea.Msg) tea.Cmd {
	d.t.Helper()
	_, cmd := d.m.Update(msg)
	return cmd
}

func (d *driver) press(keys ...string) tea.Cmd {
	d.t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		switch k {
		case " ":
			cmd = d.send(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
		case "enter":
			cmd = d.send(tea.KeyMsg{Type: tea.KeyEnter})
		case "esc":
			cmd = d.send(tea.KeyMsg{Type: tea.KeyEsc})
		default:
			cmd = d.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)})
		}
	}
	return cmd
}

// advance moves the virtual clock and lets the model re-read the machine.
func (d *driver) advance(dur time.Duration) {
	d.clock.Advance(dur)
	d.send(tea.WindowSizeMsg{Width: 120, Height: 40})
}

func (d *driver) clearLevelOne() {
	d.t.Helper()
	d.press(" ")
	d.advance(4*game.RevealStep + game.WaitingPause)
	require.Equal(d.t, game.PhasePlaying, d.m.snap.Phase)
	d.press("g", "r", "g", "r")
	require.Equal(d.t, game.PhaseComplete, d.m.snap.Phase)
}

func TestModel_PlayLevelWithKeys(t *testing.T) {
	d := newDriver(t, nil)
	assert.Contains(t, d.m.View(), "Press space to start level 1")

	d.press(" ")
	assert.Equal(t, game.PhaseShowing, d.m.snap.Phase)
	assert.Contains(t, d.m.View(), "Memorize!")

	d.advance(4 * game.RevealStep)
	assert.Contains(t, d.m.View(), "Get ready")

	d.advance(game.WaitingPause)
	assert.Contains(t, d.m.View(), "Your turn!")

	d.press("g", "r", "g", "r")
	view := d.m.View()
	assert.Contains(t, view, "Level 1 complete!")
	assert.Contains(t, view, "MEMO")

	d.press("n")
	assert.Equal(t, 2, d.m.snap.Progress.CurrentLevel)
	assert.False(t, d.m.snap.LevelCompleteOpen)
}

func TestModel_WrongKeyShowsGameOver(t *testing.T) {
	d := newDriver(t, nil)
	d.press(" ")
	d.advance(4*game.RevealStep + game.WaitingPause)
	d.press("r")
	assert.Equal(t, game.PhaseFailed, d.m.snap.Phase)
	assert.Contains(t, d.m.View(), "Game over")

	d.press("esc")
	assert.NotContains(t, d.m.View(), "Game over")
}

func TestModel_SecretCodePrompt(t *testing.T) {
	d := newDriver(t, nil)
	d.press("c")
	require.Equal(t, promptCode, d.m.prompt)
	assert.Contains(t, d.m.View(), "Secret code:")

	// Keys go to the input while prompting.
	d.press("P", "T", "R", "N")
	assert.Equal(t, game.PhaseIdle, d.m.snap.Phase)
	d.press("enter")

	assert.Equal(t, promptNone, d.m.prompt)
	assert.Equal(t, 2, d.m.snap.Progress.CurrentLevel)
	assert.Equal(t, "Jumped to level 2.", d.m.status)

	d.press("c", "n", "o", "p", "e", "enter")
	assert.Equal(t, 2, d.m.snap.Progress.CurrentLevel)
	assert.Contains(t, d.m.View(), "Invalid secret code")
}

func TestModel_PromptEscCancels(t *testing.T) {
	d := newDriver(t, nil)
	d.press("p", "Z", "e", "d", "esc")
	assert.Equal(t, promptNone, d.m.prompt)
	assert.Empty(t, d.m.snap.Progress.PlayerName)
}

func TestModel_SubmitScore(t *testing.T) {
	board := &fakeBoard{}
	d := newDriver(t, board)
	d.press("p", "A", "d", "a", "enter")
	require.Equal(t, "Ada", d.m.snap.Progress.PlayerName)

	d.clearLevelOne()
	cmd := d.press("s")
	require.NotNil(t, cmd)
	assert.True(t, d.m.snap.Submitting)

	cmd = d.send(cmd())
	assert.False(t, d.m.snap.Submitting)
	assert.Equal(t, "Score submitted!", d.m.snap.Notice.Title)
	require.Len(t, board.subs, 1)
	assert.Equal(t, "Ada", board.subs[0].PlayerName)
	assert.Equal(t, 44, board.subs[0].Score)

	// The board refreshes after an accepted submission.
	require.NotNil(t, cmd)
	d.send(cmd())
	assert.Contains(t, d.m.View(), "Ada")
}

func TestModel_SubmitFailureKeepsScore(t *testing.T) {
	board := &fakeBoard{submitErr: errors.New("boom")}
	d := newDriver(t, board)
	d.press("p", "B", "o", "b", "enter")
	d.clearLevelOne()

	cmd := d.press("s")
	d.send(cmd())
	assert.Equal(t, game.NoticeError, d.m.snap.Notice.Kind)
	assert.Equal(t, 44, d.m.snap.Score)
}

func TestModel_SubmitWithoutNameAsksForOne(t *testing.T) {
	board := &fakeBoard{}
	d := newDriver(t, board)
	d.clearLevelOne()
	d.press("s")
	assert.Equal(t, promptName, d.m.prompt)

	d.press("A", "d", "a")
	cmd := d.press("enter")
	require.NotNil(t, cmd, "confirming the name resubmits")
	assert.True(t, d.m.snap.Submitting)

	d.send(cmd())
	require.Len(t, board.subs, 1)
	assert.Equal(t, "Ada", board.subs[0].PlayerName)
	assert.Equal(t, "Score submitted!", d.m.snap.Notice.Title)
}

func TestModel_NamePromptAloneDoesNotSubmit(t *testing.T) {
	board := &fakeBoard{}
	d := newDriver(t, board)
	d.clearLevelOne()
	d.press("s", "esc")
	assert.Nil(t, d.press("p", "A", "d", "a", "enter"))
	assert.Empty(t, board.subs)
	assert.False(t, d.m.snap.Submitting)
}

func TestModel_SubmitOffline(t *testing.T) {
	d := newDriver(t, nil)
	d.clearLevelOne()
	assert.Nil(t, d.press("s"))
	assert.Equal(t, errOffline.Error(), d.m.status)
	assert.Contains(t, d.m.View(), "offline")
}

func TestModel_BoardError(t *testing.T) {
	d := newDriver(t, &fakeBoard{fetchErr: errors.New("down")})
	cmd := d.press("l")
	require.NotNil(t, cmd)
	d.send(cmd())
	assert.Contains(t, d.m.View(), "unavailable")
}

func TestModel_ModeAndLevelKeys(t *testing.T) {
	d := newDriver(t, nil)
	d.press("2")
	assert.Equal(t, "Level 2 is locked.", d.m.status)

	d.press("m")
	assert.Equal(t, game.ModeChallenge, d.m.snap.Mode)
	assert.Contains(t, d.m.View(), "challenge run")

	d.press(" ")
	d.press("m")
	assert.Equal(t, game.ModeChallenge, d.m.snap.Mode)
	assert.Equal(t, "Finish or restart the current round first.", d.m.status)

	d.press("x", "m")
	assert.Equal(t, game.ModeLevels, d.m.snap.Mode)
}

func TestModel_ChallengeView(t *testing.T) {
	d := newDriver(t, nil)
	d.press("m", " ")
	assert.Contains(t, d.m.View(), "Memorize the start!")
	d.advance(game.ChallengeDisplay)
	assert.Contains(t, d.m.View(), "Guess the hidden tile")
	assert.Contains(t, d.m.View(), "(5s)")
}

func TestModel_Instructions(t *testing.T) {
	d := newDriver(t, nil)
	d.press("?")
	assert.Contains(t, d.m.View(), "How to play")
	d.press("?")
	assert.NotContains(t, d.m.View(), "How to play")
	d.press("?", "esc")
	assert.False(t, d.m.snap.InstructionsOpen)
}

func TestModel_Quit(t *testing.T) {
	d := newDriver(t, nil)
	cmd := d.press("q")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, d.m.View())

	d.m.Machine().StartPattern()
	assert.Equal(t, game.PhaseIdle, d.m.Machine().Phase())
}

func TestModel_LiveFeed(t *testing.T) {
	board := &liveBoard{feed: make(chan []leaderboard.Entry, 1)}
	d := newDriver(t, board)

	cmd := d.m.watchBoard()
	require.NotNil(t, cmd)
	cmd = d.send(cmd())
	assert.True(t, d.m.live)

	board.feed <- []leaderboard.Entry{{ID: 1, PlayerName: "Streamer", Score: 10, Level: 1}}
	cmd = d.send(cmd())
	assert.Contains(t, d.m.View(), "Streamer")
	assert.Contains(t, d.m.View(), "live")

	close(board.feed)
	d.send(cmd())
	assert.False(t, d.m.live)
}

func TestModel_RealtimeTimersRunOnUpdate(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := New(ctx, Options{})
	defer m.Close()

	m.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	require.Equal(t, game.PhaseShowing, m.snap.Phase)
	require.Equal(t, 1, m.snap.Levels.Revealed)

	cmd := m.waitTimer()
	require.NotNil(t, cmd)
	msg := cmd()
	require.IsType(t, timerMsg{}, msg)

	_, next := m.Update(msg)
	assert.Equal(t, 2, m.snap.Levels.Revealed)
	assert.NotNil(t, next, "keeps waiting for the next timer")
}
