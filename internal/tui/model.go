// internal/tui/model.go
//
// Terminal front end for the game.
// Responsibilities:
//   - Own the game.Machine and run every mutation on the bubbletea goroutine.
//   - Funnel wall-clock timer firings into the update loop as timerMsg.
//   - Map keys to machine inputs; collect names and secret codes through a
//     text input.
//   - Fetch, submit and live-watch the global leaderboard without blocking
//     the update loop (tea.Cmd).

package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/robalobadob/patternrush/internal/game"
	"github.com/robalobadob/patternrush/internal/leaderboard"
	"github.com/robalobadob/patternrush/internal/pattern"
	"github.com/robalobadob/patternrush/internal/progress"
	"github.com/robalobadob/patternrush/internal/timing"
)

// Scoreboard is the slice of scoreclient.Client the UI needs.
type Scoreboard interface {
	Leaderboard(ctx context.Context) ([]leaderboard.Entry, error)
	Submit(ctx context.Context, sub leaderboard.Submission) (leaderboard.Entry, error)
}

// watcher is implemented by scoreboards with a live feed.
type watcher interface {
	Watch(ctx context.Context) (<-chan []leaderboard.Entry, error)
}

// Options configures a Model.
type Options struct {
	Scheduler  timing.Scheduler   // nil: wall clock, dispatched into the program
	Generator  *pattern.Generator // nil: time-seeded random
	Progress   *progress.Adapter  // nil: no persistence
	Scoreboard Scoreboard         // nil: offline
	Logger     *zerolog.Logger
}

type promptKind int

const (
	promptNone promptKind = iota
	promptName
	promptCode
)

// ------------------------------- messages ----------------------------------

// timerMsg carries a fired timer callback onto the update goroutine.
type timerMsg struct{ f func() }

type boardMsg struct {
	top []leaderboard.Entry
	err error
}

type submitMsg struct {
	entry leaderboard.Entry
	err   error
}

// liveMsg delivers the live feed channel once connected.
type liveMsg struct{ feed <-chan []leaderboard.Entry }

// liveClosedMsg reports that the live feed ended.
type liveClosedMsg struct{}

var errOffline = errors.New("no scoreboard server configured")

// Model is the root bubbletea model.
type Model struct {
	ctx     context.Context
	machine *game.Machine
	board   Scoreboard
	log     zerolog.Logger
	timers  chan func()

	snap     game.Snapshot
	keys     keyMap
	help     help.Model
	input    textinput.Model
	prompt   promptKind
	retry    bool // resubmit once the name prompt is confirmed
	status   string
	top      []leaderboard.Entry
	topErr   string
	live     bool
	width    int
	quitting bool
}

// New builds the model and its game machine.
func New(ctx context.Context, opts Options) *Model {
	m := &Model{
		ctx:   ctx,
		board: opts.Scoreboard,
		log:   zerolog.Nop(),
		keys:  defaultKeys(),
		help:  help.New(),
	}
	if opts.Logger != nil {
		m.log = *opts.Logger
	}
	sched := opts.Scheduler
	if sched == nil {
		m.timers = make(chan func(), 16)
		sched = timing.NewRealtime(func(f func()) {
			select {
			case m.timers <- f:
			case <-ctx.Done():
			}
		})
	}

	ti := textinput.New()
	ti.CharLimit = leaderboard.MaxNameLen
	m.input = ti

	m.machine = game.New(ctx, game.Config{
		Scheduler: sched,
		Generator: opts.Generator,
		Progress:  opts.Progress,
		Logger:    opts.Logger,
	})
	m.snap = m.machine.Snapshot()
	return m
}

// Machine exposes the game machine (useful for tests).
func (m *Model) Machine() *game.Machine { return m.machine }

// Close stops the machine's timers.
func (m *Model) Close() { m.machine.Close() }

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitTimer(), m.fetchBoard(), m.watchBoard())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width

	case timerMsg:
		msg.f()
		cmd = m.waitTimer()

	case tea.KeyMsg:
		if m.prompt != promptNone {
			cmd = m.updatePrompt(msg)
		} else {
			cmd = m.handleKey(msg)
		}

	case boardMsg:
		if msg.err != nil {
			m.topErr = msg.err.Error()
			m.log.Warn().Err(msg.err).Msg("fetch leaderboard")
		} else {
			m.top, m.topErr = msg.top, ""
		}

	case submitMsg:
		m.machine.FinishSubmit(msg.err)
		if msg.err == nil {
			m.log.Info().Int64("id", msg.entry.ID).Int("score", msg.entry.Score).Msg("score submitted")
			if !m.live {
				cmd = m.fetchBoard()
			}
		}

	case liveMsg:
		m.live = true
		cmd = waitLive(msg.feed)

	case liveFeedMsg:
		m.top, m.topErr = msg.top, ""
		cmd = waitLive(msg.feed)

	case liveClosedMsg:
		m.live = false
	}
	m.snap = m.machine.Snapshot()
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	m.status = ""
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.machine.Close()
		return tea.Quit

	case key.Matches(msg, m.keys.Start):
		m.machine.StartPattern()
	case key.Matches(msg, m.keys.Green):
		m.machine.ClickColor(pattern.Green)
	case key.Matches(msg, m.keys.Red):
		m.machine.ClickColor(pattern.Red)

	case key.Matches(msg, m.keys.Mode):
		next := game.ModeChallenge
		if m.machine.Mode() == game.ModeChallenge {
			next = game.ModeLevels
		}
		if err := m.machine.SelectMode(next); err != nil {
			m.status = "Finish or restart the current round first."
		}

	case key.Matches(msg, m.keys.Level):
		n, _ := strconv.Atoi(msg.String())
		if m.machine.Mode() != game.ModeLevels {
			return nil
		}
		if err := m.machine.SelectLevel(n); err != nil {
			m.status = fmt.Sprintf("Level %d is locked.", n)
		}

	case key.Matches(msg, m.keys.Restart):
		m.machine.Restart()
	case key.Matches(msg, m.keys.Next):
		if m.snap.Phase == game.PhaseComplete {
			if err := m.machine.NextLevel(); err != nil {
				m.status = err.Error()
			}
		}

	case key.Matches(msg, m.keys.Instructions):
		if m.snap.InstructionsOpen {
			m.machine.CloseInstructions()
		} else {
			m.machine.ShowInstructions()
		}

	case key.Matches(msg, m.keys.Dismiss):
		m.machine.CloseInstructions()
		m.machine.DismissGameOver()
		m.machine.DismissLevelComplete()

	case key.Matches(msg, m.keys.Code):
		return m.openPrompt(promptCode, "Secret code: ", "")
	case key.Matches(msg, m.keys.Name):
		return m.openPrompt(promptName, "Player name: ", m.snap.Progress.PlayerName)

	case key.Matches(msg, m.keys.Submit):
		return m.submit()
	case key.Matches(msg, m.keys.Leaderboard):
		return m.fetchBoard()
	}
	return nil
}

// ------------------------------- prompts -----------------------------------

func (m *Model) openPrompt(kind promptKind, label, value string) tea.Cmd {
	m.prompt = kind
	m.input.Prompt = label
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) closePrompt() {
	m.prompt = promptNone
	m.retry = false
	m.input.Blur()
	m.input.SetValue("")
}

func (m *Model) updatePrompt(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.closePrompt()
		return nil
	case tea.KeyCtrlC:
		m.quitting = true
		m.machine.Close()
		return tea.Quit
	case tea.KeyEnter:
		value := m.input.Value()
		kind, retry := m.prompt, m.retry
		m.closePrompt()
		switch kind {
		case promptCode:
			if level, err := m.machine.SubmitSecretCode(value); err == nil {
				m.status = fmt.Sprintf("Jumped to level %d.", level)
			}
		case promptName:
			if err := m.machine.SetPlayerName(value); err != nil {
				m.status = err.Error()
				return nil
			}
			m.status = "Name saved."
			if retry {
				return m.submit()
			}
		}
		return nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

// ------------------------------ scoreboard ---------------------------------

// submit starts a leaderboard submission. The network call runs as a
// command; the machine is told the outcome through submitMsg.
func (m *Model) submit() tea.Cmd {
	if m.board == nil {
		m.status = errOffline.Error()
		return nil
	}
	sub, err := m.machine.BeginSubmit()
	switch {
	case errors.Is(err, game.ErrInvalidName):
		cmd := m.openPrompt(promptName, "Player name: ", "")
		m.retry = true
		return cmd
	case err != nil:
		m.status = err.Error()
		return nil
	}
	board, ctx := m.board, m.ctx
	return func() tea.Msg {
		e, err := board.Submit(ctx, sub)
		return submitMsg{entry: e, err: err}
	}
}

func (m *Model) fetchBoard() tea.Cmd {
	if m.board == nil {
		return nil
	}
	board, ctx := m.board, m.ctx
	return func() tea.Msg {
		top, err := board.Leaderboard(ctx)
		return boardMsg{top: top, err: err}
	}
}

func (m *Model) watchBoard() tea.Cmd {
	w, ok := m.board.(watcher)
	if !ok {
		return nil
	}
	ctx, log := m.ctx, m.log
	return func() tea.Msg {
		feed, err := w.Watch(ctx)
		if err != nil {
			log.Debug().Err(err).Msg("live leaderboard unavailable")
			return liveClosedMsg{}
		}
		return liveMsg{feed: feed}
	}
}

type liveFeedMsg struct {
	top  []leaderboard.Entry
	feed <-chan []leaderboard.Entry
}

func waitLive(feed <-chan []leaderboard.Entry) tea.Cmd {
	return func() tea.Msg {
		top, ok := <-feed
		if !ok {
			return liveClosedMsg{}
		}
		return liveFeedMsg{top: top, feed: feed}
	}
}

// waitTimer blocks until a wall-clock timer fires. It is nil when the model
// runs on an injected scheduler.
func (m *Model) waitTimer() tea.Cmd {
	if m.timers == nil {
		return nil
	}
	timers, ctx := m.timers, m.ctx
	return func() tea.Msg {
		select {
		case f := <-timers:
			return timerMsg{f: f}
		case <-ctx.Done():
			return nil
		}
	}
}
