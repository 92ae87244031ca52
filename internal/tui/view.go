package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/robalobadob/patternrush/internal/game"
	"github.com/robalobadob/patternrush/internal/pattern"
)

var (
	colorGreen = lipgloss.Color("#22c55e")
	colorRed   = lipgloss.Color("#ef4444")
	colorDim   = lipgloss.Color("#6b7280")
	colorGold  = lipgloss.Color("#facc15")
	colorFg    = lipgloss.Color("#e5e7eb")

	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(colorGold)
	dimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	labelStyle  = lipgloss.NewStyle().Foreground(colorFg).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(colorGold)
	errStyle    = lipgloss.NewStyle().Foreground(colorRed)
	okStyle     = lipgloss.NewStyle().Foreground(colorGreen)
	hiddenStyle = lipgloss.NewStyle().Foreground(colorFg).Background(colorDim).Bold(true)
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 1)
	modalStyle  = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(colorGold).Padding(0, 2)
)

const instructions = `Levels
  Watch the pattern of green and red tiles, then repeat it with g and r
  before the clock runs out. Each level adds one tile and three seconds.
  Clearing a level unlocks the next and reveals its secret code; enter a
  code with c to jump straight back to that level later.

Challenge
  One tile is hidden. Guess it from memory while the next four are shown.
  Every correct guess adds two tiles to the roll. Your score is the number
  of seconds you survive. Every 100 seconds the time per guess drops by
  one second, down to one second.`

func block(c pattern.Color) string {
	bg := colorGreen
	if c == pattern.Red {
		bg = colorRed
	}
	return lipgloss.NewStyle().Background(bg).Render("    ")
}

func blocks(cs []pattern.Color) string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = block(c)
	}
	return strings.Join(parts, " ")
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSpace(strings.Repeat(dimStyle.Render(" ·· ")+" ", n))
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	s := m.snap
	var b strings.Builder

	b.WriteString(titleStyle.Render("PATTERN RUSH"))
	b.WriteString("  ")
	b.WriteString(dimStyle.Render(string(s.Mode) + " mode"))
	b.WriteString("\n")
	b.WriteString(m.viewStatusBar())
	b.WriteString("\n\n")

	if s.Error != "" {
		b.WriteString(errStyle.Render(s.Error) + "\n")
	}
	if s.Warning != "" {
		b.WriteString(warnStyle.Render(s.Warning) + "\n")
	}
	if n := m.viewNotice(); n != "" {
		b.WriteString(n + "\n")
	}
	if m.status != "" {
		b.WriteString(dimStyle.Render(m.status) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		panelStyle.Render(m.viewPlayfield()), "  ", panelStyle.Render(m.viewLeaderboard())))
	b.WriteString("\n")

	switch {
	case s.InstructionsOpen:
		b.WriteString(modalStyle.Render(labelStyle.Render("How to play") + "\n\n" + instructions))
		b.WriteString("\n")
	case s.LevelCompleteOpen:
		b.WriteString(m.viewLevelComplete())
		b.WriteString("\n")
	case s.GameOverOpen:
		b.WriteString(m.viewGameOver())
		b.WriteString("\n")
	}

	if m.prompt != promptNone {
		b.WriteString(m.input.View())
		b.WriteString("\n" + dimStyle.Render("enter to confirm, esc to cancel") + "\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) viewStatusBar() string {
	s := m.snap
	var fields []string
	if s.Mode == game.ModeLevels {
		fields = append(fields,
			fmt.Sprintf("Level %d", s.Progress.CurrentLevel),
			fmt.Sprintf("Unlocked %d", min(s.Progress.UnlockedLevels, game.MaxLevel)),
		)
	}
	fields = append(fields,
		fmt.Sprintf("Score %d", s.Score),
		fmt.Sprintf("Time %ds", s.TimeRemaining),
	)
	if s.Progress.PlayerName != "" {
		fields = append(fields, "Player "+s.Progress.PlayerName)
	}
	return labelStyle.Render(strings.Join(fields, "  |  "))
}

func (m *Model) viewNotice() string {
	n := m.snap.Notice
	if n.Seq == 0 {
		return ""
	}
	text := n.Title
	if n.Message != "" {
		text += ": " + n.Message
	}
	switch n.Kind {
	case game.NoticeError:
		return errStyle.Render(text)
	case game.NoticeWarning:
		return warnStyle.Render(text)
	default:
		return okStyle.Render(text)
	}
}

func (m *Model) viewPlayfield() string {
	s := m.snap
	switch {
	case s.Levels != nil:
		return m.viewLevels(s.Levels)
	case s.Challenge != nil:
		return m.viewChallenge(s.Challenge)
	case s.Mode == game.ModeChallenge:
		return "Press space to start a challenge run."
	default:
		return fmt.Sprintf("Press space to start level %d.\nPattern length %d, %d seconds.",
			s.Progress.CurrentLevel, game.PatternLength(s.Progress.CurrentLevel), game.TimeBudget(s.Progress.CurrentLevel))
	}
}

func (m *Model) viewLevels(v *game.LevelsView) string {
	switch m.snap.Phase {
	case game.PhaseShowing:
		return "Memorize!\n\n" + blocks(v.Pattern[:v.Revealed]) + " " + placeholders(len(v.Pattern)-v.Revealed)
	case game.PhaseWaiting:
		return "Get ready...\n\n" + placeholders(len(v.Pattern))
	case game.PhasePlaying:
		return "Your turn!\n\n" + blocks(v.Input) + " " + placeholders(len(v.Pattern)-len(v.Input))
	default:
		return "Pattern\n\n" + blocks(v.Pattern) + "\nYou\n\n" + blocks(v.Input)
	}
}

func (m *Model) viewChallenge(v *game.ChallengeView) string {
	switch m.snap.Phase {
	case game.PhaseShowing:
		return "Memorize the start!\n\n" + blocks(v.Sequence)
	case game.PhasePlaying:
		hidden := hiddenStyle.Render(" ?? ")
		if v.Advancing {
			hidden = block(v.Sequence[v.Index])
		}
		return fmt.Sprintf("Guess the hidden tile  (%ds)\n\n%s %s\n\nGuesses %d",
			v.GuessTimer, hidden, blocks(v.Window), v.Guesses)
	default:
		return fmt.Sprintf("Run over after %d guesses.", v.Guesses)
	}
}

func (m *Model) viewLevelComplete() string {
	r := m.snap.LevelComplete
	body := strings.Join([]string{
		labelStyle.Render(fmt.Sprintf("Level %d complete!", r.Level)),
		"",
		"Secret code   " + titleStyle.Render(r.SecretCode),
		fmt.Sprintf("Pattern score %d", r.EarnedScore),
		fmt.Sprintf("Time bonus    %d", r.TimeBonus),
		fmt.Sprintf("Accuracy      %d", r.AccuracyBonus),
		fmt.Sprintf("Total         %d", r.TotalScore),
		"",
		dimStyle.Render("n next level, esc close"),
	}, "\n")
	return modalStyle.Render(body)
}

func (m *Model) viewGameOver() string {
	r := m.snap.GameOver
	lines := []string{errStyle.Bold(true).Render("Game over"), ""}
	if r.Mode == game.ModeChallenge {
		lines = append(lines,
			fmt.Sprintf("Survived  %ds", r.FinalScore),
			fmt.Sprintf("Guesses   %d", r.Guesses),
		)
	} else {
		lines = append(lines,
			fmt.Sprintf("Score            %d", r.FinalScore),
			fmt.Sprintf("Levels completed %d", r.LevelsCompleted),
		)
	}
	lines = append(lines, "", dimStyle.Render("space retry, s submit score, x restart, esc close"))
	return modalStyle.Render(strings.Join(lines, "\n"))
}

func (m *Model) viewLeaderboard() string {
	var b strings.Builder
	title := "Leaderboard"
	if m.live {
		title += " " + okStyle.Render("● live")
	}
	b.WriteString(labelStyle.Render(title) + "\n")
	switch {
	case m.board == nil:
		b.WriteString(dimStyle.Render("offline"))
	case m.topErr != "":
		b.WriteString(errStyle.Render("unavailable"))
	case len(m.top) == 0:
		b.WriteString(dimStyle.Render("no scores yet"))
	default:
		for i, e := range m.top {
			fmt.Fprintf(&b, "%2d. %-20s %7d  L%-2d\n", i+1, e.PlayerName, e.Score, e.Level)
		}
	}
	if m.snap.Submitting {
		b.WriteString("\n" + dimStyle.Render("submitting..."))
	}
	return strings.TrimRight(b.String(), "\n")
}
