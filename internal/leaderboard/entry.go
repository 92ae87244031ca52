// internal/leaderboard/entry.go
//
// Leaderboard entry types and submission validation.
// Rules (shared by the server and the game client):
//   - playerName: 1-20 chars of letters, digits, space, '-', '_', '.'; trimmed.
//   - score:      integer 0..1,000,000.
//   - level:      integer 1..50.
//   - timeCompleted: any integer (unix seconds from the client).

package leaderboard

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	MaxNameLen = 20
	MaxScore   = 1_000_000
	MinLevel   = 1
	MaxLevel   = 50
	TopN       = 10
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9\s\-_\.]+$`)

// ErrInvalid matches any *ValidationError via errors.Is.
var ErrInvalid = errors.New("invalid data")

// Submission is the body of POST /leaderboard.
type Submission struct {
	PlayerName    string `json:"playerName"`
	Score         int    `json:"score"`
	Level         int    `json:"level"`
	TimeCompleted int64  `json:"timeCompleted"`
}

// Entry is a stored leaderboard row.
type Entry struct {
	ID            int64  `json:"id"`
	PlayerName    string `json:"playerName"`
	Score         int    `json:"score"`
	Level         int    `json:"level"`
	TimeCompleted int64  `json:"timeCompleted"`
}

// FieldError describes one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rejected field of a submission.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return fmt.Sprintf("%s: %s", ErrInvalid, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

// CheckName validates a player name and returns it trimmed. Length and
// charset are checked on the raw input.
func CheckName(name string) (string, error) {
	switch {
	case len(name) < 1:
		return "", errors.New("player name is required")
	case len(name) > MaxNameLen:
		return "", errors.New("player name must be 20 characters or less")
	case !namePattern.MatchString(name):
		return "", errors.New("player name contains invalid characters")
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", errors.New("player name is required")
	}
	return trimmed, nil
}

// Validate checks s and returns a normalized copy (trimmed name).
func (s Submission) Validate() (Submission, error) {
	var fields []FieldError
	name, err := CheckName(s.PlayerName)
	if err != nil {
		fields = append(fields, FieldError{Field: "playerName", Message: err.Error()})
	}
	if s.Score < 0 || s.Score > MaxScore {
		fields = append(fields, FieldError{Field: "score", Message: fmt.Sprintf("must be between 0 and %d", MaxScore)})
	}
	if s.Level < MinLevel || s.Level > MaxLevel {
		fields = append(fields, FieldError{Field: "level", Message: fmt.Sprintf("must be between %d and %d", MinLevel, MaxLevel)})
	}
	if len(fields) > 0 {
		return s, &ValidationError{Fields: fields}
	}
	s.PlayerName = name
	return s, nil
}
