// internal/pattern/pattern.go
//
// Color sequence generation for both game modes.
// Responsibilities:
//   - Generate fresh sequences (levels mode).
//   - Extend an existing sequence in place (challenge mode growth).
//   - Bound runs of identical colors to MaxRun across call boundaries.
//
// Notes:
//   - The random source is injectable so tests can force a pattern.
//   - Apart from consuming randomness the generator has no side effects.

package pattern

import (
	"math/rand"
	"time"
)

// Color is a single element of a pattern.
type Color string

const (
	Green Color = "green"
	Red   Color = "red"
)

// MaxRun is the longest run of identical consecutive colors Generate or
// Extend can produce.
const MaxRun = 3

// Opposite returns the other color.
func (c Color) Opposite() Color {
	if c == Green {
		return Red
	}
	return Green
}

// Valid reports whether c is one of the two known colors.
func (c Color) Valid() bool { return c == Green || c == Red }

// Source is the randomness the generator consumes. *rand.Rand satisfies it.
type Source interface {
	Intn(n int) int
}

// Generator produces run-limited color sequences.
type Generator struct {
	src Source
}

// NewGenerator returns a generator backed by src. A nil src uses a
// time-seeded math/rand source.
func NewGenerator(src Source) *Generator {
	if src == nil {
		src = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Generator{src: src}
}

// Generate returns n fresh colors.
func (g *Generator) Generate(n int) []Color {
	return g.Extend(nil, n)
}

// Extend returns a new slice holding seq followed by k generated colors.
// The run limit looks back into seq, so a run that started in a previous
// call still counts.
func (g *Generator) Extend(seq []Color, k int) []Color {
	if k < 0 {
		k = 0
	}
	out := make([]Color, len(seq), len(seq)+k)
	copy(out, seq)
	for i := 0; i < k; i++ {
		out = append(out, g.next(out))
	}
	return out
}

// next picks the color following seq. A draw is consumed even when the
// color is forced, so scripted sources stay aligned with positions.
func (g *Generator) next(seq []Color) Color {
	c := Green
	if g.src.Intn(2) == 1 {
		c = Red
	}
	if n := len(seq); n >= MaxRun {
		last := seq[n-1]
		run := true
		for _, prev := range seq[n-MaxRun : n-1] {
			if prev != last {
				run = false
				break
			}
		}
		if run {
			return last.Opposite()
		}
	}
	return c
}

// LongestRun returns the length of the longest run of identical colors.
func LongestRun(seq []Color) int {
	best, cur := 0, 0
	for i, c := range seq {
		if i > 0 && c == seq[i-1] {
			cur++
		} else {
			cur = 1
		}
		if cur > best {
			best = cur
		}
	}
	return best
}

// Scripted is a Source that replays a fixed list of values (each taken
// modulo n) and then repeats the last one. It lets callers force a pattern.
type Scripted struct {
	Values []int
	pos    int
}

// Intn implements Source.
func (s *Scripted) Intn(n int) int {
	if len(s.Values) == 0 {
		return 0
	}
	v := s.Values[len(s.Values)-1]
	if s.pos < len(s.Values) {
		v = s.Values[s.pos]
		s.pos++
	}
	if v < 0 {
		v = -v
	}
	return v % n
}

// Force returns a Source whose draws reproduce colors exactly, provided the
// sequence itself respects MaxRun. Draws past the end repeat the last color.
func Force(colors ...Color) *Scripted {
	vals := make([]int, len(colors))
	for i, c := range colors {
		if c == Red {
			vals[i] = 1
		}
	}
	return &Scripted{Values: vals}
}
