package game

import (
	"fmt"
	"strings"
)

// secretCodes holds the unlock codes for levels 1..20.
var secretCodes = [...]string{
	"MEMO", "PTRN", "FLSH", "RCLL", "SEQN",
	"GLOW", "BLNK", "CHRM", "ECHO", "FOCS",
	"MIND", "PULS", "RUSH", "SPRK", "TRCE",
	"VIVD", "WAVE", "ZEST", "NOVA", "APEX",
}

// CodeFor returns the deterministic secret code for level. Levels past the
// table get a code derived from the level number ("L021").
func CodeFor(level int) string {
	if level >= 1 && level <= len(secretCodes) {
		return secretCodes[level-1]
	}
	return fmt.Sprintf("L%03d", level)
}

// LevelForCode returns the level whose code matches input after trimming
// and upper-casing, searching levels 1..MaxLevel.
func LevelForCode(input string) (int, bool) {
	code := strings.ToUpper(strings.TrimSpace(input))
	if len(code) != 4 {
		return 0, false
	}
	for level := 1; level <= MaxLevel; level++ {
		if CodeFor(level) == code {
			return level, true
		}
	}
	return 0, false
}
