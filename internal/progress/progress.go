// internal/progress/progress.go
//
// Persistence adapter for durable player progress.
// Responsibilities:
//   - Serialize progress as one JSON blob under a fixed storage key.
//   - Hydrate progress at startup, substituting defaults for missing,
//     corrupt or out-of-range data.
//   - Purge corrupt entries so the next start is clean.
//
// Notes:
//   - Load errors are recoverable: callers always receive usable state.
//   - Save errors are warnings; in-memory state stays authoritative.

package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/robalobadob/patternrush/internal/store"
)

// StorageKey is the key the progress blob lives under.
const StorageKey = "memoryGameState"

// ErrCorrupt is returned by Load when the stored blob could not be decoded.
// The returned State holds defaults and the entry has been cleared.
var ErrCorrupt = errors.New("saved progress is corrupt")

// State is the durable slice of game state.
type State struct {
	CurrentLevel   int            `json:"currentLevel"`
	CurrentScore   int            `json:"currentScore"`
	UnlockedLevels int            `json:"unlockedLevels"`
	LevelCodes     map[int]string `json:"levelCodes"`
	PlayerName     string         `json:"playerName"`
}

// Default returns fresh progress: level 1 unlocked, nothing earned.
func Default() State {
	return State{CurrentLevel: 1, UnlockedLevels: 1, LevelCodes: map[int]string{}}
}

// Clone returns a deep copy of s.
func (s State) Clone() State {
	out := s
	out.LevelCodes = make(map[int]string, len(s.LevelCodes))
	for k, v := range s.LevelCodes {
		out.LevelCodes[k] = v
	}
	return out
}

// normalize replaces zero or negative fields with their defaults, the way a
// missing field falls back on load. CurrentLevel never exceeds
// UnlockedLevels.
func (s State) normalize() State {
	if s.CurrentLevel < 1 {
		s.CurrentLevel = 1
	}
	if s.UnlockedLevels < 1 {
		s.UnlockedLevels = 1
	}
	if s.CurrentLevel > s.UnlockedLevels {
		s.CurrentLevel = s.UnlockedLevels
	}
	if s.CurrentScore < 0 {
		s.CurrentScore = 0
	}
	if s.LevelCodes == nil {
		s.LevelCodes = map[int]string{}
	}
	return s
}

// Adapter mirrors State to a KV backend.
type Adapter struct {
	kv  store.KV
	key string
}

// NewAdapter returns an Adapter over kv using StorageKey.
func NewAdapter(kv store.KV) *Adapter {
	return &Adapter{kv: kv, key: StorageKey}
}

// Load reads saved progress. It always returns a usable State; a non-nil
// error is informational (ErrCorrupt, or a backend read failure).
func (a *Adapter) Load(ctx context.Context) (State, error) {
	raw, err := a.kv.Get(ctx, a.key)
	if errors.Is(err, store.ErrNotFound) {
		return Default(), nil
	}
	if err != nil {
		return Default(), fmt.Errorf("load progress: %w", err)
	}

	var s State
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		if derr := a.kv.Delete(ctx, a.key); derr != nil {
			return Default(), fmt.Errorf("%w (%v); clearing failed: %v", ErrCorrupt, err, derr)
		}
		return Default(), fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return s.normalize(), nil
}

// Save writes s. A failure leaves the previous blob in place.
func (a *Adapter) Save(ctx context.Context, s State) error {
	b, err := json.Marshal(s.normalize())
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	if err := a.kv.Set(ctx, a.key, string(b)); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

// Clear removes saved progress.
func (a *Adapter) Clear(ctx context.Context) error {
	return a.kv.Delete(ctx, a.key)
}
