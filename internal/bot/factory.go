package bot

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// BotLevel names a strategy.
type BotLevel string

const (
	BotLevelEasy  BotLevel = "easy"
	BotLevelGood  BotLevel = "good"
	BotLevelSharp BotLevel = "sharp"
)

// ParseLevel maps a config string to a level; blank means good.
func ParseLevel(s string) (BotLevel, error) {
	switch BotLevel(strings.ToLower(strings.TrimSpace(s))) {
	case BotLevelEasy:
		return BotLevelEasy, nil
	case BotLevelGood, "":
		return BotLevelGood, nil
	case BotLevelSharp:
		return BotLevelSharp, nil
	default:
		return "", fmt.Errorf("unknown bot level: %q", s)
	}
}

// NewBrain creates a brain for level. rng may be nil to use a time-seeded default.
func NewBrain(level BotLevel, rng *rand.Rand) (Brain, error) {
	switch level {
	case BotLevelEasy:
		if rng == nil {
			rng = rand.New(rand.NewSource(time.Now().UnixNano()))
		}
		return &EasyBot{rng: rng}, nil
	case BotLevelGood:
		return &GoodBot{}, nil
	case BotLevelSharp:
		return NewSharpBot(), nil
	default:
		return nil, fmt.Errorf("unknown bot level: %q", level)
	}
}
