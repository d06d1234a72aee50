package app

import "time"

const (
	// DefaultGraceDelay is how long an ended session stays registered so
	// participants can still read the final state.
	DefaultGraceDelay = 5 * time.Second

	// MaxChatRunes caps a relayed chat message.
	MaxChatRunes = 280

	// MaxDisplayNameRunes caps a display name used as a stats key.
	MaxDisplayNameRunes = 32
)
