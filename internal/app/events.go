package app

import (
	"durak/internal/domain"
	"durak/internal/stats"
)

// EventKind identifies emitted events for transport dispatch.
type EventKind string

const (
	EventWaitingForOpponent   EventKind = "waiting_for_opponent"
	EventSessionStarted       EventKind = "session_started"
	EventStateChanged         EventKind = "state_changed"
	EventActionBroadcast      EventKind = "action_broadcast"
	EventSessionEnded         EventKind = "session_ended"
	EventOpponentDisconnected EventKind = "opponent_disconnected"
	EventChatMessage          EventKind = "chat_message"
)

// Event is an app event with explicit recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []string // participant IDs; empty means broadcast
}

type WaitingPayload struct {
	ParticipantID string
	QueueSize     int
}

// SnapshotPayload carries a session view for exactly one recipient.
type SnapshotPayload struct {
	View domain.View
}

// ActionKind is the kind of a broadcast table action.
type ActionKind string

const (
	ActionAttack ActionKind = "attack"
	ActionDefend ActionKind = "defend"
)

type ActionPayload struct {
	SessionID   string
	ActorID     string
	Kind        ActionKind
	Card        domain.Card
	AttackIndex *int // set for defend only
}

type SessionEndedPayload struct {
	SessionID             string
	WinnerID              string
	WinnerName            string
	Reason                domain.EndReason
	Draw                  bool
	WinnerStats           *stats.Record
	LoserStats            *stats.Record
	WinnerNewAchievements []stats.Achievement
	LoserNewAchievements  []stats.Achievement
}

type OpponentDisconnectedPayload struct {
	ParticipantID string
	DisplayName   string
}

type ChatPayload struct {
	SessionID    string
	SenderID     string
	SenderName   string
	Message      string
	IsOwnMessage bool
}
