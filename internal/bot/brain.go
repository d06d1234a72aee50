package bot

import "durak/internal/domain"

// MoveKind is the action a bot wants to take.
type MoveKind int

const (
	// MoveWait means the bot has nothing to do until the other side acts.
	MoveWait MoveKind = iota
	MoveAttack
	MoveDefend
	// MoveEndTurn closes the bout: the attacker stops adding cards, or the
	// defender takes the table.
	MoveEndTurn
)

func (k MoveKind) String() string {
	switch k {
	case MoveAttack:
		return "attack"
	case MoveDefend:
		return "defend"
	case MoveEndTurn:
		return "end_turn"
	default:
		return "wait"
	}
}

// Move is a bot decision.
type Move struct {
	Kind        MoveKind
	Card        domain.Card
	AttackIndex int
}

// Brain decides a move from the bot's own view of the session.
type Brain interface {
	Decide(v domain.View) Move
}
