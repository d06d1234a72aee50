package bot

import (
	"math/rand"

	"durak/internal/domain"
)

// Agent is an autonomous participant.
type Agent struct {
	ID    string
	Name  string
	Level BotLevel
	Brain Brain
}

// NewAgent builds an agent for identity.
func NewAgent(identity Identity, rng *rand.Rand) (*Agent, error) {
	level, err := ParseLevel(identity.Difficulty)
	if err != nil {
		return nil, err
	}
	brain, err := NewBrain(level, rng)
	if err != nil {
		return nil, err
	}
	return &Agent{
		ID:    identity.UserID,
		Name:  identity.DisplayName,
		Level: level,
		Brain: brain,
	}, nil
}

// Play returns the agent's move for a session snapshot taken from its seat.
func (a *Agent) Play(s *domain.Session) Move {
	if s == nil {
		return Move{Kind: MoveWait}
	}
	return a.Brain.Decide(s.Snapshot(a.ID))
}
