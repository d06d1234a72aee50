package bot

import (
	"math/rand"
	"sync"

	"durak/internal/domain"
)

// EasyBot picks uniformly among legal moves.
type EasyBot struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func (b *EasyBot) Decide(v domain.View) Move {
	moves := LegalMoves(v)
	if len(moves) == 0 {
		return Move{Kind: MoveWait}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return moves[b.rng.Intn(len(moves))]
}

// GoodBot plays the cheapest legal card and keeps trumps while the deck lasts.
type GoodBot struct{}

func (b *GoodBot) Decide(v domain.View) Move {
	moves := LegalMoves(v)
	if len(moves) == 0 {
		return Move{Kind: MoveWait}
	}

	var best *Move
	endTurn := false
	for i := range moves {
		m := &moves[i]
		if m.Kind == MoveEndTurn {
			endTurn = true
			continue
		}
		if best == nil || cost(m.Card, v.TrumpSuit) < cost(best.Card, v.TrumpSuit) {
			best = m
		}
	}

	if best == nil {
		return Move{Kind: MoveEndTurn}
	}
	if best.Kind == MoveAttack && len(v.Table) > 0 {
		// Stop adding cards once the defender is out of cards or only a trump would do.
		if v.OpponentHandSize <= len(openPairs(v.Table)) {
			return Move{Kind: MoveEndTurn}
		}
		if best.Card.Suit == v.TrumpSuit && v.DeckSize > 0 && endTurn {
			return Move{Kind: MoveEndTurn}
		}
	}
	return *best
}

// SharpBot plays like GoodBot but remembers discards and pickups. When it
// attacks it prefers the cheapest card nothing left in play can beat.
type SharpBot struct {
	mu     sync.Mutex
	memory *GameMemory
	good   GoodBot
}

func NewSharpBot() *SharpBot {
	return &SharpBot{memory: NewMemory()}
}

func (b *SharpBot) Decide(v domain.View) Move {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.memory.Observe(v)

	fallback := b.good.Decide(v)
	if fallback.Kind != MoveAttack {
		return fallback
	}

	var best *Move
	for _, m := range LegalMoves(v) {
		if m.Kind != MoveAttack || !b.memory.IsBoss(m.Card, v) {
			continue
		}
		// Trumps stay in hand while the deck lasts.
		if m.Card.Suit == v.TrumpSuit && v.DeckSize > 0 {
			continue
		}
		if best == nil || cost(m.Card, v.TrumpSuit) < cost(best.Card, v.TrumpSuit) {
			best = &m
		}
	}
	if best == nil {
		return fallback
	}
	return *best
}
