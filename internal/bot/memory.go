package bot

import "durak/internal/domain"

// CardStatus is what a bot knows about where a card is.
type CardStatus int

const (
	StatusUnknown  CardStatus = iota // in the deck or an unseen hand
	StatusPlayed                     // discarded after a defended bout
	StatusOpponent                   // picked up by the opponent
)

type cardKey struct {
	suit domain.Suit
	rank domain.Rank
}

func keyOf(c domain.Card) cardKey {
	return cardKey{suit: c.Suit, rank: c.Rank}
}

// GameMemory follows one session through the views a bot is shown. Own hand
// and table cards are read from the current view; only discards and pickups
// need remembering.
type GameMemory struct {
	sessionID   string
	status      map[cardKey]CardStatus
	lastTable   []domain.Card
	lastDiscard int
	wasDefender bool
}

func NewMemory() *GameMemory {
	return &GameMemory{status: make(map[cardKey]CardStatus)}
}

// Reset clears the memory for a new session.
func (m *GameMemory) Reset(sessionID string) {
	m.sessionID = sessionID
	m.status = make(map[cardKey]CardStatus)
	m.lastTable = nil
	m.lastDiscard = 0
	m.wasDefender = false
}

// Observe folds v into the memory. When a bout closed since the previous
// view, the cards last seen on the table are marked discarded or picked up.
func (m *GameMemory) Observe(v domain.View) {
	if v.SessionID != m.sessionID {
		m.Reset(v.SessionID)
	}

	if len(m.lastTable) > 0 && len(v.Table) == 0 {
		switch {
		case v.DiscardSize > m.lastDiscard:
			m.mark(m.lastTable, StatusPlayed)
		case !m.wasDefender:
			m.mark(m.lastTable, StatusOpponent)
		}
	}

	// Cards the opponent puts on the table are no longer in their hand.
	table := tableCards(v.Table)
	for _, c := range table {
		if m.status[keyOf(c)] == StatusOpponent {
			delete(m.status, keyOf(c))
		}
	}

	m.lastTable = table
	m.lastDiscard = v.DiscardSize
	m.wasDefender = v.YourIndex == v.DefenderIndex
}

// Status returns the remembered status of c.
func (m *GameMemory) Status(c domain.Card) CardStatus {
	return m.status[keyOf(c)]
}

// IsBoss reports whether no card that could beat c is left outside the
// bot's hand, the table and the discard pile.
func (m *GameMemory) IsBoss(c domain.Card, v domain.View) bool {
	seen := make(map[cardKey]bool, len(v.Hand)+2*len(v.Table))
	for _, h := range v.Hand {
		seen[keyOf(h)] = true
	}
	for _, t := range tableCards(v.Table) {
		seen[keyOf(t)] = true
	}
	for _, other := range domain.NewDeck() {
		k := keyOf(other)
		if seen[k] || m.status[k] == StatusPlayed {
			continue
		}
		if domain.Beats(other, c, v.TrumpSuit) {
			return false
		}
	}
	return true
}

func (m *GameMemory) mark(cards []domain.Card, status CardStatus) {
	for _, c := range cards {
		m.status[keyOf(c)] = status
	}
}

func tableCards(table []domain.TablePair) []domain.Card {
	out := make([]domain.Card, 0, 2*len(table))
	for _, p := range table {
		out = append(out, p.Attack)
		if p.Defense != nil {
			out = append(out, *p.Defense)
		}
	}
	return out
}
