package domain

// PlayerView is the public part of a participant.
type PlayerView struct {
	ID          string
	DisplayName string
	HandSize    int
	Connected   bool
}

// View is a session projected to the perspective of one participant.
// The viewer sees their own hand; opponents are reduced to hand sizes.
type View struct {
	SessionID        string
	Phase            Phase
	Players          []PlayerView
	Hand             []Card
	OpponentHandSize int
	Table            []TablePair
	TrumpSuit        Suit
	TrumpCard        *Card // nil before the deal
	DeckSize         int
	DiscardSize      int
	AttackerIndex    int
	DefenderIndex    int
	YourIndex        int // -1 when the viewer is not seated
	Started          bool
	Ended            bool
	WinnerID         string
	Draw             bool
	IsYourTurn       bool
}

// Snapshot projects the full session state for participantID.
// It never mutates the session.
func (s *Session) Snapshot(participantID string) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(participantID)
	v := View{
		SessionID:     s.id,
		Phase:         s.phase,
		Players:       make([]PlayerView, 0, len(s.participants)),
		Hand:          []Card{},
		Table:         make([]TablePair, 0, len(s.table)),
		TrumpSuit:     s.trumpCard.Suit,
		DeckSize:      len(s.deck),
		DiscardSize:   s.discarded,
		AttackerIndex: s.attacker,
		DefenderIndex: s.defender,
		YourIndex:     idx,
		Started:       s.phase == PhaseInProgress || s.phase == PhaseEnded,
		Ended:         s.phase == PhaseEnded,
	}

	if s.trumpCard.Suit != "" {
		trump := s.trumpCard
		v.TrumpCard = &trump
	}

	for i, p := range s.participants {
		v.Players = append(v.Players, PlayerView{
			ID:          p.ID,
			DisplayName: p.DisplayName,
			HandSize:    len(p.Hand),
			Connected:   p.Connected,
		})
		if i == idx {
			v.Hand = append(v.Hand, p.Hand...)
		} else {
			v.OpponentHandSize += len(p.Hand)
		}
	}

	SortHand(v.Hand, s.trumpCard.Suit)

	for _, pair := range s.table {
		cp := TablePair{Attack: pair.Attack}
		if pair.Defense != nil {
			d := *pair.Defense
			cp.Defense = &d
		}
		v.Table = append(v.Table, cp)
	}

	if s.outcome != nil {
		v.WinnerID = s.outcome.WinnerID
		v.Draw = s.outcome.Draw
	}
	if s.phase == PhaseInProgress && idx >= 0 {
		v.IsYourTurn = idx == s.attacker || idx == s.defender
	}
	return v
}
