package domain

import (
	"errors"
	"sync"
)

// PlayersPerSession is the only supported session size.
const PlayersPerSession = 2

var (
	ErrSessionFull        = errors.New("session already has all participants")
	ErrAlreadySeated      = errors.New("participant already seated")
	ErrNotForming         = errors.New("session is not accepting participants")
	ErrTooFewParticipants = errors.New("not enough participants to deal")
	ErrShortDeck          = errors.New("deck too small to deal")
	ErrNotInProgress      = errors.New("session is not in progress")
	ErrUnknownParticipant = errors.New("participant not seated in session")
	ErrNotAttacker        = errors.New("participant is not the attacker")
	ErrRankNotOnTable     = errors.New("card rank is not on the table")
	ErrCardNotInHand      = errors.New("card is not in hand")
	ErrNotDefender        = errors.New("participant is not the defender")
	ErrNoSuchPair         = errors.New("no table pair at index")
	ErrPairDefended       = errors.New("table pair already defended")
	ErrDoesNotBeat        = errors.New("card does not beat the attack card")
)

// Session is the authoritative state of one Durak match.
// Every exported method holds the session lock, so operations on one
// session are serialized while different sessions proceed independently.
type Session struct {
	mu sync.Mutex

	id    string
	rules Rules
	phase Phase

	deck         []Card // top of the deck is the last element
	trumpCard    Card
	participants []*Participant
	table        []TablePair
	discarded    int // beaten cards removed from play
	attacker     int
	defender     int
	outcome      *Outcome
}

// NewSession creates an empty session in the forming phase.
func NewSession(id string, rules Rules) *Session {
	if rules.HandSize <= 0 {
		rules.HandSize = DefaultRules().HandSize
	}
	if rules.LargeHandThreshold <= 0 {
		rules.LargeHandThreshold = DefaultRules().LargeHandThreshold
	}
	return &Session{
		id:       id,
		rules:    rules,
		phase:    PhaseForming,
		attacker: 0,
		defender: 1,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// AddParticipant seats a participant while the session is forming.
func (s *Session) AddParticipant(id, displayName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseForming {
		return ErrNotForming
	}
	if s.indexOf(id) >= 0 {
		return ErrAlreadySeated
	}
	if len(s.participants) >= PlayersPerSession {
		return ErrSessionFull
	}
	s.participants = append(s.participants, &Participant{
		ID:          id,
		DisplayName: displayName,
		Connected:   true,
	})
	return nil
}

// Deal takes ownership of deck, hands out the initial cards and fixes the trump.
// Cards are popped from the end of deck; deck[0] is the face-up trump card and
// is the last card to be dealt.
func (s *Session) Deal(deck []Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseForming {
		return ErrNotForming
	}
	if len(s.participants) < PlayersPerSession {
		return ErrTooFewParticipants
	}
	if len(deck) <= s.rules.HandSize*len(s.participants) {
		return ErrShortDeck
	}

	s.phase = PhaseDealing
	s.deck = append([]Card(nil), deck...)
	for i := 0; i < s.rules.HandSize; i++ {
		for _, p := range s.participants {
			s.draw(p)
		}
	}
	s.trumpCard = s.deck[0]

	s.attacker = 0
	s.defender = nextEligible(len(s.participants), s.attacker, s.attacker)
	s.phase = PhaseInProgress
	return nil
}

// Attack places card from the attacker's hand on the table as a new open pair.
func (s *Session) Attack(participantID string, card Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseInProgress {
		return ErrNotInProgress
	}
	idx := s.indexOf(participantID)
	if idx < 0 {
		return ErrUnknownParticipant
	}
	if idx != s.attacker {
		return ErrNotAttacker
	}
	if !CanAttackWith(s.table, card) {
		return ErrRankNotOnTable
	}

	p := s.participants[idx]
	pos := IndexOfCard(p.Hand, card)
	if pos < 0 {
		return ErrCardNotInHand
	}
	played := p.Hand[pos]
	p.Hand, _ = RemoveCard(p.Hand, played)
	p.CardsPlayed++
	s.table = append(s.table, TablePair{Attack: played})
	return nil
}

// Defend answers the open pair at attackIndex with card from the defender's hand.
func (s *Session) Defend(participantID string, attackIndex int, card Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseInProgress {
		return ErrNotInProgress
	}
	idx := s.indexOf(participantID)
	if idx < 0 {
		return ErrUnknownParticipant
	}
	if idx != s.defender {
		return ErrNotDefender
	}
	if attackIndex < 0 || attackIndex >= len(s.table) {
		return ErrNoSuchPair
	}
	pair := &s.table[attackIndex]
	if !pair.Open() {
		return ErrPairDefended
	}

	p := s.participants[idx]
	pos := IndexOfCard(p.Hand, card)
	if pos < 0 {
		return ErrCardNotInHand
	}
	held := p.Hand[pos]
	if !Beats(held, pair.Attack, s.trumpCard.Suit) {
		return ErrDoesNotBeat
	}

	p.Hand, _ = RemoveCard(p.Hand, held)
	p.CardsPlayed++
	pair.Defense = &held
	return nil
}

// EndTurn closes the current bout. It may be invoked by either participant.
// When every pair is defended the roles swap; otherwise the defender takes
// every card on the table and the attacker keeps the initiative. Hands are
// then replenished and termination is evaluated. The returned outcome is
// non-nil only when this call ended the session.
func (s *Session) EndTurn(participantID string) (*Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseInProgress {
		return nil, ErrNotInProgress
	}
	if s.indexOf(participantID) < 0 {
		return nil, ErrUnknownParticipant
	}

	n := len(s.participants)
	if AllDefended(s.table) {
		s.discarded += len(TableCards(s.table))
		s.attacker, s.defender = s.defender, s.attacker
	} else {
		taker := s.participants[s.defender]
		taken := TableCards(s.table)
		taker.Hand = append(taker.Hand, taken...)
		taker.CardsReceived += len(taken)
		s.defender = nextEligible(n, s.defender, s.attacker)
	}
	s.table = nil

	s.replenish()
	return s.checkEnd(), nil
}

// Disconnect marks the participant as gone. While the session is running
// this ends it in favour of the other participant; the second result reports
// whether this call was the one that ended it. Repeated calls are no-ops.
func (s *Session) Disconnect(participantID string) (*Outcome, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(participantID)
	if idx < 0 {
		return nil, false, ErrUnknownParticipant
	}
	s.participants[idx].Connected = false

	if s.phase == PhaseEnded {
		out := *s.outcome
		return &out, false, nil
	}

	winner := nextEligible(len(s.participants), idx, idx)
	if winner < 0 || winner >= len(s.participants) {
		return s.finish(ReasonOpponentDisconnected, -1, -1), true, nil
	}
	return s.finish(ReasonOpponentDisconnected, winner, idx), true, nil
}

// Abort ends a running session as a draw with ReasonAborted. It reports
// false when the session had already ended.
func (s *Session) Abort() (*Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase == PhaseEnded {
		return nil, false
	}
	return s.finish(ReasonAborted, -1, -1), true
}

// Phase returns the current lifecycle phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Ended reports whether the session reached its terminal phase.
func (s *Session) Ended() bool {
	return s.Phase() == PhaseEnded
}

// Outcome returns the final result once the session has ended.
func (s *Session) Outcome() (Outcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.outcome == nil {
		return Outcome{}, false
	}
	return *s.outcome, true
}

// Has reports whether participantID is seated in this session.
func (s *Session) Has(participantID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(participantID) >= 0
}

// Participant returns a copy of the seated participant.
func (s *Session) Participant(participantID string) (Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(participantID)
	if idx < 0 {
		return Participant{}, false
	}
	return copyParticipant(s.participants[idx]), true
}

// Participants returns copies of all seated participants in seat order.
func (s *Session) Participants() []Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Participant, 0, len(s.participants))
	for _, p := range s.participants {
		out = append(out, copyParticipant(p))
	}
	return out
}

// Opponent returns the other participant of a two-player session.
func (s *Session) Opponent(participantID string) (Participant, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(participantID)
	if idx < 0 {
		return Participant{}, false
	}
	other := nextEligible(len(s.participants), idx, idx)
	if other < 0 || other >= len(s.participants) {
		return Participant{}, false
	}
	return copyParticipant(s.participants[other]), true
}

// DeckSize returns the number of undealt cards, trump card included.
func (s *Session) DeckSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.deck)
}

// TrumpSuit returns the trump suit, empty before the deal.
func (s *Session) TrumpSuit() Suit {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.trumpCard.Suit
}

func (s *Session) indexOf(participantID string) int {
	for i, p := range s.participants {
		if p.ID == participantID {
			return i
		}
	}
	return -1
}

func (s *Session) draw(p *Participant) bool {
	if len(s.deck) == 0 {
		return false
	}
	top := s.deck[len(s.deck)-1]
	s.deck = s.deck[:len(s.deck)-1]
	p.Hand = append(p.Hand, top)
	p.CardsReceived++
	return true
}

// replenish tops hands up to HandSize, attacker first, then defender.
func (s *Session) replenish() {
	for _, idx := range []int{s.attacker, s.defender} {
		p := s.participants[idx]
		for len(p.Hand) < s.rules.HandSize {
			if !s.draw(p) {
				return
			}
		}
	}
}

// checkEnd applies the durak rule once the deck is exhausted.
func (s *Session) checkEnd() *Outcome {
	if len(s.deck) > 0 {
		return nil
	}
	switch CountEmptyHands(s.participants) {
	case 0:
		return nil
	case len(s.participants):
		return s.finish(ReasonNormal, -1, -1)
	}
	winner, loser := -1, -1
	for i, p := range s.participants {
		if len(p.Hand) == 0 && winner < 0 {
			winner = i
		} else if len(p.Hand) > 0 && loser < 0 {
			loser = i
		}
	}
	return s.finish(ReasonNormal, winner, loser)
}

// finish moves the session to PhaseEnded and records the outcome.
// winner and loser are seat indices, both -1 for a draw.
func (s *Session) finish(reason EndReason, winner, loser int) *Outcome {
	out := Outcome{Reason: reason}
	if winner < 0 {
		out.Draw = true
	} else {
		w := s.participants[winner]
		out.WinnerID = w.ID
		if loser >= 0 {
			l := s.participants[loser]
			out.LoserID = l.ID
			if reason == ReasonNormal {
				out.PerfectGame = len(l.Hand) >= s.rules.LargeHandThreshold
				out.ComebackWin = len(w.Hand) >= s.rules.LargeHandThreshold
			}
		}
	}
	s.outcome = &out
	s.phase = PhaseEnded
	s.table = nil

	result := out
	return &result
}

func copyParticipant(p *Participant) Participant {
	out := *p
	out.Hand = append([]Card(nil), p.Hand...)
	return out
}
