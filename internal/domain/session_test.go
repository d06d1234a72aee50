package domain

import (
	"errors"
	"math/rand"
	"testing"
)

var (
	handA = []Card{
		card(Rank7, Clubs), card(Rank9, Diamonds), card(Rank8, Spades),
		card(Rank8, Diamonds), card(Rank10, Clubs), card(RankJack, Clubs),
	}
	handB = []Card{
		card(Rank6, Hearts), card(Rank9, Spades), card(Rank6, Spades),
		card(Rank7, Diamonds), card(RankKing, Clubs), card(RankQueen, Diamonds),
	}
	trumpAce = card(RankAce, Hearts)
)

// stackDeck arranges a full deck so that "a" is dealt a, "b" is dealt b and
// trump ends up face-up at the bottom.
func stackDeck(t *testing.T, a, b []Card, trump Card) []Card {
	t.Helper()
	if len(a) != 6 || len(b) != 6 {
		t.Fatalf("stackDeck needs two hands of 6")
	}
	used := map[string]bool{cardKey(trump): true}
	for _, c := range append(append([]Card{}, a...), b...) {
		used[cardKey(c)] = true
	}

	deck := []Card{trump}
	for _, c := range NewDeck() {
		if !used[cardKey(c)] {
			deck = append(deck, c)
		}
	}
	for i := 5; i >= 0; i-- {
		deck = append(deck, b[i], a[i])
	}
	if len(deck) != DeckSize {
		t.Fatalf("stacked deck has %d cards, want %d", len(deck), DeckSize)
	}
	return deck
}

func newDealtSession(t *testing.T, deck []Card) *Session {
	t.Helper()
	s := NewSession("s1", DefaultRules())
	if err := s.AddParticipant("a", "Alice"); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := s.AddParticipant("b", "Bob"); err != nil {
		t.Fatalf("add b: %v", err)
	}
	if err := s.Deal(deck); err != nil {
		t.Fatalf("deal: %v", err)
	}
	return s
}

func newStackedSession(t *testing.T) *Session {
	t.Helper()
	return newDealtSession(t, stackDeck(t, handA, handB, trumpAce))
}

func assertConservation(t *testing.T, s *Session) {
	t.Helper()
	total := len(s.deck) + len(TableCards(s.table)) + s.discarded
	for _, p := range s.participants {
		if len(p.Hand) != p.CardsReceived-p.CardsPlayed {
			t.Fatalf("%s: hand %d != received %d - played %d", p.ID, len(p.Hand), p.CardsReceived, p.CardsPlayed)
		}
		total += len(p.Hand)
	}
	if total != DeckSize {
		t.Fatalf("cards in play = %d, want %d", total, DeckSize)
	}
}

func TestDealGivesSixCardsAndFixesTrump(t *testing.T) {
	s := newDealtSession(t, BuildShuffledDeck(rand.New(rand.NewSource(7))))

	if s.Phase() != PhaseInProgress {
		t.Fatalf("phase = %s, want %s", s.Phase(), PhaseInProgress)
	}
	if got := s.DeckSize(); got != DeckSize-12 {
		t.Fatalf("deck size = %d, want %d", got, DeckSize-12)
	}

	va := s.Snapshot("a")
	vb := s.Snapshot("b")
	if len(va.Hand) != 6 || len(vb.Hand) != 6 {
		t.Fatalf("hand sizes = %d/%d, want 6/6", len(va.Hand), len(vb.Hand))
	}
	if va.TrumpSuit == "" || va.TrumpSuit != vb.TrumpSuit {
		t.Fatalf("trump suits differ or unset: %q vs %q", va.TrumpSuit, vb.TrumpSuit)
	}
	if va.AttackerIndex == va.DefenderIndex {
		t.Fatalf("attacker and defender share index %d", va.AttackerIndex)
	}
	assertConservation(t, s)
}

func TestDealUsesBottomCardAsTrump(t *testing.T) {
	s := newStackedSession(t)

	if s.TrumpSuit() != Hearts {
		t.Fatalf("trump = %s, want hearts", s.TrumpSuit())
	}
	a, _ := s.Participant("a")
	for i, c := range handA {
		if !a.Hand[i].Same(c) {
			t.Fatalf("a.Hand[%d] = %s, want %s", i, a.Hand[i], c)
		}
	}
	if !s.deck[0].Same(trumpAce) {
		t.Fatalf("bottom card = %s, want %s", s.deck[0], trumpAce)
	}
}

func TestSeatingErrors(t *testing.T) {
	s := NewSession("s1", DefaultRules())
	if err := s.AddParticipant("a", "Alice"); err != nil {
		t.Fatalf("add a: %v", err)
	}
	if err := s.AddParticipant("a", "Alice"); !errors.Is(err, ErrAlreadySeated) {
		t.Fatalf("duplicate add error = %v, want %v", err, ErrAlreadySeated)
	}
	if err := s.Deal(NewDeck()); !errors.Is(err, ErrTooFewParticipants) {
		t.Fatalf("deal with one player error = %v, want %v", err, ErrTooFewParticipants)
	}
	if err := s.AddParticipant("b", "Bob"); err != nil {
		t.Fatalf("add b: %v", err)
	}
	if err := s.AddParticipant("c", "Carol"); !errors.Is(err, ErrSessionFull) {
		t.Fatalf("third add error = %v, want %v", err, ErrSessionFull)
	}
	if err := s.Deal(NewDeck()[:12]); !errors.Is(err, ErrShortDeck) {
		t.Fatalf("short deck error = %v, want %v", err, ErrShortDeck)
	}
	if err := s.Deal(NewDeck()); err != nil {
		t.Fatalf("deal: %v", err)
	}
	if err := s.AddParticipant("c", "Carol"); !errors.Is(err, ErrNotForming) {
		t.Fatalf("add after deal error = %v, want %v", err, ErrNotForming)
	}
}

func TestAttack(t *testing.T) {
	s := newStackedSession(t)

	if err := s.Attack("a", card(Rank7, Clubs)); err != nil {
		t.Fatalf("first attack on empty table rejected: %v", err)
	}
	if err := s.Attack("a", card(Rank9, Diamonds)); !errors.Is(err, ErrRankNotOnTable) {
		t.Fatalf("attack with unseen rank error = %v, want %v", err, ErrRankNotOnTable)
	}
	if err := s.Attack("b", card(Rank7, Diamonds)); !errors.Is(err, ErrNotAttacker) {
		t.Fatalf("attack by defender error = %v, want %v", err, ErrNotAttacker)
	}
	if err := s.Attack("zed", card(Rank7, Diamonds)); !errors.Is(err, ErrUnknownParticipant) {
		t.Fatalf("attack by stranger error = %v, want %v", err, ErrUnknownParticipant)
	}
	if err := s.Attack("a", card(Rank7, Hearts)); !errors.Is(err, ErrCardNotInHand) {
		t.Fatalf("attack with card not held error = %v, want %v", err, ErrCardNotInHand)
	}

	v := s.Snapshot("a")
	if len(v.Hand) != 5 || len(v.Table) != 1 || !v.Table[0].Open() {
		t.Fatalf("unexpected state after one attack: hand=%d table=%+v", len(v.Hand), v.Table)
	}
	assertConservation(t, s)
}

func TestAttackSameRankTwice(t *testing.T) {
	s := newStackedSession(t)

	if err := s.Attack("a", card(Rank8, Spades)); err != nil {
		t.Fatalf("attack 8♠: %v", err)
	}
	if err := s.Attack("a", card(Rank8, Diamonds)); err != nil {
		t.Fatalf("attack 8♦ with rank on table rejected: %v", err)
	}
	if got := len(s.Snapshot("a").Table); got != 2 {
		t.Fatalf("table size = %d, want 2", got)
	}
}

func TestAttackWithRankFromDefenseSide(t *testing.T) {
	s := newStackedSession(t)

	if err := s.Attack("a", card(Rank8, Spades)); err != nil {
		t.Fatalf("attack: %v", err)
	}
	if err := s.Defend("b", 0, card(Rank9, Spades)); err != nil {
		t.Fatalf("defend: %v", err)
	}
	if err := s.Attack("a", card(Rank9, Diamonds)); err != nil {
		t.Fatalf("attack matching a defense rank rejected: %v", err)
	}
	assertConservation(t, s)
}

func TestDefend(t *testing.T) {
	tests := []struct {
		name    string
		defense Card
		wantErr error
	}{
		{name: "trump beats non-trump regardless of value", defense: card(Rank6, Hearts)},
		{name: "same suit higher value", defense: card(Rank9, Spades)},
		{name: "same suit lower value", defense: card(Rank6, Spades), wantErr: ErrDoesNotBeat},
		{name: "different non-trump suit", defense: card(RankKing, Clubs), wantErr: ErrDoesNotBeat},
		{name: "card not held", defense: card(RankAce, Spades), wantErr: ErrCardNotInHand},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStackedSession(t)
			if err := s.Attack("a", card(Rank8, Spades)); err != nil {
				t.Fatalf("attack: %v", err)
			}
			before := len(s.participants[1].Hand)

			err := s.Defend("b", 0, tt.defense)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Defend() error = %v, want %v", err, tt.wantErr)
			}

			after := len(s.participants[1].Hand)
			pair := s.table[0]
			if tt.wantErr == nil {
				if pair.Open() || !pair.Defense.Same(tt.defense) {
					t.Fatalf("pair not defended with %s: %+v", tt.defense, pair)
				}
				if after != before-1 {
					t.Fatalf("defender hand = %d, want %d", after, before-1)
				}
			} else {
				if !pair.Open() || after != before {
					t.Fatalf("rejected defense mutated state")
				}
			}
			assertConservation(t, s)
		})
	}
}

func TestDefendRejections(t *testing.T) {
	s := newStackedSession(t)
	if err := s.Attack("a", card(Rank8, Spades)); err != nil {
		t.Fatalf("attack: %v", err)
	}

	if err := s.Defend("a", 0, card(Rank9, Diamonds)); !errors.Is(err, ErrNotDefender) {
		t.Fatalf("defend by attacker error = %v, want %v", err, ErrNotDefender)
	}
	if err := s.Defend("b", 3, card(Rank9, Spades)); !errors.Is(err, ErrNoSuchPair) {
		t.Fatalf("defend missing pair error = %v, want %v", err, ErrNoSuchPair)
	}
	if err := s.Defend("b", -1, card(Rank9, Spades)); !errors.Is(err, ErrNoSuchPair) {
		t.Fatalf("defend negative index error = %v, want %v", err, ErrNoSuchPair)
	}
	if err := s.Defend("b", 0, card(Rank9, Spades)); err != nil {
		t.Fatalf("defend: %v", err)
	}
	if err := s.Defend("b", 0, card(Rank6, Hearts)); !errors.Is(err, ErrPairDefended) {
		t.Fatalf("defend twice error = %v, want %v", err, ErrPairDefended)
	}
	if !s.table[0].Defense.Same(card(Rank9, Spades)) {
		t.Fatalf("defense card replaced after rejection")
	}
}

func TestEndTurnAllDefendedSwapsRoles(t *testing.T) {
	s := newStackedSession(t)
	if err := s.Attack("a", card(Rank8, Spades)); err != nil {
		t.Fatalf("attack: %v", err)
	}
	if err := s.Defend("b", 0, card(Rank9, Spades)); err != nil {
		t.Fatalf("defend: %v", err)
	}

	out, err := s.EndTurn("a")
	if err != nil || out != nil {
		t.Fatalf("EndTurn() = %v, %v; want nil outcome and no error", out, err)
	}

	v := s.Snapshot("a")
	if len(v.Table) != 0 {
		t.Fatalf("table not cleared: %+v", v.Table)
	}
	if v.AttackerIndex != 1 || v.DefenderIndex != 0 {
		t.Fatalf("roles = %d/%d, want 1/0", v.AttackerIndex, v.DefenderIndex)
	}
	for _, p := range v.Players {
		if p.HandSize != 6 {
			t.Fatalf("%s hand = %d after replenish, want 6", p.ID, p.HandSize)
		}
	}
	if v.DeckSize != DeckSize-12-2 {
		t.Fatalf("deck size = %d, want %d", v.DeckSize, DeckSize-14)
	}
	assertConservation(t, s)
}

func TestEndTurnWithOpenPairDefenderTakes(t *testing.T) {
	s := newStackedSession(t)
	if err := s.Attack("a", card(Rank8, Spades)); err != nil {
		t.Fatalf("attack: %v", err)
	}
	if err := s.Attack("a", card(Rank8, Diamonds)); err != nil {
		t.Fatalf("second attack: %v", err)
	}
	if err := s.Defend("b", 0, card(Rank9, Spades)); err != nil {
		t.Fatalf("defend: %v", err)
	}
	defenderBefore := len(s.participants[1].Hand)
	onTable := len(TableCards(s.table))

	if _, err := s.EndTurn("b"); err != nil {
		t.Fatalf("EndTurn: %v", err)
	}

	if got := len(s.participants[1].Hand); got != defenderBefore+onTable {
		t.Fatalf("defender hand = %d, want %d", got, defenderBefore+onTable)
	}
	if s.attacker != 0 || s.defender != 1 {
		t.Fatalf("roles = %d/%d, want attacker kept at 0", s.attacker, s.defender)
	}
	if len(s.table) != 0 {
		t.Fatalf("table not cleared")
	}
	if got := len(s.participants[0].Hand); got != 6 {
		t.Fatalf("attacker hand = %d after replenish, want 6", got)
	}
	assertConservation(t, s)
}

func TestReplenishRespectsDeckAvailability(t *testing.T) {
	s := newStackedSession(t)
	// Leave only the trump card in the deck.
	s.deck = s.deck[:1]

	if err := s.Attack("a", card(Rank8, Spades)); err != nil {
		t.Fatalf("attack: %v", err)
	}
	if err := s.Defend("b", 0, card(Rank9, Spades)); err != nil {
		t.Fatalf("defend: %v", err)
	}
	out, err := s.EndTurn("b")
	if err != nil || out != nil {
		t.Fatalf("EndTurn() = %v, %v", out, err)
	}

	// b became attacker and draws first.
	if got := len(s.participants[1].Hand); got != 6 {
		t.Fatalf("new attacker hand = %d, want 6", got)
	}
	if got := len(s.participants[0].Hand); got != 5 {
		t.Fatalf("new defender hand = %d, want 5 (deck exhausted)", got)
	}
	if len(s.deck) != 0 {
		t.Fatalf("deck size = %d, want 0", len(s.deck))
	}
	for _, p := range s.participants {
		if len(p.Hand) > s.rules.HandSize {
			t.Fatalf("%s hand above hand size", p.ID)
		}
	}
}

func TestTermination(t *testing.T) {
	big := []Card{
		card(Rank6, Spades), card(Rank6, Diamonds), card(Rank6, Clubs), card(Rank7, Spades),
		card(Rank7, Diamonds), card(RankJack, Spades), card(RankJack, Diamonds), card(RankQueen, Spades),
		card(RankQueen, Clubs), card(RankKing, Spades),
	}

	tests := []struct {
		name        string
		handA       []Card
		handB       []Card
		defense     *Card
		wantWinner  string
		wantLoser   string
		wantDraw    bool
		wantPerfect bool
	}{
		{
			name:       "attacker empties hand and wins",
			handA:      []Card{card(Rank7, Clubs)},
			handB:      []Card{card(Rank6, Hearts), card(Rank9, Spades)},
			defense:    &Card{Suit: Hearts, Rank: Rank6, Value: 6},
			wantWinner: "a",
			wantLoser:  "b",
		},
		{
			name:     "both empty on the same turn is a draw",
			handA:    []Card{card(Rank7, Clubs)},
			handB:    []Card{card(Rank6, Hearts)},
			defense:  &Card{Suit: Hearts, Rank: Rank6, Value: 6},
			wantDraw: true,
		},
		{
			name:       "defender takes and is left holding cards",
			handA:      []Card{card(Rank7, Clubs)},
			handB:      []Card{card(Rank6, Spades)},
			wantWinner: "a",
			wantLoser:  "b",
		},
		{
			name:        "loser with a large hand marks a perfect game",
			handA:       []Card{card(Rank7, Clubs)},
			handB:       big,
			wantWinner:  "a",
			wantLoser:   "b",
			wantPerfect: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStackedSession(t)
			s.deck = nil
			s.participants[0].Hand = append([]Card{}, tt.handA...)
			s.participants[1].Hand = append([]Card{}, tt.handB...)

			if err := s.Attack("a", tt.handA[0]); err != nil {
				t.Fatalf("attack: %v", err)
			}
			if tt.defense != nil {
				if err := s.Defend("b", 0, *tt.defense); err != nil {
					t.Fatalf("defend: %v", err)
				}
			}
			out, err := s.EndTurn("b")
			if err != nil {
				t.Fatalf("EndTurn: %v", err)
			}
			if out == nil {
				t.Fatalf("expected session to end")
			}
			if out.Reason != ReasonNormal {
				t.Fatalf("reason = %s, want %s", out.Reason, ReasonNormal)
			}
			if out.Draw != tt.wantDraw || out.WinnerID != tt.wantWinner || out.LoserID != tt.wantLoser {
				t.Fatalf("outcome = %+v", out)
			}
			if out.PerfectGame != tt.wantPerfect {
				t.Fatalf("PerfectGame = %v, want %v", out.PerfectGame, tt.wantPerfect)
			}
			if out.ComebackWin {
				t.Fatalf("ComebackWin set for an empty-handed winner")
			}
			if !s.Ended() {
				t.Fatalf("session not ended")
			}

			v := s.Snapshot("a")
			if !v.Ended || v.WinnerID != tt.wantWinner || v.Draw != tt.wantDraw {
				t.Fatalf("snapshot does not reflect outcome: %+v", v)
			}

			if err := s.Attack("a", card(RankAce, Clubs)); !errors.Is(err, ErrNotInProgress) {
				t.Fatalf("attack after end error = %v, want %v", err, ErrNotInProgress)
			}
			if _, err := s.EndTurn("a"); !errors.Is(err, ErrNotInProgress) {
				t.Fatalf("end turn after end error = %v, want %v", err, ErrNotInProgress)
			}
		})
	}
}

func TestNoTerminationWhileDeckHasCards(t *testing.T) {
	s := newStackedSession(t)
	s.participants[0].Hand = []Card{card(Rank7, Clubs)}

	if err := s.Attack("a", card(Rank7, Clubs)); err != nil {
		t.Fatalf("attack: %v", err)
	}
	out, err := s.EndTurn("b")
	if err != nil {
		t.Fatalf("EndTurn: %v", err)
	}
	if out != nil || s.Ended() {
		t.Fatalf("session ended with %d cards left in deck", len(s.deck))
	}
}

func TestDisconnect(t *testing.T) {
	s := newStackedSession(t)

	out, ended, err := s.Disconnect("a")
	if err != nil {
		t.Fatalf("Disconnect: %v", err)
	}
	if !ended {
		t.Fatalf("first disconnect should end the session")
	}
	if out.Reason != ReasonOpponentDisconnected || out.WinnerID != "b" || out.LoserID != "a" {
		t.Fatalf("outcome = %+v", out)
	}
	if out.PerfectGame || out.ComebackWin {
		t.Fatalf("disconnect outcome carries game flags: %+v", out)
	}

	again, ended, err := s.Disconnect("a")
	if err != nil || ended {
		t.Fatalf("second disconnect = ended %v, err %v; want no-op", ended, err)
	}
	if again.WinnerID != "b" {
		t.Fatalf("outcome changed on repeat disconnect: %+v", again)
	}
	if _, ended, _ := s.Disconnect("b"); ended {
		t.Fatalf("survivor disconnect after end should not end the session again")
	}

	a, _ := s.Participant("a")
	if a.Connected {
		t.Fatalf("participant still marked connected")
	}
	if _, _, err := s.Disconnect("zed"); !errors.Is(err, ErrUnknownParticipant) {
		t.Fatalf("unknown disconnect error = %v, want %v", err, ErrUnknownParticipant)
	}
}

func TestSnapshotPerspective(t *testing.T) {
	s := newStackedSession(t)

	va := s.Snapshot("a")
	if va.YourIndex != 0 || len(va.Hand) != 6 || va.OpponentHandSize != 6 {
		t.Fatalf("a view = index %d hand %d opp %d", va.YourIndex, len(va.Hand), va.OpponentHandSize)
	}
	if !va.IsYourTurn || !va.Started || va.Ended {
		t.Fatalf("a view flags = %+v", va)
	}
	if va.TrumpCard == nil || !va.TrumpCard.Same(trumpAce) {
		t.Fatalf("trump card = %v, want %s", va.TrumpCard, trumpAce)
	}

	outsider := s.Snapshot("zed")
	if outsider.YourIndex != -1 || len(outsider.Hand) != 0 || outsider.OpponentHandSize != 12 {
		t.Fatalf("outsider view = %+v", outsider)
	}
	if outsider.IsYourTurn {
		t.Fatalf("outsider cannot have the turn")
	}

	va.Hand[0] = card(RankAce, Spades)
	if s.participants[0].Hand[0].Same(card(RankAce, Spades)) {
		t.Fatalf("snapshot shares the hand slice with the session")
	}
}

func TestSnapshotHandIsSortedTrumpsLast(t *testing.T) {
	s := newStackedSession(t)
	trump := s.TrumpSuit()

	hand := s.Snapshot("a").Hand
	for i := 1; i < len(hand); i++ {
		if cardPower(hand[i-1], trump) > cardPower(hand[i], trump) {
			t.Fatalf("hand not sorted at %d: %v", i, hand)
		}
	}
	a, _ := s.Participant("a")
	if len(a.Hand) != len(hand) {
		t.Fatalf("snapshot hand size = %d, want %d", len(hand), len(a.Hand))
	}
}

func TestAbort(t *testing.T) {
	s := newStackedSession(t)

	out, aborted := s.Abort()
	if !aborted {
		t.Fatalf("abort of a running session should report true")
	}
	if out.Reason != ReasonAborted || !out.Draw || out.WinnerID != "" || out.LoserID != "" {
		t.Fatalf("outcome = %+v, want an aborted draw", out)
	}
	if !s.Ended() {
		t.Fatalf("session should be ended after abort")
	}
	if _, again := s.Abort(); again {
		t.Fatalf("second abort should report false")
	}
	if _, ended, _ := s.Disconnect("a"); ended {
		t.Fatalf("disconnect after abort should not end the session again")
	}
}
