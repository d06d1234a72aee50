package domain

import "testing"

func TestBeats(t *testing.T) {
	tests := []struct {
		name     string
		defense  Card
		attack   Card
		trump    Suit
		expected bool
	}{
		{
			name:     "Higher same suit beats",
			defense:  card(Rank9, Spades),
			attack:   card(Rank8, Spades),
			trump:    Hearts,
			expected: true,
		},
		{
			name:     "Lower same suit does not beat",
			defense:  card(Rank6, Spades),
			attack:   card(Rank8, Spades),
			trump:    Hearts,
			expected: false,
		},
		{
			name:     "Card does not beat itself",
			defense:  card(RankQueen, Clubs),
			attack:   card(RankQueen, Clubs),
			trump:    Hearts,
			expected: false,
		},
		{
			name:     "Trump six beats non-trump ace",
			defense:  card(Rank6, Hearts),
			attack:   card(RankAce, Spades),
			trump:    Hearts,
			expected: true,
		},
		{
			name:     "Non-trump ace does not beat trump six",
			defense:  card(RankAce, Spades),
			attack:   card(Rank6, Hearts),
			trump:    Hearts,
			expected: false,
		},
		{
			name:     "Different non-trump suits never beat",
			defense:  card(RankAce, Clubs),
			attack:   card(Rank6, Diamonds),
			trump:    Hearts,
			expected: false,
		},
		{
			name:     "Higher trump beats lower trump",
			defense:  card(Rank10, Hearts),
			attack:   card(Rank7, Hearts),
			trump:    Hearts,
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Beats(tt.defense, tt.attack, tt.trump); got != tt.expected {
				t.Errorf("Beats(%s, %s) = %v, want %v", tt.defense, tt.attack, got, tt.expected)
			}
		})
	}
}

func TestBeatsIsAsymmetric(t *testing.T) {
	deck := NewDeck()
	for _, trump := range Suits {
		for _, a := range deck {
			if Beats(a, a, trump) {
				t.Fatalf("Beats(%s, %s) should be irreflexive", a, a)
			}
			for _, b := range deck {
				if Beats(a, b, trump) && Beats(b, a, trump) {
					t.Fatalf("Beats is symmetric for %s and %s with trump %s", a, b, trump)
				}
				if a.Suit != b.Suit && a.Suit != trump && b.Suit != trump && (Beats(a, b, trump) || Beats(b, a, trump)) {
					t.Fatalf("non-trump %s and %s of different suits must not beat", a, b)
				}
			}
		}
	}
}

func TestCanAttackWith(t *testing.T) {
	nine := card(Rank9, Spades)
	table := []TablePair{
		{Attack: card(Rank7, Clubs)},
		{Attack: card(Rank8, Spades), Defense: &nine},
	}

	tests := []struct {
		name  string
		table []TablePair
		card  Card
		want  bool
	}{
		{name: "empty table accepts any card", table: nil, card: card(RankKing, Hearts), want: true},
		{name: "rank on attack side", table: table, card: card(Rank7, Diamonds), want: true},
		{name: "rank on defense side", table: table, card: card(Rank9, Diamonds), want: true},
		{name: "rank not on table", table: table, card: card(RankAce, Diamonds), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanAttackWith(tt.table, tt.card); got != tt.want {
				t.Fatalf("CanAttackWith() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAllDefendedAndTableCards(t *testing.T) {
	nine := card(Rank9, Spades)
	table := []TablePair{
		{Attack: card(Rank8, Spades), Defense: &nine},
		{Attack: card(Rank8, Diamonds)},
	}
	if AllDefended(table) {
		t.Fatalf("AllDefended() = true with an open pair")
	}
	if !AllDefended(table[:1]) {
		t.Fatalf("AllDefended() = false with every pair answered")
	}
	if !AllDefended(nil) {
		t.Fatalf("AllDefended() = false on an empty table")
	}
	if got := len(TableCards(table)); got != 3 {
		t.Fatalf("TableCards() returned %d cards, want 3", got)
	}
}
