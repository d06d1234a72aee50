package domain

// Beats reports whether defense beats attack under the given trump suit.
// A higher card of the same suit beats; a trump beats any non-trump.
// Cards of two different non-trump suits never beat each other.
func Beats(defense, attack Card, trump Suit) bool {
	if defense.Suit == attack.Suit {
		return defense.Value > attack.Value
	}
	return defense.Suit == trump && attack.Suit != trump
}

// RankOnTable reports whether any card on the table, on either side, has rank r.
func RankOnTable(table []TablePair, r Rank) bool {
	for _, pair := range table {
		if pair.Attack.Rank == r {
			return true
		}
		if pair.Defense != nil && pair.Defense.Rank == r {
			return true
		}
	}
	return false
}

// CanAttackWith reports whether card may be added to the table by rank.
// An empty table accepts any card.
func CanAttackWith(table []TablePair, card Card) bool {
	return len(table) == 0 || RankOnTable(table, card.Rank)
}

// AllDefended reports whether every pair on the table has been answered.
// An empty table counts as defended.
func AllDefended(table []TablePair) bool {
	for _, pair := range table {
		if pair.Open() {
			return false
		}
	}
	return true
}

// TableCards flattens the table into the cards it holds, attack side first per pair.
func TableCards(table []TablePair) []Card {
	out := make([]Card, 0, len(table)*2)
	for _, pair := range table {
		out = append(out, pair.Attack)
		if pair.Defense != nil {
			out = append(out, *pair.Defense)
		}
	}
	return out
}
