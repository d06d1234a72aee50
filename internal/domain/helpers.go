package domain

// IndexOfCard returns the position of card in hand, or -1.
func IndexOfCard(hand []Card, card Card) int {
	for i, c := range hand {
		if c.Same(card) {
			return i
		}
	}
	return -1
}

// RemoveCard removes one copy of card from hand and returns the updated hand.
// The second result is false when the card was not held.
func RemoveCard(hand []Card, card Card) ([]Card, bool) {
	i := IndexOfCard(hand, card)
	if i < 0 {
		return hand, false
	}
	updated := make([]Card, 0, len(hand)-1)
	updated = append(updated, hand[:i]...)
	updated = append(updated, hand[i+1:]...)
	return updated, true
}

// CountEmptyHands returns the number of participants without cards.
func CountEmptyHands(players []*Participant) int {
	n := 0
	for _, p := range players {
		if len(p.Hand) == 0 {
			n++
		}
	}
	return n
}

// nextEligible returns the first seat after from, wrapping around, that is not exclude.
// It returns -1 when no seat qualifies.
func nextEligible(n, from, exclude int) int {
	for k := 1; k <= n; k++ {
		i := (from + k) % n
		if i != exclude {
			return i
		}
	}
	return -1
}
