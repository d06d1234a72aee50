package domain

import (
	"errors"
	"math/rand"
	"sort"
)

// DeckSize is the number of cards in a full Durak deck.
const DeckSize = 36

var (
	// Suits lists the suits in deck construction order.
	Suits = []Suit{Hearts, Diamonds, Clubs, Spades}
	// Ranks lists the ranks in ascending order.
	Ranks = []Rank{Rank6, Rank7, Rank8, Rank9, Rank10, RankJack, RankQueen, RankKing, RankAce}

	rankValues = map[Rank]int{
		Rank6: 6, Rank7: 7, Rank8: 8, Rank9: 9, Rank10: 10,
		RankJack: 11, RankQueen: 12, RankKing: 13, RankAce: 14,
	}

	suitSymbols = map[Suit]string{
		Hearts: "♥", Diamonds: "♦", Clubs: "♣", Spades: "♠",
	}
)

var (
	ErrUnknownSuit = errors.New("unknown suit")
	ErrUnknownRank = errors.New("unknown rank")
)

// NewCard builds a card from untrusted suit/rank strings and derives its value.
func NewCard(suit, rank string) (Card, error) {
	s := Suit(suit)
	if _, ok := suitSymbols[s]; !ok {
		return Card{}, ErrUnknownSuit
	}
	r := Rank(rank)
	v, ok := rankValues[r]
	if !ok {
		return Card{}, ErrUnknownRank
	}
	return Card{Suit: s, Rank: r, Value: v}, nil
}

// RankValue returns the numeric value of a rank, or 0 for an unknown rank.
func RankValue(r Rank) int {
	return rankValues[r]
}

// Same reports whether two cards have the same identity (suit and rank).
func (c Card) Same(o Card) bool {
	return c.Suit == o.Suit && c.Rank == o.Rank
}

func (c Card) String() string {
	return string(c.Rank) + suitSymbols[c.Suit]
}

// NewDeck returns the 36 canonical cards in suit-major, ascending-rank order.
func NewDeck() []Card {
	deck := make([]Card, 0, DeckSize)
	for _, s := range Suits {
		for _, r := range Ranks {
			deck = append(deck, Card{Suit: s, Rank: r, Value: rankValues[r]})
		}
	}
	return deck
}

// BuildShuffledDeck returns a uniformly shuffled full deck.
func BuildShuffledDeck(rng *rand.Rand) []Card {
	deck := NewDeck()
	Shuffle(deck, rng)
	return deck
}

// Shuffle permutes the deck in place with Fisher–Yates.
func Shuffle(deck []Card, rng *rand.Rand) {
	for i := len(deck) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}

// SortHand orders a hand by ascending value with trumps last.
func SortHand(cards []Card, trump Suit) {
	sort.SliceStable(cards, func(i, j int) bool {
		return cardPower(cards[i], trump) < cardPower(cards[j], trump)
	})
}

func cardPower(c Card, trump Suit) int {
	if c.Suit == trump {
		return c.Value + 100
	}
	return c.Value
}
