package domain

// Phase represents the lifecycle stage of a Durak session.
type Phase string

const (
	// PhaseForming is the pre-deal state while participants are seated.
	PhaseForming Phase = "forming"
	// PhaseDealing is the short state while hands are dealt and trump is fixed.
	PhaseDealing Phase = "dealing"
	// PhaseInProgress is the attack/defend loop.
	PhaseInProgress Phase = "in_progress"
	// PhaseEnded is the terminal state. A session never leaves it.
	PhaseEnded Phase = "ended"
)

// Suit is one of the four French suits.
type Suit string

const (
	Hearts   Suit = "hearts"
	Diamonds Suit = "diamonds"
	Clubs    Suit = "clubs"
	Spades   Suit = "spades"
)

// Rank is a card rank of the 36-card deck ("6" through "A").
type Rank string

const (
	Rank6     Rank = "6"
	Rank7     Rank = "7"
	Rank8     Rank = "8"
	Rank9     Rank = "9"
	Rank10    Rank = "10"
	RankJack  Rank = "J"
	RankQueen Rank = "Q"
	RankKing  Rank = "K"
	RankAce   Rank = "A"
)

// Card is a single playing card in the Durak deck.
// Value is derived from Rank (6..14) and never set independently.
type Card struct {
	Suit  Suit
	Rank  Rank
	Value int
}

// Participant holds the session-owned state of one seated player.
type Participant struct {
	ID          string // opaque connection identity
	DisplayName string
	Hand        []Card
	Connected   bool

	// CardsReceived and CardsPlayed make card conservation observable:
	// len(Hand) == CardsReceived - CardsPlayed at all times.
	CardsReceived int
	CardsPlayed   int
}

// TablePair is one attack on the table and its answer, if any.
type TablePair struct {
	Attack  Card
	Defense *Card // nil while the pair is open
}

// Open reports whether the attack has not been answered yet.
func (p TablePair) Open() bool {
	return p.Defense == nil
}

// EndReason tags how a session ended.
type EndReason string

const (
	ReasonNormal               EndReason = "normal"
	ReasonOpponentDisconnected EndReason = "opponent_disconnected"
	// ReasonAborted ends a session without a result, for example when the
	// hosting process shuts down.
	ReasonAborted EndReason = "aborted"
)

// Outcome is computed once by the session when it ends.
type Outcome struct {
	Reason   EndReason
	WinnerID string // empty on a draw
	LoserID  string // empty on a draw
	Draw     bool

	// PerfectGame is set when the loser is left with a large hand.
	PerfectGame bool
	// ComebackWin is set when the winner still held a large hand when winning.
	ComebackWin bool
}

// Rules holds the policy constants of a session.
type Rules struct {
	// HandSize is the replenish target and the initial deal per participant.
	HandSize int
	// LargeHandThreshold drives the PerfectGame and ComebackWin flags.
	LargeHandThreshold int
}

// DefaultRules returns the classic two-player settings.
func DefaultRules() Rules {
	return Rules{
		HandSize:           6,
		LargeHandThreshold: 10,
	}
}
