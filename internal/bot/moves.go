package bot

import "durak/internal/domain"

// LegalMoves lists every move the viewer may make. Ending the turn on an
// empty table is left out: it only hands the initiative away.
func LegalMoves(v domain.View) []Move {
	if !v.Started || v.Ended || v.YourIndex < 0 {
		return nil
	}

	var moves []Move
	switch v.YourIndex {
	case v.AttackerIndex:
		if !domain.AllDefended(v.Table) {
			return nil
		}
		for _, c := range v.Hand {
			if domain.CanAttackWith(v.Table, c) {
				moves = append(moves, Move{Kind: MoveAttack, Card: c})
			}
		}
		if len(v.Table) > 0 {
			moves = append(moves, Move{Kind: MoveEndTurn})
		}
	case v.DefenderIndex:
		open := openPairs(v.Table)
		if len(open) == 0 {
			return nil
		}
		for _, idx := range open {
			for _, c := range v.Hand {
				if domain.Beats(c, v.Table[idx].Attack, v.TrumpSuit) {
					moves = append(moves, Move{Kind: MoveDefend, Card: c, AttackIndex: idx})
				}
			}
		}
		moves = append(moves, Move{Kind: MoveEndTurn})
	}
	return moves
}

func openPairs(table []domain.TablePair) []int {
	var out []int
	for i, p := range table {
		if p.Open() {
			out = append(out, i)
		}
	}
	return out
}

// cost orders cards by how much a bot minds giving them up; trumps are dearest.
func cost(c domain.Card, trump domain.Suit) int {
	if c.Suit == trump {
		return c.Value + 100
	}
	return c.Value
}
