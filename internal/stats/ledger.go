// Package stats keeps per-player game records, unlocks achievements and
// ranks players on a leaderboard.
package stats

import (
	"errors"
	"math"
	"sort"
	"strings"
	"sync"
)

// ErrEmptyName is returned when a result is recorded for a blank player name.
var ErrEmptyName = errors.New("player name is empty")

// Policy holds the tunable thresholds of the ledger.
type Policy struct {
	LeaderboardMinGames int
	LeaderboardSize     int
	TieEpsilon          float64
	VeteranGames        int
	MasterGames         int
	MasterWinRate       float64
}

// DefaultPolicy returns the standard thresholds.
func DefaultPolicy() Policy {
	return Policy{
		LeaderboardMinGames: 5,
		LeaderboardSize:     10,
		TieEpsilon:          0.1,
		VeteranGames:        50,
		MasterGames:         20,
		MasterWinRate:       80,
	}
}

// Record is the aggregate history of one player name.
type Record struct {
	Name           string
	GamesPlayed    int
	Wins           int
	Losses         int
	CurrentStreak  int
	BestStreak     int
	LastGameWon    bool
	WinRatePercent float64
}

// Entry is one ranked leaderboard line.
type Entry struct {
	Rank         int
	Record       Record
	Achievements []Achievement
}

type account struct {
	record       Record
	achievements []Achievement
}

// Ledger is the process-wide store of records. It is safe for concurrent use.
type Ledger struct {
	mu       sync.RWMutex
	policy   Policy
	accounts map[string]*account
	board    []Entry
}

// NewLedger creates an empty ledger. Zero policy fields fall back to defaults.
func NewLedger(p Policy) *Ledger {
	def := DefaultPolicy()
	if p.LeaderboardMinGames <= 0 {
		p.LeaderboardMinGames = def.LeaderboardMinGames
	}
	if p.LeaderboardSize <= 0 {
		p.LeaderboardSize = def.LeaderboardSize
	}
	if p.TieEpsilon <= 0 {
		p.TieEpsilon = def.TieEpsilon
	}
	if p.VeteranGames <= 0 {
		p.VeteranGames = def.VeteranGames
	}
	if p.MasterGames <= 0 {
		p.MasterGames = def.MasterGames
	}
	if p.MasterWinRate <= 0 {
		p.MasterWinRate = def.MasterWinRate
	}
	return &Ledger{policy: p, accounts: make(map[string]*account)}
}

// Policy returns the thresholds in use.
func (l *Ledger) Policy() Policy {
	return l.policy
}

// RecordResult applies one finished game to name and returns the achievements
// unlocked by it, in catalog order.
func (l *Ledger) RecordResult(name string, won bool, flags GameFlags) ([]Achievement, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[name]
	if !ok {
		acc = &account{record: Record{Name: name}}
		l.accounts[name] = acc
	}

	r := &acc.record
	r.GamesPlayed++
	if won {
		r.Wins++
		r.CurrentStreak++
		if r.CurrentStreak > r.BestStreak {
			r.BestStreak = r.CurrentStreak
		}
	} else {
		r.Losses++
		r.CurrentStreak = 0
	}
	r.LastGameWon = won
	r.WinRatePercent = winRate(r.Wins, r.GamesPlayed)

	fresh := evaluate(l.policy, *r, won, flags, acc.achievements)
	acc.achievements = append(acc.achievements, fresh...)
	l.rebuildBoard()
	return append([]Achievement{}, fresh...), nil
}

// Stats returns the record of name, creating an empty one on first query.
func (l *Ledger) Stats(name string) (Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Record{}, ErrEmptyName
	}

	l.mu.RLock()
	acc, ok := l.accounts[name]
	l.mu.RUnlock()
	if ok {
		return l.read(acc), nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if acc, ok = l.accounts[name]; !ok {
		acc = &account{record: Record{Name: name}}
		l.accounts[name] = acc
	}
	return acc.record, nil
}

func (l *Ledger) read(acc *account) Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return acc.record
}

// Achievements returns the unlocked achievements of name in unlock order.
func (l *Ledger) Achievements(name string) []Achievement {
	l.mu.RLock()
	defer l.mu.RUnlock()
	acc, ok := l.accounts[strings.TrimSpace(name)]
	if !ok {
		return []Achievement{}
	}
	return append([]Achievement{}, acc.achievements...)
}

// Leaderboard returns the current ranking truncated to limit. limit <= 0 or
// above the policy size returns the whole board.
func (l *Ledger) Leaderboard(limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if limit <= 0 || limit > len(l.board) {
		limit = len(l.board)
	}
	out := make([]Entry, 0, limit)
	for _, e := range l.board[:limit] {
		e.Achievements = append([]Achievement{}, e.Achievements...)
		out = append(out, e)
	}
	return out
}

// rebuildBoard ranks players with at least LeaderboardMinGames games by win
// rate, then games played. Win rates closer than TieEpsilon count as equal.
// Callers hold the write lock.
func (l *Ledger) rebuildBoard() {
	eligible := make([]*account, 0, len(l.accounts))
	for _, acc := range l.accounts {
		if acc.record.GamesPlayed >= l.policy.LeaderboardMinGames {
			eligible = append(eligible, acc)
		}
	}
	sort.Slice(eligible, func(i, j int) bool {
		return eligible[i].record.Name < eligible[j].record.Name
	})
	eps := l.policy.TieEpsilon
	sort.SliceStable(eligible, func(i, j int) bool {
		a, b := eligible[i].record, eligible[j].record
		if math.Abs(a.WinRatePercent-b.WinRatePercent) >= eps {
			return a.WinRatePercent > b.WinRatePercent
		}
		return a.GamesPlayed > b.GamesPlayed
	})
	if len(eligible) > l.policy.LeaderboardSize {
		eligible = eligible[:l.policy.LeaderboardSize]
	}
	board := make([]Entry, 0, len(eligible))
	for i, acc := range eligible {
		board = append(board, Entry{
			Rank:         i + 1,
			Record:       acc.record,
			Achievements: append([]Achievement{}, acc.achievements...),
		})
	}
	l.board = board
}

func winRate(wins, games int) float64 {
	if games == 0 {
		return 0
	}
	return math.Round(float64(wins)*1000/float64(games)) / 10
}
