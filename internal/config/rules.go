package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"durak/internal/domain"
	"durak/internal/stats"
)

// Rules is the tunable rule set loaded from the rules file.
type Rules struct {
	Game         GameRules        `toml:"game"`
	Session      SessionRules     `toml:"session"`
	Leaderboard  LeaderboardRules `toml:"leaderboard"`
	Achievements AchievementRules `toml:"achievements"`
}

type GameRules struct {
	HandSize           int `toml:"hand_size"`            // cards dealt and replenished to
	LargeHandThreshold int `toml:"large_hand_threshold"` // hand size for perfect/comeback flags
}

type SessionRules struct {
	GraceDelay         string `toml:"grace_delay"`          // e.g. "5s"
	AllowDuplicateJoin bool   `toml:"allow_duplicate_join"` // repeat joins refresh instead of failing
}

type LeaderboardRules struct {
	Size       int     `toml:"size"`
	MinGames   int     `toml:"min_games"`
	TieEpsilon float64 `toml:"tie_epsilon"`
}

type AchievementRules struct {
	VeteranGames  int     `toml:"veteran_games"`
	MasterGames   int     `toml:"master_games"`
	MasterWinRate float64 `toml:"master_win_rate"`
}

// DefaultRules returns the standard rule set.
func DefaultRules() *Rules {
	d := domain.DefaultRules()
	p := stats.DefaultPolicy()
	return &Rules{
		Game: GameRules{
			HandSize:           d.HandSize,
			LargeHandThreshold: d.LargeHandThreshold,
		},
		Session: SessionRules{
			GraceDelay: "5s",
		},
		Leaderboard: LeaderboardRules{
			Size:       p.LeaderboardSize,
			MinGames:   p.LeaderboardMinGames,
			TieEpsilon: p.TieEpsilon,
		},
		Achievements: AchievementRules{
			VeteranGames:  p.VeteranGames,
			MasterGames:   p.MasterGames,
			MasterWinRate: p.MasterWinRate,
		},
	}
}

// LoadRules reads the rules file at path over the defaults. A missing file
// yields the defaults.
func LoadRules(path string) (*Rules, error) {
	rules := DefaultRules()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return rules, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	if err := toml.Unmarshal(data, rules); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

// Validate checks that the rules can deal a game and rank players.
func (r *Rules) Validate() error {
	if r.Game.HandSize <= 0 || r.Game.HandSize*domain.PlayersPerSession >= domain.DeckSize {
		return fmt.Errorf("hand_size %d does not fit a %d card deck", r.Game.HandSize, domain.DeckSize)
	}
	if r.Game.LargeHandThreshold <= 0 {
		return fmt.Errorf("large_hand_threshold must be positive, got %d", r.Game.LargeHandThreshold)
	}
	if _, err := r.Grace(); err != nil {
		return err
	}
	if r.Leaderboard.Size <= 0 || r.Leaderboard.MinGames <= 0 {
		return fmt.Errorf("leaderboard size %d / min_games %d are invalid", r.Leaderboard.Size, r.Leaderboard.MinGames)
	}
	if r.Achievements.MasterWinRate < 0 || r.Achievements.MasterWinRate > 100 {
		return fmt.Errorf("master_win_rate %v is not a percentage", r.Achievements.MasterWinRate)
	}
	return nil
}

// Grace parses the session grace delay. Zero is rejected because the world
// treats an unset delay as the default.
func (r *Rules) Grace() (time.Duration, error) {
	d, err := time.ParseDuration(r.Session.GraceDelay)
	if err != nil {
		return 0, fmt.Errorf("parse grace_delay: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("grace_delay must be positive, got %s", d)
	}
	return d, nil
}

// Domain returns the session rules.
func (r *Rules) Domain() domain.Rules {
	return domain.Rules{
		HandSize:           r.Game.HandSize,
		LargeHandThreshold: r.Game.LargeHandThreshold,
	}
}

// Policy returns the ledger thresholds.
func (r *Rules) Policy() stats.Policy {
	return stats.Policy{
		LeaderboardMinGames: r.Leaderboard.MinGames,
		LeaderboardSize:     r.Leaderboard.Size,
		TieEpsilon:          r.Leaderboard.TieEpsilon,
		VeteranGames:        r.Achievements.VeteranGames,
		MasterGames:         r.Achievements.MasterGames,
		MasterWinRate:       r.Achievements.MasterWinRate,
	}
}
