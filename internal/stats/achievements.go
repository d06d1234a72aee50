package stats

// Achievement is an entry of the fixed achievement catalog.
type Achievement struct {
	ID          string
	Name        string
	Description string
	Icon        string
}

const (
	AchievementFirstWin      = "first_win"
	AchievementStreak3       = "streak_3"
	AchievementStreak5       = "streak_5"
	AchievementVeteran       = "veteran"
	AchievementMaster        = "master"
	AchievementPerfectionist = "perfectionist"
	AchievementComeback      = "comeback"
)

// GameFlags are the per-game signals computed by the session at termination.
type GameFlags struct {
	PerfectGame bool
	ComebackWin bool
}

// rule decides whether an achievement unlocks for an updated record.
type rule struct {
	achievement Achievement
	unlocked    func(p Policy, r Record, won bool, flags GameFlags) bool
}

// catalog is evaluated in this order; the order is part of the result.
var catalog = []rule{
	{
		achievement: Achievement{ID: AchievementFirstWin, Name: "First Win", Description: "Win your first game", Icon: "🏆"},
		unlocked: func(_ Policy, r Record, won bool, _ GameFlags) bool {
			return won && r.Wins == 1
		},
	},
	{
		achievement: Achievement{ID: AchievementStreak3, Name: "Hat Trick", Description: "Win 3 games in a row", Icon: "🔥"},
		unlocked: func(_ Policy, r Record, _ bool, _ GameFlags) bool {
			return r.CurrentStreak >= 3
		},
	},
	{
		achievement: Achievement{ID: AchievementStreak5, Name: "Unstoppable", Description: "Win 5 games in a row", Icon: "⚡"},
		unlocked: func(_ Policy, r Record, _ bool, _ GameFlags) bool {
			return r.CurrentStreak >= 5
		},
	},
	{
		achievement: Achievement{ID: AchievementVeteran, Name: "Veteran", Description: "Play 50 games", Icon: "🎖️"},
		unlocked: func(p Policy, r Record, _ bool, _ GameFlags) bool {
			return r.GamesPlayed >= p.VeteranGames
		},
	},
	{
		achievement: Achievement{ID: AchievementMaster, Name: "Master", Description: "Reach an 80% win rate over at least 20 games", Icon: "👑"},
		unlocked: func(p Policy, r Record, _ bool, _ GameFlags) bool {
			return r.GamesPlayed >= p.MasterGames && r.WinRatePercent >= p.MasterWinRate
		},
	},
	{
		achievement: Achievement{ID: AchievementPerfectionist, Name: "Perfectionist", Description: "Win while the loser is left with a huge hand", Icon: "💎"},
		unlocked: func(_ Policy, _ Record, won bool, f GameFlags) bool {
			return won && f.PerfectGame
		},
	},
	{
		achievement: Achievement{ID: AchievementComeback, Name: "Comeback King", Description: "Win while holding 10 or more cards", Icon: "🔄"},
		unlocked: func(_ Policy, _ Record, won bool, f GameFlags) bool {
			return won && f.ComebackWin
		},
	},
}

// Catalog returns every achievement in evaluation order.
func Catalog() []Achievement {
	out := make([]Achievement, 0, len(catalog))
	for _, r := range catalog {
		out = append(out, r.achievement)
	}
	return out
}

// evaluate returns the achievements of the catalog that the record now
// qualifies for and that are not in have.
func evaluate(p Policy, r Record, won bool, flags GameFlags, have []Achievement) []Achievement {
	held := make(map[string]bool, len(have))
	for _, a := range have {
		held[a.ID] = true
	}
	var fresh []Achievement
	for _, rl := range catalog {
		if held[rl.achievement.ID] {
			continue
		}
		if rl.unlocked(p, r, won, flags) {
			fresh = append(fresh, rl.achievement)
		}
	}
	return fresh
}
