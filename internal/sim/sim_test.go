package sim

import (
	"context"
	"errors"
	"testing"

	"durak/internal/bot"
	"durak/internal/domain"
	"durak/internal/stats"
)

func testRoster() *bot.Roster {
	return bot.NewRoster([]bot.Identity{
		{DisplayName: "Ivan", Difficulty: "good"},
		{DisplayName: "Olga", Difficulty: "easy"},
		{DisplayName: "Pavel", Difficulty: "good"},
	})
}

func TestRunRecordsEveryGame(t *testing.T) {
	ledger := stats.NewLedger(stats.DefaultPolicy())
	report, err := Run(context.Background(), Config{
		Games:   12,
		Workers: 4,
		Seed:    3,
		Rules:   domain.DefaultRules(),
		Roster:  testRoster(),
	}, ledger)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Games) != 12 {
		t.Fatalf("games = %d, want 12", len(report.Games))
	}

	played := 0
	for _, name := range []string{"Ivan", "Olga", "Pavel"} {
		r, err := ledger.Stats(name)
		if err != nil {
			t.Fatalf("Stats(%s): %v", name, err)
		}
		played += r.GamesPlayed
	}
	decided := len(report.Games) - report.Draws
	if played != 2*decided {
		t.Errorf("ledger games = %d, want %d", played, 2*decided)
	}

	wins := 0
	for _, n := range Tally(report.Games) {
		wins += n
	}
	if wins != decided {
		t.Errorf("tallied wins = %d, want %d", wins, decided)
	}
	for _, g := range report.Games {
		if g.Players[0] == g.Players[1] {
			t.Errorf("game %d pairs %s with itself", g.Index, g.Players[0])
		}
		if g.Moves == 0 {
			t.Errorf("game %d has no moves", g.Index)
		}
	}
}

func TestRunIsDeterministicPerGame(t *testing.T) {
	cfg := Config{Games: 5, Workers: 3, Seed: 11, Rules: domain.DefaultRules(), Roster: testRoster()}

	a, err := Run(context.Background(), cfg, stats.NewLedger(stats.DefaultPolicy()))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	b, err := Run(context.Background(), cfg, stats.NewLedger(stats.DefaultPolicy()))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i := range a.Games {
		ga, gb := a.Games[i], b.Games[i]
		if ga.Players != gb.Players || ga.Winner != gb.Winner || ga.Moves != gb.Moves {
			t.Errorf("game %d differs: %+v vs %+v", i, ga, gb)
		}
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	ledger := stats.NewLedger(stats.DefaultPolicy())
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{name: "NoGames", cfg: Config{Roster: testRoster()}, want: ErrNoGames},
		{name: "NoRoster", cfg: Config{Games: 1}, want: ErrSmallRoster},
		{name: "OneBot", cfg: Config{Games: 1, Roster: bot.NewRoster([]bot.Identity{{DisplayName: "Solo"}})}, want: ErrSmallRoster},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := Run(context.Background(), test.cfg, ledger); !errors.Is(err, test.want) {
				t.Errorf("err = %v, want %v", err, test.want)
			}
		})
	}
}
