// Command durak-sim plays bot-vs-bot Durak games and prints the resulting
// leaderboard.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/pterm/pterm"

	"durak/internal/bot"
	"durak/internal/config"
	"durak/internal/sim"
	"durak/internal/stats"
)

func main() {
	var (
		games      int
		seed       int64
		workers    int
		rulesPath  string
		rosterPath string
	)
	flag.IntVar(&games, "games", 100, "number of games to play")
	flag.Int64Var(&seed, "seed", 0, "random seed for reproducibility (0 = random)")
	flag.IntVar(&workers, "workers", runtime.NumCPU(), "games played in parallel")
	flag.StringVar(&rulesPath, "rules", "data/durak.toml", "rules file")
	flag.StringVar(&rosterPath, "bots", "data/bot_identities.json", "bot identities file")
	flag.Parse()

	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rules, err := config.LoadRules(rulesPath)
	if err != nil {
		pterm.Error.Printfln("Failed to load rules: %v", err)
		os.Exit(1)
	}
	roster, err := bot.LoadRoster(rosterPath)
	if err != nil {
		pterm.Error.Printfln("Failed to load bots: %v", err)
		os.Exit(1)
	}

	pterm.Info.Printfln("Playing %d games with %d bots on %d workers (seed %d)", games, roster.Len(), workers, seed)
	spinner, _ := pterm.DefaultSpinner.Start("Simulating ...")

	ledger := stats.NewLedger(rules.Policy())
	report, err := sim.Run(ctx, sim.Config{
		Games:   games,
		Workers: workers,
		Seed:    seed,
		Rules:   rules.Domain(),
		Roster:  roster,
	}, ledger)
	if err != nil {
		spinner.Fail(err.Error())
		os.Exit(1)
	}
	spinner.Success("Done in " + report.Elapsed.Round(time.Millisecond).String())

	printSummary(report)
	printLeaderboard(ledger)
}

func printSummary(report sim.Report) {
	moves := 0
	for _, g := range report.Games {
		moves += g.Moves
	}
	avg := 0.0
	if len(report.Games) > 0 {
		avg = float64(moves) / float64(len(report.Games))
	}
	body := pterm.Sprintfln("Games: %d", len(report.Games)) +
		pterm.Sprintfln("Draws: %d", report.Draws) +
		pterm.Sprintf("Average moves: %.1f", avg)
	pterm.DefaultBox.WithTitle(pterm.LightYellow("|SUMMARY|")).WithTitleTopCenter().WithHorizontalPadding(4).Println(body)
}

func printLeaderboard(ledger *stats.Ledger) {
	entries := ledger.Leaderboard(0)
	if len(entries) == 0 {
		pterm.Warning.Println("Nobody has played enough games for the leaderboard.")
		return
	}

	data := pterm.TableData{{"Rank", "Name", "Games", "Wins", "Win %", "Best streak", "Achievements"}}
	for _, e := range entries {
		icons := make([]string, 0, len(e.Achievements))
		for _, a := range e.Achievements {
			icons = append(icons, a.Icon)
		}
		data = append(data, []string{
			strconv.Itoa(e.Rank),
			e.Record.Name,
			strconv.Itoa(e.Record.GamesPlayed),
			strconv.Itoa(e.Record.Wins),
			strconv.FormatFloat(e.Record.WinRatePercent, 'f', 1, 64),
			strconv.Itoa(e.Record.BestStreak),
			strings.Join(icons, " "),
		})
	}
	if err := pterm.DefaultTable.WithHasHeader().WithData(data).Render(); err != nil {
		pterm.Error.Printfln("Failed to render leaderboard: %v", err)
	}
}
