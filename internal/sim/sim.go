// Package sim plays bot-vs-bot Durak games through the app layer.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"golang.org/x/sync/errgroup"

	"durak/internal/app"
	"durak/internal/bot"
	"durak/internal/domain"
	"durak/internal/stats"
)

// maxMovesPerGame bounds a single game. Durak with 36 cards ends far sooner.
const maxMovesPerGame = 2000

var (
	ErrNoGames     = errors.New("games must be positive")
	ErrSmallRoster = errors.New("roster needs at least two identities")
	ErrStalled     = errors.New("game did not finish")
)

// Config describes a simulation run.
type Config struct {
	Games   int
	Workers int
	Seed    int64
	Rules   domain.Rules
	Roster  *bot.Roster
}

// GameResult is the outcome of one simulated game.
type GameResult struct {
	Index    int
	Players  [2]string
	Winner   string // empty on a draw
	Draw     bool
	Moves    int
	Unlocked []stats.Achievement
}

// Report summarizes a run.
type Report struct {
	Games   []GameResult
	Draws   int
	Elapsed time.Duration
}

// Run plays cfg.Games games on up to cfg.Workers goroutines and records every
// result in ledger. Game i is dealt from a deck seeded with cfg.Seed+i.
func Run(ctx context.Context, cfg Config, ledger *stats.Ledger) (Report, error) {
	if cfg.Games <= 0 {
		return Report{}, ErrNoGames
	}
	if cfg.Roster == nil || cfg.Roster.Len() < 2 {
		return Report{}, ErrSmallRoster
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}

	start := time.Now()
	results := make([]GameResult, cfg.Games)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := 0; i < cfg.Games; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := playGame(ctx, cfg, ledger, i)
			if err != nil {
				return fmt.Errorf("game %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	report := Report{Games: results, Elapsed: time.Since(start)}
	for _, r := range results {
		if r.Draw {
			report.Draws++
		}
	}
	return report, nil
}

func playGame(ctx context.Context, cfg Config, ledger *stats.Ledger, index int) (GameResult, error) {
	rng := rand.New(rand.NewSource(cfg.Seed + int64(index)))
	world := app.NewWorld(ledger, app.Options{
		Rules: cfg.Rules,
		Rand:  rng,
		NewSessionID: func() string {
			return fmt.Sprintf("sim-%d", index)
		},
	})

	first := rng.Intn(cfg.Roster.Len())
	second := (first + 1 + rng.Intn(cfg.Roster.Len()-1)) % cfg.Roster.Len()

	agents := make([]*bot.Agent, 0, 2)
	for _, idx := range []int{first, second} {
		agent, err := bot.NewAgent(cfg.Roster.Pick(idx), rand.New(rand.NewSource(rng.Int63())))
		if err != nil {
			return GameResult{}, err
		}
		// Participant ids are per game; display names stay the stats keys.
		agent.ID = fmt.Sprintf("%s#%d", agent.ID, index)
		agents = append(agents, agent)
	}

	result := GameResult{Index: index, Players: [2]string{agents[0].Name, agents[1].Name}}

	var events []app.Event
	for _, agent := range agents {
		evs, err := world.Join(ctx, agent.ID, agent.Name)
		if err != nil {
			return GameResult{}, err
		}
		events = append(events, evs...)
	}
	s, ok := world.SessionFor(agents[0].ID)
	if !ok {
		return GameResult{}, errors.New("session did not start")
	}

	for !s.Ended() {
		if result.Moves >= maxMovesPerGame {
			return GameResult{}, ErrStalled
		}
		acted := false
		for _, agent := range agents {
			move := agent.Play(s)
			if move.Kind == bot.MoveWait {
				continue
			}
			evs, err := apply(ctx, world, agent.ID, move)
			if err != nil {
				return GameResult{}, fmt.Errorf("%s %s: %w", agent.Name, move.Kind, err)
			}
			events = append(events, evs...)
			result.Moves++
			acted = true
			break
		}
		if !acted {
			return GameResult{}, ErrStalled
		}
	}

	for _, ev := range events {
		if p, ok := ev.Payload.(app.SessionEndedPayload); ok {
			result.Draw = p.Draw
			result.Winner = p.WinnerName
			result.Unlocked = append(append(result.Unlocked, p.WinnerNewAchievements...), p.LoserNewAchievements...)
			break
		}
	}
	world.Sweep(ctx, time.Now().Add(time.Hour))
	return result, nil
}

func apply(ctx context.Context, world *app.World, id string, move bot.Move) ([]app.Event, error) {
	switch move.Kind {
	case bot.MoveAttack:
		return world.Attack(ctx, id, move.Card)
	case bot.MoveDefend:
		return world.Defend(ctx, id, move.AttackIndex, move.Card)
	case bot.MoveEndTurn:
		return world.EndTurn(ctx, id)
	default:
		return nil, nil
	}
}

// Tally counts wins per display name.
func Tally(games []GameResult) map[string]int {
	wins := make(map[string]int)
	for _, g := range games {
		if !g.Draw {
			wins[g.Winner]++
		}
	}
	return wins
}
