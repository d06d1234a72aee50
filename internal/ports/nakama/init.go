package nakama

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"durak/internal/app"
	"durak/internal/app/onboarding"
	"durak/internal/bot"
	"durak/internal/config"
	"durak/internal/stats"
	"durak/internal/telemetry"

	"github.com/heroiclabs/nakama-common/runtime"
	"go.opentelemetry.io/otel/trace"
)

// Module holds the dependencies shared by every hall, RPC and hook of the
// runtime module.
type Module struct {
	Env            config.Env
	Rules          *config.Rules
	Ledger         *stats.Ledger
	Roster         *bot.Roster
	Vivox          *app.VivoxService
	Onboarding     *onboarding.Service
	TracerProvider trace.TracerProvider // nil means the global provider

	Now  func() time.Time
	Seed func() int64
}

func (m *Module) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

func (m *Module) seed() int64 {
	if m.Seed == nil {
		return time.Now().UnixNano()
	}
	return m.Seed()
}

// NewModule loads configuration from the runtime env map and builds the
// shared ledger, bot roster and voice token service.
func NewModule(vars map[string]string, logger runtime.Logger) (*Module, error) {
	env, err := config.ParseEnv(vars)
	if err != nil {
		return nil, err
	}
	rules, err := config.LoadRules(env.RulesPath)
	if err != nil {
		return nil, err
	}

	mod := &Module{
		Env:    env,
		Rules:  rules,
		Ledger: stats.NewLedger(rules.Policy()),
		Vivox:  app.NewVivoxService(env.VivoxSecret, env.VivoxIssuer, env.VivoxDomain),
	}

	if env.BotsEnabled {
		roster, err := bot.LoadRoster(env.BotIdentitiesPath)
		if err != nil {
			logger.Warn("InitModule: Could not load bot identities: %v", err)
		} else {
			mod.Roster = roster
		}
	}
	if !mod.Vivox.Enabled() {
		logger.Warn("InitModule: Vivox credentials missing from env, voice tokens disabled.")
	}
	return mod, nil
}

// InitModule wires RPCs, hooks and the hall match handler for Nakama runtime.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	vars, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)

	mod, err := NewModule(vars, logger)
	if err != nil {
		logger.Error("InitModule: Invalid configuration: %v", err)
		return err
	}

	if _, err := telemetry.Setup(ctx, mod.Env.OTLPEndpoint, mod.Env.ServiceName); err != nil {
		logger.Warn("InitModule: Tracing disabled: %v", err)
	}

	if mod.Roster != nil {
		mod.Roster.Provision(ctx, nk, logger)
	}
	mod.Onboarding = onboarding.NewService(NewNakamaAccountAdapter(nk), mod.Ledger, nil)

	if err := mod.RegisterRPCs(initializer); err != nil {
		return err
	}

	if err := initializer.RegisterMatch(MatchNameDurak, func(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
		return newMatchHandler(mod), nil
	}); err != nil {
		return fmt.Errorf("register match: %w", err)
	}

	if err := initializer.RegisterAfterAuthenticateDevice(mod.AfterAuthenticateDevice); err != nil {
		return fmt.Errorf("register auth hook: %w", err)
	}

	logger.Info("Durak Go module loaded.")
	return nil
}
