package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Env is the runtime configuration read from the Nakama runtime env map.
type Env struct {
	RulesPath         string `env:"durak_rules_path" envDefault:"data/durak.toml"`
	BotIdentitiesPath string `env:"durak_bot_identities_path" envDefault:"data/bot_identities.json"`

	BotsEnabled         bool `env:"durak_bots_enabled" envDefault:"false"`
	BotMinDelaySec      int  `env:"durak_bot_min_delay_sec" envDefault:"1"`
	BotMaxDelaySec      int  `env:"durak_bot_max_delay_sec" envDefault:"3"`
	BotAutoFillDelaySec int  `env:"durak_bot_auto_fill_delay_sec" envDefault:"5"`

	// Inbound match messages per presence.
	ActionsPerSecond float64 `env:"durak_actions_per_second" envDefault:"5"`
	ActionBurst      int     `env:"durak_action_burst" envDefault:"10"`

	VivoxSecret string `env:"vivox_secret"`
	VivoxIssuer string `env:"vivox_issuer"`
	VivoxDomain string `env:"vivox_domain"`

	OTLPEndpoint string `env:"durak_otlp_endpoint"`
	ServiceName  string `env:"durak_service_name" envDefault:"durak"`
}

// ParseEnv loads Env from vars instead of the process environment.
func ParseEnv(vars map[string]string) (Env, error) {
	var e Env
	if err := env.ParseWithOptions(&e, env.Options{Environment: vars}); err != nil {
		return Env{}, fmt.Errorf("parse env: %w", err)
	}
	if e.BotMinDelaySec < 0 || e.BotMaxDelaySec < e.BotMinDelaySec {
		return Env{}, fmt.Errorf("bot delay range [%d, %d] is invalid", e.BotMinDelaySec, e.BotMaxDelaySec)
	}
	if e.ActionsPerSecond <= 0 || e.ActionBurst <= 0 {
		return Env{}, fmt.Errorf("action rate %v/%d must be positive", e.ActionsPerSecond, e.ActionBurst)
	}
	return e, nil
}
