package main

import (
	"os"

	"speckit-flow/internal/config"
	"speckit-flow/internal/paths"
)

// loadConfigOrDefault falls back to compiled-in defaults only when
// speckit-flow.yaml is absent, so subcommands that don't strictly
// require configuration (dag, run with an explicit --sessions) stay
// operational per spec.md §7. A file that exists but fails to parse or
// validate is fatal: it's returned as-is (a *errorsx.ConfigError) so
// the command that requires configuration reports it rather than
// silently running on defaults.
func loadConfigOrDefault(ctx *paths.FeatureCtx) (*config.Config, error) {
	if _, err := os.Stat(ctx.ConfigPath()); os.IsNotExist(err) {
		return &config.Config{AgentType: config.DefaultAgentType, NumSessions: config.DefaultNumSessions}, nil
	}
	return config.Load(ctx.ConfigPath())
}
