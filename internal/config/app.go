package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/beesandtrees/ocean-breeze-chat/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"BREEZE_RUNTIME_PATH" envDefault:".breeze"`

	// Generation capability
	LLMProvider     string        `env:"LLM_PROVIDER" envDefault:"anthropic"`
	AnthropicAPIKey string        `env:"ANTHROPIC_API_KEY"`
	AnthropicModel  string        `env:"ANTHROPIC_MODEL" envDefault:"claude-3-haiku-20240307"`
	ExtractTimeout  time.Duration `env:"EXTRACT_TIMEOUT" envDefault:"15s"`

	// Metadata extraction strategy: "heuristic" or "model". The model
	// strategy always falls back to the heuristic one on failure.
	ExtractorStrategy string `env:"EXTRACTOR_STRATEGY" envDefault:"heuristic"`

	// Chat persona and its base system prompt. The memory context is
	// appended to the base prompt on every turn.
	Persona      string `env:"BREEZE_PERSONA" envDefault:"default"`
	SystemPrompt string `env:"BREEZE_SYSTEM_PROMPT" envDefault:"You are a thoughtful conversational companion with a good memory."`

	// Memory tiers
	ImmediateTierSize int `env:"MEMORY_TIER_IMMEDIATE" envDefault:"2"`
	RecentTierSize    int `env:"MEMORY_TIER_RECENT" envDefault:"5"`
	LongTermTierSize  int `env:"MEMORY_TIER_LONG_TERM" envDefault:"10"`

	// Conversations longer than this many messages migrate to the
	// long-term tracking set at save time.
	MigrationThreshold int `env:"MIGRATION_MESSAGE_THRESHOLD" envDefault:"10"`

	// Long-term entries older than this are evicted permanently.
	MaxAgeDays int `env:"MEMORY_MAX_AGE_DAYS" envDefault:"30"`

	JanitorInterval time.Duration `env:"JANITOR_INTERVAL" envDefault:"30m"`

	// Optional override for the instructional suffix appended to the
	// assembled system context.
	MemoryInstructions string `env:"MEMORY_INSTRUCTIONS"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse app config")
	}
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "breeze.db")
}
