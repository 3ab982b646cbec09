package llm

import (
	"context"
	"fmt"

	"github.com/beesandtrees/ocean-breeze-chat/internal/config"
	"github.com/beesandtrees/ocean-breeze-chat/internal/core"
	"github.com/beesandtrees/ocean-breeze-chat/pkg/log"
)

// NewProvider creates the appropriate AIProvider based on configuration.
// "none" yields no provider; callers then run heuristics only.
func NewProvider(ctx context.Context, cfg *config.AppConfig) (core.AIProvider, error) {
	log.FromCtx(ctx).Info().
		Str("provider", cfg.LLMProvider).
		Str("model", cfg.AnthropicModel).
		Msg("starting llm provider")

	switch cfg.LLMProvider {
	case "anthropic":
		return NewAnthropic(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.LLMProvider)
	}
}
