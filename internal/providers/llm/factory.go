package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/sandevgo/greybot/internal/config"
	"github.com/sandevgo/greybot/internal/core"
	"github.com/sandevgo/greybot/pkg/log"
)

// NewProvider creates the appropriate AIProvider based on configuration.
func NewProvider(ctx context.Context, cfg *config.LLMConfig, timeout time.Duration) (core.AIProvider, error) {
	log.FromCtx(ctx).Info().
		Str("provider", cfg.Provider).
		Str("model", cfg.Model).
		Msg("starting llm provider")

	switch cfg.Provider {
	case "openai":
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.Model, timeout), nil
	case "openrouter":
		return NewOpenRouter(cfg.OpenRouterAPIKey, cfg.Model, timeout), nil
	case "custom":
		if cfg.CustomBaseURL == "" {
			return nil, fmt.Errorf("custom llm provider needs GREY_LLM_BASE_URL")
		}
		return NewCustomOpenAI(cfg.CustomBaseURL, cfg.CustomAPIKey, cfg.Model, timeout), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}
