package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/greybot/pkg/log"
)

type LLMConfig struct {
	// Provider is one of "openai", "openrouter" or "custom".
	Provider         string `env:"GREY_LLM_PROVIDER" envDefault:"openai"`
	Model            string `env:"GREY_LLM_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIAPIKey     string `env:"OPENAI_API_KEY" mask:"true"`
	OpenRouterAPIKey string `env:"OPENROUTER_API_KEY" mask:"true"`
	CustomBaseURL    string `env:"GREY_LLM_BASE_URL"`
	CustomAPIKey     string `env:"GREY_LLM_API_KEY" mask:"true"`
}

func NewLLMConfig(ctx context.Context) *LLMConfig {
	c := &LLMConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse LLM config")
	}
	return c
}
