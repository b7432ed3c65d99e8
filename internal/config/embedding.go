package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/greybot/pkg/log"
)

type EmbeddingConfig struct {
	BaseURL   string `env:"GREY_EMBEDDING_BASE_URL" envDefault:"https://api.openai.com"`
	APIKey    string `env:"OPENAI_API_KEY,required,notEmpty" mask:"true"`
	Model     string `env:"GREY_EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	Dims      int    `env:"GREY_EMBEDDING_DIMS" envDefault:"1536"`
	MaxTokens int    `env:"GREY_EMBEDDING_MAX_TOKENS" envDefault:"8191"`
}

func NewEmbeddingConfig(ctx context.Context) *EmbeddingConfig {
	c := &EmbeddingConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse embedding config")
	}
	return c
}
