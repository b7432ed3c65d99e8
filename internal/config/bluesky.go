package config

import (
	"context"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/greybot/pkg/log"
)

type BlueskyConfig struct {
	Host        string        `env:"GREY_BSKY_HOST" envDefault:"https://bsky.social"`
	Handle      string        `env:"GREY_BSKY_HANDLE,required,notEmpty"`
	AppPassword string        `env:"GREY_BSKY_APP_PASSWORD,required,notEmpty" mask:"true"`
	SessionTTL  time.Duration `env:"GREY_BSKY_SESSION_TTL" envDefault:"1h"`
}

func NewBlueskyConfig(ctx context.Context) *BlueskyConfig {
	c := &BlueskyConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Bluesky config")
	}
	return c
}
