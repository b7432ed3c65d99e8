package config

import (
	"context"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/greybot/pkg/log"
)

type TelegramConfig struct {
	Token   string `env:"GREY_TELEGRAM_TOKEN,required,notEmpty" mask:"true"`
	OwnerID int64  `env:"GREY_TELEGRAM_OWNER_ID,required"`
}

func NewTelegramConfig(ctx context.Context) *TelegramConfig {
	c := &TelegramConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse Telegram config")
	}
	return c
}
