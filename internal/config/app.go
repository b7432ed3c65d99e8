package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/greybot/pkg/log"
)

type AppConfig struct {
	RuntimePath string

	CheckInterval    time.Duration `env:"GREY_CHECK_INTERVAL" envDefault:"60s"`
	ThreadInterval   time.Duration `env:"GREY_THREAD_INTERVAL" envDefault:"45m"`
	MemeInterval     time.Duration `env:"GREY_MEME_INTERVAL" envDefault:"40m"`
	RateLimitBackoff time.Duration `env:"GREY_RATE_LIMIT_BACKOFF" envDefault:"5m"`
	HTTPTimeout      time.Duration `env:"GREY_HTTP_TIMEOUT" envDefault:"30s"`

	EnableReplies bool `env:"GREY_ENABLE_REPLIES" envDefault:"true"`
	EnableThreads bool `env:"GREY_ENABLE_THREADS" envDefault:"false"`
	EnableMemes   bool `env:"GREY_ENABLE_MEMES" envDefault:"false"`

	Keywords     []string `env:"GREY_KEYWORDS" envDefault:"artificial intelligence,machine learning,deep learning,AI ethics,open-source AI"`
	MemeKeywords []string `env:"GREY_MEME_KEYWORDS" envDefault:"AI meme,programming meme"`

	// AlertChannel selects where operator alerts go: "log" or "telegram".
	AlertChannel string `env:"GREY_ALERT_CHANNEL" envDefault:"log"`
}

func ParseAppConfig() (*AppConfig, error) {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		return nil, err
	}
	c.RuntimePath = GetRuntimePath()
	return c, nil
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c, err := ParseAppConfig()
	if err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetDatabasePath() string {
	return filepath.Join(c.RuntimePath, "memory.db")
}

func (c AppConfig) GetUsedContentPath() string {
	return filepath.Join(c.RuntimePath, "used_content.json")
}

func (c AppConfig) GetUsedMemesPath() string {
	return filepath.Join(c.RuntimePath, "used_memes.json")
}

func (c AppConfig) IsTelegramSelected() bool {
	return c.AlertChannel == "telegram"
}
