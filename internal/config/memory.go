package config

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/greybot/pkg/log"
)

type MemoryConfig struct {
	// UpdateTime is the HH:MM minute, in Timezone, when memory is rebuilt.
	UpdateTime string `env:"GREY_MEMORY_UPDATE_TIME" envDefault:"03:11"`
	Timezone   string `env:"GREY_MEMORY_TIMEZONE" envDefault:"Asia/Kolkata"`

	MaxPosts      int           `env:"GREY_MEMORY_MAX_POSTS" envDefault:"100"`
	MaxThreads    int           `env:"GREY_MEMORY_MAX_THREADS" envDefault:"0"`
	PageDelay     time.Duration `env:"GREY_MEMORY_PAGE_DELAY" envDefault:"1s"`
	ThreadGap     time.Duration `env:"GREY_MEMORY_THREAD_GAP" envDefault:"60s"`
	// Threading is "time", "anchored" or "reply".
	Threading     string        `env:"GREY_MEMORY_THREADING" envDefault:"time"`
	BatchSize     int           `env:"GREY_MEMORY_BATCH_SIZE" envDefault:"50"`
	UpsertRetries int           `env:"GREY_MEMORY_UPSERT_RETRIES" envDefault:"3"`
	RetryDelay    time.Duration `env:"GREY_MEMORY_RETRY_DELAY" envDefault:"2s"`
	MaxFailures   int           `env:"GREY_MEMORY_MAX_FAILURES" envDefault:"5"`

	SimilarityFloor float64 `env:"GREY_SIMILARITY_FLOOR" envDefault:"0.7"`
	TopK            int     `env:"GREY_SIMILARITY_TOP_K" envDefault:"5"`

	UsedPostsCap  int    `env:"GREY_USED_POSTS_CAP" envDefault:"1000"`
	UsedTopicsCap int    `env:"GREY_USED_TOPICS_CAP" envDefault:"100"`
	UsedMemesCap  int    `env:"GREY_USED_MEMES_CAP" envDefault:"1000"`
	UsedPolicy    string `env:"GREY_USED_POLICY" envDefault:"reset"`
}

func ParseMemoryConfig() (*MemoryConfig, error) {
	c := &MemoryConfig{}
	if err := env.Parse(c); err != nil {
		return nil, err
	}
	if _, _, err := c.UpdateClock(); err != nil {
		return nil, err
	}
	if _, err := c.Location(); err != nil {
		return nil, err
	}
	return c, nil
}

func NewMemoryConfig(ctx context.Context) *MemoryConfig {
	c, err := ParseMemoryConfig()
	if err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse memory config")
	}
	return c
}

// UpdateClock splits UpdateTime into hour and minute.
func (c MemoryConfig) UpdateClock() (hour, minute int, err error) {
	t, err := time.Parse("15:04", c.UpdateTime)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid GREY_MEMORY_UPDATE_TIME %q: %w", c.UpdateTime, err)
	}
	return t.Hour(), t.Minute(), nil
}

func (c MemoryConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid GREY_MEMORY_TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}
