package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/sandevgo/greybot/internal/config"
	"github.com/sandevgo/greybot/internal/core"
	"github.com/sandevgo/greybot/internal/providers/bluesky"
	"github.com/sandevgo/greybot/internal/providers/llm"
	"github.com/sandevgo/greybot/internal/providers/rag"
	"github.com/sandevgo/greybot/internal/service/bot"
	"github.com/sandevgo/greybot/internal/service/gate"
	"github.com/sandevgo/greybot/internal/service/history"
	"github.com/sandevgo/greybot/internal/service/memory"
	"github.com/sandevgo/greybot/internal/service/used"
	"github.com/sandevgo/greybot/internal/storage/sqlite"
	"github.com/sandevgo/greybot/internal/transport/logalert"
	"github.com/sandevgo/greybot/internal/transport/telegram"
	"github.com/sandevgo/greybot/pkg/log"
	"github.com/sandevgo/greybot/pkg/srv"
)

const (
	replyPause = 2 * time.Second
	partPause  = 2 * time.Second
)

// components are shared by every command that touches memory.
type components struct {
	app  *config.AppConfig
	bsky *config.BlueskyConfig
	mem  *config.MemoryConfig

	db      *sql.DB
	feed    *bluesky.Client
	store   *memory.Store
	gate    *gate.Controller
	tracker *used.Tracker
	history *history.Fetcher
}

func newComponents(ctx context.Context) (*components, error) {
	if err := initEnv(ctx, config.GetRuntimePath()); err != nil {
		return nil, fmt.Errorf("failed to init env: %w", err)
	}

	c := &components{
		app:  config.NewAppConfig(ctx),
		bsky: config.NewBlueskyConfig(ctx),
		mem:  config.NewMemoryConfig(ctx),
	}
	embCfg := config.NewEmbeddingConfig(ctx)

	db, err := sqlite.NewDB(ctx, c.app.GetDatabasePath())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	c.db = db

	c.feed = bluesky.NewClient(c.bsky, c.app.HTTPTimeout)
	embedder := rag.NewEmbedder(embCfg, c.app.HTTPTimeout)
	c.store = memory.NewStoreFromConfig(sqlite.NewIndex(db), embedder, c.mem)

	if c.gate, err = gate.NewFromConfig(c.mem); err != nil {
		return nil, err
	}
	if c.history, err = history.NewFetcherFromConfig(c.feed, c.mem); err != nil {
		return nil, err
	}
	if c.tracker, err = used.NewTrackerFromConfig(c.app, c.mem); err != nil {
		return nil, err
	}
	if err := c.tracker.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load used content: %w", err)
	}
	return c, nil
}

func (c *components) newUpdater(alerter core.Alerter) *memory.Updater {
	return memory.NewUpdater(c.gate, c.history, c.store, alerter, c.bsky.Handle, c.mem.MaxPosts)
}

func NewServices(ctx context.Context) []srv.Service {
	logger := log.FromCtx(ctx)

	c, err := newComponents(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize")
	}
	services := []srv.Service{srv.NewCleanup(c.db.Close)}

	monitor := bot.NewMonitor(c.gate, c.store, c.tracker, c.bsky.Handle)
	alerter, err := initAlerter(ctx, c.app, monitor)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize alerts")
	}
	if svc, ok := alerter.(srv.Service); ok {
		services = append(services, svc)
	}

	ai, err := llm.NewProvider(ctx, config.NewLLMConfig(ctx), 0)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize LLM provider")
	}

	responder, publisher, memes := initWorkers(c, ai)
	runner := bot.NewRunner(c.gate, c.newUpdater(alerter), responder, publisher, memes, runnerConfig(c.app))
	services = append(services, runner)

	return services
}

func runnerConfig(app *config.AppConfig) bot.RunnerConfig {
	return bot.RunnerConfig{
		CheckInterval:    app.CheckInterval,
		ThreadInterval:   app.ThreadInterval,
		MemeInterval:     app.MemeInterval,
		RateLimitBackoff: app.RateLimitBackoff,
	}
}

// initWorkers leaves disabled workers nil.
func initWorkers(c *components, ai core.AIProvider) (responder, publisher, memes bot.Worker) {
	persona := bot.NewPersona(c.app.GetRuntimePath())
	retry := bot.RetryConfig{Attempts: 3, Delay: 5 * time.Second}

	if c.app.EnableReplies {
		responder = bot.NewResponder(c.feed, ai, c.store, c.gate, persona, bot.ResponderConfig{
			Handle:   c.bsky.Handle,
			TopK:     c.mem.TopK,
			Floor:    c.mem.SimilarityFloor,
			Pause:    replyPause,
			Lookback: c.app.CheckInterval,
			Retry:    retry,
		})
	}
	if c.app.EnableThreads {
		publisher = bot.NewPublisher(c.feed, ai, c.tracker, c.gate, persona, bot.PublisherConfig{
			Keywords:  c.app.Keywords,
			PartPause: partPause,
			Retry:     retry,
		})
	}
	if c.app.EnableMemes {
		memes = bot.NewMemeEngager(c.feed, ai, c.tracker, c.gate, persona, bot.MemeConfig{
			Handle:   c.bsky.Handle,
			Keywords: c.app.MemeKeywords,
			Retry:    retry,
		})
	}
	return responder, publisher, memes
}

func initAlerter(ctx context.Context, cfg *config.AppConfig, monitor *bot.Monitor) (core.Alerter, error) {
	if !cfg.IsTelegramSelected() {
		return logalert.New(), nil
	}
	b, err := telegram.NewBot(ctx, config.NewTelegramConfig(ctx), monitor)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func initEnv(ctx context.Context, runtimePath string) error {
	logger := log.FromCtx(ctx)
	envFile := filepath.Join(runtimePath, ".env")

	if _, err := os.Stat(envFile); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	if err := godotenv.Load(envFile); err != nil {
		logger.Warn().Err(err).Str("path", envFile).Msg("failed to load .env file")
		return err
	}

	logger.Debug().Str("path", envFile).Msg("loaded .env file")
	return nil
}
