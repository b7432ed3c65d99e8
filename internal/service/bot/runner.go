package bot

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sandevgo/greybot/internal/core"
	"github.com/sandevgo/greybot/internal/service/gate"
	"github.com/sandevgo/greybot/internal/service/memory"
	"github.com/sandevgo/greybot/pkg/log"
)

type gateState interface {
	ShouldForceStop() bool
	State() gate.State
}

type updater interface {
	Run(ctx context.Context) (memory.Report, error)
}

type RunnerConfig struct {
	CheckInterval    time.Duration
	ThreadInterval   time.Duration
	MemeInterval     time.Duration
	RateLimitBackoff time.Duration
}

// Runner drives the bot: every tick it either runs the memory update or the
// enabled workers. A nil worker is disabled.
type Runner struct {
	gate      gateState
	updater   updater
	responder Worker
	publisher Worker
	memes     Worker
	cfg       RunnerConfig
	now       func() time.Time

	lastThread  time.Time
	lastMeme    time.Time
	pausedUntil time.Time

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRunner(g gateState, u updater, responder, publisher, memes Worker, cfg RunnerConfig) *Runner {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Minute
	}
	return &Runner{
		gate:      g,
		updater:   u,
		responder: responder,
		publisher: publisher,
		memes:     memes,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Start blocks running ticks until ctx is done or Shutdown is called.
func (r *Runner) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	r.mu.Lock()
	if r.cancel != nil {
		r.mu.Unlock()
		cancel()
		return errors.New("runner already started")
	}
	r.cancel = cancel
	r.done = done
	r.mu.Unlock()

	defer close(done)

	ctx = log.WithComponent(ctx, "bot")
	logger := log.FromCtx(ctx)
	logger.Info().Dur("interval", r.cfg.CheckInterval).Msg("bot loop started")

	ticker := time.NewTicker(r.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		r.Tick(ctx)
		select {
		case <-ctx.Done():
			logger.Info().Msg("bot loop stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.mu.Unlock()
	if cancel == nil {
		return nil
	}

	cancel()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Tick runs a single cycle. Panics are logged and swallowed so one bad
// cycle does not stop the loop.
func (r *Runner) Tick(ctx context.Context) {
	logger := log.FromCtx(ctx)
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Err(fmt.Errorf("panic: %v", rec)).Msg("bot tick panicked")
		}
	}()

	if r.gate.ShouldForceStop() {
		if r.gate.State() == gate.Updating || r.updater == nil {
			return
		}
		if _, err := r.updater.Run(ctx); err != nil && !errors.Is(err, memory.ErrUpdateRunning) {
			logger.Debug().Err(err).Msg("memory update did not complete")
		}
		return
	}

	now := r.now()
	if now.Before(r.pausedUntil) {
		logger.Debug().Time("until", r.pausedUntil).Msg("rate limited, skipping tick")
		return
	}

	if r.responder != nil && !r.step(ctx, "replies", r.responder) {
		return
	}

	if r.publisher != nil && now.Sub(r.lastThread) >= r.cfg.ThreadInterval {
		if !r.step(ctx, "thread", r.publisher) {
			return
		}
		r.lastThread = now
	}

	if r.memes != nil && now.Sub(r.lastMeme) >= r.cfg.MemeInterval {
		if !r.step(ctx, "memes", r.memes) {
			return
		}
		r.lastMeme = now
	}
}

// step runs w and reports whether the tick may continue.
func (r *Runner) step(ctx context.Context, name string, w Worker) bool {
	logger := log.FromCtx(ctx).With().Str("worker", name).Logger()

	res, err := w.Run(logger.WithContext(ctx))
	switch {
	case errors.Is(err, core.ErrRateLimited):
		r.pausedUntil = r.now().Add(r.cfg.RateLimitBackoff)
		logger.Warn().Dur("backoff", r.cfg.RateLimitBackoff).Msg("rate limited")
		return false
	case err != nil:
		logger.Error().Err(err).Msg("worker failed")
	}

	if res.Cancelled {
		logger.Info().Int("processed", res.Processed).Msg("interrupted by force-stop")
		return false
	}
	return ctx.Err() == nil
}
