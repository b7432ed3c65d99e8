package memory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/sandevgo/greybot/internal/core"
	"github.com/sandevgo/greybot/internal/service/gate"
	"github.com/sandevgo/greybot/pkg/log"
)

var ErrUpdateRunning = errors.New("memory update already running")

type historySource interface {
	FetchRecentPosts(ctx context.Context, handle string, maxPosts int) ([]core.Post, error)
}

type Report struct {
	RunID    string
	Fetched  int
	Stored   int
	Duration time.Duration
}

// Updater runs one memory-update cycle: fetch history, rebuild the index and
// report the outcome to the gate.
type Updater struct {
	gate     *gate.Controller
	history  historySource
	store    *Store
	alerter  core.Alerter
	handle   string
	maxPosts int
}

func NewUpdater(
	g *gate.Controller,
	history historySource,
	store *Store,
	alerter core.Alerter,
	handle string,
	maxPosts int,
) *Updater {
	return &Updater{
		gate:     g,
		history:  history,
		store:    store,
		alerter:  alerter,
		handle:   handle,
		maxPosts: maxPosts,
	}
}

func (u *Updater) Run(ctx context.Context) (Report, error) {
	if !u.gate.BeginUpdate() {
		return Report{}, ErrUpdateRunning
	}

	report := Report{RunID: ulid.Make().String()}
	logger := log.FromCtx(log.WithComponent(ctx, "memory")).With().Str("run_id", report.RunID).Logger()
	ctx = logger.WithContext(ctx)
	started := time.Now()

	logger.Info().Str("handle", u.handle).Int("max_posts", u.maxPosts).Msg("memory update started")

	err := u.rebuild(ctx, &report)
	report.Duration = time.Since(started)

	gateErr := u.gate.CompleteUpdate(err)
	switch {
	case gateErr == nil:
		logger.Info().
			Int("fetched", report.Fetched).
			Int("stored", report.Stored).
			Dur("took", report.Duration).
			Msg("memory update finished")
	case errors.Is(gateErr, gate.ErrGaveUp):
		logger.Error().Err(gateErr).Msg("memory update given up, resuming normal operation")
		u.alert(ctx, gateErr)
	default:
		logger.Error().Err(gateErr).Int("failures", u.gate.Failures()).Msg("memory update failed, will retry")
	}

	return report, gateErr
}

func (u *Updater) rebuild(ctx context.Context, report *Report) error {
	posts, err := u.history.FetchRecentPosts(ctx, u.handle, u.maxPosts)
	if errors.Is(err, core.ErrNoHistory) || (err == nil && len(posts) == 0) {
		log.FromCtx(ctx).Warn().Msg("no post history, keeping current memory")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch history: %w", err)
	}
	report.Fetched = len(posts)

	report.Stored, err = u.store.Rebuild(ctx, report.RunID, posts)
	return err
}

func (u *Updater) alert(ctx context.Context, cause error) {
	if u.alerter == nil {
		return
	}
	msg := fmt.Sprintf("**Memory update abandoned** for @%s\n\n`%s`\n\nPosting resumes with the previous memory.", u.handle, cause)
	if err := u.alerter.Alert(ctx, msg); err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("failed to send alert")
	}
}
