package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sandevgo/greybot/internal/core"
	"github.com/sandevgo/greybot/pkg/retry"
)

// Result is the outcome of one pass of a worker. A force-stop is reported
// through Cancelled, never as an error.
type Result struct {
	Processed int
	Cancelled bool
}

// Worker is one unit of bot activity run by the Runner.
type Worker interface {
	Run(ctx context.Context) (Result, error)
}

type recaller interface {
	QuerySimilar(ctx context.Context, text string, topK int, floor float64) ([]core.Match, error)
}

type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

// createRecord publishes post, retrying transient failures. The gate is
// consulted before every attempt.
func createRecord(ctx context.Context, feed core.FeedClient, stop core.ForceStopper, rc RetryConfig, post core.NewPost) (core.StrongRef, error) {
	cfg := retry.NewFixedConfig(rc.Attempts, rc.Delay)
	cfg.Retryable = func(err error) bool {
		return errors.Is(err, core.ErrTransient)
	}

	var ref core.StrongRef
	err := retry.NewRetrier(cfg).Do(ctx, func() error {
		if stop.ShouldForceStop() {
			return core.ErrCancelled
		}
		var err error
		ref, err = feed.CreateRecord(ctx, post)
		return err
	})
	return ref, err
}

func chat(ctx context.Context, ai core.AIProvider, msgs []core.Message, opts core.ChatOptions) (string, error) {
	msg, err := ai.Chat(ctx, msgs, opts)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return "", errors.New("empty completion")
	}
	return text, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
