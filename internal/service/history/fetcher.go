package history

import (
	"context"
	"fmt"
	"time"

	"github.com/sandevgo/greybot/internal/config"
	"github.com/sandevgo/greybot/internal/core"
	"github.com/sandevgo/greybot/pkg/log"
)

// maxPageSize is the largest page the feed API serves.
const maxPageSize = 100

type Fetcher struct {
	feed       core.FeedClient
	builder    ThreadBuilder
	pageDelay  time.Duration
	maxThreads int
}

func NewFetcher(feed core.FeedClient, builder ThreadBuilder, pageDelay time.Duration, maxThreads int) *Fetcher {
	if builder == nil {
		builder = TimeAdjacency{Gap: DefaultThreadGap}
	}
	return &Fetcher{
		feed:       feed,
		builder:    builder,
		pageDelay:  pageDelay,
		maxThreads: maxThreads,
	}
}

func NewFetcherFromConfig(feed core.FeedClient, cfg *config.MemoryConfig) (*Fetcher, error) {
	builder, err := NewThreadBuilder(cfg.Threading, cfg.ThreadGap)
	if err != nil {
		return nil, err
	}
	return NewFetcher(feed, builder, cfg.PageDelay, cfg.MaxThreads), nil
}

// FetchRecentPosts returns up to maxPosts of the account's posts, grouped into
// threads: chronological inside each thread, threads in discovery order.
func (f *Fetcher) FetchRecentPosts(ctx context.Context, handle string, maxPosts int) ([]core.Post, error) {
	threads, err := f.FetchThreads(ctx, handle, maxPosts)
	if err != nil {
		return nil, err
	}
	return flatten(threads), nil
}

func (f *Fetcher) FetchThreads(ctx context.Context, handle string, maxPosts int) ([][]core.Post, error) {
	posts, err := f.fetchPages(ctx, handle, maxPosts)
	if err != nil {
		return nil, err
	}
	if len(posts) == 0 {
		return nil, core.ErrNoHistory
	}

	threads := arrange(f.builder.Build(posts))
	if f.maxThreads > 0 && len(threads) > f.maxThreads {
		threads = threads[:f.maxThreads]
	}

	log.FromCtx(ctx).Info().
		Int("posts", len(posts)).
		Int("threads", len(threads)).
		Msg("post history fetched")

	return threads, nil
}

// fetchPages pages through the author feed until maxPosts are collected or the
// cursor runs out. Pages may come back empty when they only held reposts, so
// only the cursor ends pagination. A failed page ends pagination and whatever
// was collected is returned; the error surfaces only if nothing was.
func (f *Fetcher) fetchPages(ctx context.Context, handle string, maxPosts int) ([]core.Post, error) {
	logger := log.FromCtx(log.WithComponent(ctx, "history"))

	if maxPosts <= 0 {
		return nil, nil
	}

	did, err := f.feed.ResolveHandle(ctx, handle)
	if err != nil {
		return nil, err
	}

	var posts []core.Post
	cursor := ""

	for page := 1; len(posts) < maxPosts; page++ {
		limit := min(maxPageSize, maxPosts-len(posts))

		res, err := f.feed.GetAuthorFeed(ctx, did, limit, cursor)
		if err != nil {
			if len(posts) == 0 {
				return nil, fmt.Errorf("failed to fetch feed page %d: %w", page, err)
			}
			logger.Warn().Err(err).
				Int("page", page).
				Int("collected", len(posts)).
				Msg("feed pagination aborted, keeping partial history")
			break
		}

		remaining := maxPosts - len(posts)
		if len(res.Posts) > remaining {
			res.Posts = res.Posts[:remaining]
		}
		posts = append(posts, res.Posts...)

		logger.Debug().Int("page", page).Int("count", len(res.Posts)).Msg("feed page fetched")

		if res.Cursor == "" || res.Cursor == cursor || len(posts) >= maxPosts {
			break
		}
		cursor = res.Cursor

		if err := sleep(ctx, f.pageDelay); err != nil {
			return posts, err
		}
	}

	return posts, nil
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
