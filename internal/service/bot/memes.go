package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/greybot/internal/core"
	"github.com/sandevgo/greybot/internal/providers/bluesky"
	"github.com/sandevgo/greybot/internal/service/used"
	"github.com/sandevgo/greybot/pkg/conv"
	"github.com/sandevgo/greybot/pkg/log"
)

type MemeConfig struct {
	Handle   string
	Keywords []string
	Retry    RetryConfig
}

// MemeEngager replies to the most engaging meme post it has not answered yet.
type MemeEngager struct {
	feed    core.FeedClient
	ai      core.AIProvider
	used    usedTracker
	stop    core.ForceStopper
	persona *Persona
	cfg     MemeConfig
	now     func() time.Time
}

func NewMemeEngager(
	feed core.FeedClient,
	ai core.AIProvider,
	tracker usedTracker,
	stop core.ForceStopper,
	persona *Persona,
	cfg MemeConfig,
) *MemeEngager {
	return &MemeEngager{
		feed:    feed,
		ai:      ai,
		used:    tracker,
		stop:    stop,
		persona: persona,
		cfg:     cfg,
		now:     time.Now,
	}
}

func (m *MemeEngager) Run(ctx context.Context) (Result, error) {
	logger := log.FromCtx(ctx)

	if m.stop.ShouldForceStop() {
		return Result{Cancelled: true}, nil
	}

	var found []core.Post
	for _, kw := range m.cfg.Keywords {
		posts, err := m.feed.SearchPosts(ctx, kw, searchLimit)
		if errors.Is(err, core.ErrRateLimited) {
			return Result{}, err
		}
		if err != nil {
			logger.Warn().Err(err).Str("keyword", kw).Msg("meme search failed")
			continue
		}
		found = append(found, posts...)
	}

	ranked := RankViral(found, m.now(), func(p core.Post) bool {
		return p.URI == "" || strings.EqualFold(p.AuthorHandle, m.cfg.Handle) || m.used.IsUsed(used.KindMemes, p.URI)
	}, 1)
	if len(ranked) == 0 {
		logger.Debug().Msg("no unused memes")
		return Result{}, nil
	}
	target := ranked[0].Post

	if err := m.reply(ctx, target); err != nil {
		if errors.Is(err, core.ErrCancelled) {
			return Result{Cancelled: true}, nil
		}
		return Result{}, err
	}

	if err := m.used.MarkUsed(ctx, used.KindMemes, target.URI); err != nil {
		logger.Error().Err(err).Msg("failed to mark meme used")
	}
	logger.Info().Str("uri", target.URI).Str("author", target.AuthorHandle).Msg("engaged with meme")
	return Result{Processed: 1}, nil
}

func (m *MemeEngager) reply(ctx context.Context, target core.Post) error {
	thread, err := m.feed.GetPostThread(ctx, target.URI)
	if err != nil {
		return fmt.Errorf("failed to fetch meme post: %w", err)
	}
	ref, err := bluesky.NewReplyRef(thread.Post)
	if err != nil {
		return err
	}

	prompt := fmt.Sprintf("@%s posted this meme: %q\n\nWrite a short, witty reply in under %d characters.",
		thread.Post.AuthorHandle, thread.Post.Text, replyLength)
	msgs := m.persona.With(core.Message{Role: core.RoleUser, Content: prompt})
	reply, err := chat(ctx, m.ai, msgs, core.ChatOptions{MaxTokens: 100, Temperature: 0.9})
	if err != nil {
		return err
	}

	handle := thread.Post.AuthorHandle
	text := conv.Truncate("@"+handle+" "+conv.Truncate(reply, replyLength), core.MaxPostLength)
	post := core.NewPost{Text: text, Reply: &ref}
	if facet, ok := bluesky.MentionFacet(text, handle, thread.Post.AuthorDID); ok {
		post.Facets = []core.Facet{facet}
	}

	_, err = createRecord(ctx, m.feed, m.stop, m.cfg.Retry, post)
	return err
}
