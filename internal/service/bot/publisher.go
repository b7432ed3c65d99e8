package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sandevgo/greybot/internal/core"
	"github.com/sandevgo/greybot/internal/service/used"
	"github.com/sandevgo/greybot/pkg/log"
)

type usedTracker interface {
	IsUsed(kind used.Kind, item string) bool
	MarkUsed(ctx context.Context, kind used.Kind, items ...string) error
}

type PublisherConfig struct {
	Keywords    []string
	MinPosts    int
	MaxPosts    int
	MaxAttempts int
	PartLength  int
	PartPause   time.Duration
	Retry       RetryConfig
}

func (c *PublisherConfig) defaults() {
	if c.MinPosts <= 0 {
		c.MinPosts = 4
	}
	if c.MaxPosts < c.MinPosts {
		c.MaxPosts = c.MinPosts + 1
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.PartLength <= 0 {
		c.PartLength = 280
	}
}

// Publisher turns trending posts into an original thread on the bot's feed.
type Publisher struct {
	feed    core.FeedClient
	ai      core.AIProvider
	used    usedTracker
	stop    core.ForceStopper
	persona *Persona
	cfg     PublisherConfig
	now     func() time.Time
}

func NewPublisher(
	feed core.FeedClient,
	ai core.AIProvider,
	tracker usedTracker,
	stop core.ForceStopper,
	persona *Persona,
	cfg PublisherConfig,
) *Publisher {
	cfg.defaults()
	return &Publisher{
		feed:    feed,
		ai:      ai,
		used:    tracker,
		stop:    stop,
		persona: persona,
		cfg:     cfg,
		now:     time.Now,
	}
}

func (p *Publisher) Run(ctx context.Context) (Result, error) {
	logger := log.FromCtx(ctx)

	if p.stop.ShouldForceStop() {
		return Result{Cancelled: true}, nil
	}

	viral, err := p.findViral(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(viral) == 0 {
		logger.Info().Msg("no unused viral posts")
		return Result{}, nil
	}

	topic, err := p.pickTopic(ctx, viral)
	if err != nil {
		return Result{}, fmt.Errorf("failed to pick topic: %w", err)
	}
	if p.used.IsUsed(used.KindTopics, topic) {
		logger.Info().Str("topic", topic).Msg("topic already covered")
		p.markViral(ctx, viral)
		return Result{}, nil
	}

	parts, cancelled, err := p.generateThread(ctx, topic, viral)
	if cancelled {
		return Result{Cancelled: true}, nil
	}
	if err != nil {
		return Result{}, err
	}

	posted, err := p.postThread(ctx, parts)
	if errors.Is(err, core.ErrCancelled) {
		logger.Warn().Int("posted", posted).Int("parts", len(parts)).Msg("thread interrupted by force-stop")
		return Result{Processed: posted, Cancelled: true}, nil
	}
	if err != nil {
		return Result{Processed: posted}, fmt.Errorf("failed to post thread part %d: %w", posted+1, err)
	}

	p.markViral(ctx, viral)
	if err := p.used.MarkUsed(ctx, used.KindTopics, topic); err != nil {
		logger.Error().Err(err).Msg("failed to mark topic used")
	}

	logger.Info().Str("topic", topic).Int("parts", posted).Msg("thread published")
	return Result{Processed: posted}, nil
}

// markViral retires the source posts so the next run searches for fresh ones.
func (p *Publisher) markViral(ctx context.Context, viral []ScoredPost) {
	texts := make([]string, len(viral))
	for i, v := range viral {
		texts[i] = v.Text
	}
	if err := p.used.MarkUsed(ctx, used.KindPosts, texts...); err != nil {
		log.FromCtx(ctx).Error().Err(err).Msg("failed to mark posts used")
	}
}

func (p *Publisher) findViral(ctx context.Context) ([]ScoredPost, error) {
	logger := log.FromCtx(ctx)

	var found []core.Post
	for _, kw := range p.cfg.Keywords {
		posts, err := p.feed.SearchPosts(ctx, kw, searchLimit)
		if errors.Is(err, core.ErrRateLimited) {
			return nil, err
		}
		if err != nil {
			logger.Warn().Err(err).Str("keyword", kw).Msg("search failed")
			continue
		}
		found = append(found, posts...)
	}

	return RankViral(found, p.now(), func(post core.Post) bool {
		return p.used.IsUsed(used.KindPosts, post.Text)
	}, 5), nil
}

func (p *Publisher) pickTopic(ctx context.Context, viral []ScoredPost) (string, error) {
	prompt := "Based on these trending posts, name the single most interesting AI topic to write about. " +
		"Respond with the topic name only.\n\n" + listPosts(viral)

	msgs := []core.Message{{Role: core.RoleUser, Content: prompt}}
	topic, err := chat(ctx, p.ai, msgs, core.ChatOptions{MaxTokens: 50, Temperature: 0.3})
	if err != nil {
		return "", err
	}
	topic = strings.Trim(topic, `"'. `)
	if topic == "" {
		return "", errors.New("empty topic")
	}
	return topic, nil
}

// generateThread asks for a thread until a completion parses into an
// acceptable number of parts. The gate is checked before every attempt.
func (p *Publisher) generateThread(ctx context.Context, topic string, viral []ScoredPost) ([]string, bool, error) {
	prompt := fmt.Sprintf(
		"Write a Bluesky thread of %d-%d posts about %q, inspired by these trending posts:\n\n%s\n"+
			"Format every post as \"POST n: text\". Keep each post under %d characters. "+
			"Make it engaging and insightful.",
		p.cfg.MinPosts, p.cfg.MaxPosts, topic, listPosts(viral), p.cfg.PartLength)
	msgs := p.persona.With(core.Message{Role: core.RoleUser, Content: prompt})

	var lastErr error
	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		if p.stop.ShouldForceStop() {
			return nil, true, nil
		}
		content, err := chat(ctx, p.ai, msgs, core.ChatOptions{MaxTokens: 1000, Temperature: 0.7})
		if err != nil {
			if ctx.Err() != nil {
				return nil, false, ctx.Err()
			}
			lastErr = err
			continue
		}

		parts := ParseThread(content, p.cfg.PartLength)
		if len(parts) > p.cfg.MaxPosts {
			parts = parts[:p.cfg.MaxPosts]
		}
		if len(parts) >= p.cfg.MinPosts {
			return parts, false, nil
		}
		lastErr = fmt.Errorf("completion had %d parts", len(parts))
		log.FromCtx(ctx).Debug().Int("attempt", attempt).Err(lastErr).Msg("thread rejected")
	}
	return nil, false, fmt.Errorf("failed to generate thread after %d attempts: %w", p.cfg.MaxAttempts, lastErr)
}

// postThread chains parts as replies to the first one. It returns the number
// of parts published.
func (p *Publisher) postThread(ctx context.Context, parts []string) (int, error) {
	var root, parent core.StrongRef

	for i, text := range parts {
		if i > 0 {
			if err := sleep(ctx, p.cfg.PartPause); err != nil {
				return i, err
			}
		}

		post := core.NewPost{Text: text}
		if i > 0 {
			post.Reply = &core.ReplyRef{Root: root, Parent: parent}
		}

		ref, err := createRecord(ctx, p.feed, p.stop, p.cfg.Retry, post)
		if err != nil {
			return i, err
		}
		if i == 0 {
			root = ref
		}
		parent = ref
	}
	return len(parts), nil
}

func listPosts(viral []ScoredPost) string {
	var b strings.Builder
	for i, v := range viral {
		fmt.Fprintf(&b, "%d. @%s: %s\n", i+1, v.AuthorHandle, v.Text)
	}
	return b.String()
}
