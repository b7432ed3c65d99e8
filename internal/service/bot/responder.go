package bot

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sandevgo/greybot/internal/core"
	"github.com/sandevgo/greybot/internal/providers/bluesky"
	"github.com/sandevgo/greybot/pkg/conv"
	"github.com/sandevgo/greybot/pkg/log"
)

const replyLength = 280

var uncertainPhrases = []string{
	"i'm not sure",
	"i am not sure",
	"i cannot",
	"i don't know",
	"i don't remember",
	"unclear",
	"could you clarify",
	"please provide more context",
}

type ResponderConfig struct {
	Handle            string
	TopK              int
	Floor             float64
	Pause             time.Duration
	Lookback          time.Duration
	NotificationLimit int
	Retry             RetryConfig
}

// Responder answers mentions and replies addressed to the bot.
type Responder struct {
	feed    core.FeedClient
	ai      core.AIProvider
	memory  recaller
	stop    core.ForceStopper
	persona *Persona
	cfg     ResponderConfig

	lastSeen time.Time
	now      func() time.Time
}

func NewResponder(
	feed core.FeedClient,
	ai core.AIProvider,
	memory recaller,
	stop core.ForceStopper,
	persona *Persona,
	cfg ResponderConfig,
) *Responder {
	if cfg.NotificationLimit <= 0 {
		cfg.NotificationLimit = 50
	}
	return &Responder{
		feed:    feed,
		ai:      ai,
		memory:  memory,
		stop:    stop,
		persona: persona,
		cfg:     cfg,
		now:     time.Now,
	}
}

func (r *Responder) Run(ctx context.Context) (Result, error) {
	logger := log.FromCtx(ctx)

	if r.stop.ShouldForceStop() {
		return Result{Cancelled: true}, nil
	}

	now := r.now()
	if r.lastSeen.IsZero() {
		r.lastSeen = now.Add(-r.cfg.Lookback)
	}

	notes, err := r.feed.ListNotifications(ctx, r.cfg.NotificationLimit)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list notifications: %w", err)
	}

	pending := r.pending(notes)
	if len(pending) == 0 {
		return Result{}, nil
	}
	logger.Info().Int("count", len(pending)).Msg("new notifications")

	var res Result
	newest := r.lastSeen

loop:
	for i, n := range pending {
		if i > 0 {
			if err := sleep(ctx, r.cfg.Pause); err != nil {
				break
			}
		}
		if r.stop.ShouldForceStop() {
			res.Cancelled = true
			break
		}

		err := r.respond(ctx, n)
		switch {
		case errors.Is(err, core.ErrCancelled):
			res.Cancelled = true
			break loop
		case errors.Is(err, core.ErrRateLimited):
			r.lastSeen = newest
			return res, err
		case err != nil:
			logger.Error().Err(err).
				Str("reason", n.Reason).
				Str("author", n.AuthorHandle).
				Str("uri", n.URI).
				Msg("failed to respond")
		default:
			res.Processed++
			logger.Info().Str("reason", n.Reason).Str("author", n.AuthorHandle).Msg("responded")
		}
		newest = n.IndexedAt
	}
	r.lastSeen = newest

	if res.Processed > 0 {
		if err := r.feed.UpdateSeen(ctx, now); err != nil {
			logger.Warn().Err(err).Msg("failed to mark notifications seen")
		}
	}
	return res, nil
}

// pending keeps unseen mentions and replies by others, oldest first.
func (r *Responder) pending(notes []core.Notification) []core.Notification {
	var out []core.Notification
	for _, n := range notes {
		if n.Reason != "mention" && n.Reason != "reply" {
			continue
		}
		if !n.IndexedAt.After(r.lastSeen) || strings.EqualFold(n.AuthorHandle, r.cfg.Handle) {
			continue
		}
		out = append(out, n)
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].IndexedAt.Before(out[b].IndexedAt)
	})
	return out
}

func (r *Responder) respond(ctx context.Context, n core.Notification) error {
	if n.URI == "" || n.CID == "" {
		return fmt.Errorf("notification %q: %w", n.URI, core.ErrMissingCID)
	}

	// the notification CID may be stale; reply against the current record
	thread, err := r.feed.GetPostThread(ctx, n.URI)
	if err != nil {
		return fmt.Errorf("failed to fetch thread: %w", err)
	}
	ref, err := bluesky.NewReplyRef(thread.Post)
	if err != nil {
		return err
	}

	conversation := formatThread(thread)
	reply, err := r.generate(ctx, n, conversation, nil)
	if err != nil {
		return err
	}

	if soundsUncertain(reply) && r.memory != nil {
		matches, err := r.memory.QuerySimilar(ctx, conversation+"\n\nLatest message: "+n.Text, r.cfg.TopK, r.cfg.Floor)
		if err != nil {
			log.FromCtx(ctx).Warn().Err(err).Msg("memory recall failed")
		} else if len(matches) > 0 {
			if r.stop.ShouldForceStop() {
				return core.ErrCancelled
			}
			log.FromCtx(ctx).Debug().Int("memories", len(matches)).Msg("regenerating reply with memory")
			if reply, err = r.generate(ctx, n, conversation, matches); err != nil {
				return err
			}
		}
	}

	text := conv.Truncate("@"+n.AuthorHandle+" "+conv.Truncate(reply, replyLength), core.MaxPostLength)
	post := core.NewPost{Text: text, Reply: &ref}
	if facet, ok := bluesky.MentionFacet(text, n.AuthorHandle, n.AuthorDID); ok {
		post.Facets = []core.Facet{facet}
	}

	_, err = createRecord(ctx, r.feed, r.stop, r.cfg.Retry, post)
	return err
}

func (r *Responder) generate(ctx context.Context, n core.Notification, conversation string, memories []core.Match) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "You are responding to a conversation thread on Bluesky:\n\n%s\n\n", conversation)
	fmt.Fprintf(&b, "The latest %s is from @%s: %q\n\n", n.Reason, n.AuthorHandle, n.Text)
	if len(memories) > 0 {
		b.WriteString("Things you posted before that may help:\n")
		for _, m := range memories {
			fmt.Fprintf(&b, "- (%s) %s\n", m.CreatedAt.Format(time.DateOnly), m.Text)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Reply directly to the latest message in under %d characters.", replyLength)

	msgs := r.persona.With(core.Message{Role: core.RoleUser, Content: b.String()})
	return chat(ctx, r.ai, msgs, core.ChatOptions{MaxTokens: 100, Temperature: 0.7})
}

func formatThread(t core.PostThread) string {
	var lines []string
	for _, p := range t.Parents {
		lines = append(lines, fmt.Sprintf("@%s: %s", p.AuthorHandle, p.Text))
	}
	lines = append(lines, fmt.Sprintf("@%s: %s", t.Post.AuthorHandle, t.Post.Text))
	return strings.Join(lines, "\n")
}

func soundsUncertain(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range uncertainPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
