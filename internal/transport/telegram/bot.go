package telegram

import (
	"context"
	"fmt"
	"time"

	"github.com/sandevgo/greybot/internal/config"
	"github.com/sandevgo/greybot/pkg/log"
	tele "gopkg.in/telebot.v3"
)

const baseContextKey = "base_context"

// Operator answers the owner's commands.
type Operator interface {
	Status(ctx context.Context) (string, error)
	RequestUpdate(ctx context.Context) error
}

// Bot delivers alerts to the owner's chat and accepts /status and /rebuild
// from the owner only.
type Bot struct {
	bot      *tele.Bot
	sender   *sender
	operator Operator
	owner    tele.ChatID
}

type Option func(*tele.Settings)

// WithAPIURL points the bot at a different Bot API server.
func WithAPIURL(url string) Option {
	return func(s *tele.Settings) {
		s.URL = url
	}
}

// WithoutPolling skips getMe and never polls for updates. Alerts still work.
func WithoutPolling() Option {
	return func(s *tele.Settings) {
		s.Offline = true
	}
}

func NewBot(
	ctx context.Context,
	cfg *config.TelegramConfig,
	operator Operator,
	opts ...Option,
) (*Bot, error) {
	ctx = log.WithComponent(ctx, "telegram")
	pref := tele.Settings{
		Token:  cfg.Token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
		OnError: func(err error, c tele.Context) {
			log.FromCtx(ctx).Error().Err(err).Msg("telegram handler failed")
		},
	}
	for _, opt := range opts {
		opt(&pref)
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot := &Bot{
		bot:      b,
		sender:   newSender(b),
		operator: operator,
		owner:    tele.ChatID(cfg.OwnerID),
	}

	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			c.Set(baseContextKey, ctx)
			return next(c)
		}
	})

	b.Use(func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Sender() == nil || c.Sender().ID != cfg.OwnerID {
				return nil
			}
			return next(c)
		}
	})

	b.Handle("/status", bot.handleStatus)
	b.Handle("/rebuild", bot.handleRebuild)

	return bot, nil
}

func (b *Bot) Start(ctx context.Context) error {
	if b.operator == nil {
		return nil
	}
	log.FromCtx(ctx).Info().Msg("starting telegram bot")
	b.bot.Start()
	return nil
}

func (b *Bot) Shutdown(ctx context.Context) error {
	if b.operator == nil {
		return nil
	}
	b.bot.Stop()
	return nil
}

// Alert sends markdown to the owner.
func (b *Bot) Alert(ctx context.Context, markdown string) error {
	return b.sender.sendMarkdown(ctx, b.owner, markdown, false)
}

func (b *Bot) handleStatus(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)

	status, err := b.operator.Status(ctx)
	if err != nil {
		return c.Send(fmt.Sprintf("error: %v", err))
	}
	return b.sender.sendMarkdown(ctx, c.Recipient(), status, true)
}

func (b *Bot) handleRebuild(c tele.Context) error {
	ctx := c.Get(baseContextKey).(context.Context)

	if err := b.operator.RequestUpdate(ctx); err != nil {
		return c.Send(fmt.Sprintf("error: %v", err))
	}
	log.FromCtx(ctx).Info().Msg("memory rebuild requested from telegram")
	return c.Send("Memory rebuild scheduled for the next tick.")
}
