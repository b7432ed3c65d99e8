package core

import (
	"context"
	"time"
)

// FeedClient is the subset of the social feed API the bot depends on.
type FeedClient interface {
	ResolveHandle(ctx context.Context, handle string) (string, error)
	GetAuthorFeed(ctx context.Context, did string, limit int, cursor string) (FeedPage, error)
	GetPostThread(ctx context.Context, uri string) (PostThread, error)
	CreateRecord(ctx context.Context, post NewPost) (StrongRef, error)
	ListNotifications(ctx context.Context, limit int) ([]Notification, error)
	UpdateSeen(ctx context.Context, at time.Time) error
	SearchPosts(ctx context.Context, query string, limit int) ([]Post, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dims() int
}

type AIProvider interface {
	Chat(ctx context.Context, history []Message, opts ChatOptions) (Message, error)
}

type Alerter interface {
	Alert(ctx context.Context, markdown string) error
}

// ForceStopper is the cooperative cancellation check consulted before every
// unit of posting work.
type ForceStopper interface {
	ShouldForceStop() bool
}
