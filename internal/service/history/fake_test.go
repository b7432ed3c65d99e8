package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sandevgo/greybot/internal/core"
)

// fakeFeed serves posts in the given order, a page at a time. When pages is
// set it is served as is, one page per call.
type fakeFeed struct {
	posts      []core.Post
	pages      []core.FeedPage
	failPage   int
	resolveErr error

	limits []int
	calls  int
}

func (f *fakeFeed) ResolveHandle(ctx context.Context, handle string) (string, error) {
	if f.resolveErr != nil {
		return "", f.resolveErr
	}
	return "did:plc:" + handle, nil
}

func (f *fakeFeed) GetAuthorFeed(ctx context.Context, did string, limit int, cursor string) (core.FeedPage, error) {
	f.calls++
	f.limits = append(f.limits, limit)
	if f.failPage == f.calls {
		return core.FeedPage{}, fmt.Errorf("getAuthorFeed: %w", core.ErrTransient)
	}
	if f.pages != nil {
		if f.calls > len(f.pages) {
			return core.FeedPage{}, nil
		}
		return f.pages[f.calls-1], nil
	}

	start := 0
	if cursor != "" {
		fmt.Sscanf(cursor, "%d", &start)
	}
	end := min(start+limit, len(f.posts))

	page := core.FeedPage{Posts: append([]core.Post(nil), f.posts[start:end]...)}
	if end < len(f.posts) {
		page.Cursor = fmt.Sprint(end)
	}
	return page, nil
}

func (f *fakeFeed) GetPostThread(ctx context.Context, uri string) (core.PostThread, error) {
	return core.PostThread{}, errors.New("not implemented")
}

func (f *fakeFeed) CreateRecord(ctx context.Context, post core.NewPost) (core.StrongRef, error) {
	return core.StrongRef{}, errors.New("not implemented")
}

func (f *fakeFeed) ListNotifications(ctx context.Context, limit int) ([]core.Notification, error) {
	return nil, nil
}

func (f *fakeFeed) UpdateSeen(ctx context.Context, at time.Time) error {
	return nil
}

func (f *fakeFeed) SearchPosts(ctx context.Context, query string, limit int) ([]core.Post, error) {
	return nil, nil
}

var base = time.Date(2024, 11, 20, 10, 0, 0, 0, time.UTC)

func post(n int, offset time.Duration) core.Post {
	return core.Post{
		URI:       fmt.Sprintf("at://did:plc:grey/app.bsky.feed.post/%d", n),
		CID:       fmt.Sprintf("cid%d", n),
		Text:      fmt.Sprintf("post %d", n),
		CreatedAt: base.Add(offset),
	}
}

func reply(n int, offset time.Duration, root, parent core.Post) core.Post {
	p := post(n, offset)
	p.Reply = &core.ReplyRef{Root: root.Ref(), Parent: parent.Ref()}
	return p
}

func texts(posts []core.Post) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Text
	}
	return out
}

func reverse(posts []core.Post) []core.Post {
	out := make([]core.Post, len(posts))
	for i, p := range posts {
		out[len(posts)-1-i] = p
	}
	return out
}
