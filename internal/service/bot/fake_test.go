package bot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sandevgo/greybot/internal/core"
	"github.com/sandevgo/greybot/internal/service/gate"
	"github.com/sandevgo/greybot/internal/service/used"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 11, 20, 12, 0, 0, 0, time.UTC)

type fakeFeed struct {
	mu sync.Mutex

	notifications []core.Notification
	notifyErr     error
	threads       map[string]core.PostThread
	search        map[string][]core.Post
	searchErr     map[string]error

	// createErrs is consumed one entry per CreateRecord call.
	createErrs []error
	created    []core.NewPost
	creates    int
	seen       []time.Time
}

func (f *fakeFeed) ResolveHandle(ctx context.Context, handle string) (string, error) {
	return "did:plc:" + handle, nil
}

func (f *fakeFeed) GetAuthorFeed(ctx context.Context, did string, limit int, cursor string) (core.FeedPage, error) {
	return core.FeedPage{}, nil
}

func (f *fakeFeed) GetPostThread(ctx context.Context, uri string) (core.PostThread, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.threads[uri]
	if !ok {
		return core.PostThread{}, fmt.Errorf("thread %s: not found", uri)
	}
	return t, nil
}

func (f *fakeFeed) CreateRecord(ctx context.Context, post core.NewPost) (core.StrongRef, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if len(f.createErrs) > 0 {
		err := f.createErrs[0]
		f.createErrs = f.createErrs[1:]
		if err != nil {
			return core.StrongRef{}, err
		}
	}
	f.created = append(f.created, post)
	n := len(f.created)
	return core.StrongRef{
		URI: fmt.Sprintf("at://did:plc:grey/app.bsky.feed.post/r%d", n),
		CID: fmt.Sprintf("rc%d", n),
	}, nil
}

func (f *fakeFeed) ListNotifications(ctx context.Context, limit int) ([]core.Notification, error) {
	if f.notifyErr != nil {
		return nil, f.notifyErr
	}
	return f.notifications, nil
}

func (f *fakeFeed) UpdateSeen(ctx context.Context, at time.Time) error {
	f.seen = append(f.seen, at)
	return nil
}

func (f *fakeFeed) SearchPosts(ctx context.Context, query string, limit int) ([]core.Post, error) {
	if err := f.searchErr[query]; err != nil {
		return nil, err
	}
	return f.search[query], nil
}

// scriptAI answers with replies in order, repeating the last one.
type scriptAI struct {
	replies []string
	err     error
	calls   [][]core.Message
	opts    []core.ChatOptions
}

func (a *scriptAI) Chat(ctx context.Context, history []core.Message, opts core.ChatOptions) (core.Message, error) {
	a.calls = append(a.calls, history)
	a.opts = append(a.opts, opts)
	if a.err != nil {
		return core.Message{}, a.err
	}
	if len(a.replies) == 0 {
		return core.Message{}, errors.New("no script")
	}
	i := min(len(a.calls)-1, len(a.replies)-1)
	return core.Message{Role: core.RoleAssistant, Content: a.replies[i]}, nil
}

func (a *scriptAI) lastPrompt() string {
	msgs := a.calls[len(a.calls)-1]
	return msgs[len(msgs)-1].Content
}

// fakeGate stops once it has been asked stopAt times. Zero never stops.
type fakeGate struct {
	stopAt int
	calls  int
	state  gate.State
}

func (g *fakeGate) ShouldForceStop() bool {
	g.calls++
	return g.stopAt > 0 && g.calls >= g.stopAt
}

func (g *fakeGate) State() gate.State {
	return g.state
}

type fakeRecall struct {
	matches []core.Match
	queries []string
}

func (r *fakeRecall) QuerySimilar(ctx context.Context, text string, topK int, floor float64) ([]core.Match, error) {
	r.queries = append(r.queries, text)
	return r.matches, nil
}

func newTracker(t *testing.T) *used.Tracker {
	t.Helper()
	dir := t.TempDir()
	tr, err := used.NewTracker(
		filepath.Join(dir, "used_content.json"),
		filepath.Join(dir, "used_memes.json"),
		used.Caps{Posts: 100, Topics: 10, Memes: 10},
		used.PolicyReset,
	)
	require.NoError(t, err)
	return tr
}

func hotPost(n int, likes int, age time.Duration) core.Post {
	return core.Post{
		URI:          fmt.Sprintf("at://did:plc:user%d/app.bsky.feed.post/%d", n, n),
		CID:          fmt.Sprintf("cid%d", n),
		Text:         fmt.Sprintf("hot take %d", n),
		AuthorHandle: fmt.Sprintf("user%d.bsky.social", n),
		AuthorDID:    fmt.Sprintf("did:plc:user%d", n),
		CreatedAt:    now.Add(-age),
		LikeCount:    likes,
	}
}
