package memory

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sandevgo/greybot/internal/core"
	"github.com/sandevgo/greybot/internal/storage/sqlite"
	"github.com/stretchr/testify/require"
)

const testDims = 16

// hashEmbedder maps text to a bag-of-bytes vector, so equal text gives equal
// vectors and shared words raise similarity.
type hashEmbedder struct {
	failOn string
	calls  int
}

func (e *hashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.calls++
	if e.failOn != "" && text == e.failOn {
		return nil, fmt.Errorf("embedding service: %w", core.ErrTransient)
	}
	vec := make([]float32, testDims)
	for i := 0; i < len(text); i++ {
		vec[int(text[i])%testDims]++
	}
	return vec, nil
}

func (e *hashEmbedder) Dims() int { return testDims }

// flakyIndex wraps a real index and fails upserts of batches selected by failFor.
type flakyIndex struct {
	core.VectorIndex
	mu       sync.Mutex
	failFor  func(records []core.MemoryRecord, attempt int) bool
	attempts map[string]int
	upserts  int
}

func (f *flakyIndex) Upsert(ctx context.Context, records []core.MemoryRecord) error {
	f.mu.Lock()
	f.upserts++
	key := records[0].ID
	f.attempts[key]++
	attempt := f.attempts[key]
	f.mu.Unlock()

	if f.failFor != nil && f.failFor(records, attempt) {
		return errors.New("connection reset by peer")
	}
	return f.VectorIndex.Upsert(ctx, records)
}

func newSQLiteIndex(t *testing.T) core.VectorIndex {
	t.Helper()
	db, err := sqlite.NewDB(context.Background(), filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlite.NewIndex(db)
}

func newFlakyIndex(t *testing.T, failFor func([]core.MemoryRecord, int) bool) *flakyIndex {
	return &flakyIndex{
		VectorIndex: newSQLiteIndex(t),
		failFor:     failFor,
		attempts:    make(map[string]int),
	}
}

// stubIndex answers queries with fixed matches.
type stubIndex struct {
	matches []core.Match
	topK    int
}

func (s *stubIndex) Upsert(ctx context.Context, records []core.MemoryRecord) error { return nil }
func (s *stubIndex) DeleteAll(ctx context.Context) error                         { return nil }
func (s *stubIndex) Count(ctx context.Context) (int, error)                      { return len(s.matches), nil }
func (s *stubIndex) Query(ctx context.Context, vector []float32, topK int) ([]core.Match, error) {
	s.topK = topK
	return s.matches, nil
}

type fakeHistory struct {
	posts []core.Post
	err   error
	calls int
}

func (f *fakeHistory) FetchRecentPosts(ctx context.Context, handle string, maxPosts int) ([]core.Post, error) {
	f.calls++
	return f.posts, f.err
}

type fakeAlerter struct {
	messages []string
}

func (a *fakeAlerter) Alert(ctx context.Context, markdown string) error {
	a.messages = append(a.messages, markdown)
	return nil
}

var topics = []string{
	"rust borrow checker tips",
	"go generics in practice",
	"sqlite as an application file format",
	"vector search without a vector database",
	"why cron jobs drift",
	"bluesky custom feeds",
}

func testPosts(n int) []core.Post {
	posts := make([]core.Post, n)
	for i := range posts {
		posts[i] = core.Post{
			URI:       fmt.Sprintf("at://did:plc:grey/app.bsky.feed.post/%d", i),
			CID:       fmt.Sprintf("cid%d", i),
			Text:      topics[i%len(topics)],
			CreatedAt: time.Date(2024, 11, 20, 10, i, 0, 0, time.UTC),
		}
	}
	return posts
}
