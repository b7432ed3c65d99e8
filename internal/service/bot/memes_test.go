package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sandevgo/greybot/internal/core"
	"github.com/sandevgo/greybot/internal/service/used"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMemes(t *testing.T, feed *fakeFeed, g *fakeGate) (*MemeEngager, *used.Tracker) {
	t.Helper()
	tracker := newTracker(t)
	m := NewMemeEngager(feed, &scriptAI{replies: []string{"This is painfully accurate."}}, tracker, g, NewPersona(""), MemeConfig{
		Handle:   botHandle,
		Keywords: []string{"AI meme"},
		Retry:    RetryConfig{Attempts: 2},
	})
	m.now = func() time.Time { return now }
	return m, tracker
}

func memeFeed() (*fakeFeed, core.Post) {
	meme := hotPost(7, 80, time.Hour)
	mine := hotPost(8, 200, time.Hour)
	mine.AuthorHandle = botHandle

	return &fakeFeed{
		search:  map[string][]core.Post{"AI meme": {mine, meme, hotPost(9, 20, time.Hour)}},
		threads: map[string]core.PostThread{meme.URI: {Post: meme}},
	}, meme
}

func TestMemeEngager_RepliesToTopMeme(t *testing.T) {
	feed, meme := memeFeed()
	m, tracker := newTestMemes(t, feed, &fakeGate{})

	res, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Processed: 1}, res)

	require.Len(t, feed.created, 1)
	post := feed.created[0]
	assert.True(t, strings.HasPrefix(post.Text, "@user7.bsky.social "))
	assert.Equal(t, meme.Ref(), post.Reply.Root)
	assert.Equal(t, meme.Ref(), post.Reply.Parent)
	require.Len(t, post.Facets, 1)
	assert.True(t, tracker.IsUsed(used.KindMemes, meme.URI))
}

func TestMemeEngager_SkipsUsed(t *testing.T) {
	feed, meme := memeFeed()
	m, tracker := newTestMemes(t, feed, &fakeGate{})
	require.NoError(t, tracker.MarkUsed(context.Background(), used.KindMemes, meme.URI))
	feed.search["AI meme"] = feed.search["AI meme"][:2]

	res, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Empty(t, feed.created)
}

func TestMemeEngager_ForceStop(t *testing.T) {
	feed, meme := memeFeed()
	// checks: run start, publish
	m, tracker := newTestMemes(t, feed, &fakeGate{stopAt: 2})

	res, err := m.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Empty(t, feed.created)
	assert.False(t, tracker.IsUsed(used.KindMemes, meme.URI))
}
