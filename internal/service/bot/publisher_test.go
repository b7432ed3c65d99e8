package bot

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/sandevgo/greybot/internal/core"
	"github.com/sandevgo/greybot/internal/service/used"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fourParts = "Here you go:\nPOST 1: one\nPOST 2: two\nPOST 3: three\nPOST 4: four"

func newTestPublisher(t *testing.T, feed *fakeFeed, ai *scriptAI, g *fakeGate) (*Publisher, *used.Tracker) {
	t.Helper()
	tracker := newTracker(t)
	p := NewPublisher(feed, ai, tracker, g, NewPersona(""), PublisherConfig{
		Keywords: []string{"ai", "llm"},
		Retry:    RetryConfig{Attempts: 3},
	})
	p.now = func() time.Time { return now }
	return p, tracker
}

func viralFeed() *fakeFeed {
	return &fakeFeed{search: map[string][]core.Post{
		"ai":  {hotPost(1, 50, time.Hour), hotPost(2, 30, time.Hour)},
		"llm": {hotPost(1, 50, time.Hour), hotPost(3, 2, time.Hour)},
	}}
}

func TestPublisher_PublishesThread(t *testing.T) {
	feed := viralFeed()
	ai := &scriptAI{replies: []string{`"Open models."`, fourParts}}
	p, tracker := newTestPublisher(t, feed, ai, &fakeGate{})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Processed: 4}, res)

	require.Len(t, feed.created, 4)
	assert.Nil(t, feed.created[0].Reply)
	assert.Equal(t, "one", feed.created[0].Text)
	for i := 1; i < 4; i++ {
		reply := feed.created[i].Reply
		require.NotNil(t, reply)
		assert.Equal(t, "at://did:plc:grey/app.bsky.feed.post/r1", reply.Root.URI)
		assert.Equal(t, "rc1", reply.Root.CID)
		assert.Equal(t, fmt.Sprintf("rc%d", i), reply.Parent.CID)
	}

	assert.Equal(t, core.ChatOptions{MaxTokens: 50, Temperature: 0.3}, ai.opts[0])
	assert.Equal(t, core.ChatOptions{MaxTokens: 1000, Temperature: 0.7}, ai.opts[1])
	assert.Contains(t, ai.lastPrompt(), "Open models")

	assert.True(t, tracker.IsUsed(used.KindTopics, "Open models"))
	assert.True(t, tracker.IsUsed(used.KindPosts, "hot take 1"))
	assert.True(t, tracker.IsUsed(used.KindPosts, "hot take 2"))
	assert.False(t, tracker.IsUsed(used.KindPosts, "hot take 3"))
}

func TestPublisher_SkipsUsedTopic(t *testing.T) {
	feed := viralFeed()
	ai := &scriptAI{replies: []string{"Open models", fourParts}}
	p, tracker := newTestPublisher(t, feed, ai, &fakeGate{})
	require.NoError(t, tracker.MarkUsed(context.Background(), used.KindTopics, "Open models"))

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Len(t, ai.calls, 1)
	assert.Empty(t, feed.created)
	assert.True(t, tracker.IsUsed(used.KindPosts, "hot take 1"))

	// the same posts are not offered again
	res, err = p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Len(t, ai.calls, 1)
}

func TestPublisher_SkipsUsedPosts(t *testing.T) {
	feed := viralFeed()
	ai := &scriptAI{replies: []string{"Open models", fourParts}}
	p, tracker := newTestPublisher(t, feed, ai, &fakeGate{})
	require.NoError(t, tracker.MarkUsed(context.Background(), used.KindPosts, "hot take 1", "hot take 2"))

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
	assert.Empty(t, ai.calls)
}

func TestPublisher_RegeneratesUnparsableThread(t *testing.T) {
	feed := viralFeed()
	ai := &scriptAI{replies: []string{"Open models", "a wall of text", "POST 1: only one", fourParts}}
	p, _ := newTestPublisher(t, feed, ai, &fakeGate{})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Processed)
	assert.Len(t, ai.calls, 4)
}

func TestPublisher_GivesUpAfterAttempts(t *testing.T) {
	feed := viralFeed()
	ai := &scriptAI{replies: []string{"Open models", "no markers here"}}
	p, tracker := newTestPublisher(t, feed, ai, &fakeGate{})

	_, err := p.Run(context.Background())
	require.Error(t, err)
	assert.Len(t, ai.calls, 4)
	assert.Empty(t, feed.created)
	assert.False(t, tracker.IsUsed(used.KindTopics, "Open models"))
}

func TestPublisher_ForceStopMidThread(t *testing.T) {
	feed := viralFeed()
	ai := &scriptAI{replies: []string{"Open models", fourParts}}
	// checks: run start, generation attempt, part 1, part 2
	p, tracker := newTestPublisher(t, feed, ai, &fakeGate{stopAt: 4})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Processed: 1, Cancelled: true}, res)
	assert.Len(t, feed.created, 1)
	assert.False(t, tracker.IsUsed(used.KindTopics, "Open models"))
	assert.False(t, tracker.IsUsed(used.KindPosts, "hot take 1"))
}

func TestPublisher_ForceStopBeforeGeneration(t *testing.T) {
	feed := viralFeed()
	ai := &scriptAI{replies: []string{"Open models", fourParts}}
	p, _ := newTestPublisher(t, feed, ai, &fakeGate{stopAt: 2})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.Len(t, ai.calls, 1)
}

func TestPublisher_SearchErrors(t *testing.T) {
	feed := viralFeed()
	feed.searchErr = map[string]error{"llm": core.ErrTransient}
	ai := &scriptAI{replies: []string{"Open models", fourParts}}
	p, _ := newTestPublisher(t, feed, ai, &fakeGate{})

	res, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, res.Processed)

	feed.searchErr = map[string]error{"ai": core.ErrRateLimited}
	_, err = p.Run(context.Background())
	assert.ErrorIs(t, err, core.ErrRateLimited)
}
