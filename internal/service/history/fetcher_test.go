package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sandevgo/greybot/internal/config"
	"github.com/sandevgo/greybot/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manyPosts(n int) []core.Post {
	posts := make([]core.Post, n)
	for i := range posts {
		// newest first, 5 minutes apart so every post is its own thread
		posts[i] = post(i, -time.Duration(i)*5*time.Minute)
	}
	return posts
}

func TestFetcher_FiveMockPosts(t *testing.T) {
	feed := &fakeFeed{posts: fivePosts()}
	f := NewFetcher(feed, TimeAdjacency{Gap: DefaultThreadGap}, 0, 0)

	threads, err := f.FetchThreads(context.Background(), "grey.bsky.social", 100)
	require.NoError(t, err)
	require.Len(t, threads, 3)
	assert.Equal(t, []string{"post 1", "post 2"}, texts(threads[0]))
	assert.Equal(t, []string{"post 3"}, texts(threads[1]))
	assert.Equal(t, []string{"post 4", "post 5"}, texts(threads[2]))

	posts, err := f.FetchRecentPosts(context.Background(), "grey.bsky.social", 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"post 1", "post 2", "post 3", "post 4", "post 5"}, texts(posts))
	assert.Equal(t, []int{0, 1, 0, 0, 1}, []int{posts[0].Position, posts[1].Position, posts[2].Position, posts[3].Position, posts[4].Position})
}

func TestFetcher_Pagination(t *testing.T) {
	feed := &fakeFeed{posts: manyPosts(250)}
	f := NewFetcher(feed, nil, 0, 0)

	posts, err := f.FetchRecentPosts(context.Background(), "grey", 230)
	require.NoError(t, err)
	assert.Len(t, posts, 230)
	assert.Equal(t, []int{100, 100, 30}, feed.limits)
}

func TestFetcher_StopsWhenFeedEnds(t *testing.T) {
	feed := &fakeFeed{posts: manyPosts(120)}
	f := NewFetcher(feed, nil, 0, 0)

	posts, err := f.FetchRecentPosts(context.Background(), "grey", 500)
	require.NoError(t, err)
	assert.Len(t, posts, 120)
	assert.Equal(t, 2, feed.calls)
}

func TestFetcher_PartialOnMidPaginationFailure(t *testing.T) {
	feed := &fakeFeed{posts: manyPosts(250), failPage: 2}
	f := NewFetcher(feed, nil, 0, 0)

	posts, err := f.FetchRecentPosts(context.Background(), "grey", 250)
	require.NoError(t, err)
	assert.Len(t, posts, 100)
	assert.Equal(t, 2, feed.calls, "no retry of the failed page")
}

func TestFetcher_FirstPageFailure(t *testing.T) {
	feed := &fakeFeed{posts: manyPosts(10), failPage: 1}
	f := NewFetcher(feed, nil, 0, 0)

	_, err := f.FetchRecentPosts(context.Background(), "grey", 10)
	assert.ErrorIs(t, err, core.ErrTransient)
}

func TestFetcher_ResolveFailure(t *testing.T) {
	boom := errors.New("unknown handle")
	f := NewFetcher(&fakeFeed{resolveErr: boom}, nil, 0, 0)

	_, err := f.FetchRecentPosts(context.Background(), "ghost", 10)
	assert.ErrorIs(t, err, boom)
}

func TestFetcher_MaxThreads(t *testing.T) {
	feed := &fakeFeed{posts: manyPosts(10)}
	f := NewFetcher(feed, nil, 0, 3)

	threads, err := f.FetchThreads(context.Background(), "grey", 10)
	require.NoError(t, err)
	assert.Len(t, threads, 3)
}

func TestFetcher_PageDelayHonoursContext(t *testing.T) {
	feed := &fakeFeed{posts: manyPosts(250)}
	f := NewFetcher(feed, nil, time.Hour, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := f.FetchRecentPosts(ctx, "grey", 250)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, feed.calls)
}

func TestFetcher_PagesWithoutPosts(t *testing.T) {
	tests := []struct {
		name      string
		pages     []core.FeedPage
		wantTexts []string
		wantCalls int
	}{
		{
			name: "repost-only page keeps paging",
			pages: []core.FeedPage{
				{Cursor: "page2"},
				{Posts: []core.Post{post(1, 0), post(2, -5*time.Minute), post(3, -10*time.Minute)}},
			},
			wantTexts: []string{"post 1", "post 2", "post 3"},
			wantCalls: 2,
		},
		{
			name: "several empty pages before posts",
			pages: []core.FeedPage{
				{Cursor: "a"},
				{Cursor: "b"},
				{Posts: []core.Post{post(1, 0)}, Cursor: "c"},
				{},
			},
			wantTexts: []string{"post 1"},
			wantCalls: 4,
		},
		{
			name: "repeated cursor ends pagination",
			pages: []core.FeedPage{
				{Posts: []core.Post{post(1, 0)}, Cursor: "same"},
				{Cursor: "same"},
				{Posts: []core.Post{post(2, -time.Hour)}},
			},
			wantTexts: []string{"post 1"},
			wantCalls: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			feed := &fakeFeed{pages: tt.pages}
			f := NewFetcher(feed, nil, 0, 0)

			posts, err := f.FetchRecentPosts(context.Background(), "grey", 100)
			require.NoError(t, err)
			assert.Equal(t, tt.wantTexts, texts(posts))
			assert.Equal(t, tt.wantCalls, feed.calls)
		})
	}
}

func TestFetcher_EmptyHistory(t *testing.T) {
	tests := []struct {
		name string
		feed *fakeFeed
	}{
		{name: "no posts at all", feed: &fakeFeed{}},
		{name: "only reposts", feed: &fakeFeed{pages: []core.FeedPage{{Cursor: "next"}, {}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFetcher(tt.feed, nil, 0, 0)

			posts, err := f.FetchRecentPosts(context.Background(), "grey", 100)
			assert.ErrorIs(t, err, core.ErrNoHistory)
			assert.Empty(t, posts)
		})
	}
}

func TestNewFetcherFromConfig(t *testing.T) {
	_, err := NewFetcherFromConfig(&fakeFeed{}, &config.MemoryConfig{Threading: "reply", ThreadGap: time.Minute})
	require.NoError(t, err)

	_, err = NewFetcherFromConfig(&fakeFeed{}, &config.MemoryConfig{Threading: "bogus"})
	assert.Error(t, err)
}
