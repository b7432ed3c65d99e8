package used

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sandevgo/greybot/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTracker(t *testing.T, dir string, caps Caps) *Tracker {
	t.Helper()
	tr, err := NewTracker(
		filepath.Join(dir, "used_content.json"),
		filepath.Join(dir, "used_memes.json"),
		caps,
		PolicyReset,
	)
	require.NoError(t, err)
	require.NoError(t, tr.Load(context.Background()))
	return tr
}

var defaultCaps = Caps{Posts: 1000, Topics: 100, Memes: 1000}

func TestTracker_PersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tr := newTestTracker(t, dir, defaultCaps)
	require.NoError(t, tr.MarkUsed(ctx, KindPosts, "a", "b"))
	require.NoError(t, tr.MarkUsed(ctx, KindTopics, "x"))

	reloaded := newTestTracker(t, dir, defaultCaps)
	assert.True(t, reloaded.IsUsed(KindPosts, "a"))
	assert.True(t, reloaded.IsUsed(KindPosts, "b"))
	assert.True(t, reloaded.IsUsed(KindTopics, "x"))
	assert.False(t, reloaded.IsUsed(KindTopics, "a"))
	assert.Equal(t, map[Kind]int{KindPosts: 2, KindTopics: 1, KindMemes: 0}, reloaded.Sizes())

	raw, err := os.ReadFile(filepath.Join(dir, "used_content.json"))
	require.NoError(t, err)
	var doc map[string][]string
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.ElementsMatch(t, []string{"a", "b"}, doc["posts"])
	assert.Equal(t, []string{"x"}, doc["topics"])
}

func TestTracker_MemesInSeparateFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tr := newTestTracker(t, dir, defaultCaps)
	require.NoError(t, tr.MarkUsed(ctx, KindMemes, "at://did:plc:x/app.bsky.feed.post/1"))

	raw, err := os.ReadFile(filepath.Join(dir, "used_memes.json"))
	require.NoError(t, err)
	var uris []string
	require.NoError(t, json.Unmarshal(raw, &uris))
	assert.Equal(t, []string{"at://did:plc:x/app.bsky.feed.post/1"}, uris)

	_, err = os.Stat(filepath.Join(dir, "used_content.json"))
	assert.True(t, os.IsNotExist(err), "content file untouched by meme writes")
}

func TestTracker_ResetPersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	tr := newTestTracker(t, dir, Caps{Posts: 2, Topics: 2, Memes: 2})
	require.NoError(t, tr.MarkUsed(ctx, KindTopics, "t1", "t2", "t3"))
	assert.Equal(t, 1, tr.Sizes()[KindTopics])

	reloaded := newTestTracker(t, dir, Caps{Posts: 2, Topics: 2, Memes: 2})
	assert.True(t, reloaded.IsUsed(KindTopics, "t3"))
	assert.False(t, reloaded.IsUsed(KindTopics, "t1"))
}

func TestTracker_LoadsLegacyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "used_content.json"),
		[]byte(`{"posts": ["hello world"], "topics": ["ai safety"]}`),
		0644,
	))

	tr := newTestTracker(t, dir, defaultCaps)
	assert.True(t, tr.IsUsed(KindPosts, "hello world"))
	assert.True(t, tr.IsUsed(KindTopics, "ai safety"))
}

func TestTracker_UnknownKind(t *testing.T) {
	tr := newTestTracker(t, t.TempDir(), defaultCaps)
	assert.Error(t, tr.MarkUsed(context.Background(), Kind("gifs"), "x"))
	assert.False(t, tr.IsUsed(Kind("gifs"), "x"))
}

func TestTracker_NoWriteWithoutChange(t *testing.T) {
	dir := t.TempDir()
	tr := newTestTracker(t, dir, defaultCaps)

	require.NoError(t, tr.MarkUsed(context.Background(), KindPosts, ""))
	_, err := os.Stat(filepath.Join(dir, "used_content.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestNewTrackerFromConfig(t *testing.T) {
	dir := t.TempDir()
	app := &config.AppConfig{RuntimePath: dir}

	tr, err := NewTrackerFromConfig(app, &config.MemoryConfig{UsedPostsCap: 10, UsedTopicsCap: 5, UsedMemesCap: 10, UsedPolicy: "lru"})
	require.NoError(t, err)
	assert.Equal(t, 5, tr.sets[KindTopics].Cap())

	_, err = NewTrackerFromConfig(app, &config.MemoryConfig{UsedPostsCap: 10, UsedTopicsCap: 5, UsedMemesCap: 10, UsedPolicy: "coin-flip"})
	assert.Error(t, err)
}
