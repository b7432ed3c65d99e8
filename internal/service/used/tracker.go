package used

import (
	"context"
	"fmt"
	"sync"

	"github.com/sandevgo/greybot/internal/config"
	"github.com/sandevgo/greybot/internal/storage/snapshot"
	"github.com/sandevgo/greybot/pkg/log"
)

type Kind string

const (
	KindPosts  Kind = "posts"
	KindTopics Kind = "topics"
	KindMemes  Kind = "memes"
)

type contentDoc struct {
	Posts  []string `json:"posts"`
	Topics []string `json:"topics"`
}

type Caps struct {
	Posts  int
	Topics int
	Memes  int
}

// Tracker remembers what the bot already used so it does not repeat itself.
// Posts and topics share used_content.json; meme URIs live in used_memes.json.
type Tracker struct {
	mu      sync.Mutex
	sets    map[Kind]*Set
	content *snapshot.File[contentDoc]
	memes   *snapshot.File[[]string]
}

func NewTracker(contentPath, memesPath string, caps Caps, policy Policy) (*Tracker, error) {
	sets := make(map[Kind]*Set, 3)
	for kind, capacity := range map[Kind]int{
		KindPosts:  caps.Posts,
		KindTopics: caps.Topics,
		KindMemes:  caps.Memes,
	} {
		s, err := NewSet(capacity, policy)
		if err != nil {
			return nil, fmt.Errorf("%s set: %w", kind, err)
		}
		sets[kind] = s
	}

	return &Tracker{
		sets:    sets,
		content: snapshot.NewFile[contentDoc](contentPath),
		memes:   snapshot.NewFile[[]string](memesPath),
	}, nil
}

func NewTrackerFromConfig(app *config.AppConfig, mem *config.MemoryConfig) (*Tracker, error) {
	policy, err := ParsePolicy(mem.UsedPolicy)
	if err != nil {
		return nil, err
	}
	return NewTracker(app.GetUsedContentPath(), app.GetUsedMemesPath(), Caps{
		Posts:  mem.UsedPostsCap,
		Topics: mem.UsedTopicsCap,
		Memes:  mem.UsedMemesCap,
	}, policy)
}

// Load seeds the sets from disk. Missing files mean nothing was used yet.
func (t *Tracker) Load(ctx context.Context) error {
	doc, err := t.content.Load(ctx)
	if err != nil {
		return err
	}
	memes, err := t.memes.Load(ctx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for kind, items := range map[Kind][]string{
		KindPosts:  doc.Posts,
		KindTopics: doc.Topics,
		KindMemes:  memes,
	} {
		for _, item := range items {
			t.sets[kind].Add(item)
		}
	}

	log.FromCtx(ctx).Info().
		Int("posts", t.sets[KindPosts].Len()).
		Int("topics", t.sets[KindTopics].Len()).
		Int("memes", t.sets[KindMemes].Len()).
		Msg("used content loaded")
	return nil
}

func (t *Tracker) IsUsed(kind Kind, item string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sets[kind]
	if !ok {
		return false
	}
	return s.Contains(item)
}

// MarkUsed records items and writes the affected snapshot file.
func (t *Tracker) MarkUsed(ctx context.Context, kind Kind, items ...string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.sets[kind]
	if !ok {
		return fmt.Errorf("unknown used-content kind: %s", kind)
	}

	changed := false
	for _, item := range items {
		if item == "" {
			continue
		}
		if s.Add(item) {
			changed = true
		}
	}
	if !changed {
		return nil
	}

	if kind == KindMemes {
		return t.memes.Save(ctx, t.sets[KindMemes].Items())
	}
	return t.content.Save(ctx, contentDoc{
		Posts:  t.sets[KindPosts].Items(),
		Topics: t.sets[KindTopics].Items(),
	})
}

func (t *Tracker) Sizes() map[Kind]int {
	t.mu.Lock()
	defer t.mu.Unlock()

	sizes := make(map[Kind]int, len(t.sets))
	for kind, s := range t.sets {
		sizes[kind] = s.Len()
	}
	return sizes
}
