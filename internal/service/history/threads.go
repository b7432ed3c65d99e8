package history

import (
	"fmt"
	"sort"
	"time"

	"github.com/sandevgo/greybot/internal/core"
)

const DefaultThreadGap = 60 * time.Second

// ThreadBuilder groups posts, given in feed order, into threads. Clusters are
// returned in the order they were discovered.
type ThreadBuilder interface {
	Build(posts []core.Post) [][]core.Post
}

// TimeAdjacency groups posts written in quick succession. By default every
// post is compared with its neighbour in feed order; Anchored compares it with
// the first post of the current cluster instead.
type TimeAdjacency struct {
	Gap      time.Duration
	Anchored bool
}

func (t TimeAdjacency) Build(posts []core.Post) [][]core.Post {
	if len(posts) == 0 {
		return nil
	}
	gap := t.Gap
	if gap <= 0 {
		gap = DefaultThreadGap
	}

	var clusters [][]core.Post
	current := []core.Post{posts[0]}

	for i := 1; i < len(posts); i++ {
		ref := posts[i-1]
		if t.Anchored {
			ref = current[0]
		}
		if absDuration(posts[i].CreatedAt.Sub(ref.CreatedAt)) > gap {
			clusters = append(clusters, current)
			current = []core.Post{}
		}
		current = append(current, posts[i])
	}

	return append(clusters, current)
}

// ReplyGraph groups posts by the root of their reply chain. Posts that are
// neither replies nor roots of a reply in the set go to Fallback, or stand
// alone when Fallback is nil.
type ReplyGraph struct {
	Fallback ThreadBuilder
}

func (r ReplyGraph) Build(posts []core.Post) [][]core.Post {
	if len(posts) == 0 {
		return nil
	}

	rooted := make(map[string]bool)
	for _, p := range posts {
		if p.Reply != nil && p.Reply.Root.URI != "" {
			rooted[p.Reply.Root.URI] = true
		}
	}

	type group struct {
		first int
		posts []core.Post
	}

	byRoot := make(map[string]*group)
	var groups []*group
	var loose []core.Post

	for i, p := range posts {
		key := ""
		switch {
		case p.Reply != nil && p.Reply.Root.URI != "":
			key = p.Reply.Root.URI
		case rooted[p.URI]:
			key = p.URI
		}

		if key == "" {
			// Position carries the feed index through Fallback; arrange
			// renumbers it afterwards.
			p.Position = i
			loose = append(loose, p)
			continue
		}

		g, ok := byRoot[key]
		if !ok {
			g = &group{first: i}
			byRoot[key] = g
			groups = append(groups, g)
		}
		g.posts = append(g.posts, p)
	}

	if len(loose) > 0 {
		var looseClusters [][]core.Post
		if r.Fallback != nil {
			looseClusters = r.Fallback.Build(loose)
		} else {
			for _, p := range loose {
				looseClusters = append(looseClusters, []core.Post{p})
			}
		}
		for _, c := range looseClusters {
			groups = append(groups, &group{first: c[0].Position, posts: c})
		}
	}

	sort.SliceStable(groups, func(a, b int) bool {
		return groups[a].first < groups[b].first
	})

	clusters := make([][]core.Post, 0, len(groups))
	for _, g := range groups {
		clusters = append(clusters, g.posts)
	}
	return clusters
}

// NewThreadBuilder maps a GREY_MEMORY_THREADING value to a builder.
func NewThreadBuilder(mode string, gap time.Duration) (ThreadBuilder, error) {
	switch mode {
	case "", "time":
		return TimeAdjacency{Gap: gap}, nil
	case "anchored":
		return TimeAdjacency{Gap: gap, Anchored: true}, nil
	case "reply":
		return ReplyGraph{Fallback: TimeAdjacency{Gap: gap}}, nil
	default:
		return nil, fmt.Errorf("unknown threading mode: %s", mode)
	}
}

// arrange sorts every cluster chronologically and numbers the posts within it.
func arrange(clusters [][]core.Post) [][]core.Post {
	for _, c := range clusters {
		sort.SliceStable(c, func(a, b int) bool {
			return c[a].CreatedAt.Before(c[b].CreatedAt)
		})
		for i := range c {
			c[i].Position = i
		}
	}
	return clusters
}

func flatten(clusters [][]core.Post) []core.Post {
	var out []core.Post
	for _, c := range clusters {
		out = append(out, c...)
	}
	return out
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
