package bot

import (
	"sort"
	"time"

	"github.com/sandevgo/greybot/internal/core"
)

const (
	viralWindow   = 6 * time.Hour
	minEngagement = 10.0
	searchLimit   = 50
)

type ScoredPost struct {
	core.Post
	Engagement float64
}

// Engagement weighs reposts double and fades linearly over the six hour
// window: a fresh post scores twice its raw count, a six hour old one once.
func Engagement(p core.Post, now time.Time) float64 {
	age := now.Sub(p.CreatedAt)
	timeFactor := 1 + (1 - age.Seconds()/viralWindow.Seconds())
	return float64(p.LikeCount+2*p.RepostCount+p.ReplyCount) * timeFactor
}

// RankViral keeps recent, engaging posts that skip reports as unused, one per
// distinct text, best first.
func RankViral(posts []core.Post, now time.Time, skip func(core.Post) bool, limit int) []ScoredPost {
	seen := make(map[string]bool)
	var ranked []ScoredPost

	for _, p := range posts {
		if p.CreatedAt.IsZero() || now.Sub(p.CreatedAt) > viralWindow {
			continue
		}
		if seen[p.Text] || (skip != nil && skip(p)) {
			continue
		}
		score := Engagement(p, now)
		if score <= minEngagement {
			continue
		}
		seen[p.Text] = true
		ranked = append(ranked, ScoredPost{Post: p, Engagement: score})
	}

	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Engagement > ranked[b].Engagement
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
