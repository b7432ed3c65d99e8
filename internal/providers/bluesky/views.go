package bluesky

import (
	"encoding/json"
	"time"

	"github.com/sandevgo/greybot/internal/core"
)

type actorView struct {
	DID    string `json:"did"`
	Handle string `json:"handle"`
}

type postRecord struct {
	Type      string         `json:"$type,omitempty"`
	Text      string         `json:"text"`
	CreatedAt string         `json:"createdAt"`
	Reply     *core.ReplyRef `json:"reply,omitempty"`
	Facets    []core.Facet   `json:"facets,omitempty"`
	Langs     []string       `json:"langs,omitempty"`
}

type postView struct {
	URI         string          `json:"uri"`
	CID         string          `json:"cid"`
	Author      actorView       `json:"author"`
	Record      json.RawMessage `json:"record"`
	LikeCount   int             `json:"likeCount"`
	RepostCount int             `json:"repostCount"`
	ReplyCount  int             `json:"replyCount"`
	IndexedAt   string          `json:"indexedAt"`
}

func (v postView) toPost() core.Post {
	p := core.Post{
		URI:          v.URI,
		CID:          v.CID,
		AuthorHandle: v.Author.Handle,
		AuthorDID:    v.Author.DID,
		LikeCount:    v.LikeCount,
		RepostCount:  v.RepostCount,
		ReplyCount:   v.ReplyCount,
	}

	var rec postRecord
	if len(v.Record) > 0 && json.Unmarshal(v.Record, &rec) == nil {
		p.Text = rec.Text
		p.Reply = rec.Reply
		p.CreatedAt = parseTime(rec.CreatedAt)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = parseTime(v.IndexedAt)
	}
	return p
}

// parseTime accepts the datetime variants seen on the network; unparseable
// values yield the zero time.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func formatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
