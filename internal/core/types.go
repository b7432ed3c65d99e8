package core

import "time"

const (
	GreyName          = "GreyBot"
	GreyUserAgent     = "GreyBot/0.1"
	GreyRepositoryURL = "https://github.com/sandevgo/greybot"
	GreyVersion       = "0.1.0"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// MaxPostLength is the Bluesky post limit in characters.
const MaxPostLength = 300

// StrongRef points at a specific version of a record.
type StrongRef struct {
	URI string `json:"uri"`
	CID string `json:"cid"`
}

// ReplyRef is the reply block of a post record. Both refs must carry a current
// CID or the write is rejected.
type ReplyRef struct {
	Root   StrongRef `json:"root"`
	Parent StrongRef `json:"parent"`
}

type Post struct {
	URI          string    `json:"uri"`
	CID          string    `json:"cid"`
	Text         string    `json:"text"`
	CreatedAt    time.Time `json:"created_at"`
	AuthorHandle string    `json:"author_handle"`
	AuthorDID    string    `json:"author_did"`
	Reply        *ReplyRef `json:"reply,omitempty"`

	LikeCount   int `json:"like_count"`
	RepostCount int `json:"repost_count"`
	ReplyCount  int `json:"reply_count"`

	// Position is the index of the post inside its reconstructed thread.
	Position int `json:"position"`
}

func (p Post) Ref() StrongRef {
	return StrongRef{URI: p.URI, CID: p.CID}
}

// ByteSlice is a UTF-8 byte range inside post text.
type ByteSlice struct {
	ByteStart int `json:"byteStart"`
	ByteEnd   int `json:"byteEnd"`
}

type FacetFeature struct {
	Type string `json:"$type"`
	DID  string `json:"did,omitempty"`
	URI  string `json:"uri,omitempty"`
	Tag  string `json:"tag,omitempty"`
}

type Facet struct {
	Index    ByteSlice      `json:"index"`
	Features []FacetFeature `json:"features"`
}

// NewPost is the payload for creating a post record.
type NewPost struct {
	Text   string
	Reply  *ReplyRef
	Facets []Facet
}

// PostThread is a post together with the thread context around it.
type PostThread struct {
	Post    Post
	Parents []Post
	Replies []Post
}

type Notification struct {
	URI          string    `json:"uri"`
	CID          string    `json:"cid"`
	Reason       string    `json:"reason"`
	AuthorHandle string    `json:"author_handle"`
	AuthorDID    string    `json:"author_did"`
	Text         string    `json:"text"`
	IndexedAt    time.Time `json:"indexed_at"`
}

type FeedPage struct {
	Posts  []Post
	Cursor string
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions tunes a single completion.
type ChatOptions struct {
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}
