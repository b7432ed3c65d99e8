package bluesky

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/sandevgo/greybot/internal/core"
)

const maxPageSize = 100

type feedViewPost struct {
	Post   postView        `json:"post"`
	Reason json.RawMessage `json:"reason,omitempty"`
}

// GetAuthorFeed returns one page of posts authored by did. Reposts are left out.
func (c *Client) GetAuthorFeed(ctx context.Context, did string, limit int, cursor string) (core.FeedPage, error) {
	params := url.Values{}
	params.Set("actor", did)
	params.Set("limit", strconv.Itoa(clampLimit(limit)))
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	var out struct {
		Cursor string         `json:"cursor"`
		Feed   []feedViewPost `json:"feed"`
	}
	if err := c.get(ctx, "app.bsky.feed.getAuthorFeed", params, &out); err != nil {
		return core.FeedPage{}, err
	}

	page := core.FeedPage{Cursor: out.Cursor}
	for _, item := range out.Feed {
		if len(item.Reason) > 0 && string(item.Reason) != "null" {
			continue
		}
		page.Posts = append(page.Posts, item.Post.toPost())
	}
	return page, nil
}

type threadView struct {
	Type    string          `json:"$type"`
	Post    *postView       `json:"post"`
	Parent  json.RawMessage `json:"parent"`
	Replies []threadView    `json:"replies"`
}

// GetPostThread fetches the current view of a post with its ancestors and
// direct replies, so callers always reply against fresh CIDs.
func (c *Client) GetPostThread(ctx context.Context, uri string) (core.PostThread, error) {
	params := url.Values{}
	params.Set("uri", uri)
	params.Set("depth", "1")

	var out struct {
		Thread threadView `json:"thread"`
	}
	if err := c.get(ctx, "app.bsky.feed.getPostThread", params, &out); err != nil {
		return core.PostThread{}, err
	}
	if out.Thread.Post == nil {
		return core.PostThread{}, fmt.Errorf("thread %s unavailable (%s)", uri, out.Thread.Type)
	}

	thread := core.PostThread{Post: out.Thread.Post.toPost()}
	if thread.Post.CID == "" {
		return core.PostThread{}, fmt.Errorf("thread %s: %w", uri, core.ErrMissingCID)
	}

	// parents are collected nearest first and returned root first
	raw := out.Thread.Parent
	for len(raw) > 0 && string(raw) != "null" {
		var parent threadView
		if err := json.Unmarshal(raw, &parent); err != nil || parent.Post == nil {
			break
		}
		thread.Parents = append([]core.Post{parent.Post.toPost()}, thread.Parents...)
		raw = parent.Parent
	}

	for _, r := range out.Thread.Replies {
		if r.Post != nil {
			thread.Replies = append(thread.Replies, r.Post.toPost())
		}
	}
	return thread, nil
}

// SearchPosts runs a full-text post search, newest first.
func (c *Client) SearchPosts(ctx context.Context, query string, limit int) ([]core.Post, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(clampLimit(limit)))
	params.Set("sort", "latest")

	var out struct {
		Posts []postView `json:"posts"`
	}
	if err := c.get(ctx, "app.bsky.feed.searchPosts", params, &out); err != nil {
		return nil, err
	}

	posts := make([]core.Post, 0, len(out.Posts))
	for _, v := range out.Posts {
		posts = append(posts, v.toPost())
	}
	return posts, nil
}

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 50
	case limit > maxPageSize:
		return maxPageSize
	default:
		return limit
	}
}
