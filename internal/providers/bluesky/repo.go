package bluesky

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/sandevgo/greybot/internal/core"
)

const postCollection = "app.bsky.feed.post"

func (c *Client) ResolveHandle(ctx context.Context, handle string) (string, error) {
	params := url.Values{}
	params.Set("handle", handle)

	var out struct {
		DID string `json:"did"`
	}
	if err := c.get(ctx, "com.atproto.identity.resolveHandle", params, &out); err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", handle, err)
	}
	if out.DID == "" {
		return "", fmt.Errorf("handle %s resolved to an empty did", handle)
	}
	return out.DID, nil
}

// CreateRecord publishes a post in the logged-in account's repo.
func (c *Client) CreateRecord(ctx context.Context, post core.NewPost) (core.StrongRef, error) {
	if post.Reply != nil {
		if err := validateReply(post.Reply); err != nil {
			return core.StrongRef{}, err
		}
	}

	did, err := c.DID(ctx)
	if err != nil {
		return core.StrongRef{}, err
	}

	body := map[string]any{
		"repo":       did,
		"collection": postCollection,
		"record": postRecord{
			Type:      postCollection,
			Text:      post.Text,
			CreatedAt: formatTime(c.now()),
			Reply:     post.Reply,
			Facets:    post.Facets,
			Langs:     []string{"en"},
		},
	}

	var out core.StrongRef
	if err := c.post(ctx, "com.atproto.repo.createRecord", body, &out); err != nil {
		return core.StrongRef{}, err
	}
	return out, nil
}

func validateReply(r *core.ReplyRef) error {
	if r.Root.URI == "" {
		return core.ErrMissingRoot
	}
	if r.Root.CID == "" || r.Parent.CID == "" || r.Parent.URI == "" {
		return core.ErrMissingCID
	}
	return nil
}

func (c *Client) ListNotifications(ctx context.Context, limit int) ([]core.Notification, error) {
	params := url.Values{}
	params.Set("limit", fmt.Sprint(clampLimit(limit)))

	var out struct {
		Notifications []struct {
			URI       string     `json:"uri"`
			CID       string     `json:"cid"`
			Author    actorView  `json:"author"`
			Reason    string     `json:"reason"`
			Record    postRecord `json:"record"`
			IndexedAt string     `json:"indexedAt"`
		} `json:"notifications"`
	}
	if err := c.get(ctx, "app.bsky.notification.listNotifications", params, &out); err != nil {
		return nil, err
	}

	notes := make([]core.Notification, 0, len(out.Notifications))
	for _, n := range out.Notifications {
		notes = append(notes, core.Notification{
			URI:          n.URI,
			CID:          n.CID,
			Reason:       n.Reason,
			AuthorHandle: n.Author.Handle,
			AuthorDID:    n.Author.DID,
			Text:         n.Record.Text,
			IndexedAt:    parseTime(n.IndexedAt),
		})
	}
	return notes, nil
}

func (c *Client) UpdateSeen(ctx context.Context, at time.Time) error {
	return c.post(ctx, "app.bsky.notification.updateSeen", map[string]string{"seenAt": formatTime(at)}, nil)
}
