package bluesky

import (
	"strings"

	"github.com/sandevgo/greybot/internal/core"
)

const mentionFeature = "app.bsky.richtext.facet#mention"

// NewReplyRef builds the reply block for answering target. A target that is
// itself a thread root becomes both root and parent.
func NewReplyRef(target core.Post) (core.ReplyRef, error) {
	if target.URI == "" || target.CID == "" {
		return core.ReplyRef{}, core.ErrMissingCID
	}

	parent := target.Ref()
	root := parent
	if target.Reply != nil && target.Reply.Root.URI != "" {
		root = target.Reply.Root
		if root.CID == "" {
			return core.ReplyRef{}, core.ErrMissingCID
		}
	}
	return core.ReplyRef{Root: root, Parent: parent}, nil
}

// MentionFacet links the first "@handle" in text to did. Offsets are UTF-8
// byte positions.
func MentionFacet(text, handle, did string) (core.Facet, bool) {
	mention := "@" + strings.TrimPrefix(handle, "@")
	start := strings.Index(text, mention)
	if start < 0 || did == "" {
		return core.Facet{}, false
	}
	return core.Facet{
		Index: core.ByteSlice{ByteStart: start, ByteEnd: start + len(mention)},
		Features: []core.FacetFeature{
			{Type: mentionFeature, DID: did},
		},
	}, true
}
