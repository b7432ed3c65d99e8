package bot

import (
	"regexp"
	"strings"

	"github.com/sandevgo/greybot/pkg/conv"
)

var postMarker = regexp.MustCompile(`(?i)\**\s*post\s*\d+\s*:\s*\**`)

// ParseThread splits a "POST 1: ... POST 2: ..." completion into parts of at
// most maxLen runes. Text before the first marker is dropped; a completion
// without markers yields nil.
func ParseThread(content string, maxLen int) []string {
	if !postMarker.MatchString(content) {
		return nil
	}

	chunks := postMarker.Split(content, -1)[1:]
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		c = strings.Trim(strings.TrimSpace(c), `"`)
		if c == "" {
			continue
		}
		parts = append(parts, conv.Truncate(c, maxLen))
	}
	return parts
}
