package conv

import "strings"

const ellipsis = "..."

// Truncate cuts s to at most limit runes, replacing the tail with "..." when
// anything was dropped.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	if limit <= len(ellipsis) {
		return string(runes[:limit])
	}
	return strings.TrimSpace(string(runes[:limit-len(ellipsis)])) + ellipsis
}

// Preview is a single-line excerpt suitable for log fields.
func Preview(s string, limit int) string {
	return Truncate(strings.Join(strings.Fields(s), " "), limit)
}
