package rag

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	tk     *tiktoken.Tiktoken
	tkErr  error
	tkOnce sync.Once
)

func getTokenizer() (*tiktoken.Tiktoken, error) {
	tkOnce.Do(func() {
		tk, tkErr = tiktoken.GetEncoding("cl100k_base")
	})
	return tk, tkErr
}

// TruncateTokens cuts text to at most maxTokens cl100k tokens. Text whose byte
// length is within the limit cannot exceed it and is returned untouched.
func TruncateTokens(text string, maxTokens int) string {
	if maxTokens <= 0 || len(text) <= maxTokens {
		return text
	}

	enc, err := getTokenizer()
	if err != nil {
		// roughly four bytes per token for english text
		return truncateRunes(text, maxTokens*4)
	}

	ids := enc.Encode(text, nil, nil)
	if len(ids) <= maxTokens {
		return text
	}
	return enc.Decode(ids[:maxTokens])
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
