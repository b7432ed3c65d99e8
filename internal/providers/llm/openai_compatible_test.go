package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sandevgo/greybot/internal/config"
	"github.com/sandevgo/greybot/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAICompatible_Chat(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.Equal(t, "yes", r.Header.Get("X-Extra"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello"}}]}`))
	}))
	defer srv.Close()

	p := NewOpenAICompatible(OpenAICompatibleConfig{
		BaseURL:      srv.URL,
		APIKey:       "key",
		Model:        "m",
		AuthHeader:   "Authorization",
		AuthPrefix:   "Bearer ",
		ExtraHeaders: map[string]string{"X-Extra": "yes"},
		Timeout:      time.Second,
	})

	msg, err := p.Chat(context.Background(), []core.Message{{Role: core.RoleUser, Content: "hi"}}, core.ChatOptions{MaxTokens: 50})
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Content)
	assert.Equal(t, "m", got["model"])
	assert.EqualValues(t, 50, got["max_tokens"])
	_, hasTemp := got["temperature"]
	assert.False(t, hasTemp)
}

func TestOpenAICompatible_StatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		target error
	}{
		{"rate limited", http.StatusTooManyRequests, core.ErrRateLimited},
		{"bad gateway", http.StatusBadGateway, core.ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			p := NewCustomOpenAI(srv.URL, "", "m", time.Second)
			_, err := p.Chat(context.Background(), nil, core.ChatOptions{})
			assert.ErrorIs(t, err, tt.target)
		})
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()
	_, err := NewCustomOpenAI(srv.URL, "", "m", time.Second).Chat(context.Background(), nil, core.ChatOptions{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, core.ErrTransient)
	assert.NotErrorIs(t, err, core.ErrRateLimited)
}

func TestOpenAICompatible_EmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	_, err := NewCustomOpenAI(srv.URL, "", "m", time.Second).Chat(context.Background(), nil, core.ChatOptions{})
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	p, err := NewProvider(ctx, &config.LLMConfig{Provider: "openrouter", Model: "m"}, time.Second)
	require.NoError(t, err)
	assert.IsType(t, &OpenRouter{}, p)

	_, err = NewProvider(ctx, &config.LLMConfig{Provider: "custom"}, time.Second)
	assert.Error(t, err)

	_, err = NewProvider(ctx, &config.LLMConfig{Provider: "nope"}, time.Second)
	assert.Error(t, err)
}
