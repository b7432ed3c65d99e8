package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sandevgo/greybot/internal/config"
	"github.com/sandevgo/greybot/internal/core"
	"github.com/sandevgo/greybot/pkg/log"
)

// Embedder calls an OpenAI-compatible /v1/embeddings endpoint, one text per request.
type Embedder struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	model     string
	dims      int
	maxTokens int
}

func NewEmbedder(cfg *config.EmbeddingConfig, timeout time.Duration) *Embedder {
	return &Embedder{
		client:    &http.Client{Timeout: timeout},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		dims:      cfg.Dims,
		maxTokens: cfg.MaxTokens,
	}
}

type embedRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("cannot embed empty text")
	}
	text = TruncateTokens(text, e.maxTokens)

	body, err := json.Marshal(embedRequest{Input: text, Model: e.model})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", core.GreyUserAgent)
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w: %w", core.ErrTransient, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("embedding http %d: %w", resp.StatusCode, core.ErrRateLimited)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("embedding http %d: %w: %s", resp.StatusCode, core.ErrTransient, string(data))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("embedding http %d: %s", resp.StatusCode, string(data))
	}

	var result embedResponse
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}

	vec := result.Data[0].Embedding
	if e.dims > 0 && len(vec) != e.dims {
		return nil, fmt.Errorf("embedding has %d dimensions, expected %d", len(vec), e.dims)
	}

	log.FromCtx(ctx).Debug().Int("dims", len(vec)).Int("chars", len(text)).Msg("text embedded")
	return vec, nil
}

func (e *Embedder) Dims() int {
	return e.dims
}
