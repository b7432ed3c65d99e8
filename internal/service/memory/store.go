package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sandevgo/greybot/internal/config"
	"github.com/sandevgo/greybot/internal/core"
	"github.com/sandevgo/greybot/pkg/log"
	"github.com/sandevgo/greybot/pkg/retry"
)

// RebuildError reports a rebuild where at least one batch never reached the
// index. Batches stored before and after the failure stay stored.
type RebuildError struct {
	Stored        int
	Failed        int
	FailedBatches []int
	Err           error
}

func (e *RebuildError) Error() string {
	return fmt.Sprintf("memory rebuild incomplete: %d stored, %d failed in batches %v: %v",
		e.Stored, e.Failed, e.FailedBatches, e.Err)
}

func (e *RebuildError) Unwrap() error {
	return e.Err
}

// Store keeps the vector index in step with the account's post history.
type Store struct {
	index      core.VectorIndex
	embedder   core.Embedder
	batchSize  int
	attempts   int
	retryDelay time.Duration
}

func NewStore(index core.VectorIndex, embedder core.Embedder, batchSize, attempts int, retryDelay time.Duration) *Store {
	if batchSize <= 0 {
		batchSize = 50
	}
	if attempts <= 0 {
		attempts = 1
	}
	return &Store{
		index:      index,
		embedder:   embedder,
		batchSize:  batchSize,
		attempts:   attempts,
		retryDelay: retryDelay,
	}
}

func NewStoreFromConfig(index core.VectorIndex, embedder core.Embedder, cfg *config.MemoryConfig) *Store {
	return NewStore(index, embedder, cfg.BatchSize, cfg.UpsertRetries, cfg.RetryDelay)
}

// Rebuild wipes the index and stores one vector per post. It keeps going past
// a failed batch and returns *RebuildError if any batch was lost; nothing is
// rolled back.
func (s *Store) Rebuild(ctx context.Context, runID string, posts []core.Post) (int, error) {
	logger := log.FromCtx(ctx)

	if err := s.index.DeleteAll(ctx); err != nil {
		return 0, fmt.Errorf("failed to clear index: %w", err)
	}

	var rebuildErr *RebuildError
	stored := 0

	for start, batch := 0, 0; start < len(posts); start, batch = start+s.batchSize, batch+1 {
		if err := ctx.Err(); err != nil {
			return stored, err
		}

		end := min(start+s.batchSize, len(posts))
		n, err := s.storeBatch(ctx, runID, posts[start:end])
		if err != nil {
			if rebuildErr == nil {
				rebuildErr = &RebuildError{Err: err}
			}
			rebuildErr.Failed += end - start
			rebuildErr.FailedBatches = append(rebuildErr.FailedBatches, batch)

			logger.Error().Err(err).
				Int("batch", batch).
				Int("size", end-start).
				Msg("memory batch failed")
			continue
		}

		stored += n
		logger.Debug().Int("batch", batch).Int("stored", n).Msg("memory batch stored")
	}

	if rebuildErr != nil {
		rebuildErr.Stored = stored
		return stored, rebuildErr
	}
	return stored, nil
}

func (s *Store) storeBatch(ctx context.Context, runID string, posts []core.Post) (int, error) {
	records := make([]core.MemoryRecord, 0, len(posts))

	for _, p := range posts {
		if strings.TrimSpace(p.Text) == "" {
			log.FromCtx(ctx).Debug().Str("uri", p.URI).Msg("skipping post without text")
			continue
		}

		vec, err := s.embedder.Embed(ctx, p.Text)
		if err != nil {
			return 0, fmt.Errorf("embed %s: %w", p.URI, err)
		}

		records = append(records, core.MemoryRecord{
			ID:        p.URI,
			Vector:    vec,
			Text:      p.Text,
			CID:       p.CID,
			CreatedAt: p.CreatedAt,
			Position:  p.Position,
			RunID:     runID,
		})
	}

	if len(records) == 0 {
		return 0, nil
	}

	r := retry.NewRetrier(retry.NewFixedConfig(s.attempts, s.retryDelay))
	err := r.Do(ctx, func() error {
		return s.index.Upsert(ctx, records)
	})
	if err != nil {
		return 0, fmt.Errorf("upsert after %d attempts: %w", s.attempts, err)
	}
	return len(records), nil
}

// QuerySimilar returns stored posts at or above floor, most similar first.
func (s *Store) QuerySimilar(ctx context.Context, text string, topK int, floor float64) ([]core.Match, error) {
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	matches, err := s.index.Query(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	out := make([]core.Match, 0, len(matches))
	for _, m := range matches {
		if m.Similarity >= floor {
			out = append(out, m)
		}
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Similarity > out[b].Similarity
	})
	return out, nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	return s.index.Count(ctx)
}
