package core

import "context"

// VectorIndex stores memory records and answers nearest-neighbour queries.
type VectorIndex interface {
	Upsert(ctx context.Context, records []MemoryRecord) error
	Query(ctx context.Context, vector []float32, topK int) ([]Match, error)
	DeleteAll(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}
