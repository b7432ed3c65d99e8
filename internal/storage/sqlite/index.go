package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/sandevgo/greybot/internal/core"
	"github.com/sandevgo/greybot/pkg/vecmath"
)

// Index is the memory vector index. Ranking is a full scan with cosine
// similarity; the index holds one account's recent history, so the table
// stays in the hundreds of rows.
type Index struct {
	db *sql.DB
}

func NewIndex(db *sql.DB) *Index {
	return &Index{db: db}
}

func (i *Index) Upsert(ctx context.Context, records []core.MemoryRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin upsert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO memory_records (uri, cid, text, created_at, position, run_id, dims, embedding, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uri) DO UPDATE SET
			cid = excluded.cid,
			text = excluded.text,
			created_at = excluded.created_at,
			position = excluded.position,
			run_id = excluded.run_id,
			dims = excluded.dims,
			embedding = excluded.embedding,
			updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, rec := range records {
		if rec.ID == "" {
			return fmt.Errorf("memory record without id")
		}
		blob, err := serializeVector(rec.Vector)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx,
			rec.ID, rec.CID, rec.Text, rec.CreatedAt.UTC(), rec.Position, rec.RunID, len(rec.Vector), blob, now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert %s: %w", rec.ID, err)
		}
	}

	return tx.Commit()
}

func (i *Index) Query(ctx context.Context, vector []float32, topK int) ([]core.Match, error) {
	if topK <= 0 {
		return nil, nil
	}

	rows, err := i.db.QueryContext(ctx,
		`SELECT uri, text, created_at, position, embedding FROM memory_records WHERE dims = ?`,
		len(vector),
	)
	if err != nil {
		return nil, fmt.Errorf("memory search failed: %w", err)
	}
	defer rows.Close()

	var matches []core.Match
	for rows.Next() {
		var m core.Match
		var blob []byte
		if err := rows.Scan(&m.ID, &m.Text, &m.CreatedAt, &m.Position, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan memory record: %w", err)
		}
		stored, err := deserializeVector(blob)
		if err != nil {
			return nil, err
		}
		m.Similarity = vecmath.CosineSimilarity(vector, stored)
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(a, b int) bool {
		if matches[a].Similarity != matches[b].Similarity {
			return matches[a].Similarity > matches[b].Similarity
		}
		return matches[a].ID < matches[b].ID
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (i *Index) DeleteAll(ctx context.Context) error {
	if _, err := i.db.ExecContext(ctx, `DELETE FROM memory_records`); err != nil {
		return fmt.Errorf("failed to clear memory index: %w", err)
	}
	return nil
}

func (i *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := i.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count memory records: %w", err)
	}
	return n, nil
}
