package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/ragindex/internal/adapters/driven/vector/similarity"
	"github.com/custodia-labs/ragindex/internal/core/domain"
	"github.com/custodia-labs/ragindex/internal/core/ports/driven"
)

// vectorStore implements driven.VectorStore on the vectors table.
// Search is a brute-force cosine scan, adequate for a single watch folder.
type vectorStore struct {
	store      *Store
	collection string
	dimensions int
}

var _ driven.VectorStore = (*vectorStore)(nil)

// Upsert inserts or replaces points in one transaction.
func (s *vectorStore) Upsert(ctx context.Context, points []driven.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}
	for i := range points {
		if got := len(points[i].Chunk.Embedding); got != s.dimensions {
			return fmt.Errorf("%w: chunk %s has %d dimensions, want %d",
				domain.ErrInvalidInput, points[i].Chunk.ID, got, s.dimensions)
		}
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (collection, id, source_filename, position, text,
		                     range_start, range_end, seq, metadata, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			source_filename = excluded.source_filename,
			position = excluded.position,
			text = excluded.text,
			range_start = excluded.range_start,
			range_end = excluded.range_end,
			seq = excluded.seq,
			metadata = excluded.metadata,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	for _, p := range points {
		c := p.Chunk
		meta := c.Metadata
		if meta == nil {
			meta = map[string]any{}
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshalling metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, s.collection, c.ID, c.SourceFilename, c.Position, c.Text,
			c.Range.Start, c.Range.End, p.Seq, string(metaJSON), float32SliceToBytes(c.Embedding)); err != nil {
			return fmt.Errorf("upserting vector %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing vectors: %w", err)
	}
	return nil
}

// Search scores every vector in the collection against query.
func (s *vectorStore) Search(ctx context.Context, query []float32, k int) ([]driven.VectorHit, error) {
	if k <= 0 {
		return nil, nil
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, source_filename, position, text, range_start, range_end, seq, metadata, embedding
		FROM vectors WHERE collection = ?
	`, s.collection)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var hits []driven.VectorHit //nolint:prealloc // size unknown from query
	for rows.Next() {
		var c domain.Chunk
		var seq int64
		var metaJSON string
		var blob []byte
		if err := rows.Scan(&c.ID, &c.SourceFilename, &c.Position, &c.Text,
			&c.Range.Start, &c.Range.End, &seq, &metaJSON, &blob); err != nil {
			return nil, fmt.Errorf("scanning vector: %w", err)
		}
		if err := json.Unmarshal([]byte(metaJSON), &c.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
		embedding := bytesToFloat32Slice(blob)
		hits = append(hits, driven.VectorHit{
			Chunk: c,
			Seq:   seq,
			Score: similarity.Cosine(query, embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}

	return similarity.Rank(hits, k), nil
}

// DeleteByFilename removes every vector of filename.
func (s *vectorStore) DeleteByFilename(ctx context.Context, filename string) error {
	_, err := s.store.db.ExecContext(ctx,
		"DELETE FROM vectors WHERE collection = ? AND source_filename = ?", s.collection, filename)
	if err != nil {
		return fmt.Errorf("deleting vectors for %s: %w", filename, err)
	}
	return nil
}

// Clear removes every vector in the collection.
func (s *vectorStore) Clear(ctx context.Context) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM vectors WHERE collection = ?", s.collection); err != nil {
		return fmt.Errorf("clearing vectors: %w", err)
	}
	return nil
}

// Stats returns vector and distinct file counts.
func (s *vectorStore) Stats(ctx context.Context) (domain.CollectionStats, error) {
	stats := domain.CollectionStats{VectorSize: s.dimensions}
	row := s.store.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT source_filename) FROM vectors WHERE collection = ?
	`, s.collection)
	if err := row.Scan(&stats.TotalDocuments, &stats.TotalFiles); err != nil {
		return stats, fmt.Errorf("counting vectors: %w", err)
	}
	return stats, nil
}

// Close is a no-op; the owning Store closes the database.
func (s *vectorStore) Close() error {
	return nil
}
