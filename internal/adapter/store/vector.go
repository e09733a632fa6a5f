package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/arturoeanton/go-context-gateway/internal/domain"
	"github.com/arturoeanton/go-context-gateway/internal/port"
)

// VectorStore handles pgvector-specific operations on chunk points.
// It implements port.ContentStore on top of the shared Postgres connection.
type VectorStore struct {
	store     *PostgresStore
	dimension int
}

// NewVectorStore creates a vector store backed by the given Postgres store.
func NewVectorStore(store *PostgresStore, dimension int) *VectorStore {
	return &VectorStore{store: store, dimension: dimension}
}

// EnsureCollection delegates to the relational store.
func (v *VectorStore) EnsureCollection(ctx context.Context, name string, dimension int, model string) error {
	return v.store.EnsureCollection(ctx, name, dimension, model)
}

// GetCollection delegates to the relational store.
func (v *VectorStore) GetCollection(ctx context.Context, name string) (*domain.Collection, error) {
	return v.store.GetCollection(ctx, name)
}

// UpsertChunks persists chunk points with their vectors. Chunk IDs are stable
// hashes of (file_path, chunk_index) and only unique within a collection, so
// rows conflict on (collection, id): re-indexing unchanged content overwrites
// the same rows, and two repositories sharing a relative path never touch
// each other's points.
func (v *VectorStore) UpsertChunks(ctx context.Context, collection string, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (id, collection, file_path, chunk_index, start_line, end_line, content, language, content_hash, vector)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::vector)
		 ON CONFLICT (collection, id) DO UPDATE SET
		     start_line = EXCLUDED.start_line,
		     end_line = EXCLUDED.end_line,
		     content = EXCLUDED.content,
		     language = EXCLUDED.language,
		     content_hash = EXCLUDED.content_hash,
		     vector = EXCLUDED.vector`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if len(c.Vector) != v.dimension {
			return fmt.Errorf("chunk %s has %d-dim vector, store expects %d: %w",
				c.ID, len(c.Vector), v.dimension, port.ErrDimensionMismatch)
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID, collection, c.FilePath, c.ChunkIndex, c.StartLine, c.EndLine,
			c.Content, c.Language, c.ContentHash, vectorToString(c.Vector),
		); err != nil {
			return fmt.Errorf("upsert chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// DeleteChunks removes points by ID.
func (v *VectorStore) DeleteChunks(ctx context.Context, collection string, chunkIDs []string) error {
	if len(chunkIDs) == 0 {
		return nil
	}
	query := `DELETE FROM chunks WHERE collection = $1 AND id = ANY($2)`
	if _, err := v.store.db.ExecContext(ctx, query, collection, pq.Array(chunkIDs)); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}
	return nil
}

// Search performs a cosine similarity search. Results are ordered by
// descending similarity; equal scores fall back to (file_path, start_line)
// so repeated queries are deterministic. An empty collection yields an empty
// slice, not an error.
func (v *VectorStore) Search(ctx context.Context, collection string, vector []float32, limit int, filter port.SearchFilter) ([]domain.ScoredChunk, error) {
	if len(vector) != v.dimension {
		return nil, fmt.Errorf("query vector has %d dims, store expects %d: %w",
			len(vector), v.dimension, port.ErrDimensionMismatch)
	}

	vectorStr := vectorToString(vector)
	query := `SELECT c.id, c.collection, c.file_path, c.chunk_index, c.start_line, c.end_line,
	                 c.content, c.language, c.content_hash, c.created_at,
	                 1 - (c.vector <=> $1::vector) AS similarity
	          FROM chunks c
	          WHERE c.collection = $2`
	args := []any{vectorStr, collection}

	if filter.PathPrefix != "" {
		query += fmt.Sprintf(" AND c.file_path LIKE $%d", len(args)+1)
		args = append(args, escapeLike(filter.PathPrefix)+"%")
	}

	query += fmt.Sprintf(" ORDER BY c.vector <=> $1::vector, c.file_path, c.start_line LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := v.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search chunks: %w", err)
	}
	defer rows.Close()

	var results []domain.ScoredChunk
	for rows.Next() {
		var sc domain.ScoredChunk
		if err := rows.Scan(
			&sc.ID, &sc.Collection, &sc.FilePath, &sc.ChunkIndex, &sc.StartLine, &sc.EndLine,
			&sc.Content, &sc.Language, &sc.ContentHash, &sc.CreatedAt, &sc.Similarity,
		); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		results = append(results, sc)
	}
	return results, rows.Err()
}

// CountChunksByFile returns the number of points stored for one file.
func (v *VectorStore) CountChunksByFile(ctx context.Context, collection, filePath string) (int, error) {
	query := `SELECT COUNT(*) FROM chunks WHERE collection = $1 AND file_path = $2`

	var count int
	if err := v.store.db.QueryRowContext(ctx, query, collection, filePath).Scan(&count); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return count, nil
}

// vectorToString converts a float32 slice to pgvector string format: [0.1,0.2,0.3].
func vectorToString(v []float32) string {
	parts := make([]string, len(v))
	for i, val := range v {
		parts[i] = fmt.Sprintf("%g", val)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// escapeLike escapes LIKE metacharacters in a literal path prefix.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

var _ port.ContentStore = (*VectorStore)(nil)
