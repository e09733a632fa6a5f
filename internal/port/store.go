package port

import (
	"context"

	"github.com/arturoeanton/go-context-gateway/internal/domain"
)

// SearchFilter restricts a similarity search to a payload subset.
type SearchFilter struct {
	// PathPrefix, when non-empty, limits results to chunks whose file_path
	// starts with this prefix.
	PathPrefix string
}

// ContentStore is the vector database behind retrieval: chunk points grouped
// into per-repository collections. Upserts are idempotent on chunk ID.
type ContentStore interface {
	// EnsureCollection creates the collection if missing and verifies its
	// dimension and model against the embedding provider. A mismatch is
	// ErrDimensionMismatch, a configuration error rather than a retryable
	// failure.
	EnsureCollection(ctx context.Context, name string, dimension int, model string) error

	// GetCollection returns the collection metadata, or ErrCollectionNotFound.
	GetCollection(ctx context.Context, name string) (*domain.Collection, error)

	// UpsertChunks writes chunk points with their vectors.
	UpsertChunks(ctx context.Context, collection string, chunks []domain.Chunk) error

	// DeleteChunks removes points by ID.
	DeleteChunks(ctx context.Context, collection string, chunkIDs []string) error

	// Search returns up to limit chunks nearest to the query vector, ordered
	// by descending similarity with ties broken by (file_path, start_line).
	Search(ctx context.Context, collection string, vector []float32, limit int, filter SearchFilter) ([]domain.ScoredChunk, error)

	// CountChunksByFile returns the number of points stored for one file.
	CountChunksByFile(ctx context.Context, collection, filePath string) (int, error)
}

// RecordStore persists FileIndexRecords, the durable per-file index state
// the change tracker diffs against.
type RecordStore interface {
	// ListRecords returns all records for a collection keyed by file path.
	ListRecords(ctx context.Context, collection string) (map[string]domain.FileIndexRecord, error)

	// PutRecord inserts or replaces the record for one file.
	PutRecord(ctx context.Context, rec domain.FileIndexRecord) error

	// DeleteRecord removes the record for a file (tombstone).
	DeleteRecord(ctx context.Context, collection, filePath string) error
}
