package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Chunk is a contiguous span of a source file selected for embedding.
// It is persisted as one point in the content store together with its vector.
type Chunk struct {
	ID          string    `json:"id"           db:"id"`
	Collection  string    `json:"collection"   db:"collection"`
	FilePath    string    `json:"file_path"    db:"file_path"`
	ChunkIndex  int       `json:"chunk_index"  db:"chunk_index"`
	StartLine   int       `json:"start_line"   db:"start_line"`
	EndLine     int       `json:"end_line"     db:"end_line"`
	Content     string    `json:"content"      db:"content"`
	Language    string    `json:"language"     db:"language"`
	ContentHash string    `json:"content_hash" db:"content_hash"`
	Vector      []float32 `json:"-"            db:"vector"`
	CreatedAt   time.Time `json:"created_at"   db:"created_at"`
}

// ScoredChunk is returned by semantic search, including similarity score.
type ScoredChunk struct {
	Chunk
	Similarity float64 `json:"similarity"`
}

// ChunkID derives the stable identifier for a chunk from its file path and
// index. Re-indexing an unchanged chunk therefore upserts the same point
// instead of inserting a duplicate. The ID is only unique within a
// collection; the content store keys and mutates points by (collection, id).
func ChunkID(filePath string, chunkIndex int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s#%d", filePath, chunkIndex)))
	return hex.EncodeToString(sum[:16])
}

// HashContent returns the sha256 hex digest used for change detection.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// FileIndexRecord tracks the last-indexed state of one file within a collection.
// The tracker mutates it; the indexing engine reads it to decide incremental work.
type FileIndexRecord struct {
	Collection  string    `json:"collection"   db:"collection"`
	FilePath    string    `json:"file_path"    db:"file_path"`
	ContentHash string    `json:"content_hash" db:"content_hash"`
	ChunkIDs    []string  `json:"chunk_ids"    db:"chunk_ids"`
	IndexedAt   time.Time `json:"indexed_at"   db:"indexed_at"`
}

// Collection is a named partition of the content store, one per indexed
// repository. Its vector dimension is fixed at creation time and must match
// the embedding provider for every subsequent upsert.
type Collection struct {
	Name      string    `json:"name"       db:"name"`
	Dimension int       `json:"dimension"  db:"dimension"`
	Model     string    `json:"model"      db:"model"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// RetrievalResult is the ephemeral outcome of one similarity search.
type RetrievalResult struct {
	Query      string        `json:"query"`
	Collection string        `json:"collection"`
	Chunks     []ScoredChunk `json:"chunks"`
	LatencyMS  int64         `json:"latency_ms"`
}

// Answer is a composed response grounded in retrieved chunks.
type Answer struct {
	Text       string     `json:"answer"`
	Citations  []Citation `json:"citations"`
	Model      string     `json:"model"`
	TokensUsed int        `json:"tokens_used"`
}

// Citation points at the span of source a retrieved chunk came from.
type Citation struct {
	FilePath  string `json:"file_path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// Tag renders the citation the way chunks are tagged inside the prompt.
func (c Citation) Tag() string {
	return fmt.Sprintf("%s:%d-%d", c.FilePath, c.StartLine, c.EndLine)
}
