package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/arturoeanton/go-context-gateway/internal/domain"
	"github.com/arturoeanton/go-context-gateway/internal/port"
)

// Engine orchestrates the chunker, embedding provider, content store, and
// change tracker to perform full or incremental indexing of a repository
// into a named collection.
//
// Indexing is single-flight per collection: concurrent delete/upsert
// sequences on the same file's chunk IDs would race, so a second run for a
// busy collection is rejected with ErrIndexInProgress. The job queue
// serializes jobs before they reach the engine; this guard backs that up.
type Engine struct {
	content port.ContentStore
	records port.RecordStore
	ai      port.AIProvider
	chunker *Chunker
	tracker *Tracker
	logger  *slog.Logger

	mu     sync.Mutex
	active map[string]bool
}

// NewEngine creates an indexing engine.
func NewEngine(content port.ContentStore, records port.RecordStore, ai port.AIProvider, chunker *Chunker, tracker *Tracker, logger *slog.Logger) *Engine {
	return &Engine{
		content: content,
		records: records,
		ai:      ai,
		chunker: chunker,
		tracker: tracker,
		logger:  logger,
		active:  make(map[string]bool),
	}
}

// Run executes one indexing job and returns the work it performed.
//
// A run with no explicit file set walks the whole tree but still diffs
// against the stored records, so re-indexing an unchanged repository touches
// nothing. Force bypasses the hash short-circuit.
func (e *Engine) Run(ctx context.Context, job *domain.IndexJob) (domain.IndexStats, error) {
	var stats domain.IndexStats

	if !e.acquire(job.Collection) {
		return stats, fmt.Errorf("collection %s: %w", job.Collection, port.ErrIndexInProgress)
	}
	defer e.release(job.Collection)

	if err := e.content.EnsureCollection(ctx, job.Collection, e.ai.Dimension(), e.ai.EmbedModelName()); err != nil {
		return stats, err
	}

	previous, err := e.records.ListRecords(ctx, job.Collection)
	if err != nil {
		return stats, err
	}

	diff, err := e.computeDiff(job, previous)
	if err != nil {
		return stats, err
	}
	stats.FilesSkipped = diff.Unchanged

	e.logger.Info("indexing run",
		"collection", job.Collection,
		"changed", len(diff.Changed),
		"deleted", len(diff.Deleted),
		"unchanged", diff.Unchanged,
	)

	for _, rel := range diff.Changed {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		prev, hadPrev := previous[rel]
		if err := e.indexFile(ctx, job.Collection, job.RepoPath, rel, prev, hadPrev, &stats); err != nil {
			return stats, fmt.Errorf("index %s: %w", rel, err)
		}
	}

	for _, rel := range diff.Deleted {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		prev, ok := previous[rel]
		if !ok {
			continue
		}
		if err := e.removeFile(ctx, job.Collection, rel, prev, &stats); err != nil {
			return stats, fmt.Errorf("remove %s: %w", rel, err)
		}
	}

	return stats, nil
}

// computeDiff picks the walk or the explicit-candidate path depending on
// whether the job carries a changed-file set.
func (e *Engine) computeDiff(job *domain.IndexJob, previous map[string]domain.FileIndexRecord) (*Diff, error) {
	if job.FilesChanged == nil && len(job.FilesDeleted) == 0 {
		return e.tracker.Diff(job.RepoPath, previous, job.Force)
	}

	diff := e.tracker.DiffFiles(job.RepoPath, job.FilesChanged, previous, job.Force)
	for _, rel := range job.FilesDeleted {
		if _, ok := previous[rel]; ok {
			diff.Deleted = append(diff.Deleted, rel)
		}
	}
	return diff, nil
}

// indexFile re-embeds one file. Previous chunks are deleted before the new
// ones are upserted, which is what prevents stale trailing chunks when a
// file shrinks. The file record is written only after the content store
// mutation succeeds, so a crash mid-run never reports a file as indexed
// before it is durably stored.
func (e *Engine) indexFile(ctx context.Context, collection, repoPath, rel string, prev domain.FileIndexRecord, hadPrev bool, stats *domain.IndexStats) error {
	content, hash, err := e.tracker.ReadFile(repoPath, rel)
	if err != nil {
		e.logger.Warn("skipping unreadable file", "file", rel, "error", err)
		stats.FilesSkipped++
		return nil
	}

	chunks := e.chunker.Chunk(rel, content)
	if len(chunks) == 0 {
		// Nothing embeddable left; treat like a deletion.
		if hadPrev {
			return e.removeFile(ctx, collection, rel, prev, stats)
		}
		return nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := e.ai.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embed returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	chunkIDs := make([]string, len(chunks))
	for i := range chunks {
		chunks[i].Collection = collection
		chunks[i].Vector = vectors[i]
		chunkIDs[i] = chunks[i].ID
	}

	if hadPrev && len(prev.ChunkIDs) > 0 {
		if err := e.content.DeleteChunks(ctx, collection, prev.ChunkIDs); err != nil {
			return fmt.Errorf("delete previous chunks: %w", err)
		}
		stats.ChunksDeleted += len(prev.ChunkIDs)
	}
	if err := e.content.UpsertChunks(ctx, collection, chunks); err != nil {
		return fmt.Errorf("upsert chunks: %w", err)
	}

	rec := domain.FileIndexRecord{
		Collection:  collection,
		FilePath:    rel,
		ContentHash: hash,
		ChunkIDs:    chunkIDs,
		IndexedAt:   time.Now().UTC(),
	}
	if err := e.records.PutRecord(ctx, rec); err != nil {
		return fmt.Errorf("put record: %w", err)
	}

	stats.FilesProcessed++
	stats.ChunksUpserted += len(chunks)
	return nil
}

// removeFile tombstones a deleted file: its chunks leave the content store
// first, then the record.
func (e *Engine) removeFile(ctx context.Context, collection, rel string, prev domain.FileIndexRecord, stats *domain.IndexStats) error {
	if len(prev.ChunkIDs) > 0 {
		if err := e.content.DeleteChunks(ctx, collection, prev.ChunkIDs); err != nil {
			return fmt.Errorf("delete chunks: %w", err)
		}
		stats.ChunksDeleted += len(prev.ChunkIDs)
	}
	if err := e.records.DeleteRecord(ctx, collection, rel); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	stats.FilesProcessed++
	return nil
}

func (e *Engine) acquire(collection string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.active[collection] {
		return false
	}
	e.active[collection] = true
	return true
}

func (e *Engine) release(collection string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.active, collection)
}
