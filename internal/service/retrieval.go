package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/arturoeanton/go-context-gateway/internal/domain"
	"github.com/arturoeanton/go-context-gateway/internal/port"
)

const (
	defaultTopK = 8
	maxTopK     = 50
)

// RetrievalService answers similarity queries over indexed collections.
// Queries are embedded with the same provider that indexed the collection;
// a model or dimension mismatch is rejected as a configuration error.
//
// Queries may run while an indexing job is mutating the same collection and
// can observe a partially updated index. Callers get eventual consistency,
// not a snapshot.
type RetrievalService struct {
	ai      port.AIProvider
	content port.ContentStore
	logger  *slog.Logger
}

// NewRetrievalService creates a retrieval service.
func NewRetrievalService(ai port.AIProvider, content port.ContentStore, logger *slog.Logger) *RetrievalService {
	return &RetrievalService{ai: ai, content: content, logger: logger}
}

// Search embeds the query and returns the topK most similar chunks,
// optionally restricted to a file-path prefix. A collection that exists but
// holds no chunks yields an empty result; a collection that was never
// created yields port.ErrCollectionNotFound so callers can tell "nothing
// indexed yet" from "nothing relevant found".
func (s *RetrievalService) Search(ctx context.Context, query, collection string, topK int, pathPrefix string) (*domain.RetrievalResult, error) {
	start := time.Now()

	col, err := s.content.GetCollection(ctx, collection)
	if err != nil {
		return nil, err
	}
	if col.Model != s.ai.EmbedModelName() || col.Dimension != s.ai.Dimension() {
		return nil, fmt.Errorf("collection %s indexed with %s/%d, provider is %s/%d: %w",
			collection, col.Model, col.Dimension, s.ai.EmbedModelName(), s.ai.Dimension(), port.ErrDimensionMismatch)
	}

	if topK <= 0 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	vector, err := s.ai.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	chunks, err := s.content.Search(ctx, collection, vector, topK, port.SearchFilter{PathPrefix: pathPrefix})
	if err != nil {
		return nil, fmt.Errorf("search collection: %w", err)
	}
	sortChunks(chunks)

	s.logger.Info("retrieval",
		"collection", collection,
		"top_k", topK,
		"results", len(chunks),
	)

	return &domain.RetrievalResult{
		Query:      query,
		Collection: collection,
		Chunks:     chunks,
		LatencyMS:  time.Since(start).Milliseconds(),
	}, nil
}

// sortChunks enforces the deterministic order: similarity descending, then
// (file_path, start_line) ascending for equal scores. The store already
// orders this way; sorting again keeps the guarantee independent of the
// backend.
func sortChunks(chunks []domain.ScoredChunk) {
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Similarity != chunks[j].Similarity {
			return chunks[i].Similarity > chunks[j].Similarity
		}
		if chunks[i].FilePath != chunks[j].FilePath {
			return chunks[i].FilePath < chunks[j].FilePath
		}
		return chunks[i].StartLine < chunks[j].StartLine
	})
}
