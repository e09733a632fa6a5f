package service

import (
	"context"
	"sync"

	"github.com/arturoeanton/go-context-gateway/internal/domain"
	"github.com/arturoeanton/go-context-gateway/internal/port"
)

type fakeAI struct {
	embedModel string
	dimension  int
	embedErr   error
	chatFn     func(system, user string) (port.ChatResult, error)

	mu         sync.Mutex
	lastUser   string
	lastSystem string
}

func newFakeAI() *fakeAI {
	return &fakeAI{embedModel: "test-embed", dimension: 4}
}

func (f *fakeAI) EmbedModelName() string { return f.embedModel }
func (f *fakeAI) ChatModelName() string  { return "test-chat" }
func (f *fakeAI) Dimension() int         { return f.dimension }

func (f *fakeAI) Embed(_ context.Context, text string) ([]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return []float32{float32(len(text)), 0, 0, 1}, nil
}

func (f *fakeAI) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeAI) Chat(_ context.Context, system, user string) (port.ChatResult, error) {
	f.mu.Lock()
	f.lastSystem = system
	f.lastUser = user
	f.mu.Unlock()
	if f.chatFn != nil {
		return f.chatFn(system, user)
	}
	return port.ChatResult{Content: "the answer", Model: "test-chat", TokensUsed: 42}, nil
}

type fakeContentStore struct {
	collection *domain.Collection
	results    []domain.ScoredChunk

	lastLimit  int
	lastFilter port.SearchFilter
}

func (f *fakeContentStore) EnsureCollection(context.Context, string, int, string) error { return nil }

func (f *fakeContentStore) GetCollection(_ context.Context, name string) (*domain.Collection, error) {
	if f.collection == nil || f.collection.Name != name {
		return nil, port.ErrCollectionNotFound
	}
	c := *f.collection
	return &c, nil
}

func (f *fakeContentStore) UpsertChunks(context.Context, string, []domain.Chunk) error { return nil }
func (f *fakeContentStore) DeleteChunks(context.Context, string, []string) error       { return nil }

func (f *fakeContentStore) Search(_ context.Context, _ string, _ []float32, limit int, filter port.SearchFilter) ([]domain.ScoredChunk, error) {
	f.lastLimit = limit
	f.lastFilter = filter
	return f.results, nil
}

func (f *fakeContentStore) CountChunksByFile(context.Context, string, string) (int, error) {
	return 0, nil
}

func scored(path string, start, end int, similarity float64) domain.ScoredChunk {
	return domain.ScoredChunk{
		Chunk: domain.Chunk{
			ID:        domain.ChunkID(path, start),
			FilePath:  path,
			StartLine: start,
			EndLine:   end,
			Content:   "content of " + path,
		},
		Similarity: similarity,
	}
}
