package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/arturoeanton/go-context-gateway/internal/domain"
	"github.com/arturoeanton/go-context-gateway/internal/port"
)

const composerSystemPrompt = `You are a code assistant answering questions about an indexed repository.
Answer using only the provided context. Each context block is tagged with its
source as [file_path:start-end]; reference the tag of any block you rely on.
If the context does not contain the answer, say so instead of guessing.`

// Composer builds grounded prompts from retrieved chunks and asks the
// language model for a cited answer.
type Composer struct {
	ai     port.AIProvider
	logger *slog.Logger
}

// NewComposer creates an answer composer.
func NewComposer(ai port.AIProvider, logger *slog.Logger) *Composer {
	return &Composer{ai: ai, logger: logger}
}

// Compose answers the query from the retrieved chunks. Citations cover every
// chunk the model had access to, not only the ones it chose to reference, so
// callers can audit the full context. Zero chunks is a successful "nothing
// relevant found" response, not an error; a failed model call is an error.
func (c *Composer) Compose(ctx context.Context, query string, chunks []domain.ScoredChunk) (*domain.Answer, error) {
	if len(chunks) == 0 {
		return &domain.Answer{
			Text:  "No relevant context was found for this question.",
			Model: c.ai.ChatModelName(),
		}, nil
	}

	result, err := c.ai.Chat(ctx, composerSystemPrompt, buildPrompt(query, chunks))
	if err != nil {
		return nil, fmt.Errorf("compose answer: %w", err)
	}

	citations := make([]domain.Citation, len(chunks))
	for i, chunk := range chunks {
		citations[i] = domain.Citation{
			FilePath:  chunk.FilePath,
			StartLine: chunk.StartLine,
			EndLine:   chunk.EndLine,
		}
	}

	c.logger.Info("answer composed",
		"chunks", len(chunks),
		"model", result.Model,
		"tokens_used", result.TokensUsed,
	)

	return &domain.Answer{
		Text:       result.Content,
		Citations:  citations,
		Model:      result.Model,
		TokensUsed: result.TokensUsed,
	}, nil
}

// buildPrompt embeds each chunk verbatim under its citation tag, followed by
// the original question.
func buildPrompt(query string, chunks []domain.ScoredChunk) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	for _, chunk := range chunks {
		tag := domain.Citation{FilePath: chunk.FilePath, StartLine: chunk.StartLine, EndLine: chunk.EndLine}.Tag()
		fmt.Fprintf(&b, "\n[%s]\n%s\n", tag, chunk.Content)
	}
	b.WriteString("\nQuestion: ")
	b.WriteString(query)
	return b.String()
}
