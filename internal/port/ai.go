package port

import "context"

// ChatResult is the outcome of one chat completion call.
type ChatResult struct {
	Content    string
	Model      string
	TokensUsed int
}

// AIProvider abstracts the AI backend for embeddings and chat completions.
// Implementations can target OpenAI or any API compatible with it.
//
// Queries must be embedded by the same provider that indexed the collection;
// mixing embedding spaces produces meaningless similarity scores.
type AIProvider interface {
	// EmbedModelName returns the identifier of the embedding model.
	EmbedModelName() string

	// ChatModelName returns the identifier of the chat model.
	ChatModelName() string

	// Dimension returns the length of the vectors Embed produces.
	Dimension() int

	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. Callers pass as many
	// texts as they have; the provider splits them into API-sized batches and
	// retries transient failures internally.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Chat sends a system and user prompt and returns the completion.
	Chat(ctx context.Context, systemPrompt, userPrompt string) (ChatResult, error)
}
