package ai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"golang.org/x/time/rate"

	"github.com/arturoeanton/go-context-gateway/internal/port"
)

const (
	// maxBatchSize is the hard cap on inputs per embeddings API call.
	maxBatchSize = 100

	baseBackoff = 2 * time.Second
	maxBackoff  = 32 * time.Second
)

// OpenAIConfig holds the settings for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey     string
	BaseURL    string // empty = default endpoint
	EmbedModel string
	ChatModel  string
	Dimension  int

	BatchSize  int     // inputs per embeddings call, capped at maxBatchSize
	RateLimit  float64 // embeddings requests per second
	MaxRetries int
	Timeout    time.Duration
}

// OpenAIProvider implements port.AIProvider against any OpenAI-compatible API.
// Embedding calls are throttled by a token bucket and retried with exponential
// backoff on rate-limit and transient server errors.
type OpenAIProvider struct {
	client     openai.Client
	cfg        OpenAIConfig
	limiter    *rate.Limiter
	maxRetries int
}

// NewOpenAIProvider creates a provider from the given config.
func NewOpenAIProvider(cfg OpenAIConfig) *OpenAIProvider {
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	if cfg.BatchSize <= 0 || cfg.BatchSize > maxBatchSize {
		cfg.BatchSize = maxBatchSize
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5.0
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &OpenAIProvider{
		client:     openai.NewClient(opts...),
		cfg:        cfg,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), 1),
		maxRetries: cfg.MaxRetries,
	}
}

// EmbedModelName returns the embedding model identifier.
func (p *OpenAIProvider) EmbedModelName() string { return p.cfg.EmbedModel }

// ChatModelName returns the chat model identifier.
func (p *OpenAIProvider) ChatModelName() string { return p.cfg.ChatModel }

// Dimension returns the configured embedding dimension.
func (p *OpenAIProvider) Dimension() int { return p.cfg.Dimension }

// Embed generates a vector embedding for a single text.
func (p *OpenAIProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embed: empty response")
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for all texts, splitting them into
// API-sized batches. If any batch exhausts its retries the whole call fails;
// callers must not persist partial results.
func (p *OpenAIProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.cfg.BatchSize {
		end := min(start+p.cfg.BatchSize, len(texts))

		batch, err := p.embedOnce(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

// embedOnce performs one embeddings API call with throttling and retry.
func (p *OpenAIProvider) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(p.cfg.EmbedModel),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	}
	if p.cfg.Dimension > 0 {
		params.Dimensions = openai.Int(int64(p.cfg.Dimension))
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return nil, err
			}
		}
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		callCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
		resp, err := p.client.Embeddings.New(callCtx, params)
		cancel()
		if err != nil {
			lastErr = err
			if isRetryable(err) {
				continue
			}
			return nil, fmt.Errorf("embeddings API: %w", err)
		}

		vectors := make([][]float32, 0, len(resp.Data))
		for _, data := range resp.Data {
			vec := make([]float32, len(data.Embedding))
			for i, v := range data.Embedding {
				vec[i] = float32(v)
			}
			vectors = append(vectors, vec)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("embeddings API returned %d vectors for %d inputs", len(vectors), len(texts))
		}
		return vectors, nil
	}
	return nil, fmt.Errorf("embeddings API failed after %d retries: %w", p.maxRetries, lastErr)
}

// Chat sends a system and user prompt and returns the completion.
func (p *OpenAIProvider) Chat(ctx context.Context, systemPrompt, userPrompt string) (port.ChatResult, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(p.cfg.ChatModel),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		Temperature: openai.Float(0.1),
	}

	var lastErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt); err != nil {
				return port.ChatResult{}, err
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
		completion, err := p.client.Chat.Completions.New(callCtx, params)
		cancel()
		if err != nil {
			lastErr = err
			if isRetryable(err) {
				continue
			}
			return port.ChatResult{}, fmt.Errorf("chat API: %w", err)
		}

		if len(completion.Choices) == 0 {
			return port.ChatResult{}, fmt.Errorf("chat API returned no choices")
		}
		return port.ChatResult{
			Content:    completion.Choices[0].Message.Content,
			Model:      string(completion.Model),
			TokensUsed: int(completion.Usage.TotalTokens),
		}, nil
	}
	return port.ChatResult{}, fmt.Errorf("chat API failed after %d retries: %w", p.maxRetries, lastErr)
}

// sleepBackoff waits 2^(attempt-1) * baseBackoff, capped at maxBackoff.
func sleepBackoff(ctx context.Context, attempt int) error {
	d := time.Duration(math.Pow(2, float64(attempt-1))) * baseBackoff
	if d > maxBackoff {
		d = maxBackoff
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// isRetryable reports whether the error is a rate limit or server-side
// failure worth retrying. Auth and validation errors are not.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	// Plain network errors surface without an API status.
	return true
}

var _ port.AIProvider = (*OpenAIProvider)(nil)
