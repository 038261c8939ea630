package domain

import "context"

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// Oracle is the black-box natural-language capability: a prompt in, a raw
// model response out. Call sites parse it and define their own fallbacks.
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// EmbeddingResult carries the embedding vector and token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}
