package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDishNotFound signals a dish id absent from the catalog.
	ErrDishNotFound = errors.New("dish not found")
	// ErrSessionNotFound signals an unknown session id.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidRequest signals structurally invalid input at the pipeline entry point.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInvalidFilter signals a broken dish filter configuration.
	ErrInvalidFilter = errors.New("invalid dish filter")
	// ErrOracleUnparsable signals an oracle response that is not valid JSON
	// after envelope stripping. Call sites recover it into typed fallbacks.
	ErrOracleUnparsable = errors.New("oracle response unparsable")
	// ErrOracleProviderError signals a chat completion transport failure.
	ErrOracleProviderError = errors.New("oracle provider error")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmbeddingQuotaExceeded signals the embedding token budget is spent.
	ErrEmbeddingQuotaExceeded = errors.New("embedding token quota exceeded")
	// ErrIndexNotReady signals vector search before the first index build finished.
	ErrIndexNotReady = errors.New("vector index not ready")
	// ErrRebuildInProgress signals an index rebuild already running.
	ErrRebuildInProgress = errors.New("index rebuild already in progress")
)
