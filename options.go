package menuquery

import (
	"time"

	"go.uber.org/zap"
)

type clientConfig struct {
	driver   string
	addrs    []string
	password string

	openAIKey     string
	openAIBaseURL string

	embeddingModel string
	dimensions     int
	chatModel      string
	temperature    float32

	topK              int
	minScore          float64
	centroidThreshold float64
	stageTimeout      time.Duration
	historyDepth      int

	logger *zap.Logger
}

// Option configures the Client.
type Option func(*clientConfig)

// WithValkey sets Valkey as the backing store.
func WithValkey(addrs ...string) Option {
	return func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = addrs
	}
}

// WithRedis sets Redis as the backing store.
func WithRedis(addrs ...string) Option {
	return func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = addrs
	}
}

// WithPassword sets the database password.
func WithPassword(password string) Option {
	return func(c *clientConfig) { c.password = password }
}

// WithOpenAI sets the API key for the embedding and chat providers.
func WithOpenAI(apiKey string) Option {
	return func(c *clientConfig) { c.openAIKey = apiKey }
}

// WithBaseURL points the providers at an OpenAI-compatible endpoint.
func WithBaseURL(baseURL string) Option {
	return func(c *clientConfig) { c.openAIBaseURL = baseURL }
}

// WithEmbeddingModel overrides the embedding model. dimensions 0 keeps the
// model default.
func WithEmbeddingModel(model string, dimensions int) Option {
	return func(c *clientConfig) {
		c.embeddingModel = model
		c.dimensions = dimensions
	}
}

// WithChatModel overrides the chat model and sampling temperature.
func WithChatModel(model string, temperature float32) Option {
	return func(c *clientConfig) {
		c.chatModel = model
		c.temperature = temperature
	}
}

// WithRetrieval tunes the retrieval pipeline knobs.
func WithRetrieval(topK int, minScore, centroidThreshold float64) Option {
	return func(c *clientConfig) {
		c.topK = topK
		c.minScore = minScore
		c.centroidThreshold = centroidThreshold
	}
}

// WithStageTimeout bounds each decomposed sub-query. Zero disables the bound.
func WithStageTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.stageTimeout = d }
}

// WithHistoryDepth sets how many prior turns feed conversational context.
func WithHistoryDepth(n int) Option {
	return func(c *clientConfig) { c.historyDepth = n }
}

// WithLogger attaches a zap logger. Default is a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *clientConfig) { c.logger = logger }
}
