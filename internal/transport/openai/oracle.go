package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/safebites/menuquery/internal/domain"
	"github.com/safebites/menuquery/internal/metrics"
)

// Oracle is the NLU collaborator backed by an OpenAI-compatible chat API.
// It returns raw model text; parsing and fallbacks live at the call sites.
type Oracle struct {
	client      *openai.Client
	model       string
	temperature float32
	provider    string
	logger      *zap.Logger
}

// OracleConfig holds the chat provider settings.
type OracleConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Provider    string
	Logger      *zap.Logger
}

// NewOracle creates an OpenAI-compatible chat oracle.
func NewOracle(cfg *OracleConfig) *Oracle {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Oracle{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		provider:    cfg.Provider,
		logger:      cfg.Logger,
	}
}

var _ domain.Oracle = (*Oracle)(nil)

// Complete sends one prompt and returns the raw completion text.
func (o *Oracle) Complete(ctx context.Context, prompt string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       o.model,
		Temperature: o.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}

	start := time.Now()

	resp, err := o.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.OracleRequestsTotal.WithLabelValues(o.provider, o.model, "error").Inc()
		return "", parseAPIError(err, domain.ErrOracleProviderError)
	}

	if len(resp.Choices) == 0 {
		metrics.OracleRequestsTotal.WithLabelValues(o.provider, o.model, "error").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrOracleProviderError)
	}

	metrics.OracleRequestsTotal.WithLabelValues(o.provider, o.model, "success").Inc()
	metrics.OracleRequestDuration.WithLabelValues(o.provider, o.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.OracleTokensTotal.WithLabelValues(o.provider, o.model, "prompt").
			Add(float64(resp.Usage.PromptTokens))
		metrics.OracleTokensTotal.WithLabelValues(o.provider, o.model, "total").
			Add(float64(resp.Usage.TotalTokens))
	}

	return resp.Choices[0].Message.Content, nil
}
