// Package oracle talks to the text completion and embedding backends.
package oracle

import (
	"context"
	"errors"
	"fmt"

	"legalrag-backend/config"
	"legalrag-backend/retry"
)

var (
	ErrMalformedResponse = errors.New("malformed oracle response")
	ErrUnknownProvider   = errors.New("unknown oracle provider")
)

// GenerateOptions tunes a single completion call
type GenerateOptions struct {
	Model       string
	Temperature float64
}

// Generator produces text from a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// Embedder maps text to a vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Oracle is a completion and embedding backend
type Oracle interface {
	Generator
	Embedder
	ListModels(ctx context.Context) ([]string, error)
	Name() string
}

// New builds the configured provider wrapped with timeout, retry and the optional embedding cache
func New(ctx context.Context, cfg config.OracleConfig) (Oracle, error) {
	var (
		base Oracle
		err  error
	)
	switch cfg.Provider {
	case "", "ollama":
		base = NewOllamaClient(cfg.BaseURL, cfg.EmbeddingModel)
	case "gemini":
		base, err = NewGeminiClient(ctx, cfg.APIKey, cfg.EmbeddingModel)
	case "openai":
		base, err = NewOpenAIClient(cfg.BaseURL, cfg.APIKey, cfg.GenerateModel, cfg.EmbeddingModel)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	o := WithResilience(base, retry.Policy{
		Attempts: cfg.MaxRetries,
		Backoff:  cfg.RetryBackoff,
		Timeout:  cfg.Timeout,
	})
	return WithEmbeddingCache(o, cfg.EmbedCacheSize, cfg.EmbedCacheTTL), nil
}
