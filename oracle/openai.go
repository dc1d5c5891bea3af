package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// OpenAIClient targets any OpenAI-compatible endpoint through langchaingo
type OpenAIClient struct {
	model          string
	embeddingModel string
	llm            *openai.LLM
	embedder       embeddings.Embedder
}

// NewOpenAIClient creates an OpenAI-compatible oracle
func NewOpenAIClient(baseURL, apiKey, model, embeddingModel string) (*OpenAIClient, error) {
	llm, err := newOpenAILLM(baseURL, apiKey, model, embeddingModel)
	if err != nil {
		return nil, err
	}
	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return &OpenAIClient{
		model:          model,
		embeddingModel: embeddingModel,
		llm:            llm,
		embedder:       embedder,
	}, nil
}

func newOpenAILLM(baseURL, apiKey, model, embeddingModel string) (*openai.LLM, error) {
	opts := []openai.Option{
		openai.WithToken(strings.TrimPrefix(apiKey, "Bearer ")),
		openai.WithModel(model),
		openai.WithEmbeddingModel(embeddingModel),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create openai client: %w", err)
	}
	return llm, nil
}

func (c *OpenAIClient) Name() string { return "openai" }

// Generate runs a single prompt completion
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	callOpts := []llms.CallOption{llms.WithTemperature(opts.Temperature)}
	if opts.Model != "" {
		callOpts = append(callOpts, llms.WithModel(opts.Model))
	}
	out, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, callOpts...)
	if err != nil {
		return "", fmt.Errorf("openai generate failed: %w", err)
	}
	return out, nil
}

// Embed returns the embedding of text
func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := c.embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("openai embed failed: %w", err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrMalformedResponse)
	}
	return vec, nil
}

// ListModels reports the configured models; the endpoint's catalog is not queried
func (c *OpenAIClient) ListModels(ctx context.Context) ([]string, error) {
	return []string{c.model, c.embeddingModel}, nil
}
