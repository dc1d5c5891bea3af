package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"legalrag-backend/retry"

	"github.com/rs/zerolog/log"
)

// OllamaClient speaks the Ollama HTTP API
type OllamaClient struct {
	httpClient     *http.Client
	baseURL        string
	embeddingModel string
}

type ollamaGenerateRequest struct {
	Model       string                 `json:"model"`
	Prompt      string                 `json:"prompt"`
	Temperature float64                `json:"temperature"`
	Stream      bool                   `json:"stream"`
	Options     map[string]interface{} `json:"options,omitempty"`
}

type ollamaGenerateResponse struct {
	Response *string `json:"response"`
}

type ollamaEmbeddingRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbeddingResponse struct {
	Embedding []float32 `json:"embedding"`
}

type ollamaTagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// NewOllamaClient creates a client for the Ollama server at baseURL
func NewOllamaClient(baseURL, embeddingModel string) *OllamaClient {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if embeddingModel == "" {
		embeddingModel = "nomic-embed-text"
	}
	return &OllamaClient{
		httpClient:     &http.Client{},
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		embeddingModel: embeddingModel,
	}
}

func (o *OllamaClient) Name() string { return "ollama" }

// Generate calls POST /api/generate without streaming
func (o *OllamaClient) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	payload := ollamaGenerateRequest{
		Model:       opts.Model,
		Prompt:      prompt,
		Temperature: opts.Temperature,
		Stream:      false,
		Options:     map[string]interface{}{"temperature": opts.Temperature},
	}

	var out ollamaGenerateResponse
	if err := o.post(ctx, "/api/generate", payload, &out); err != nil {
		return "", err
	}
	if out.Response == nil {
		return "", fmt.Errorf("%w: missing response field", ErrMalformedResponse)
	}
	return *out.Response, nil
}

// Embed calls POST /api/embeddings
func (o *OllamaClient) Embed(ctx context.Context, text string) ([]float32, error) {
	var out ollamaEmbeddingResponse
	if err := o.post(ctx, "/api/embeddings", ollamaEmbeddingRequest{Model: o.embeddingModel, Prompt: text}, &out); err != nil {
		return nil, err
	}
	if len(out.Embedding) == 0 {
		return nil, fmt.Errorf("%w: empty embedding", ErrMalformedResponse)
	}
	return out.Embedding, nil
}

// ListModels calls GET /api/tags
func (o *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to create request to Ollama: %w", err))
	}
	body, err := o.do(req)
	if err != nil {
		return nil, err
	}
	var out ollamaTagsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, retry.Permanent(fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}
	names := make([]string, 0, len(out.Models))
	for _, m := range out.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

func (o *OllamaClient) post(ctx context.Context, path string, payload, out interface{}) error {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return retry.Permanent(fmt.Errorf("failed to marshal request to Ollama: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return retry.Permanent(fmt.Errorf("failed to create request to Ollama: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	body, err := o.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return retry.Permanent(fmt.Errorf("%w: %v", ErrMalformedResponse, err))
	}
	return nil
}

func (o *OllamaClient) do(req *http.Request) ([]byte, error) {
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body from Ollama: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Error().Int("status_code", resp.StatusCode).Str("path", req.URL.Path).Msg("ollama returned an error")
		err := fmt.Errorf("ollama failed with status %d: %s", resp.StatusCode, truncate(string(body), 200))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}
	return body, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
