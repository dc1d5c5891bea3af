package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"legalrag-backend/audit"
	"legalrag-backend/metrics"
	"legalrag-backend/models"
	"legalrag-backend/oracle"
	"legalrag-backend/repository"

	"github.com/rs/zerolog/log"
)

var (
	ErrEmptyQuestion    = errors.New("question is required")
	ErrEmbeddingFailed  = errors.New("failed to generate embedding")
	ErrRetrievalFailed  = errors.New("failed to retrieve legal context")
	ErrGenerationFailed = errors.New("failed to generate content")
)

const (
	DefaultTopK        = 5
	MaxTopK            = 50
	defaultLegalModel  = "mixtral:8x7b"
	defaultTemperature = 0.2
)

// QueryEngine answers legal questions from indexed official sources
type QueryEngine struct {
	index       repository.VectorIndex
	embedder    oracle.Embedder
	generator   oracle.Generator
	model       string
	temperature float64
	audit       *audit.Logger
	metrics     *metrics.Metrics
}

// QueryEngineOption is a functional option for QueryEngine
type QueryEngineOption func(*QueryEngine)

// QueryWithIndex sets the vector index
func QueryWithIndex(index repository.VectorIndex) QueryEngineOption {
	return func(e *QueryEngine) {
		e.index = index
	}
}

// QueryWithOracle sets both the embedder and the generator
func QueryWithOracle(o oracle.Oracle) QueryEngineOption {
	return func(e *QueryEngine) {
		e.embedder = o
		e.generator = o
	}
}

// QueryWithEmbedder sets the question embedder
func QueryWithEmbedder(embedder oracle.Embedder) QueryEngineOption {
	return func(e *QueryEngine) {
		e.embedder = embedder
	}
}

// QueryWithGenerator sets the answer generator
func QueryWithGenerator(generator oracle.Generator) QueryEngineOption {
	return func(e *QueryEngine) {
		e.generator = generator
	}
}

// QueryWithModel sets the generation model
func QueryWithModel(model string) QueryEngineOption {
	return func(e *QueryEngine) {
		if model != "" {
			e.model = model
		}
	}
}

// QueryWithTemperature sets the sampling temperature
func QueryWithTemperature(t float64) QueryEngineOption {
	return func(e *QueryEngine) {
		e.temperature = t
	}
}

// QueryWithAudit sets the audit trail
func QueryWithAudit(a *audit.Logger) QueryEngineOption {
	return func(e *QueryEngine) {
		e.audit = a
	}
}

// QueryWithMetrics sets the metrics sink
func QueryWithMetrics(m *metrics.Metrics) QueryEngineOption {
	return func(e *QueryEngine) {
		e.metrics = m
	}
}

// NewQueryEngine creates a new query engine
func NewQueryEngine(opts ...QueryEngineOption) *QueryEngine {
	e := &QueryEngine{
		model:       defaultLegalModel,
		temperature: defaultTemperature,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Query answers question from the topK closest chunks, optionally restricted to country.
// It never fails: any error yields the degraded answer.
func (e *QueryEngine) Query(ctx context.Context, question, country string, topK int) models.CitedAnswer {
	start := time.Now()
	country = normalizeCountry(country)

	answer, err := e.answer(ctx, question, country, topK)
	outcome := "answered"
	switch {
	case err != nil:
		log.Error().Err(err).Str("country", country).Msg("legal query failed")
		answer = models.DegradedAnswer()
		outcome = "degraded"
	case len(answer.Citations) == 0:
		outcome = "no_sources"
	}

	e.metrics.ObserveQuery(outcome, time.Since(start), answer.Confidence)
	e.audit.Answer(question, country, answer.Confidence, len(answer.Citations), err != nil)
	return answer
}

// Search returns the topK chunks closest to question without generating an answer
func (e *QueryEngine) Search(ctx context.Context, question, country string, topK int) ([]models.RetrievedChunk, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	return e.retrieve(ctx, question, normalizeCountry(country), topK)
}

func (e *QueryEngine) answer(ctx context.Context, question, country string, topK int) (models.CitedAnswer, error) {
	if strings.TrimSpace(question) == "" {
		return models.CitedAnswer{}, ErrEmptyQuestion
	}
	if e.generator == nil {
		return models.CitedAnswer{}, errors.New("generator not set")
	}

	chunks, err := e.retrieve(ctx, question, country, topK)
	if err != nil {
		return models.CitedAnswer{}, err
	}
	if len(chunks) == 0 {
		log.Info().Str("country", country).Msg("no indexed sources matched the question")
		return models.CitedAnswer{
			Answer:     models.NoSourcesAnswerText,
			Citations:  []models.Citation{},
			Confidence: 0,
		}, nil
	}

	prompt := buildGroundedPrompt(question, buildContext(chunks))
	raw, err := e.generator.Generate(ctx, prompt, oracle.GenerateOptions{
		Model:       e.model,
		Temperature: e.temperature,
	})
	if err != nil {
		return models.CitedAnswer{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	text := strings.TrimSpace(raw)
	citations := buildCitations(chunks, text)
	return models.CitedAnswer{
		Answer:     text,
		Citations:  citations,
		Confidence: confidence(citations),
	}, nil
}

func (e *QueryEngine) retrieve(ctx context.Context, question, country string, topK int) ([]models.RetrievedChunk, error) {
	if e.embedder == nil {
		return nil, errors.New("embedder not set")
	}
	if e.index == nil {
		return nil, errors.New("vector index not set")
	}

	embedding, err := e.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}

	chunks, err := e.index.Query(ctx, embedding, clampTopK(topK), repository.Filter{Country: country})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrievalFailed, err)
	}
	return chunks, nil
}

func clampTopK(topK int) int {
	if topK <= 0 {
		return DefaultTopK
	}
	if topK > MaxTopK {
		return MaxTopK
	}
	return topK
}

func normalizeCountry(country string) string {
	return strings.ToUpper(strings.TrimSpace(country))
}
