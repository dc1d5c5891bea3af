package repository

import (
	"context"
	"errors"
	"math"

	"legalrag-backend/models"
)

// ErrIndexUnavailable wraps every vector index failure
var ErrIndexUnavailable = errors.New("vector index unavailable")

// Filter narrows a similarity query
type Filter struct {
	Country string // empty matches every country
}

// VectorIndex stores chunk embeddings and answers nearest-neighbour queries.
// Upsert is keyed by chunk ID. Query results are ordered by ascending distance.
type VectorIndex interface {
	Upsert(ctx context.Context, chunks []models.IndexedChunk) error
	Query(ctx context.Context, embedding []float32, n int, filter Filter) ([]models.RetrievedChunk, error)
	// DeleteStale removes the chunks of url whose chunk index is >= fromIndex
	DeleteStale(ctx context.Context, url string, fromIndex int) error
	Count(ctx context.Context) (int, error)
	Close() error
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		copy(out, v)
		return out
	}
	norm := math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}
