package models

import (
	"fmt"
	"time"
)

// ChunkMetadata is copied from the parent source onto every chunk
type ChunkMetadata struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Authority   Authority `json:"authority"`
	Country     string    `json:"country"`
	Category    string    `json:"category"`
	LastUpdated time.Time `json:"last_updated"`
	ChunkIndex  int       `json:"chunk_index"`
}

// IndexedChunk is a chunk of a legal source stored with its embedding
type IndexedChunk struct {
	ID        string        `json:"id"`
	Embedding []float32     `json:"-"`
	Text      string        `json:"text"`
	Metadata  ChunkMetadata `json:"metadata"`
}

// RetrievedChunk is an indexed chunk returned by a similarity query
type RetrievedChunk struct {
	IndexedChunk
	Distance float64 `json:"distance"` // cosine distance, smaller is closer
}

// Relevance converts the distance into a score clamped to [0, 1]
func (c RetrievedChunk) Relevance() float64 {
	r := 1 - c.Distance
	if r < 0 {
		return 0
	}
	if r > 1 {
		return 1
	}
	return r
}

// ChunkID returns the stable identifier of the i-th chunk of a source
func ChunkID(url string, i int) string {
	return fmt.Sprintf("%s-chunk-%d", url, i)
}

// NewIndexedChunk builds the i-th chunk of source
func NewIndexedChunk(source LegalSource, i int, text string, embedding []float32) IndexedChunk {
	return IndexedChunk{
		ID:        ChunkID(source.URL, i),
		Embedding: embedding,
		Text:      text,
		Metadata: ChunkMetadata{
			URL:         source.URL,
			Title:       source.Title,
			Authority:   source.Authority,
			Country:     source.Country,
			Category:    source.Category,
			LastUpdated: source.LastUpdated,
			ChunkIndex:  i,
		},
	}
}
