package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"legalrag-backend/models"

	"github.com/philippgille/chromem-go"
)

// ChromemIndex is an embedded vector index backed by a chromem-go collection
type ChromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewChromemIndex opens the named collection, creating it if needed.
// An empty path keeps the index in memory.
func NewChromemIndex(path, collection string) (*ChromemIndex, error) {
	var (
		db  *chromem.DB
		err error
	)
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to open database: %v", ErrIndexUnavailable, err)
		}
	}

	c, err := db.GetOrCreateCollection(collection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create/get collection: %v", ErrIndexUnavailable, err)
	}
	return &ChromemIndex{db: db, collection: c}, nil
}

// Upsert adds or replaces chunks by ID
func (i *ChromemIndex) Upsert(ctx context.Context, chunks []models.IndexedChunk) error {
	for _, chunk := range chunks {
		if len(chunk.Embedding) == 0 {
			return fmt.Errorf("%w: chunk %s has no embedding", ErrIndexUnavailable, chunk.ID)
		}
		doc := chromem.Document{
			ID:        chunk.ID,
			Content:   chunk.Text,
			Metadata:  encodeMetadata(chunk.Metadata),
			Embedding: normalize(chunk.Embedding),
		}
		if err := i.collection.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("%w: failed to add document: %v", ErrIndexUnavailable, err)
		}
	}
	return nil
}

// Query returns up to n chunks nearest to embedding
func (i *ChromemIndex) Query(ctx context.Context, embedding []float32, n int, filter Filter) ([]models.RetrievedChunk, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: empty query embedding", ErrIndexUnavailable)
	}
	count := i.collection.Count()
	if n <= 0 || count == 0 {
		return []models.RetrievedChunk{}, nil
	}
	if n > count {
		n = count
	}

	var where map[string]string
	if filter.Country != "" {
		where = map[string]string{"country": filter.Country}
	}

	results, err := i.collection.QueryEmbedding(ctx, normalize(embedding), n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: query failed: %v", ErrIndexUnavailable, err)
	}

	chunks := make([]models.RetrievedChunk, 0, len(results))
	for _, r := range results {
		chunks = append(chunks, models.RetrievedChunk{
			IndexedChunk: models.IndexedChunk{
				ID:        r.ID,
				Embedding: r.Embedding,
				Text:      r.Content,
				Metadata:  decodeMetadata(r.Metadata),
			},
			Distance: 1 - float64(r.Similarity),
		})
	}
	return chunks, nil
}

// DeleteStale removes the chunks of url from fromIndex onwards
func (i *ChromemIndex) DeleteStale(ctx context.Context, url string, fromIndex int) error {
	if url == "" {
		return errors.New("url is required")
	}
	where := map[string]string{"url": url}
	if fromIndex <= 0 {
		if err := i.collection.Delete(ctx, where, nil); err != nil {
			return fmt.Errorf("%w: delete failed: %v", ErrIndexUnavailable, err)
		}
		return nil
	}

	// chromem filters on equality only, so list the source's chunks through
	// a query anchored on the first kept chunk and compare indexes here.
	anchor, err := i.collection.GetByID(ctx, models.ChunkID(url, 0))
	if err != nil {
		// nothing to anchor on; callers prune only after chunk 0 is stored
		return nil
	}
	n := i.collection.Count()
	if n == 0 {
		return nil
	}
	docs, err := i.collection.QueryEmbedding(ctx, anchor.Embedding, n, where, nil)
	if err != nil {
		return fmt.Errorf("%w: list chunks failed: %v", ErrIndexUnavailable, err)
	}

	var stale []string
	for _, d := range docs {
		if idx, err := strconv.Atoi(d.Metadata["chunk_index"]); err == nil && idx >= fromIndex {
			stale = append(stale, d.ID)
		}
	}
	if len(stale) == 0 {
		return nil
	}
	if err := i.collection.Delete(ctx, nil, nil, stale...); err != nil {
		return fmt.Errorf("%w: delete failed: %v", ErrIndexUnavailable, err)
	}
	return nil
}

// Count returns the number of stored chunks
func (i *ChromemIndex) Count(ctx context.Context) (int, error) {
	return i.collection.Count(), nil
}

// Close is a no-op; persistent collections are written on every change
func (i *ChromemIndex) Close() error {
	return nil
}

func encodeMetadata(m models.ChunkMetadata) map[string]string {
	return map[string]string{
		"url":          m.URL,
		"title":        m.Title,
		"authority":    string(m.Authority),
		"country":      m.Country,
		"category":     m.Category,
		"last_updated": m.LastUpdated.UTC().Format(time.RFC3339),
		"chunk_index":  strconv.Itoa(m.ChunkIndex),
	}
}

func decodeMetadata(meta map[string]string) models.ChunkMetadata {
	m := models.ChunkMetadata{
		URL:       meta["url"],
		Title:     meta["title"],
		Authority: models.Authority(meta["authority"]),
		Country:   meta["country"],
		Category:  meta["category"],
	}
	if t, err := time.Parse(time.RFC3339, meta["last_updated"]); err == nil {
		m.LastUpdated = t
	}
	if n, err := strconv.Atoi(meta["chunk_index"]); err == nil {
		m.ChunkIndex = n
	}
	return m
}
