package repository

import (
	"context"
	"fmt"
	"sync/atomic"

	"legalrag-backend/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog/log"
)

// LegalChunkRepository is a VectorIndex stored in Postgres with pgvector
type LegalChunkRepository struct {
	db *pgxpool.Pool

	noIterativeScan atomic.Bool
}

// NewLegalChunkRepository creates a new legal chunk repository
func NewLegalChunkRepository(db *pgxpool.Pool) *LegalChunkRepository {
	return &LegalChunkRepository{db: db}
}

// Upsert inserts chunks, replacing rows with the same id
func (r *LegalChunkRepository) Upsert(ctx context.Context, chunks []models.IndexedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	query := `
		INSERT INTO legal_source_chunks (
			id, url, title, authority, country, category, last_updated,
			chunk_index, chunk_text, embedding
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::vector)
		ON CONFLICT (id) DO UPDATE SET
			url = EXCLUDED.url,
			title = EXCLUDED.title,
			authority = EXCLUDED.authority,
			country = EXCLUDED.country,
			category = EXCLUDED.category,
			last_updated = EXCLUDED.last_updated,
			chunk_index = EXCLUDED.chunk_index,
			chunk_text = EXCLUDED.chunk_text,
			embedding = EXCLUDED.embedding,
			updated_at = NOW()`

	batch := &pgx.Batch{}
	for _, c := range chunks {
		if len(c.Embedding) == 0 {
			return fmt.Errorf("%w: chunk %s has no embedding", ErrIndexUnavailable, c.ID)
		}
		m := c.Metadata
		batch.Queue(query,
			c.ID, m.URL, m.Title, string(m.Authority), m.Country, m.Category, m.LastUpdated,
			m.ChunkIndex, c.Text, pgvector.NewVector(c.Embedding),
		)
	}

	if err := r.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("%w: failed to upsert legal chunks: %v", ErrIndexUnavailable, err)
	}
	return nil
}

const (
	// pgvector's default hnsw.ef_search; also the floor for filtered scans
	minFilteredEfSearch = 100
	// pgvector rejects ef_search above 1000
	maxFilteredEfSearch = 1000
	// candidates kept per requested row when a country filter runs after the scan
	filteredEfSearchFactor = 40
)

const chunkQuery = `
	SELECT
		id,
		url,
		title,
		authority,
		country,
		category,
		last_updated,
		chunk_index,
		chunk_text,
		embedding <=> $1::vector AS distance
	FROM legal_source_chunks
	WHERE $2::text = '' OR country = $2::text
	ORDER BY
		embedding <=> $1::vector
	LIMIT $3`

// efSearchFor sizes the HNSW candidate list for a filtered query of n rows
func efSearchFor(n int) int {
	return min(max(n*filteredEfSearchFactor, minFilteredEfSearch), maxFilteredEfSearch)
}

// Query performs a cosine-distance search, optionally restricted to one country.
//
// The HNSW index filters after the graph scan, so a country-filtered query
// widens hnsw.ef_search and, on pgvector 0.8+, turns on iterative scans.
// Otherwise a small country could come back with fewer than n rows.
func (r *LegalChunkRepository) Query(
	ctx context.Context,
	embedding []float32,
	n int,
	filter Filter,
) ([]models.RetrievedChunk, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: empty query embedding", ErrIndexUnavailable)
	}
	if n <= 0 {
		return []models.RetrievedChunk{}, nil
	}

	vec := pgvector.NewVector(embedding)
	if filter.Country == "" {
		rows, err := r.db.Query(ctx, chunkQuery, vec, "", n)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to query legal chunks: %v", ErrIndexUnavailable, err)
		}
		return scanChunks(rows, n)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to begin filtered query: %v", ErrIndexUnavailable, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL hnsw.ef_search = %d", efSearchFor(n))); err != nil {
		return nil, fmt.Errorf("%w: failed to set hnsw.ef_search: %v", ErrIndexUnavailable, err)
	}
	r.enableIterativeScan(ctx, tx)

	rows, err := tx.Query(ctx, chunkQuery, vec, filter.Country, n)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query legal chunks: %v", ErrIndexUnavailable, err)
	}
	chunks, err := scanChunks(rows, n)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("%w: failed to finish filtered query: %v", ErrIndexUnavailable, err)
	}
	return chunks, nil
}

// enableIterativeScan sets hnsw.iterative_scan inside a savepoint so an older
// pgvector that lacks the setting leaves the outer transaction usable.
func (r *LegalChunkRepository) enableIterativeScan(ctx context.Context, tx pgx.Tx) {
	if r.noIterativeScan.Load() {
		return
	}
	sp, err := tx.Begin(ctx)
	if err != nil {
		return
	}
	if _, err := sp.Exec(ctx, "SET LOCAL hnsw.iterative_scan = strict_order"); err != nil {
		_ = sp.Rollback(ctx)
		r.noIterativeScan.Store(true)
		log.Warn().Err(err).Msg("pgvector without hnsw.iterative_scan; filtered queries rely on ef_search only")
		return
	}
	_ = sp.Commit(ctx)
}

func scanChunks(rows pgx.Rows, n int) ([]models.RetrievedChunk, error) {
	defer rows.Close()

	chunks := make([]models.RetrievedChunk, 0, n)
	for rows.Next() {
		var (
			chunk     models.RetrievedChunk
			authority string
		)
		err := rows.Scan(
			&chunk.ID,
			&chunk.Metadata.URL,
			&chunk.Metadata.Title,
			&authority,
			&chunk.Metadata.Country,
			&chunk.Metadata.Category,
			&chunk.Metadata.LastUpdated,
			&chunk.Metadata.ChunkIndex,
			&chunk.Text,
			&chunk.Distance,
		)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to scan legal chunk: %v", ErrIndexUnavailable, err)
		}
		chunk.Metadata.Authority = models.Authority(authority)
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: error iterating legal chunks: %v", ErrIndexUnavailable, err)
	}

	return chunks, nil
}

// DeleteStale removes the chunks of url from fromIndex onwards
func (r *LegalChunkRepository) DeleteStale(ctx context.Context, url string, fromIndex int) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM legal_source_chunks WHERE url = $1 AND chunk_index >= $2`,
		url, fromIndex,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to delete chunks of %s: %v", ErrIndexUnavailable, url, err)
	}
	return nil
}

// Count returns the number of stored chunks
func (r *LegalChunkRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM legal_source_chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: failed to count legal chunks: %v", ErrIndexUnavailable, err)
	}
	return n, nil
}

// Close releases the connection pool
func (r *LegalChunkRepository) Close() error {
	r.db.Close()
	return nil
}
