package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// EnsureSchema creates the pgvector extension, tables and indexes if missing.
// dimensions must match the embedding model.
func EnsureSchema(ctx context.Context, db *pgxpool.Pool, dimensions int) error {
	if _, err := db.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		log.Warn().Err(err).Msg("failed to create pgvector extension, assuming it is installed")
	}

	tables := []string{
		fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS legal_source_chunks (
    id TEXT PRIMARY KEY,
    url TEXT NOT NULL,
    title TEXT NOT NULL,
    authority VARCHAR(20) NOT NULL CHECK (authority IN ('primary', 'secondary')),
    country VARCHAR(8) NOT NULL,
    category VARCHAR(64) NOT NULL,
    last_updated TIMESTAMPTZ NOT NULL,
    chunk_index INTEGER NOT NULL,
    chunk_text TEXT NOT NULL,
    embedding vector(%d) NOT NULL,
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW()
)`, dimensions),
		`
CREATE TABLE IF NOT EXISTS index_runs (
    id UUID PRIMARY KEY,
    trigger VARCHAR(20) NOT NULL,
    status VARCHAR(20) NOT NULL,
    current_step TEXT,
    steps JSONB NOT NULL DEFAULT '[]'::jsonb,
    error_message TEXT,
    created_at TIMESTAMPTZ DEFAULT NOW(),
    updated_at TIMESTAMPTZ DEFAULT NOW(),
    completed_at TIMESTAMPTZ
)`,
	}
	for _, sql := range tables {
		if _, err := db.Exec(ctx, sql); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	indexes := []struct {
		name string
		sql  string
	}{
		{
			name: "Vector similarity search (HNSW)",
			sql: `CREATE INDEX IF NOT EXISTS idx_legal_source_chunks_embedding ON legal_source_chunks
USING hnsw (embedding vector_cosine_ops)
WITH (m = 16, ef_construction = 64)`,
		},
		{
			name: "Country filtering",
			sql:  "CREATE INDEX IF NOT EXISTS idx_legal_source_chunks_country ON legal_source_chunks(country)",
		},
		{
			name: "Source url lookup",
			sql:  "CREATE INDEX IF NOT EXISTS idx_legal_source_chunks_url ON legal_source_chunks(url)",
		},
		{
			name: "Recent index runs",
			sql:  "CREATE INDEX IF NOT EXISTS idx_index_runs_created_at ON index_runs(created_at DESC)",
		},
	}
	for _, idx := range indexes {
		if _, err := db.Exec(ctx, idx.sql); err != nil {
			log.Warn().Err(err).Str("index", idx.name).Msg("failed to create index")
			continue
		}
		log.Info().Str("index", idx.name).Msg("index ready")
	}
	return nil
}
