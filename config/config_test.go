package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "ollama", cfg.Oracle.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.Oracle.BaseURL)
	assert.Equal(t, "mixtral:8x7b", cfg.Oracle.GenerateModel)
	assert.Equal(t, "nomic-embed-text", cfg.Oracle.EmbeddingModel)
	assert.InDelta(t, 0.2, cfg.Oracle.SamplingTemperature(), 1e-9)
	assert.Equal(t, "chromem", cfg.Index.Backend)
	assert.Equal(t, "legal_sources", cfg.Index.Collection)
	assert.Equal(t, "./data/chromem", cfg.Index.ChromemPath)
	assert.Equal(t, 500, cfg.Indexing.ChunkSize)
	assert.True(t, cfg.Indexing.ReplaceExistingChunks())
	assert.Equal(t, "none", cfg.Snapshots.Type)
	assert.Zero(t, cfg.Oracle.EmbedCacheSize)
}

func TestLoadYAMLWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
port: "9090"
oracle:
  temperature: 0
  timeout: 45s
  max_retries: 5
index:
  chromem_path: /tmp/chromem
indexing:
  chunk_size: 250
  replace_existing: false
  schedule: "0 3 * * *"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("OLLAMA_URL", "http://ollama:11434")
	t.Setenv("PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7070", cfg.Port)
	assert.Equal(t, "http://ollama:11434", cfg.Oracle.BaseURL)
	require.NotNil(t, cfg.Oracle.Temperature)
	assert.Equal(t, 0.0, cfg.Oracle.SamplingTemperature())
	assert.Equal(t, 45*time.Second, cfg.Oracle.Timeout)
	assert.Equal(t, 5, cfg.Oracle.MaxRetries)
	assert.Equal(t, "/tmp/chromem", cfg.Index.ChromemPath)
	assert.Equal(t, 250, cfg.Indexing.ChunkSize)
	assert.False(t, cfg.Indexing.ReplaceExistingChunks())
	assert.Equal(t, "0 3 * * *", cfg.Indexing.Schedule)
}

func TestTemperatureFromEnv(t *testing.T) {
	t.Setenv("LEGAL_TEMPERATURE", "0")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.Oracle.SamplingTemperature())

	t.Setenv("LEGAL_TEMPERATURE", "0.7")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.InDelta(t, 0.7, cfg.Oracle.SamplingTemperature(), 1e-9)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "chromem", cfg.Index.Backend)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Oracle.Provider = "bogus"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Index.Backend = "pgvector"
	assert.Error(t, cfg.Validate())
	cfg.Index.DatabaseURL = "postgres://localhost/legal"
	assert.NoError(t, cfg.Validate())

	cfg = Default()
	cfg.Snapshots.Type = "s3"
	assert.Error(t, cfg.Validate())
}
