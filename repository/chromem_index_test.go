package repository

import (
	"context"
	"testing"
	"time"

	"legalrag-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chunk(url string, i int, country string, authority models.Authority, emb []float32) models.IndexedChunk {
	src := models.LegalSource{
		URL:         url,
		Title:       "Title " + country,
		Authority:   authority,
		Country:     country,
		Category:    models.DefaultCategory,
		LastUpdated: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	return models.NewIndexedChunk(src, i, "text of "+url, emb)
}

func newIndex(t *testing.T) *ChromemIndex {
	t.Helper()
	idx, err := NewChromemIndex("", "legal_sources")
	require.NoError(t, err)
	return idx
}

func TestChromemQueryEmptyIndex(t *testing.T) {
	idx := newIndex(t)
	res, err := idx.Query(context.Background(), []float32{1, 0}, 5, Filter{})
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestChromemUpsertIsIdempotent(t *testing.T) {
	ctx := context.Background()
	idx := newIndex(t)

	c := chunk("https://lex.uz", 0, "UZ", models.AuthorityPrimary, []float32{1, 0})
	require.NoError(t, idx.Upsert(ctx, []models.IndexedChunk{c}))
	c.Text = "updated"
	require.NoError(t, idx.Upsert(ctx, []models.IndexedChunk{c}))

	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	res, err := idx.Query(ctx, []float32{1, 0}, 5, Filter{})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "updated", res[0].Text)
	assert.Equal(t, "https://lex.uz-chunk-0", res[0].ID)
}

func TestChromemQueryOrderingAndMetadata(t *testing.T) {
	ctx := context.Background()
	idx := newIndex(t)
	require.NoError(t, idx.Upsert(ctx, []models.IndexedChunk{
		chunk("https://lex.uz", 0, "UZ", models.AuthorityPrimary, []float32{1, 0.1}),
		chunk("https://www.gov.uk", 0, "UK", models.AuthoritySecondary, []float32{0.1, 1}),
		chunk("https://www.uscis.gov", 0, "US", models.AuthoritySecondary, []float32{0.7, 0.7}),
	}))

	res, err := idx.Query(ctx, []float32{1, 0}, 3, Filter{})
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "https://lex.uz", res[0].Metadata.URL)
	assert.Equal(t, "https://www.uscis.gov", res[1].Metadata.URL)
	assert.Equal(t, "https://www.gov.uk", res[2].Metadata.URL)
	for i := 1; i < len(res); i++ {
		assert.LessOrEqual(t, res[i-1].Distance, res[i].Distance)
	}

	top := res[0]
	assert.Equal(t, models.AuthorityPrimary, top.Metadata.Authority)
	assert.Equal(t, "UZ", top.Metadata.Country)
	assert.Equal(t, models.DefaultCategory, top.Metadata.Category)
	assert.Equal(t, 2026, top.Metadata.LastUpdated.Year())
	assert.InDelta(t, 0.005, top.Distance, 0.01)
}

func TestChromemQueryCountryFilter(t *testing.T) {
	ctx := context.Background()
	idx := newIndex(t)
	require.NoError(t, idx.Upsert(ctx, []models.IndexedChunk{
		chunk("https://lex.uz", 0, "UZ", models.AuthorityPrimary, []float32{1, 0.1}),
		chunk("https://www.gov.uk", 0, "UK", models.AuthoritySecondary, []float32{0.1, 1}),
	}))

	res, err := idx.Query(ctx, []float32{1, 0}, 5, Filter{Country: "UK"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "UK", res[0].Metadata.Country)

	res, err = idx.Query(ctx, []float32{1, 0}, 5, Filter{Country: "FR"})
	require.NoError(t, err)
	assert.Empty(t, res)
}

func TestChromemDeleteStale(t *testing.T) {
	ctx := context.Background()
	idx := newIndex(t)
	require.NoError(t, idx.Upsert(ctx, []models.IndexedChunk{
		chunk("https://lex.uz", 0, "UZ", models.AuthorityPrimary, []float32{1, 0.1}),
		chunk("https://lex.uz", 1, "UZ", models.AuthorityPrimary, []float32{1, 0.2}),
		chunk("https://lex.uz", 2, "UZ", models.AuthorityPrimary, []float32{0.3, 1}),
		chunk("https://www.gov.uk", 0, "UK", models.AuthoritySecondary, []float32{0.1, 1}),
		chunk("https://www.gov.uk", 1, "UK", models.AuthoritySecondary, []float32{0.2, 1}),
	}))

	require.NoError(t, idx.DeleteStale(ctx, "https://lex.uz", 1))
	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	res, err := idx.Query(ctx, []float32{1, 0}, 3, Filter{Country: "UZ"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, models.ChunkID("https://lex.uz", 0), res[0].ID)

	require.NoError(t, idx.DeleteStale(ctx, "https://www.gov.uk", 0))
	n, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, idx.DeleteStale(ctx, "https://unknown.example", 3))
}

func TestChromemRejectsMissingEmbedding(t *testing.T) {
	idx := newIndex(t)
	err := idx.Upsert(context.Background(), []models.IndexedChunk{chunk("https://lex.uz", 0, "UZ", models.AuthorityPrimary, nil)})
	assert.ErrorIs(t, err, ErrIndexUnavailable)
}

func TestChromemPersistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	idx, err := NewChromemIndex(dir, "legal_sources")
	require.NoError(t, err)
	require.NoError(t, idx.Upsert(ctx, []models.IndexedChunk{
		chunk("https://lex.uz", 0, "UZ", models.AuthorityPrimary, []float32{1, 0.1}),
	}))

	reopened, err := NewChromemIndex(dir, "legal_sources")
	require.NoError(t, err)
	n, err := reopened.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
