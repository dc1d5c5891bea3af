package service

import (
	"strings"
	"testing"
	"unicode/utf8"

	"legalrag-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func retrieved(authority models.Authority, distance float64, text string) models.RetrievedChunk {
	return models.RetrievedChunk{
		IndexedChunk: models.IndexedChunk{
			Text:     text,
			Metadata: models.ChunkMetadata{Title: "T", URL: "https://example.gov", Authority: authority},
		},
		Distance: distance,
	}
}

func TestRelevanceClamped(t *testing.T) {
	assert.Equal(t, 1.0, retrieved(models.AuthorityPrimary, -0.2, "").Relevance())
	assert.InDelta(t, 0.75, retrieved(models.AuthorityPrimary, 0.25, "").Relevance(), 1e-9)
	assert.Equal(t, 0.0, retrieved(models.AuthorityPrimary, 1.4, "").Relevance())
}

func TestConfidenceWeighting(t *testing.T) {
	primary := buildCitations([]models.RetrievedChunk{retrieved(models.AuthorityPrimary, 0.2, "a")}, "")
	secondary := buildCitations([]models.RetrievedChunk{retrieved(models.AuthoritySecondary, 0.2, "a")}, "")

	assert.InDelta(t, 0.8, confidence(primary), 1e-9)
	assert.InDelta(t, 0.56, confidence(secondary), 1e-9)
	assert.Greater(t, confidence(primary), confidence(secondary))
}

func TestConfidenceMean(t *testing.T) {
	citations := buildCitations([]models.RetrievedChunk{
		retrieved(models.AuthorityPrimary, 0.0, "a"),
		retrieved(models.AuthoritySecondary, 0.5, "b"),
	}, "")
	assert.InDelta(t, (1.0+0.35)/2, confidence(citations), 1e-9)
}

func TestConfidenceBounds(t *testing.T) {
	assert.Equal(t, 0.0, confidence(nil))
	for _, d := range []float64{-1, 0, 0.3, 1, 2} {
		for _, a := range []models.Authority{models.AuthorityPrimary, models.AuthoritySecondary} {
			c := confidence(buildCitations([]models.RetrievedChunk{retrieved(a, d, "x")}, ""))
			assert.GreaterOrEqual(t, c, 0.0)
			assert.LessOrEqual(t, c, 1.0)
		}
	}
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "short...", excerpt("short"))

	long := strings.Repeat("ж", 250)
	ex := excerpt(long)
	assert.True(t, strings.HasSuffix(ex, "..."))
	assert.Equal(t, 203, utf8.RuneCountInString(ex))
	assert.True(t, utf8.ValidString(ex))
}

func TestBuildCitationsReferencedMarkers(t *testing.T) {
	chunks := []models.RetrievedChunk{
		retrieved(models.AuthorityPrimary, 0.1, "a"),
		retrieved(models.AuthoritySecondary, 0.2, "b"),
	}
	citations := buildCitations(chunks, "Per [Source 2], sponsorship is required.")
	require.Len(t, citations, 2)
	assert.False(t, citations[0].Referenced)
	assert.True(t, citations[1].Referenced)
}

func TestBuildContextAndPrompt(t *testing.T) {
	chunks := []models.RetrievedChunk{
		{IndexedChunk: models.IndexedChunk{Text: "Residency requires 5 years", Metadata: models.ChunkMetadata{Title: "Lex", URL: "https://lex.uz"}}},
		{IndexedChunk: models.IndexedChunk{Text: "Visa requires sponsorship", Metadata: models.ChunkMetadata{Title: "UK", URL: "https://gov.uk"}}},
	}
	ctx := buildContext(chunks)
	assert.Equal(t, "[Source 1] Lex (https://lex.uz):\nResidency requires 5 years\n\n[Source 2] UK (https://gov.uk):\nVisa requires sponsorship", ctx)

	prompt := buildGroundedPrompt("What is the residency requirement?", ctx)
	assert.Contains(t, prompt, "QUESTION: What is the residency requirement?")
	assert.Contains(t, prompt, ctx)
	assert.Contains(t, prompt, "ONLY the provided official sources")
	assert.Contains(t, prompt, "[Source X]")
	assert.Contains(t, prompt, `"The provided sources do not contain information about this topic"`)
	assert.True(t, strings.HasSuffix(prompt, "ANSWER:"))
}
