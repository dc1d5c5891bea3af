package service

import (
	"context"
	"errors"
	"testing"

	"legalrag-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func indexedEngine(t *testing.T, o *keywordOracle) *QueryEngine {
	t.Helper()
	idx := newTestIndex(t)
	newTestIndexer(idx, &mapScraper{pages: testPages()}, &keywordOracle{}).IndexAllSources(context.Background())
	return NewQueryEngine(QueryWithIndex(idx), QueryWithOracle(o))
}

func TestQueryEndToEnd(t *testing.T) {
	o := &keywordOracle{answer: "  Residency requires 5 years [Source 1].\n"}
	engine := indexedEngine(t, o)

	answer := engine.Query(context.Background(), "What is the residency requirement?", "", 1)

	assert.Equal(t, "Residency requires 5 years [Source 1].", answer.Answer)
	require.Len(t, answer.Citations, 1)
	c := answer.Citations[0]
	assert.Equal(t, urlA, c.URL)
	assert.Equal(t, "Lex.uz - Uzbekistan Legal Database", c.Source)
	assert.Equal(t, models.AuthorityPrimary, c.Authority)
	assert.Equal(t, "Residency requires 5 years...", c.Excerpt)
	assert.True(t, c.Referenced)
	assert.InDelta(t, c.Relevance, answer.Confidence, 1e-9)
	assert.Greater(t, answer.Confidence, 0.0)
	assert.LessOrEqual(t, answer.Confidence, 1.0)

	require.Len(t, o.prompts, 1)
	assert.Contains(t, o.prompts[0], "[Source 1] Lex.uz - Uzbekistan Legal Database ("+urlA+"):\nResidency requires 5 years")
	assert.Equal(t, "mixtral:8x7b", o.options[0].Model)
	assert.InDelta(t, 0.2, o.options[0].Temperature, 1e-9)
}

func TestQueryPassesZeroTemperature(t *testing.T) {
	idx := newTestIndex(t)
	o := &keywordOracle{answer: "Residency requires 5 years [Source 1]."}
	newTestIndexer(idx, &mapScraper{pages: testPages()}, o).IndexAllSources(context.Background())
	engine := NewQueryEngine(QueryWithIndex(idx), QueryWithOracle(o), QueryWithTemperature(0))

	engine.Query(context.Background(), "What is the residency requirement?", "", 1)

	require.Len(t, o.options, 1)
	assert.Zero(t, o.options[0].Temperature)
}

func TestQueryReturnsEveryRetrievedChunkInOrder(t *testing.T) {
	engine := indexedEngine(t, &keywordOracle{answer: "answer"})

	answer := engine.Query(context.Background(), "residency visa requires", "", 0)

	require.Len(t, answer.Citations, 2)
	assert.GreaterOrEqual(t, answer.Citations[0].Relevance, answer.Citations[1].Relevance)
	for _, c := range answer.Citations {
		assert.False(t, c.Referenced)
	}
}

func TestQueryCountryFilter(t *testing.T) {
	engine := indexedEngine(t, &keywordOracle{answer: "Sponsorship is required [Source 1]."})

	answer := engine.Query(context.Background(), "What is the residency requirement?", "uk", 5)

	require.Len(t, answer.Citations, 1)
	assert.Equal(t, urlB, answer.Citations[0].URL)
	assert.Equal(t, models.AuthoritySecondary, answer.Citations[0].Authority)
	assert.InDelta(t, answer.Citations[0].Relevance*0.7, answer.Confidence, 1e-9)
}

func TestQueryNoMatchingSources(t *testing.T) {
	o := &keywordOracle{answer: "should not be called"}
	engine := indexedEngine(t, o)

	answer := engine.Query(context.Background(), "residency", "FR", 5)

	assert.Equal(t, models.NoSourcesAnswerText, answer.Answer)
	assert.Empty(t, answer.Citations)
	assert.Zero(t, answer.Confidence)
	assert.Empty(t, o.prompts)
}

func TestQueryEmptyIndex(t *testing.T) {
	engine := NewQueryEngine(QueryWithIndex(newTestIndex(t)), QueryWithOracle(&keywordOracle{}))
	answer := engine.Query(context.Background(), "residency", "", 5)
	assert.Equal(t, models.NoSourcesAnswerText, answer.Answer)
	assert.Zero(t, answer.Confidence)
}

func TestQueryDegradedPaths(t *testing.T) {
	tests := []struct {
		name   string
		engine func(t *testing.T) *QueryEngine
		q      string
	}{
		{"generation fails", func(t *testing.T) *QueryEngine {
			return indexedEngine(t, &keywordOracle{genErr: errors.New("oracle down")})
		}, "residency"},
		{"embedding fails", func(t *testing.T) *QueryEngine {
			return indexedEngine(t, &keywordOracle{embedErr: errors.New("oracle down")})
		}, "residency"},
		{"index unavailable", func(t *testing.T) *QueryEngine {
			return NewQueryEngine(QueryWithIndex(failingIndex{}), QueryWithOracle(&keywordOracle{}))
		}, "residency"},
		{"blank question", func(t *testing.T) *QueryEngine {
			return indexedEngine(t, &keywordOracle{answer: "x"})
		}, "   "},
		{"not configured", func(t *testing.T) *QueryEngine {
			return NewQueryEngine()
		}, "residency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer := tt.engine(t).Query(context.Background(), tt.q, "", 5)
			assert.Equal(t, models.DegradedAnswer(), answer)
		})
	}
}

func TestSearch(t *testing.T) {
	engine := indexedEngine(t, &keywordOracle{})

	chunks, err := engine.Search(context.Background(), "visa sponsorship", "", 1)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, urlB, chunks[0].Metadata.URL)

	_, err = engine.Search(context.Background(), "", "", 1)
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	_, err = NewQueryEngine(QueryWithIndex(failingIndex{}), QueryWithOracle(&keywordOracle{})).Search(context.Background(), "visa", "", 1)
	assert.ErrorIs(t, err, ErrRetrievalFailed)
}

func TestClampTopK(t *testing.T) {
	assert.Equal(t, DefaultTopK, clampTopK(0))
	assert.Equal(t, DefaultTopK, clampTopK(-3))
	assert.Equal(t, 7, clampTopK(7))
	assert.Equal(t, MaxTopK, clampTopK(1000))
}
