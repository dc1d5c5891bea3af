package service

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"legalrag-backend/models"
)

const excerptLength = 200

// excerpt returns the first 200 characters of text followed by "..."
func excerpt(text string) string {
	if utf8.RuneCountInString(text) <= excerptLength {
		return text + "..."
	}
	return string([]rune(text)[:excerptLength]) + "..."
}

// buildCitations returns one citation per retrieved chunk, in retrieval order
func buildCitations(chunks []models.RetrievedChunk, answer string) []models.Citation {
	citations := make([]models.Citation, 0, len(chunks))
	for i, c := range chunks {
		citations = append(citations, models.Citation{
			Source:     c.Metadata.Title,
			URL:        c.Metadata.URL,
			Authority:  c.Metadata.Authority,
			Relevance:  c.Relevance(),
			Excerpt:    excerpt(c.Text),
			Referenced: strings.Contains(answer, fmt.Sprintf("[Source %d]", i+1)),
		})
	}
	return citations
}

// confidence is the mean of relevance weighted by authority, 0 without citations
func confidence(citations []models.Citation) float64 {
	if len(citations) == 0 {
		return 0
	}
	var sum float64
	for _, c := range citations {
		sum += c.Relevance * c.Authority.Weight()
	}
	return sum / float64(len(citations))
}
