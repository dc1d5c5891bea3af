package service

import (
	"fmt"
	"strings"

	"legalrag-backend/models"
)

// buildContext renders retrieved chunks as numbered source blocks
func buildContext(chunks []models.RetrievedChunk) string {
	blocks := make([]string, 0, len(chunks))
	for i, c := range chunks {
		blocks = append(blocks, fmt.Sprintf("[Source %d] %s (%s):\n%s", i+1, c.Metadata.Title, c.Metadata.URL, c.Text))
	}
	return strings.Join(blocks, "\n\n")
}

// buildGroundedPrompt asks the model to answer only from the given sources
func buildGroundedPrompt(question, contextText string) string {
	return fmt.Sprintf(`You are a legal immigration expert. Answer the following question using ONLY the provided official sources. You MUST cite your sources.

QUESTION: %s

OFFICIAL SOURCES:
%s

INSTRUCTIONS:
1. Answer the question accurately based ONLY on the provided sources
2. Cite sources using [Source X] notation
3. If the sources don't contain the answer, say "%s"
4. Be precise and quote relevant passages
5. Maintain a professional, legal tone

ANSWER:`, question, contextText, strings.TrimSuffix(models.NoSourcesAnswerText, "."))
}
