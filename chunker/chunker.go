// Package chunker splits source text into fixed-size word windows.
package chunker

import "strings"

// DefaultWindowSize is the number of words per chunk
const DefaultWindowSize = 500

// Chunk splits text on whitespace into consecutive windows of windowSize words.
// The last window may be shorter. Windows do not overlap. Empty text yields no chunks.
func Chunk(text string, windowSize int) []string {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(words)+windowSize-1)/windowSize)
	for start := 0; start < len(words); start += windowSize {
		end := start + windowSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}
