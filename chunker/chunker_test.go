package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(w, " ")
}

func TestChunkWindowSizes(t *testing.T) {
	tests := []struct {
		name   string
		words  int
		window int
		want   []int
	}{
		{"empty", 0, 500, nil},
		{"single short chunk", 10, 500, []int{10}},
		{"exact multiple", 1000, 500, []int{500, 500}},
		{"remainder", 1201, 500, []int{500, 500, 201}},
		{"default window", 501, 0, []int{500, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := Chunk(words(tt.words), tt.window)
			require.Len(t, chunks, len(tt.want))
			for i, n := range tt.want {
				assert.Len(t, strings.Fields(chunks[i]), n)
			}
		})
	}
}

func TestChunkWhitespaceOnly(t *testing.T) {
	assert.Empty(t, Chunk(" \n\t  ", 500))
}

func TestChunkPreservesOrderWithoutOverlap(t *testing.T) {
	text := words(1201)
	chunks := Chunk(text, 500)

	assert.Equal(t, strings.Fields(text), strings.Fields(strings.Join(chunks, " ")))
	assert.True(t, strings.HasPrefix(chunks[1], "w500 "))
	assert.True(t, strings.HasPrefix(chunks[2], "w1000 "))
}

func TestChunkDeterministic(t *testing.T) {
	text := "Residency  requires\nfive years of\tlawful stay " + words(700)
	assert.Equal(t, Chunk(text, 500), Chunk(text, 500))
}
