package oracle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingOracle struct {
	embeds int
}

func (c *countingOracle) Name() string { return "counting" }

func (c *countingOracle) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	return prompt, nil
}

func (c *countingOracle) Embed(ctx context.Context, text string) ([]float32, error) {
	c.embeds++
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingOracle) ListModels(ctx context.Context) ([]string, error) {
	return nil, nil
}

func TestEmbeddingCacheHit(t *testing.T) {
	base := &countingOracle{}
	o := WithEmbeddingCache(base, 10, time.Minute)

	first, err := o.Embed(context.Background(), "visa")
	require.NoError(t, err)
	first[0] = 99

	second, err := o.Embed(context.Background(), "visa")
	require.NoError(t, err)

	assert.Equal(t, 1, base.embeds)
	assert.Equal(t, []float32{4, 1}, second)

	_, err = o.Embed(context.Background(), "residency")
	require.NoError(t, err)
	assert.Equal(t, 2, base.embeds)
}

func TestEmbeddingCacheDisabled(t *testing.T) {
	base := &countingOracle{}
	o := WithEmbeddingCache(base, 0, time.Minute)
	assert.Same(t, base, o)
}
