package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedIsDeterministic(t *testing.T) {
	e := New(64)
	a, err := e.Embed(context.Background(), "python is a language")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "python is a language")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestEmbedIsUnitNorm(t *testing.T) {
	e := New(64)
	vec, err := e.Embed(context.Background(), "some reasonably long piece of text to embed")
	require.NoError(t, err)

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-6)
}

func TestEmbedEmptyTextIsZeroVector(t *testing.T) {
	e := New(32)
	vec, err := e.Embed(context.Background(), "")
	require.NoError(t, err)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}
