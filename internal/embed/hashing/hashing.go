// Package hashing implements a deterministic, model-free embedder used
// when the configured model backend is unreachable. It lets semantic
// search degrade to a weaker but still functioning signal instead of
// disappearing entirely.
package hashing

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/radhakrish-venkat/desktop-search/internal/textproc"
)

// Embedder projects a bag of tokens into a fixed-dimension vector via
// feature hashing, then L2-normalizes it so cosine similarity behaves
// sensibly against real model embeddings' scale.
type Embedder struct {
	dimensions int
}

// New creates a feature-hashing embedder with the given output dimension.
func New(dimensions int) *Embedder {
	if dimensions <= 0 {
		dimensions = 256
	}
	return &Embedder{dimensions: dimensions}
}

// Embed hashes each token of text into a bucket and accumulates sign-weighted
// counts, then L2-normalizes the result.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float64, e.dimensions)
	for _, tok := range textproc.Tokenize(text) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		bucket := int(h.Sum32()) % e.dimensions
		if bucket < 0 {
			bucket += e.dimensions
		}
		sign := 1.0
		if (h.Sum32() & 1) == 1 {
			sign = -1.0
		}
		vec[bucket] += sign
	}

	var norm float64
	for _, v := range vec {
		norm += v * v
	}
	norm = math.Sqrt(norm)

	out := make([]float32, e.dimensions)
	if norm == 0 {
		return out, nil
	}
	for i, v := range vec {
		out[i] = float32(v / norm)
	}
	return out, nil
}

// EmbedBatch embeds each text independently, in input order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// Dimensions returns the configured output size.
func (e *Embedder) Dimensions() int { return e.dimensions }

// ModelName identifies this embedder in stats/diagnostics output.
func (e *Embedder) ModelName() string { return "fallback-feature-hash" }
