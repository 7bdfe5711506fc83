// Package embed defines the embedding contract used by the ingest pipeline
// and the search engine.
package embed

import "context"

// Embedder turns text into a fixed-dimension vector via a configured
// model. Batch calls may reorder work internally but always return
// results in input order.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
}
