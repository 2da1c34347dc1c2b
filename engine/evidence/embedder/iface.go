package embedder

import "context"

// Embedder is the contract the ingestion and retrieval pipelines depend on.
// *Adapter is the production implementation; tests substitute fakes.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([]Result, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	BatchSize() int
}
