package vectordb

import (
	"context"
	"errors"
)

// ErrDimensionMismatch signals a caller bug: a vector whose length differs
// from the index dimension. It must surface immediately rather than degrade.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Provider enumerates supported vector store backends.
type Provider string

const (
	// ProviderMemory keeps vectors in process, used by tests and local runs.
	ProviderMemory Provider = "memory"
	// ProviderPGVector persists vectors to postgres with the pgvector extension.
	ProviderPGVector Provider = "pgvector"
)

// Metric selects the distance function an index compares vectors under.
// The metric is fixed per store instance; stored vectors are only comparable
// under one metric's assumptions.
type Metric string

const (
	MetricCosine     Metric = "cosine"
	MetricEuclidean  Metric = "euclidean"
	MetricDotProduct Metric = "dot_product"
)

// Record represents a chunk persisted to the vector store.
type Record struct {
	ID        string
	Text      string
	Embedding []float32
	Metadata  map[string]any
}

// SearchOptions controls similarity search execution. Filters are conjunctive
// over metadata keys; an absent key means no constraint.
type SearchOptions struct {
	TopK     int
	MinScore float64
	Filters  map[string]string
}

// Match captures one similarity search result. Score is normalized so that
// higher always means more similar, regardless of metric.
type Match struct {
	ID       string
	Score    float64
	Text     string
	Metadata map[string]any
}

// Filter specifies delete criteria.
type Filter struct {
	IDs      []string
	Metadata map[string]string
}

// Store exposes the contract for ingestion and retrieval.
type Store interface {
	Upsert(ctx context.Context, records []Record) error
	Search(ctx context.Context, query []float32, opts SearchOptions) ([]Match, error)
	// FetchByControl returns every chunk tagged with the control identifier,
	// ordered by chunk index, ignoring similarity. Used for exhaustive
	// control-scoped review rather than ranked search.
	FetchByControl(ctx context.Context, controlID string) ([]Record, error)
	Delete(ctx context.Context, filter Filter) error
	Close(ctx context.Context) error
}

// Config captures normalized connection details for a vector store.
type Config struct {
	ID          string
	Provider    Provider
	DSN         string
	Table       string
	Index       string
	EnsureIndex bool
	Metric      Metric
	Dimension   int
	MaxTopK     int
}
