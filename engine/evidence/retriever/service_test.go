package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auditcortex/auditcortex/engine/evidence"
	"github.com/auditcortex/auditcortex/engine/evidence/assembler"
	"github.com/auditcortex/auditcortex/engine/evidence/embedder"
	"github.com/auditcortex/auditcortex/engine/evidence/rerank"
	"github.com/auditcortex/auditcortex/engine/evidence/vectordb"
)

// queryEmbedder maps known queries to fixed vectors.
type queryEmbedder struct {
	vectors map[string][]float32
	fail    bool
}

func (q *queryEmbedder) EmbedDocuments(_ context.Context, texts []string) ([]embedder.Result, error) {
	results := make([]embedder.Result, len(texts))
	for i, text := range texts {
		results[i] = embedder.Result{Vector: q.vectors[text]}
	}
	return results, nil
}

func (q *queryEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	if q.fail {
		return nil, errors.New("provider unavailable")
	}
	if vector, ok := q.vectors[text]; ok {
		return vector, nil
	}
	return []float32{1, 0, 0, 0}, nil
}

func (q *queryEmbedder) Dimension() int { return 4 }
func (q *queryEmbedder) BatchSize() int { return 32 }

func seedStore(t *testing.T) vectordb.Store {
	t.Helper()
	store, err := vectordb.New(context.Background(), &vectordb.Config{
		ID:        "test",
		Provider:  vectordb.ProviderMemory,
		Dimension: 4,
	})
	require.NoError(t, err)
	require.NoError(t, store.Upsert(context.Background(), []vectordb.Record{
		{
			ID: "p0", Text: "All access requires multi factor authentication.",
			Embedding: []float32{1, 0, 0, 0},
			Metadata: map[string]any{
				evidence.MetaSourceID: "policy-1", evidence.MetaTitle: "Access Policy",
				evidence.MetaDocType: "policy", evidence.MetaControlID: "AC-2",
				evidence.MetaChunkIndex: 0,
			},
		},
		{
			ID: "p1", Text: "Access reviews run quarterly.",
			Embedding: []float32{0.9, 0.1, 0, 0},
			Metadata: map[string]any{
				evidence.MetaSourceID: "policy-1", evidence.MetaTitle: "Access Policy",
				evidence.MetaDocType: "policy", evidence.MetaControlID: "AC-2",
				evidence.MetaChunkIndex: 1,
			},
		},
		{
			ID: "s0", Text: "The scanner found no critical findings last month.",
			Embedding: []float32{0.7, 0.3, 0, 0},
			Metadata: map[string]any{
				evidence.MetaSourceID: "scan-1", evidence.MetaTitle: "Scan Report",
				evidence.MetaDocType: "scan", evidence.MetaControlID: "RA-5",
				evidence.MetaChunkIndex: 0,
			},
		},
	}))
	return store
}

func newTestService(t *testing.T, emb embedder.Embedder, store vectordb.Store) *Service {
	t.Helper()
	reranker, err := rerank.New(rerank.Config{Strategy: rerank.StrategyMMR})
	require.NoError(t, err)
	asm, err := assembler.New(2000)
	require.NoError(t, err)
	service, err := NewService(emb, store, reranker, asm, evidence.DefaultDefaults())
	require.NoError(t, err)
	return service
}

func TestNewService(t *testing.T) {
	store := seedStore(t)
	reranker, err := rerank.New(rerank.Config{})
	require.NoError(t, err)
	asm, err := assembler.New(100)
	require.NoError(t, err)

	t.Run("Should require every collaborator", func(t *testing.T) {
		_, err := NewService(nil, store, reranker, asm, evidence.Defaults{})
		require.Error(t, err)
		_, err = NewService(&queryEmbedder{}, nil, reranker, asm, evidence.Defaults{})
		require.Error(t, err)
		_, err = NewService(&queryEmbedder{}, store, nil, asm, evidence.Defaults{})
		require.Error(t, err)
		_, err = NewService(&queryEmbedder{}, store, reranker, nil, evidence.Defaults{})
		require.Error(t, err)
	})

	t.Run("Should sanitize zero-valued defaults", func(t *testing.T) {
		service, err := NewService(&queryEmbedder{}, store, reranker, asm, evidence.Defaults{})
		require.NoError(t, err)
		assert.Equal(t, 5, service.defaults.RetrievalTopK)
		assert.Equal(t, 20, service.defaults.RetrievalPoolSize)
	})
}

func TestRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("Should return ranked contexts with an assembled block", func(t *testing.T) {
		service := newTestService(t, &queryEmbedder{}, seedStore(t))
		response, err := service.Retrieve(ctx, Request{Query: "mfa requirements", TopK: 2})
		require.NoError(t, err)
		require.Len(t, response.Contexts, 2)
		assert.Equal(t, "All access requires multi factor authentication.", response.Contexts[0].Content)
		assert.Equal(t, "Access Policy", response.Contexts[0].SourceTitle)
		assert.Equal(t, "policy", response.Contexts[0].SourceType)
		assert.Positive(t, response.Contexts[0].TokenEstimate)
		assert.Contains(t, response.ContextBlock, "[1] Access Policy")
	})

	t.Run("Should reject an empty query", func(t *testing.T) {
		service := newTestService(t, &queryEmbedder{}, seedStore(t))
		_, err := service.Retrieve(ctx, Request{Query: "   "})
		require.Error(t, err)
	})

	t.Run("Should map filters onto metadata constraints", func(t *testing.T) {
		service := newTestService(t, &queryEmbedder{}, seedStore(t))
		response, err := service.Retrieve(ctx, Request{
			Query:   "recent scan results",
			TopK:    5,
			Filters: Filters{DocType: "scan"},
		})
		require.NoError(t, err)
		require.Len(t, response.Contexts, 1)
		assert.Equal(t, "Scan Report", response.Contexts[0].SourceTitle)
	})

	t.Run("Should combine filters conjunctively", func(t *testing.T) {
		service := newTestService(t, &queryEmbedder{}, seedStore(t))
		response, err := service.Retrieve(ctx, Request{
			Query:   "access controls",
			TopK:    5,
			Filters: Filters{ControlID: "AC-2", DocType: "scan"},
		})
		require.NoError(t, err)
		assert.Empty(t, response.Contexts)
	})

	t.Run("Should degrade to an empty response when embedding fails", func(t *testing.T) {
		service := newTestService(t, &queryEmbedder{fail: true}, seedStore(t))
		response, err := service.Retrieve(ctx, Request{Query: "anything"})
		require.NoError(t, err)
		assert.Empty(t, response.Contexts)
		assert.Empty(t, response.ContextBlock)
	})

	t.Run("Should surface a dimension mismatch instead of degrading", func(t *testing.T) {
		emb := &queryEmbedder{vectors: map[string][]float32{"short": {1, 0}}}
		service := newTestService(t, emb, seedStore(t))
		_, err := service.Retrieve(ctx, Request{Query: "short"})
		require.ErrorIs(t, err, vectordb.ErrDimensionMismatch)
	})

	t.Run("Should return empty without error when nothing matches", func(t *testing.T) {
		service := newTestService(t, &queryEmbedder{}, seedStore(t))
		response, err := service.Retrieve(ctx, Request{
			Query:   "unrelated",
			Filters: Filters{ControlID: "ZZ-99"},
		})
		require.NoError(t, err)
		assert.Empty(t, response.Contexts)
	})

	t.Run("Should raise the pool size to top k", func(t *testing.T) {
		service := newTestService(t, &queryEmbedder{}, seedStore(t))
		response, err := service.Retrieve(ctx, Request{Query: "access", TopK: 3, PoolSize: 1})
		require.NoError(t, err)
		assert.Len(t, response.Contexts, 3)
	})

	t.Run("Should apply the minimum score threshold", func(t *testing.T) {
		service := newTestService(t, &queryEmbedder{}, seedStore(t))
		response, err := service.Retrieve(ctx, Request{Query: "access", TopK: 5, MinScore: 0.999})
		require.NoError(t, err)
		require.Len(t, response.Contexts, 1)
		assert.Contains(t, response.Contexts[0].Content, "multi factor")
	})
}

func TestFetchControl(t *testing.T) {
	ctx := context.Background()

	t.Run("Should return chunks in document order", func(t *testing.T) {
		service := newTestService(t, &queryEmbedder{}, seedStore(t))
		contexts, err := service.FetchControl(ctx, "AC-2")
		require.NoError(t, err)
		require.Len(t, contexts, 2)
		assert.Contains(t, contexts[0].Content, "multi factor")
		assert.Contains(t, contexts[1].Content, "quarterly")
		assert.Zero(t, contexts[0].Score)
	})

	t.Run("Should require a control id", func(t *testing.T) {
		service := newTestService(t, &queryEmbedder{}, seedStore(t))
		_, err := service.FetchControl(ctx, "  ")
		require.Error(t, err)
	})

	t.Run("Should return empty for an unknown control", func(t *testing.T) {
		service := newTestService(t, &queryEmbedder{}, seedStore(t))
		contexts, err := service.FetchControl(ctx, "XX-1")
		require.NoError(t, err)
		assert.Empty(t, contexts)
	})
}
