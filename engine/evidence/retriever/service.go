package retriever

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/auditcortex/auditcortex/engine/evidence"
	"github.com/auditcortex/auditcortex/engine/evidence/assembler"
	"github.com/auditcortex/auditcortex/engine/evidence/embedder"
	"github.com/auditcortex/auditcortex/engine/evidence/rerank"
	"github.com/auditcortex/auditcortex/engine/evidence/vectordb"
	"github.com/auditcortex/auditcortex/pkg/logger"
)

// Filters narrow a query to a slice of the evidence corpus. All present
// fields apply conjunctively; an empty field means no constraint.
type Filters struct {
	ControlID        string
	ObjectiveID      string
	AssessmentMethod string
	DocType          string
	ScopeID          string
}

func (f *Filters) toMetadata() map[string]string {
	metadata := make(map[string]string, 5)
	if f.ControlID != "" {
		metadata[evidence.MetaControlID] = f.ControlID
	}
	if f.ObjectiveID != "" {
		metadata[evidence.MetaObjectiveID] = f.ObjectiveID
	}
	if f.AssessmentMethod != "" {
		metadata[evidence.MetaAssessmentMethod] = f.AssessmentMethod
	}
	if f.DocType != "" {
		metadata[evidence.MetaDocType] = f.DocType
	}
	if f.ScopeID != "" {
		metadata[evidence.MetaScopeID] = f.ScopeID
	}
	if len(metadata) == 0 {
		return nil
	}
	return metadata
}

// Request describes one retrieval call. PoolSize controls over-fetching for
// the re-ranker and is raised to TopK when smaller.
type Request struct {
	Query    string
	TopK     int
	PoolSize int
	MinScore float64
	Filters  Filters
}

// Response carries the ranked contexts plus the assembled context block for
// the downstream generative call.
type Response struct {
	Contexts     []evidence.RetrievedContext
	ContextBlock string
}

// Service runs the query-time pipeline: embed the query, over-fetch from the
// vector store, re-rank for diversity and assemble a token-budgeted block.
type Service struct {
	emb       embedder.Embedder
	store     vectordb.Store
	reranker  rerank.Reranker
	assembler *assembler.Assembler
	defaults  evidence.Defaults
	tracer    trace.Tracer
}

func NewService(
	emb embedder.Embedder,
	store vectordb.Store,
	reranker rerank.Reranker,
	asm *assembler.Assembler,
	defaults evidence.Defaults,
) (*Service, error) {
	if emb == nil {
		return nil, errors.New("retriever: embedder is required")
	}
	if store == nil {
		return nil, errors.New("retriever: vector store is required")
	}
	if reranker == nil {
		return nil, errors.New("retriever: reranker is required")
	}
	if asm == nil {
		return nil, errors.New("retriever: assembler is required")
	}
	return &Service{
		emb:       emb,
		store:     store,
		reranker:  reranker,
		assembler: asm,
		defaults:  defaults.Sanitize(),
		tracer:    otel.Tracer("auditcortex.evidence.retriever"),
	}, nil
}

// Retrieve executes the retrieval pipeline. Provider failures degrade to an
// empty response so the caller's downstream generative call is never blocked;
// dimension mismatches surface immediately since they indicate a caller bug.
func (s *Service) Retrieve(ctx context.Context, req Request) (*Response, error) {
	if strings.TrimSpace(req.Query) == "" {
		return nil, errors.New("retriever: query is required")
	}
	topK, poolSize := s.normalizeSizes(&req)
	log := logger.FromContext(ctx)
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "auditcortex.evidence.retrieve", trace.WithAttributes(
		attribute.Int("top_k", topK),
		attribute.Int("pool_size", poolSize),
	))
	defer span.End()
	defer func() {
		evidence.RecordQueryLatency(ctx, time.Since(start))
	}()

	vector, err := s.embedQuery(ctx, req.Query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("Query embedding failed, returning empty context", "error", err)
		evidence.RecordRetrievalEmpty(ctx, "embed_query")
		return &Response{}, nil
	}
	matches, err := s.search(ctx, vector, vectordb.SearchOptions{
		TopK:     poolSize,
		MinScore: req.MinScore,
		Filters:  req.Filters.toMetadata(),
	})
	if err != nil {
		if errors.Is(err, vectordb.ErrDimensionMismatch) {
			return nil, err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("Vector search failed, returning empty context", "error", err)
		evidence.RecordRetrievalEmpty(ctx, "vector_search")
		return &Response{}, nil
	}
	if len(matches) == 0 {
		evidence.RecordRetrievalEmpty(ctx, "no_matches")
		return &Response{}, nil
	}
	selected := s.reranker.Rerank(ctx, matches, topK)
	contexts := buildContexts(selected)
	response := &Response{
		Contexts:     contexts,
		ContextBlock: s.assembler.Assemble(ctx, contexts),
	}
	span.SetAttributes(attribute.Int("results", len(contexts)))
	log.Debug("Evidence retrieval finished", "results", len(contexts), "duration_seconds", time.Since(start).Seconds())
	return response, nil
}

// FetchControl returns every chunk tagged with the control identifier in
// document order, bypassing similarity ranking. Used for exhaustive
// control-scoped review.
func (s *Service) FetchControl(ctx context.Context, controlID string) ([]evidence.RetrievedContext, error) {
	if strings.TrimSpace(controlID) == "" {
		return nil, errors.New("retriever: control id is required")
	}
	records, err := s.store.FetchByControl(ctx, controlID)
	if err != nil {
		return nil, err
	}
	contexts := make([]evidence.RetrievedContext, len(records))
	for i := range records {
		contexts[i] = evidence.RetrievedContext{
			Content:       records[i].Text,
			SourceTitle:   metadataString(records[i].Metadata, evidence.MetaTitle),
			SourceType:    metadataString(records[i].Metadata, evidence.MetaDocType),
			TokenEstimate: evidence.EstimateTokens(records[i].Text),
			Metadata:      records[i].Metadata,
		}
	}
	return contexts, nil
}

func (s *Service) normalizeSizes(req *Request) (topK int, poolSize int) {
	topK = req.TopK
	if topK <= 0 {
		topK = s.defaults.RetrievalTopK
	}
	poolSize = req.PoolSize
	if poolSize <= 0 {
		poolSize = s.defaults.RetrievalPoolSize
	}
	if poolSize < topK {
		poolSize = topK
	}
	return topK, poolSize
}

func (s *Service) embedQuery(ctx context.Context, query string) ([]float32, error) {
	spanCtx, span := s.tracer.Start(ctx, "auditcortex.evidence.embed_query")
	defer span.End()
	vector, err := s.emb.EmbedQuery(spanCtx, query)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return vector, nil
}

func (s *Service) search(ctx context.Context, vector []float32, opts vectordb.SearchOptions) ([]vectordb.Match, error) {
	spanCtx, span := s.tracer.Start(ctx, "auditcortex.evidence.vector_search", trace.WithAttributes(
		attribute.Int("top_k", opts.TopK),
	))
	defer span.End()
	matches, err := s.store.Search(spanCtx, vector, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("matches", len(matches)))
	return matches, nil
}

func buildContexts(matches []vectordb.Match) []evidence.RetrievedContext {
	contexts := make([]evidence.RetrievedContext, len(matches))
	for i := range matches {
		contexts[i] = evidence.RetrievedContext{
			Content:       matches[i].Text,
			SourceTitle:   metadataString(matches[i].Metadata, evidence.MetaTitle),
			SourceType:    metadataString(matches[i].Metadata, evidence.MetaDocType),
			Score:         matches[i].Score,
			TokenEstimate: evidence.EstimateTokens(matches[i].Text),
			Metadata:      matches[i].Metadata,
		}
	}
	return contexts
}

func metadataString(metadata map[string]any, key string) string {
	if value, ok := metadata[key]; ok {
		if text, isString := value.(string); isString {
			return text
		}
	}
	return ""
}

