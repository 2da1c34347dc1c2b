package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/auditcortex/auditcortex/engine/evidence"
	"github.com/auditcortex/auditcortex/engine/evidence/chunk"
	"github.com/auditcortex/auditcortex/engine/evidence/embedder"
	"github.com/auditcortex/auditcortex/engine/evidence/vectordb"
	"github.com/auditcortex/auditcortex/pkg/logger"
)

const (
	StrategyUpsert  = "upsert"
	StrategyReplace = "replace"
)

// Options scope one ingestion run.
type Options struct {
	// Strategy selects upsert (default) or replace, which deletes previously
	// ingested records for the same source before writing.
	Strategy string
	// ScopeID tags every record with an assessment scope for query-time
	// filtering.
	ScopeID string
}

func (o *Options) normalizedStrategy() string {
	strategy := strings.TrimSpace(strings.ToLower(o.Strategy))
	if strategy == "" {
		return StrategyUpsert
	}
	return strategy
}

// Result reports ingestion outcome as counts; partial failures never abort
// the document.
type Result struct {
	Documents int
	Chunks    int
	Persisted int
	Failed    int
	Degraded  int
}

// Coverage reports the fraction of chunks that were persisted with a real
// (non-placeholder) embedding.
func (r *Result) Coverage() float64 {
	if r.Chunks == 0 {
		return 0
	}
	covered := r.Persisted - r.Degraded
	if covered < 0 {
		covered = 0
	}
	return float64(covered) / float64(r.Chunks)
}

// Pipeline chunks documents, embeds the chunks and persists them to the
// vector store.
type Pipeline struct {
	chunker *chunk.Processor
	emb     embedder.Embedder
	store   vectordb.Store
	options Options
}

func NewPipeline(chunker *chunk.Processor, emb embedder.Embedder, store vectordb.Store, opts Options) (*Pipeline, error) {
	if chunker == nil {
		return nil, errors.New("ingest: chunk processor is required")
	}
	if emb == nil {
		return nil, errors.New("ingest: embedder is required")
	}
	if store == nil {
		return nil, errors.New("ingest: vector store is required")
	}
	strategy := opts.normalizedStrategy()
	if strategy != StrategyUpsert && strategy != StrategyReplace {
		return nil, fmt.Errorf("ingest: strategy %q is not supported", opts.Strategy)
	}
	opts.Strategy = strategy
	return &Pipeline{chunker: chunker, emb: emb, store: store, options: opts}, nil
}

// Run ingests documents end to end and reports per-chunk outcomes as counts.
func (p *Pipeline) Run(ctx context.Context, docs []chunk.Document) (*Result, error) {
	start := time.Now()
	log := logger.FromContext(ctx)
	result := &Result{Documents: len(docs)}
	if len(docs) == 0 {
		return result, nil
	}
	chunks, err := p.chunker.Process(ctx, docs)
	if err != nil {
		return nil, err
	}
	result.Chunks = len(chunks)
	if len(chunks) == 0 {
		return result, nil
	}
	if p.options.Strategy == StrategyReplace {
		if err := p.deleteExisting(ctx, docs); err != nil {
			return nil, err
		}
	}
	for begin := 0; begin < len(chunks); begin += p.emb.BatchSize() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := begin + p.emb.BatchSize()
		if end > len(chunks) {
			end = len(chunks)
		}
		p.persistBatch(ctx, chunks[begin:end], result)
	}
	evidence.RecordIngestChunks(ctx, result.Persisted)
	evidence.RecordIngestDuration(ctx, time.Since(start))
	log.Info(
		"Evidence ingestion completed",
		"documents", result.Documents,
		"chunks", result.Chunks,
		"persisted", result.Persisted,
		"failed", result.Failed,
		"degraded", result.Degraded,
	)
	return result, nil
}

// persistBatch embeds and upserts one batch, counting rather than
// propagating partial failures.
func (p *Pipeline) persistBatch(ctx context.Context, batch []chunk.Chunk, result *Result) {
	texts := make([]string, len(batch))
	for i := range batch {
		texts[i] = batch[i].Text
	}
	embedded, err := p.emb.EmbedDocuments(ctx, texts)
	if err != nil || len(embedded) != len(batch) {
		if err == nil {
			err = fmt.Errorf("ingest: embedder returned %d vectors for %d chunks", len(embedded), len(batch))
		}
		logger.FromContext(ctx).Error("Embedding batch failed during ingestion", "chunks", len(batch), "error", err)
		result.Failed += len(batch)
		return
	}
	records := make([]vectordb.Record, len(batch))
	degraded := 0
	for i := range batch {
		if embedded[i].Degraded {
			degraded++
		}
		metadata := batch[i].Metadata
		if p.options.ScopeID != "" {
			metadata[evidence.MetaScopeID] = p.options.ScopeID
		}
		records[i] = vectordb.Record{
			ID:        batch[i].ID,
			Text:      batch[i].Text,
			Embedding: embedded[i].Vector,
			Metadata:  metadata,
		}
	}
	if err := p.store.Upsert(ctx, records); err != nil {
		logger.FromContext(ctx).Error("Persisting batch failed during ingestion", "chunks", len(batch), "error", err)
		result.Failed += len(batch)
		return
	}
	result.Persisted += len(records)
	result.Degraded += degraded
}

func (p *Pipeline) deleteExisting(ctx context.Context, docs []chunk.Document) error {
	for di := range docs {
		filter := vectordb.Filter{Metadata: map[string]string{evidence.MetaSourceID: docs[di].ID}}
		if err := p.store.Delete(ctx, filter); err != nil {
			return fmt.Errorf("ingest: delete existing records for %q: %w", docs[di].ID, err)
		}
	}
	return nil
}
