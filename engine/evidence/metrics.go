package evidence

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	metricsOnce        sync.Once
	metricsInitErr     error
	ingestDurationHist metric.Float64Histogram
	chunkCounter       metric.Int64Counter
	degradedCounter    metric.Int64Counter
	queryLatencyHist   metric.Float64Histogram
	retrievalEmptyCtr  metric.Int64Counter
	embedTokensCounter metric.Int64Counter
)

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("auditcortex.evidence")
		var err error
		if ingestDurationHist, err = meter.Float64Histogram(
			"auditcortex_evidence_ingest_seconds",
			metric.WithDescription("Evidence ingestion duration"),
		); err != nil {
			metricsInitErr = err
			return
		}
		if chunkCounter, err = meter.Int64Counter(
			"auditcortex_evidence_chunks_total",
			metric.WithDescription("Chunks persisted during ingestion"),
		); err != nil {
			metricsInitErr = err
			return
		}
		if degradedCounter, err = meter.Int64Counter(
			"auditcortex_evidence_degraded_embeddings_total",
			metric.WithDescription("Embeddings replaced with placeholder vectors"),
		); err != nil {
			metricsInitErr = err
			return
		}
		if queryLatencyHist, err = meter.Float64Histogram(
			"auditcortex_evidence_query_seconds",
			metric.WithDescription("Retrieval query latency"),
		); err != nil {
			metricsInitErr = err
			return
		}
		if retrievalEmptyCtr, err = meter.Int64Counter(
			"auditcortex_evidence_retrieval_empty_total",
			metric.WithDescription("Queries that produced no retrieved context"),
		); err != nil {
			metricsInitErr = err
			return
		}
		if embedTokensCounter, err = meter.Int64Counter(
			"auditcortex_evidence_embedding_tokens_total",
			metric.WithDescription("Tokens submitted to the embedding provider"),
		); err != nil {
			metricsInitErr = err
		}
	})
	return metricsInitErr
}

func RecordIngestDuration(ctx context.Context, d time.Duration) {
	if err := ensureMetrics(); err != nil || ingestDurationHist == nil {
		return
	}
	ingestDurationHist.Record(ctx, d.Seconds())
}

func RecordIngestChunks(ctx context.Context, chunks int) {
	if chunks <= 0 {
		return
	}
	if err := ensureMetrics(); err != nil || chunkCounter == nil {
		return
	}
	chunkCounter.Add(ctx, int64(chunks))
}

func RecordDegradedEmbeddings(ctx context.Context, provider string, count int) {
	if count <= 0 {
		return
	}
	if err := ensureMetrics(); err != nil || degradedCounter == nil {
		return
	}
	degradedCounter.Add(ctx, int64(count), metric.WithAttributes(attribute.String("provider", provider)))
}

func RecordQueryLatency(ctx context.Context, d time.Duration) {
	if err := ensureMetrics(); err != nil || queryLatencyHist == nil {
		return
	}
	queryLatencyHist.Record(ctx, d.Seconds())
}

func RecordRetrievalEmpty(ctx context.Context, stage string) {
	if err := ensureMetrics(); err != nil || retrievalEmptyCtr == nil {
		return
	}
	retrievalEmptyCtr.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}

func RecordEmbeddingTokens(ctx context.Context, provider string, tokens int) {
	if tokens <= 0 {
		return
	}
	if err := ensureMetrics(); err != nil || embedTokensCounter == nil {
		return
	}
	embedTokensCounter.Add(ctx, int64(tokens), metric.WithAttributes(attribute.String("provider", provider)))
}
