package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sethvargo/go-retry"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/auditcortex/auditcortex/engine/evidence"
	"github.com/auditcortex/auditcortex/pkg/logger"
)

// Adapter wraps a langchaingo embedder with batching, retry with exponential
// backoff, graceful degradation to placeholder vectors, and token accounting.
type Adapter struct {
	cfg   Config
	impl  embeddings.Embedder
	cache *lru.Cache[string, []float32]
}

// New constructs a provider-backed adapter.
func New(cfg *Config) (*Adapter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("embedder config is required")
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	impl, err := buildProviderEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	return wrap(cfg, impl)
}

// Wrap constructs an adapter around an existing langchaingo embedder, used by
// tests to inject deterministic fakes.
func Wrap(cfg *Config, impl embeddings.Embedder) (*Adapter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("embedder config is required")
	}
	if impl == nil {
		return nil, fmt.Errorf("embedder %q: implementation is required", cfg.ID)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return wrap(cfg, impl)
}

func wrap(cfg *Config, impl embeddings.Embedder) (*Adapter, error) {
	adapter := &Adapter{cfg: *cfg, impl: impl}
	if cfg.CacheSize > 0 {
		cache, err := lru.New[string, []float32](cfg.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("embedder %q: init cache: %w", cfg.ID, err)
		}
		adapter.cache = cache
	}
	return adapter, nil
}

// Dimension returns the configured vector dimension.
func (a *Adapter) Dimension() int {
	return a.cfg.Dimension
}

// BatchSize returns the configured batch size.
func (a *Adapter) BatchSize() int {
	return a.cfg.BatchSize
}

// EmbedDocuments embeds texts in batches, returning one result per input in
// input order. A failed batch falls back to individual calls; a text that
// still fails after the retry budget receives a zero-vector placeholder so
// ingestion degrades instead of aborting.
func (a *Adapter) EmbedDocuments(ctx context.Context, texts []string) ([]Result, error) {
	results := make([]Result, len(texts))
	if len(texts) == 0 {
		return results, nil
	}
	prepared := make([]string, len(texts))
	for i := range texts {
		prepared[i] = a.truncate(ctx, texts[i])
	}
	degraded := 0
	for start := 0; start < len(prepared); start += a.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		end := start + a.cfg.BatchSize
		if end > len(prepared) {
			end = len(prepared)
		}
		degraded += a.embedBatch(ctx, prepared[start:end], results[start:end])
	}
	evidence.RecordDegradedEmbeddings(ctx, string(a.cfg.Provider), degraded)
	return results, nil
}

// embedBatch fills results for one batch and reports how many entries were
// degraded to placeholders.
func (a *Adapter) embedBatch(ctx context.Context, texts []string, results []Result) int {
	vectors, err := a.embedWithRetry(ctx, texts)
	if err == nil && len(vectors) == len(texts) {
		for i := range vectors {
			results[i] = a.buildResult(ctx, texts[i], vectors[i])
		}
		return a.countDegraded(results)
	}
	if err == nil {
		err = fmt.Errorf("embedder %q: received %d vectors for %d texts", a.cfg.ID, len(vectors), len(texts))
	}
	logger.FromContext(ctx).Warn(
		"Embedding batch failed, falling back to individual calls",
		"embedder_id", a.cfg.ID, "batch_size", len(texts), "error", err,
	)
	for i := range texts {
		vector, singleErr := a.embedSingle(ctx, texts[i])
		if singleErr != nil {
			results[i] = Result{
				Vector:   make([]float32, a.cfg.Dimension),
				Degraded: true,
				Reason:   singleErr.Error(),
			}
			continue
		}
		results[i] = a.buildResult(ctx, texts[i], vector)
	}
	return a.countDegraded(results)
}

// EmbedQuery embeds a single text, retrying with exponential backoff and
// propagating the failure once the retry budget is exhausted.
func (a *Adapter) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	prepared := a.truncate(ctx, text)
	if a.cache != nil {
		if vector, ok := a.cache.Get(cacheKey(prepared)); ok {
			return cloneVector(vector), nil
		}
	}
	vector, err := a.embedSingle(ctx, prepared)
	if err != nil {
		return nil, err
	}
	if a.cache != nil {
		a.cache.Add(cacheKey(prepared), cloneVector(vector))
	}
	a.recordTokens(ctx, prepared)
	return vector, nil
}

func (a *Adapter) embedSingle(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	backoff := retry.WithMaxRetries(a.cfg.MaxRetries, retry.NewExponential(a.cfg.RetryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		result, embedErr := a.impl.EmbedQuery(ctx, text)
		if embedErr != nil {
			return retry.RetryableError(embedErr)
		}
		vector = result
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embedder %q: embed text: %w", a.cfg.ID, err)
	}
	if len(vector) != a.cfg.Dimension {
		return nil, fmt.Errorf(
			"embedder %q: vector dimension mismatch (got %d want %d)",
			a.cfg.ID, len(vector), a.cfg.Dimension,
		)
	}
	return vector, nil
}

func (a *Adapter) embedWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	backoff := retry.WithMaxRetries(a.cfg.MaxRetries, retry.NewExponential(a.cfg.RetryBackoff))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		result, embedErr := a.impl.EmbedDocuments(ctx, texts)
		if embedErr != nil {
			return retry.RetryableError(embedErr)
		}
		vectors = result
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embedder %q: embed documents: %w", a.cfg.ID, err)
	}
	return vectors, nil
}

func (a *Adapter) buildResult(ctx context.Context, text string, vector []float32) Result {
	if len(vector) != a.cfg.Dimension {
		return Result{
			Vector:   make([]float32, a.cfg.Dimension),
			Degraded: true,
			Reason: fmt.Sprintf(
				"vector dimension mismatch (got %d want %d)", len(vector), a.cfg.Dimension,
			),
		}
	}
	tokens := a.recordTokens(ctx, text)
	return Result{Vector: vector, Tokens: tokens}
}

func (a *Adapter) countDegraded(results []Result) int {
	count := 0
	for i := range results {
		if results[i].Degraded {
			count++
		}
	}
	return count
}

func (a *Adapter) recordTokens(ctx context.Context, text string) int {
	tokens, err := CountTokens(a.cfg.Model, text)
	if err != nil {
		logger.FromContext(ctx).Warn(
			"Failed to count embedding tokens",
			"embedder_id", a.cfg.ID, "model", a.cfg.Model, "error", err,
		)
		return 0
	}
	evidence.RecordEmbeddingTokens(ctx, string(a.cfg.Provider), tokens)
	return tokens
}

func (a *Adapter) truncate(ctx context.Context, text string) string {
	if len(text) <= a.cfg.MaxTextLength {
		return text
	}
	logger.FromContext(ctx).Warn(
		"Truncating over-length text before embedding",
		"embedder_id", a.cfg.ID, "length", len(text), "max_length", a.cfg.MaxTextLength,
	)
	cut := a.cfg.MaxTextLength
	// back off to a rune boundary so a multi-byte sequence is never split
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}

func buildProviderEmbedder(cfg *Config) (embeddings.Embedder, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		opts := []openai.Option{openai.WithEmbeddingModel(cfg.Model)}
		if cfg.APIKey != "" {
			opts = append(opts, openai.WithToken(cfg.APIKey))
		}
		client, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("embedder %q: failed to initialize openai client: %w", cfg.ID, err)
		}
		impl, err := embeddings.NewEmbedder(client, embeddings.WithBatchSize(cfg.BatchSize))
		if err != nil {
			return nil, fmt.Errorf("embedder %q: failed to construct openai embedder: %w", cfg.ID, err)
		}
		return impl, nil
	default:
		return nil, fmt.Errorf("embedder %q: provider %q is not supported", cfg.ID, cfg.Provider)
	}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func cloneVector(src []float32) []float32 {
	if len(src) == 0 {
		return nil
	}
	dst := make([]float32, len(src))
	copy(dst, src)
	return dst
}
