package embedder

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Provider enumerates supported embedding providers.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
)

var (
	errMissingID        = errors.New("embedder id is required")
	errMissingProvider  = errors.New("embedder provider is required")
	errMissingModel     = errors.New("embedder model is required")
	errInvalidDimension = errors.New("embedder dimension must be greater than zero")
	errInvalidBatchSize = errors.New("embedder batch size must be greater than zero")
)

// Config captures normalized embedder construction settings.
type Config struct {
	ID       string
	Provider Provider
	Model    string
	APIKey   string
	// Dimension is fixed for the lifetime of an index; every produced vector
	// (including placeholders) has exactly this length.
	Dimension int
	BatchSize int
	// MaxTextLength bounds input size in characters; longer texts are
	// truncated with a warning, never rejected.
	MaxTextLength int
	MaxRetries    uint64
	RetryBackoff  time.Duration
	CacheSize     int
}

const (
	defaultMaxTextLength = 32000
	defaultMaxRetries    = 3
	defaultRetryBackoff  = 200 * time.Millisecond
)

func validateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.ID) == "" {
		return errMissingID
	}
	if strings.TrimSpace(string(cfg.Provider)) == "" {
		return fmt.Errorf("embedder %q: %w", cfg.ID, errMissingProvider)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return fmt.Errorf("embedder %q: %w", cfg.ID, errMissingModel)
	}
	if cfg.Dimension <= 0 {
		return fmt.Errorf("embedder %q: %w", cfg.ID, errInvalidDimension)
	}
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("embedder %q: %w", cfg.ID, errInvalidBatchSize)
	}
	if cfg.MaxTextLength <= 0 {
		cfg.MaxTextLength = defaultMaxTextLength
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = defaultRetryBackoff
	}
	return nil
}

// Result carries the outcome for one embedded text. Degraded results hold a
// zero-vector placeholder; the reason explains why the real embedding was
// substituted.
type Result struct {
	Vector   []float32
	Tokens   int
	Degraded bool
	Reason   string
}
