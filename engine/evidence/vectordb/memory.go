package vectordb

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/auditcortex/auditcortex/engine/core"
	"github.com/auditcortex/auditcortex/engine/evidence"
)

const defaultTopK = 5

// memoryStore keeps records in process behind a mutex. Writes on the same
// chunk identifier are serialized; last writer wins.
type memoryStore struct {
	mu        sync.RWMutex
	dimension int
	metric    Metric
	maxTopK   int
	records   map[string]Record
}

func newMemoryStore(cfg *Config) *memoryStore {
	return &memoryStore{
		dimension: cfg.Dimension,
		metric:    cfg.Metric,
		maxTopK:   cfg.MaxTopK,
		records:   make(map[string]Record),
	}
}

func (s *memoryStore) Upsert(_ context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range records {
		rec := records[i]
		if len(rec.Embedding) != s.dimension {
			return fmt.Errorf(
				"memory: record %q: %w (got %d want %d)",
				rec.ID, ErrDimensionMismatch, len(rec.Embedding), s.dimension,
			)
		}
		s.records[rec.ID] = Record{
			ID:        rec.ID,
			Text:      rec.Text,
			Embedding: append([]float32(nil), rec.Embedding...),
			Metadata:  core.CloneMap(rec.Metadata),
		}
	}
	return nil
}

func (s *memoryStore) Search(_ context.Context, query []float32, opts SearchOptions) ([]Match, error) {
	if len(query) != s.dimension {
		return nil, fmt.Errorf("memory: query: %w (got %d want %d)", ErrDimensionMismatch, len(query), s.dimension)
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = defaultTopK
	}
	if s.maxTopK > 0 && topK > s.maxTopK {
		topK = s.maxTopK
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	candidates := make([]Match, 0, len(s.records))
	for _, rec := range s.records {
		if !metadataMatches(rec.Metadata, opts.Filters) {
			continue
		}
		score := similarity(s.metric, rec.Embedding, query)
		// MinScore is a threshold only when set; zero means unfiltered so
		// negative cosine and dot scores still surface.
		if opts.MinScore > 0 && score < opts.MinScore {
			continue
		}
		candidates = append(candidates, Match{
			ID:       rec.ID,
			Score:    score,
			Text:     rec.Text,
			Metadata: core.CloneMap(rec.Metadata),
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score == candidates[j].Score {
			return candidates[i].ID < candidates[j].ID
		}
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

func (s *memoryStore) FetchByControl(_ context.Context, controlID string) ([]Record, error) {
	if controlID == "" {
		return nil, fmt.Errorf("memory: control id is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]Record, 0)
	for _, rec := range s.records {
		if !metadataMatches(rec.Metadata, map[string]string{evidence.MetaControlID: controlID}) {
			continue
		}
		matched = append(matched, Record{
			ID:        rec.ID,
			Text:      rec.Text,
			Embedding: append([]float32(nil), rec.Embedding...),
			Metadata:  core.CloneMap(rec.Metadata),
		})
	}
	sort.Slice(matched, func(i, j int) bool {
		si, sj := metadataString(matched[i].Metadata, evidence.MetaSourceID), metadataString(matched[j].Metadata, evidence.MetaSourceID)
		if si != sj {
			return si < sj
		}
		return chunkIndex(matched[i].Metadata) < chunkIndex(matched[j].Metadata)
	})
	return matched, nil
}

func (s *memoryStore) Delete(_ context.Context, filter Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(filter.IDs) > 0 {
		for _, id := range filter.IDs {
			delete(s.records, id)
		}
		return nil
	}
	if len(filter.Metadata) == 0 {
		return nil
	}
	for id, rec := range s.records {
		if metadataMatches(rec.Metadata, filter.Metadata) {
			delete(s.records, id)
		}
	}
	return nil
}

func (s *memoryStore) Close(context.Context) error {
	return nil
}

func metadataString(metadata map[string]any, key string) string {
	if value, ok := metadata[key]; ok {
		return fmt.Sprint(value)
	}
	return ""
}

// chunkIndex reads the chunk position from metadata, tolerating the numeric
// types JSON round-trips produce.
func chunkIndex(metadata map[string]any) int {
	switch v := metadata[evidence.MetaChunkIndex].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return 0
}
