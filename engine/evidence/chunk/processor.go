package chunk

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/auditcortex/auditcortex/engine/core"
	"github.com/auditcortex/auditcortex/engine/evidence"
	"github.com/auditcortex/auditcortex/pkg/logger"
)

var newlinePattern = regexp.MustCompile(`\r\n|\r`)

// Processor splits documents into chunks according to the configured strategy.
type Processor struct {
	settings Settings
	splitter splitter
}

// NewProcessor validates settings and builds a processor. Unknown strategy
// names, non-positive sizes and overlaps that reach the chunk size are
// construction errors, never corrected silently.
func NewProcessor(settings Settings) (*Processor, error) {
	if err := validateSettings(&settings); err != nil {
		return nil, err
	}
	impl, err := newSplitter(settings)
	if err != nil {
		return nil, err
	}
	return &Processor{settings: settings, splitter: impl}, nil
}

// Strategy reports the active strategy name.
func (p *Processor) Strategy() string {
	return p.splitter.strategy()
}

// Process splits documents into ordered chunks. Empty or whitespace-only
// documents and documents entirely below the minimum chunk size yield zero
// chunks without error.
func (p *Processor) Process(ctx context.Context, docs []Document) ([]Chunk, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	log := logger.FromContext(ctx)
	chunks := make([]Chunk, 0, len(docs))
	for di := range docs {
		doc := docs[di]
		if strings.TrimSpace(doc.ID) == "" {
			return nil, errors.New("chunk: document id is required")
		}
		text := p.preprocess(doc.Text)
		if text == "" {
			log.Debug("Skipping empty document", "source_id", doc.ID)
			continue
		}
		segments := p.splitter.split(text, 0)
		index := 0
		dropped := 0
		for _, seg := range segments {
			chunkText := text[seg.start:seg.end]
			tokens := evidence.EstimateTokens(chunkText)
			if tokens < p.settings.MinSize {
				dropped++
				continue
			}
			hash := hashText(chunkText)
			metadata := buildMetadata(&doc, index)
			chunks = append(chunks, Chunk{
				ID:         hashText(doc.ID + "::" + fmt.Sprint(index) + "::" + hash),
				Index:      index,
				Text:       chunkText,
				Start:      seg.start,
				End:        seg.end,
				TokenCount: tokens,
				Metadata:   metadata,
			})
			index++
		}
		if dropped > 0 {
			log.Debug("Dropped undersized chunks", "source_id", doc.ID, "dropped", dropped, "min_size", p.settings.MinSize)
		}
		if index == 0 {
			log.Info("Document produced no chunks", "source_id", doc.ID, "strategy", p.splitter.strategy())
		}
	}
	return chunks, nil
}

func (p *Processor) preprocess(text string) string {
	normalized := text
	if p.settings.NormalizeNewlines {
		normalized = newlinePattern.ReplaceAllString(normalized, "\n")
	}
	return strings.TrimSpace(normalized)
}

func buildMetadata(doc *Document, index int) map[string]any {
	metadata := core.CloneMap(doc.Metadata)
	if metadata == nil {
		metadata = make(map[string]any, 6)
	}
	metadata[evidence.MetaSourceID] = doc.ID
	metadata[evidence.MetaChunkIndex] = index
	if doc.Title != "" {
		metadata[evidence.MetaTitle] = doc.Title
	}
	if doc.DocType != "" {
		metadata[evidence.MetaDocType] = doc.DocType
	}
	if doc.ControlID != "" {
		metadata[evidence.MetaControlID] = doc.ControlID
	}
	if doc.AssessmentMethod != "" {
		metadata[evidence.MetaAssessmentMethod] = doc.AssessmentMethod
	}
	return metadata
}

func hashText(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:16])
}
