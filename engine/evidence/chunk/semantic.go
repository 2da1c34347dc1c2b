package chunk

import (
	"strings"

	"github.com/auditcortex/auditcortex/engine/evidence"
)

// semanticSplitter accumulates paragraph-delimited units until the next
// paragraph would exceed the token budget. A single paragraph larger than the
// budget becomes one oversized chunk; the hybrid strategy re-splits those.
type semanticSplitter struct {
	settings Settings
}

func (s *semanticSplitter) strategy() string { return StrategySemantic }

func (s *semanticSplitter) split(text string, base int) []segment {
	paragraphs := paragraphSpans(text)
	if len(paragraphs) == 0 {
		return nil
	}
	segments := make([]segment, 0, len(paragraphs))
	current := paragraphs[0]
	for _, para := range paragraphs[1:] {
		merged := segment{start: current.start, end: para.end}
		if evidence.EstimateTokens(text[merged.start:merged.end]) > s.settings.Size {
			segments = append(segments, current)
			current = para
			continue
		}
		current = merged
	}
	segments = append(segments, current)
	for i := range segments {
		segments[i].start += base
		segments[i].end += base
	}
	return segments
}

// paragraphSpans returns the non-blank paragraph ranges of text, splitting on
// blank lines.
func paragraphSpans(text string) []segment {
	spans := make([]segment, 0, 8)
	offset := 0
	for _, part := range strings.Split(text, "\n\n") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			lead := strings.Index(part, trimmed)
			start := offset + lead
			spans = append(spans, segment{start: start, end: start + len(trimmed)})
		}
		offset += len(part) + len("\n\n")
	}
	return spans
}
