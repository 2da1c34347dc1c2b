package chunk

import "github.com/auditcortex/auditcortex/engine/evidence"

// hybridSplitter runs the semantic strategy first, then re-splits any
// resulting segment that exceeds 1.5x the target size using the fixed-size
// strategy. Segment order stays contiguous across the document.
type hybridSplitter struct {
	semantic semanticSplitter
	fixed    fixedSplitter
	settings Settings
}

func (s *hybridSplitter) strategy() string { return StrategyHybrid }

func (s *hybridSplitter) split(text string, base int) []segment {
	coarse := s.semantic.split(text, base)
	if len(coarse) == 0 {
		return nil
	}
	limit := int(float64(s.settings.Size) * oversizeFactor)
	segments := make([]segment, 0, len(coarse))
	for _, seg := range coarse {
		local := text[seg.start-base : seg.end-base]
		if evidence.EstimateTokens(local) <= limit {
			segments = append(segments, seg)
			continue
		}
		segments = append(segments, s.fixed.split(local, seg.start)...)
	}
	return segments
}
