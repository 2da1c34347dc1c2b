package chunk

import "unicode/utf8"

// fixedSplitter advances a character window sized to the token budget,
// retracting by the configured overlap between windows. Boundaries that fall
// mid-sentence are nudged forward to the nearest terminator so sentences are
// not severed; every boundary is snapped to a rune start so multi-byte text
// is never split mid-sequence.
type fixedSplitter struct {
	settings Settings
}

func (s *fixedSplitter) strategy() string { return StrategyFixed }

func (s *fixedSplitter) split(text string, base int) []segment {
	if text == "" {
		return nil
	}
	sizeChars := s.settings.Size * charsPerToken
	overlapChars := s.settings.Overlap * charsPerToken
	segments := make([]segment, 0, len(text)/sizeChars+1)
	start := 0
	for start < len(text) {
		end := start + sizeChars
		if end >= len(text) {
			end = len(text)
		} else {
			end = nudgeToSentence(text, end)
			if end >= len(text) {
				end = len(text)
			} else {
				end = snapToRuneStart(text, end)
			}
		}
		if end <= start {
			_, width := utf8.DecodeRuneInString(text[start:])
			end = start + width
		}
		segments = append(segments, segment{start: base + start, end: base + end})
		if end >= len(text) {
			break
		}
		next := snapToRuneStart(text, end-overlapChars)
		if next <= start {
			// overlap would stall the window; force forward progress
			_, width := utf8.DecodeRuneInString(text[start:])
			next = start + width
		}
		start = next
	}
	return segments
}
