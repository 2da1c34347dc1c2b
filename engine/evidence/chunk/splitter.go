package chunk

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/auditcortex/auditcortex/engine/evidence"
)

const (
	StrategyFixed    = "fixed"
	StrategySemantic = "semantic"
	StrategyHybrid   = "hybrid"
)

const (
	// charsPerToken mirrors the engine-wide estimate used for window sizing.
	charsPerToken = evidence.CharsPerToken
	// sentenceLookahead bounds how far a fixed-size boundary may be nudged
	// forward to land on a sentence terminator.
	sentenceLookahead = 200
	// oversizeFactor marks semantic chunks that the hybrid strategy re-splits.
	oversizeFactor = 1.5
)

// splitter produces raw segments for one strategy. base offsets every
// returned segment so the hybrid strategy can split sub-ranges in place.
type splitter interface {
	split(text string, base int) []segment
	strategy() string
}

func newSplitter(settings Settings) (splitter, error) {
	switch settings.Strategy {
	case StrategyFixed:
		return &fixedSplitter{settings: settings}, nil
	case StrategySemantic:
		return &semanticSplitter{settings: settings}, nil
	case StrategyHybrid:
		return &hybridSplitter{
			semantic: semanticSplitter{settings: settings},
			fixed:    fixedSplitter{settings: settings},
			settings: settings,
		}, nil
	default:
		return nil, fmt.Errorf("chunk: strategy %q is not supported", settings.Strategy)
	}
}

func validateSettings(settings *Settings) error {
	if settings.Strategy == "" {
		settings.Strategy = StrategyHybrid
	}
	if settings.Size <= 0 {
		return errors.New("chunk: size must be greater than zero")
	}
	if settings.Overlap < 0 {
		return errors.New("chunk: overlap cannot be negative")
	}
	if settings.Overlap >= settings.Size {
		return fmt.Errorf("chunk: overlap %d must be smaller than size %d", settings.Overlap, settings.Size)
	}
	if settings.MinSize < 0 {
		return errors.New("chunk: min size cannot be negative")
	}
	return nil
}

// snapToRuneStart backs a byte offset up to the nearest rune start so a
// boundary never lands inside a multi-byte sequence.
func snapToRuneStart(text string, i int) int {
	if i <= 0 {
		return 0
	}
	for i < len(text) && !utf8.RuneStart(text[i]) {
		i--
	}
	return i
}

func isSentenceTerminator(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}

// nudgeToSentence moves a proposed boundary forward to just past the nearest
// sentence terminator, bounded by sentenceLookahead bytes. The original
// boundary is kept when no terminator is found in range.
func nudgeToSentence(text string, boundary int) int {
	limit := boundary + sentenceLookahead
	if limit > len(text) {
		limit = len(text)
	}
	for i := boundary; i < limit; i++ {
		if isSentenceTerminator(text[i]) {
			return i + 1
		}
	}
	return boundary
}
