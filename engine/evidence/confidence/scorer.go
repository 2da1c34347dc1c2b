package confidence

import (
	"context"
	"fmt"
	"math"

	"github.com/auditcortex/auditcortex/pkg/logger"
)

// Level buckets an overall confidence score for reporting.
type Level string

const (
	LevelVeryHigh Level = "very_high"
	LevelHigh     Level = "high"
	LevelMedium   Level = "medium"
	LevelLow      Level = "low"
	LevelVeryLow  Level = "very_low"
)

// weightSumTolerance bounds how far weights may drift from 1.0 at
// construction time.
const weightSumTolerance = 0.01

// Factors are the five independent confidence inputs, each expected in [0,1].
// Out-of-range values are clamped before use, never rejected.
type Factors struct {
	Quality     float64
	Quantity    float64
	Recency     float64
	Inheritance float64
	Certainty   float64
}

// Weights assign the relative importance of each factor. They must be
// non-negative and sum to 1.0; violations fail construction.
type Weights struct {
	Quality     float64
	Quantity    float64
	Recency     float64
	Inheritance float64
	Certainty   float64
}

// DefaultWeights favors evidence quality, with the remaining factors split
// between sufficiency, freshness, inheritance certainty and model certainty.
func DefaultWeights() Weights {
	return Weights{
		Quality:     0.30,
		Quantity:    0.20,
		Recency:     0.20,
		Inheritance: 0.15,
		Certainty:   0.15,
	}
}

// Contribution records how much one weighted factor added to the overall score.
type Contribution struct {
	Factor   string
	Value    float64
	Weight   float64
	Weighted float64
}

// Breakdown is the ephemeral result of one scoring call.
type Breakdown struct {
	Score           float64
	Level           Level
	Contributions   []Contribution
	Explanation     string
	Recommendations []string
}

// Scorer combines confidence factors into a calibrated 0-1 score.
type Scorer struct {
	weights Weights
}

// NewScorer validates weights at construction: each must be non-negative and
// together they must sum to 1.0 within tolerance.
func NewScorer(weights Weights) (*Scorer, error) {
	entries := weightEntries(weights)
	sum := 0.0
	for _, entry := range entries {
		if entry.weight < 0 {
			return nil, fmt.Errorf("confidence: %s weight %v cannot be negative", entry.name, entry.weight)
		}
		sum += entry.weight
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		return nil, fmt.Errorf("confidence: weights must sum to 1.0, got %v", sum)
	}
	return &Scorer{weights: weights}, nil
}

// Score clamps each factor into [0,1], combines them under the configured
// weights, and returns the full breakdown with explanation and
// recommendations. The breakdown is regenerated on every call.
func (s *Scorer) Score(ctx context.Context, factors Factors) Breakdown {
	clamped := s.clampFactors(ctx, factors)
	entries := factorEntries(clamped, s.weights)
	contributions := make([]Contribution, 0, len(entries))
	overall := 0.0
	for _, entry := range entries {
		weighted := entry.value * entry.weight
		overall += weighted
		contributions = append(contributions, Contribution{
			Factor:   entry.name,
			Value:    entry.value,
			Weight:   entry.weight,
			Weighted: weighted,
		})
	}
	overall = clamp01(overall)
	return Breakdown{
		Score:           overall,
		Level:           levelFor(overall),
		Contributions:   contributions,
		Explanation:     buildExplanation(overall, contributions),
		Recommendations: buildRecommendations(clamped),
	}
}

func (s *Scorer) clampFactors(ctx context.Context, factors Factors) Factors {
	log := logger.FromContext(ctx)
	clampOne := func(name string, value float64) float64 {
		if value < 0 || value > 1 {
			log.Warn("Clamping out-of-range confidence factor", "factor", name, "value", value)
		}
		return clamp01(value)
	}
	return Factors{
		Quality:     clampOne("quality", factors.Quality),
		Quantity:    clampOne("quantity", factors.Quantity),
		Recency:     clampOne("recency", factors.Recency),
		Inheritance: clampOne("inheritance", factors.Inheritance),
		Certainty:   clampOne("certainty", factors.Certainty),
	}
}

func levelFor(score float64) Level {
	switch {
	case score >= 0.90:
		return LevelVeryHigh
	case score >= 0.75:
		return LevelHigh
	case score >= 0.60:
		return LevelMedium
	case score >= 0.40:
		return LevelLow
	default:
		return LevelVeryLow
	}
}

type factorEntry struct {
	name   string
	value  float64
	weight float64
}

func factorEntries(factors Factors, weights Weights) []factorEntry {
	return []factorEntry{
		{name: "quality", value: factors.Quality, weight: weights.Quality},
		{name: "quantity", value: factors.Quantity, weight: weights.Quantity},
		{name: "recency", value: factors.Recency, weight: weights.Recency},
		{name: "inheritance", value: factors.Inheritance, weight: weights.Inheritance},
		{name: "certainty", value: factors.Certainty, weight: weights.Certainty},
	}
}

func weightEntries(weights Weights) []factorEntry {
	return factorEntries(Factors{}, weights)
}

func clamp01(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
