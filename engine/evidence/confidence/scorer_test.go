package confidence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScorer(t *testing.T) {
	t.Run("Should accept the default weights", func(t *testing.T) {
		scorer, err := NewScorer(DefaultWeights())
		require.NoError(t, err)
		require.NotNil(t, scorer)
	})

	t.Run("Should accept weights within the sum tolerance", func(t *testing.T) {
		weights := DefaultWeights()
		weights.Quality += 0.009
		_, err := NewScorer(weights)
		require.NoError(t, err)
	})

	t.Run("Should reject weights that do not sum to one", func(t *testing.T) {
		weights := DefaultWeights()
		weights.Quality = 0.50
		_, err := NewScorer(weights)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "sum to 1.0")
	})

	t.Run("Should reject negative weights", func(t *testing.T) {
		_, err := NewScorer(Weights{Quality: 1.2, Quantity: -0.2, Recency: 0, Inheritance: 0, Certainty: 0})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be negative")
	})
}

func TestScore(t *testing.T) {
	ctx := context.Background()
	scorer, err := NewScorer(DefaultWeights())
	require.NoError(t, err)

	t.Run("Should combine strong factors into a high score", func(t *testing.T) {
		breakdown := scorer.Score(ctx, Factors{
			Quality:     0.9,
			Quantity:    0.8,
			Recency:     0.9,
			Inheritance: 1.0,
			Certainty:   0.85,
		})
		assert.InDelta(t, 0.8875, breakdown.Score, 1e-9)
		assert.Equal(t, LevelHigh, breakdown.Level)
	})

	t.Run("Should produce a perfect score from perfect factors", func(t *testing.T) {
		breakdown := scorer.Score(ctx, Factors{Quality: 1, Quantity: 1, Recency: 1, Inheritance: 1, Certainty: 1})
		assert.InDelta(t, 1.0, breakdown.Score, 1e-9)
		assert.Equal(t, LevelVeryHigh, breakdown.Level)
	})

	t.Run("Should score zero factors as very low", func(t *testing.T) {
		breakdown := scorer.Score(ctx, Factors{})
		assert.Zero(t, breakdown.Score)
		assert.Equal(t, LevelVeryLow, breakdown.Level)
	})

	t.Run("Should be monotone in each factor", func(t *testing.T) {
		base := Factors{Quality: 0.5, Quantity: 0.5, Recency: 0.5, Inheritance: 0.5, Certainty: 0.5}
		baseline := scorer.Score(ctx, base).Score
		improved := base
		improved.Quality = 0.9
		assert.Greater(t, scorer.Score(ctx, improved).Score, baseline)
		worsened := base
		worsened.Recency = 0.1
		assert.Less(t, scorer.Score(ctx, worsened).Score, baseline)
	})

	t.Run("Should clamp out-of-range factors to the unit interval", func(t *testing.T) {
		wild := scorer.Score(ctx, Factors{Quality: 1.5, Quantity: -0.5, Recency: 1.2, Inheritance: -3, Certainty: 2})
		bounded := scorer.Score(ctx, Factors{Quality: 1, Quantity: 0, Recency: 1, Inheritance: 0, Certainty: 1})
		assert.InDelta(t, bounded.Score, wild.Score, 1e-9)
	})

	t.Run("Should record one contribution per factor", func(t *testing.T) {
		breakdown := scorer.Score(ctx, Factors{Quality: 0.6, Quantity: 0.6, Recency: 0.6, Inheritance: 0.6, Certainty: 0.6})
		require.Len(t, breakdown.Contributions, 5)
		total := 0.0
		for _, c := range breakdown.Contributions {
			assert.InDelta(t, c.Value*c.Weight, c.Weighted, 1e-9)
			total += c.Weighted
		}
		assert.InDelta(t, breakdown.Score, total, 1e-9)
	})
}

func TestLevelFor(t *testing.T) {
	cases := []struct {
		score float64
		level Level
	}{
		{0.95, LevelVeryHigh},
		{0.90, LevelVeryHigh},
		{0.89, LevelHigh},
		{0.75, LevelHigh},
		{0.74, LevelMedium},
		{0.60, LevelMedium},
		{0.59, LevelLow},
		{0.40, LevelLow},
		{0.39, LevelVeryLow},
		{0.0, LevelVeryLow},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.level, levelFor(tc.score), "score %v", tc.score)
	}
}

func TestExplanation(t *testing.T) {
	ctx := context.Background()
	scorer, err := NewScorer(DefaultWeights())
	require.NoError(t, err)

	t.Run("Should name strengths and concerns", func(t *testing.T) {
		breakdown := scorer.Score(ctx, Factors{
			Quality:     0.9,
			Quantity:    0.3,
			Recency:     0.7,
			Inheritance: 0.85,
			Certainty:   0.7,
		})
		assert.Contains(t, breakdown.Explanation, "Strengths: evidence quality, inheritance certainty.")
		assert.Contains(t, breakdown.Explanation, "Concerns: evidence quantity.")
		assert.Contains(t, breakdown.Explanation, "Contributions:")
	})

	t.Run("Should omit empty strength and concern lists", func(t *testing.T) {
		breakdown := scorer.Score(ctx, Factors{Quality: 0.7, Quantity: 0.7, Recency: 0.7, Inheritance: 0.7, Certainty: 0.7})
		assert.NotContains(t, breakdown.Explanation, "Strengths:")
		assert.NotContains(t, breakdown.Explanation, "Concerns:")
	})
}

func TestRecommendations(t *testing.T) {
	ctx := context.Background()
	scorer, err := NewScorer(DefaultWeights())
	require.NoError(t, err)

	t.Run("Should emit one recommendation per weak factor", func(t *testing.T) {
		breakdown := scorer.Score(ctx, Factors{
			Quality:     0.4,
			Quantity:    0.9,
			Recency:     0.3,
			Inheritance: 0.9,
			Certainty:   0.9,
		})
		require.Len(t, breakdown.Recommendations, 2)
		assert.Contains(t, breakdown.Recommendations[0], "higher-quality evidence")
		assert.Contains(t, breakdown.Recommendations[1], "Refresh supporting evidence")
	})

	t.Run("Should affirm sufficiency when every factor is strong", func(t *testing.T) {
		breakdown := scorer.Score(ctx, Factors{Quality: 0.9, Quantity: 0.9, Recency: 0.9, Inheritance: 0.9, Certainty: 0.9})
		require.Len(t, breakdown.Recommendations, 1)
		assert.Contains(t, breakdown.Recommendations[0], "no immediate action required")
	})
}

func TestEstimateQuality(t *testing.T) {
	t.Run("Should return zero without evidence", func(t *testing.T) {
		assert.Zero(t, EstimateQuality(0.9, 0, 3))
	})

	t.Run("Should pass average relevance through for a plain corpus", func(t *testing.T) {
		assert.InDelta(t, 0.7, EstimateQuality(0.7, 3, 1), 1e-9)
	})

	t.Run("Should reward distinct evidence types up to the cap", func(t *testing.T) {
		assert.InDelta(t, 0.75, EstimateQuality(0.7, 3, 2), 1e-9)
		assert.InDelta(t, 0.85, EstimateQuality(0.7, 5, 4), 1e-9)
		assert.InDelta(t, 0.85, EstimateQuality(0.7, 9, 9), 1e-9)
	})

	t.Run("Should penalize a single-document basis", func(t *testing.T) {
		assert.InDelta(t, 0.6, EstimateQuality(0.7, 1, 1), 1e-9)
	})

	t.Run("Should stay within the unit interval", func(t *testing.T) {
		assert.LessOrEqual(t, EstimateQuality(0.98, 10, 5), 1.0)
		assert.GreaterOrEqual(t, EstimateQuality(0.05, 1, 1), 0.0)
	})
}

func TestEstimateRecency(t *testing.T) {
	t.Run("Should treat the first month as fresh", func(t *testing.T) {
		assert.InDelta(t, 1.0, EstimateRecency(0, 365), 1e-9)
		assert.InDelta(t, 1.0, EstimateRecency(30, 365), 1e-9)
	})

	t.Run("Should hold a near-full value through the first quarter", func(t *testing.T) {
		assert.InDelta(t, 0.9, EstimateRecency(31, 365), 1e-9)
		assert.InDelta(t, 0.9, EstimateRecency(90, 365), 1e-9)
	})

	t.Run("Should decay linearly to half at the maximum age", func(t *testing.T) {
		assert.InDelta(t, 0.5, EstimateRecency(365, 365), 1e-9)
		mid := EstimateRecency(227.5, 365)
		assert.InDelta(t, 0.7, mid, 1e-9)
	})

	t.Run("Should decay exponentially past the maximum age with a floor", func(t *testing.T) {
		beyond := EstimateRecency(400, 365)
		assert.Less(t, beyond, 0.5)
		assert.GreaterOrEqual(t, EstimateRecency(10000, 365), 0.1)
	})

	t.Run("Should fall back to a one-year horizon for degenerate maxima", func(t *testing.T) {
		assert.InDelta(t, EstimateRecency(180, 365), EstimateRecency(180, 0), 1e-9)
	})
}
