package confidence

import (
	"fmt"
	"strings"
)

const (
	strengthThreshold  = 0.8
	concernThreshold   = 0.5
	recommendThreshold = 0.6
)

var factorLabels = map[string]string{
	"quality":     "evidence quality",
	"quantity":    "evidence quantity",
	"recency":     "evidence recency",
	"inheritance": "inheritance certainty",
	"certainty":   "model certainty",
}

// buildExplanation lists strong and weak factors and shows each factor's
// weighted share of the overall score.
func buildExplanation(overall float64, contributions []Contribution) string {
	strengths := make([]string, 0, len(contributions))
	concerns := make([]string, 0, len(contributions))
	shares := make([]string, 0, len(contributions))
	for _, c := range contributions {
		label := factorLabels[c.Factor]
		if c.Value >= strengthThreshold {
			strengths = append(strengths, label)
		}
		if c.Value < concernThreshold {
			concerns = append(concerns, label)
		}
		share := 0.0
		if overall > 0 {
			share = c.Weighted / overall * 100
		}
		shares = append(shares, fmt.Sprintf("%s %.0f%%", label, share))
	}
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf("Overall confidence %.2f (%s).", overall, levelFor(overall)))
	if len(strengths) > 0 {
		builder.WriteString(" Strengths: " + strings.Join(strengths, ", ") + ".")
	}
	if len(concerns) > 0 {
		builder.WriteString(" Concerns: " + strings.Join(concerns, ", ") + ".")
	}
	builder.WriteString(" Contributions: " + strings.Join(shares, ", ") + ".")
	return builder.String()
}

// buildRecommendations emits one improvement suggestion per factor below the
// recommendation threshold. When every factor clears it, a single affirmative
// statement is returned instead of an empty list.
func buildRecommendations(factors Factors) []string {
	recommendations := make([]string, 0, 5)
	if factors.Quality < recommendThreshold {
		recommendations = append(recommendations,
			"Collect higher-quality evidence; current excerpts are weakly relevant to the question.")
	}
	if factors.Quantity < recommendThreshold {
		recommendations = append(recommendations,
			"Gather additional evidence documents; the current set is too small to be conclusive.")
	}
	if factors.Recency < recommendThreshold {
		recommendations = append(recommendations,
			"Refresh supporting evidence; the current material may be outdated.")
	}
	if factors.Inheritance < recommendThreshold {
		recommendations = append(recommendations,
			"Clarify control inheritance and responsibility; attribution is uncertain.")
	}
	if factors.Certainty < recommendThreshold {
		recommendations = append(recommendations,
			"Review the finding manually; the model reported low certainty in its own analysis.")
	}
	if len(recommendations) == 0 {
		recommendations = append(recommendations,
			"Evidence coverage is sufficient; no immediate action required.")
	}
	return recommendations
}
