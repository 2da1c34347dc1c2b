package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/auditcortex/auditcortex/engine/evidence/confidence"
)

func ScoreCmd() *cobra.Command {
	var (
		avgRelevance  float64
		evidenceCount int
		distinctTypes int
		ageDays       float64
		maxAgeDays    float64
		quantity      float64
		inheritance   float64
		certainty     float64
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute a confidence breakdown from raw evidence signals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := commandContext(cmd)
			scorer, err := confidence.NewScorer(confidence.DefaultWeights())
			if err != nil {
				return err
			}
			breakdown := scorer.Score(ctx, confidence.Factors{
				Quality:     confidence.EstimateQuality(avgRelevance, evidenceCount, distinctTypes),
				Quantity:    quantity,
				Recency:     confidence.EstimateRecency(ageDays, maxAgeDays),
				Inheritance: inheritance,
				Certainty:   certainty,
			})
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "score=%.3f level=%s\n\n%s\n\nRecommendations:\n", breakdown.Score, breakdown.Level, breakdown.Explanation)
			for _, recommendation := range breakdown.Recommendations {
				fmt.Fprintf(out, "  - %s\n", recommendation)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&avgRelevance, "avg-relevance", 0, "average retrieval relevance in [0,1]")
	cmd.Flags().IntVar(&evidenceCount, "evidence-count", 0, "number of evidence pieces")
	cmd.Flags().IntVar(&distinctTypes, "distinct-types", 0, "number of distinct evidence types")
	cmd.Flags().Float64Var(&ageDays, "age-days", 0, "age of the newest evidence in days")
	cmd.Flags().Float64Var(&maxAgeDays, "max-age-days", 365, "maximum acceptable evidence age in days")
	cmd.Flags().Float64Var(&quantity, "quantity", 0, "evidence quantity sufficiency in [0,1]")
	cmd.Flags().Float64Var(&inheritance, "inheritance", 1, "inheritance/attribution certainty in [0,1]")
	cmd.Flags().Float64Var(&certainty, "certainty", 0, "model self-reported certainty in [0,1]")
	return cmd
}
