package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/auditcortex/auditcortex/engine/evidence"
	"github.com/auditcortex/auditcortex/engine/evidence/assembler"
	"github.com/auditcortex/auditcortex/engine/evidence/rerank"
	"github.com/auditcortex/auditcortex/engine/evidence/retriever"
)

func QueryCmd() *cobra.Command {
	var (
		topK      int
		poolSize  int
		lambda    float64
		strategy  string
		maxTokens int
		controlID string
		scopeID   string
		docType   string
	)
	cmd := &cobra.Command{
		Use:   "query <text>",
		Short: "Retrieve the most relevant evidence excerpts for a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			emb, err := buildEmbedder()
			if err != nil {
				return err
			}
			store, err := buildStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close(ctx)
			reranker, err := rerank.New(rerank.Config{Strategy: strategy, Lambda: lambda})
			if err != nil {
				return err
			}
			asm, err := assembler.New(maxTokens)
			if err != nil {
				return err
			}
			service, err := retriever.NewService(emb, store, reranker, asm, evidence.DefaultDefaults())
			if err != nil {
				return err
			}
			response, err := service.Retrieve(ctx, retriever.Request{
				Query:    strings.Join(args, " "),
				TopK:     topK,
				PoolSize: poolSize,
				Filters: retriever.Filters{
					ControlID: controlID,
					ScopeID:   scopeID,
					DocType:   docType,
				},
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(response.Contexts) == 0 {
				fmt.Fprintln(out, "no context retrieved")
				return nil
			}
			for i, rc := range response.Contexts {
				fmt.Fprintf(out, "%2d. %-40s %-12s score=%.3f tokens=%d\n",
					i+1, rc.SourceTitle, rc.SourceType, rc.Score, rc.TokenEstimate)
			}
			fmt.Fprintln(out)
			fmt.Fprintln(out, response.ContextBlock)
			return nil
		},
	}
	cmd.Flags().IntVar(&topK, "top-k", 5, "number of excerpts to return")
	cmd.Flags().IntVar(&poolSize, "pool", 20, "over-fetch pool size for re-ranking")
	cmd.Flags().Float64Var(&lambda, "lambda", rerank.DefaultLambda, "MMR relevance/diversity trade-off")
	cmd.Flags().StringVar(&strategy, "rerank", rerank.StrategyMMR, "re-ranking strategy (mmr|none)")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 2000, "context block token budget")
	cmd.Flags().StringVar(&controlID, "control", "", "filter by control identifier")
	cmd.Flags().StringVar(&scopeID, "scope", "", "filter by assessment scope")
	cmd.Flags().StringVar(&docType, "doc-type", "", "filter by document type")
	return cmd
}
