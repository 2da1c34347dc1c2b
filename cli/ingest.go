package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/auditcortex/auditcortex/engine/evidence/chunk"
	"github.com/auditcortex/auditcortex/engine/evidence/ingest"
)

func IngestCmd() *cobra.Command {
	var (
		docType   string
		controlID string
		method    string
		scopeID   string
		strategy  string
		chunkSize int
		overlap   int
		minSize   int
		replace   bool
	)
	cmd := &cobra.Command{
		Use:   "ingest <files...>",
		Short: "Chunk, embed and index evidence documents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			processor, err := chunk.NewProcessor(chunk.Settings{
				Strategy:          strategy,
				Size:              chunkSize,
				Overlap:           overlap,
				MinSize:           minSize,
				NormalizeNewlines: true,
			})
			if err != nil {
				return err
			}
			emb, err := buildEmbedder()
			if err != nil {
				return err
			}
			store, err := buildStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close(ctx)
			opts := ingest.Options{ScopeID: scopeID}
			if replace {
				opts.Strategy = ingest.StrategyReplace
			}
			pipeline, err := ingest.NewPipeline(processor, emb, store, opts)
			if err != nil {
				return err
			}
			docs := make([]chunk.Document, 0, len(args))
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
				docs = append(docs, chunk.Document{
					ID:               uuid.NewString(),
					Title:            title,
					DocType:          docType,
					ControlID:        controlID,
					AssessmentMethod: method,
					Text:             string(data),
				})
			}
			result, err := pipeline.Run(ctx, docs)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"documents=%d chunks=%d persisted=%d failed=%d degraded=%d coverage=%.0f%%\n",
				result.Documents, result.Chunks, result.Persisted, result.Failed, result.Degraded,
				result.Coverage()*100,
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&docType, "doc-type", "policy", "document type tag")
	cmd.Flags().StringVar(&controlID, "control", "", "control identifier tag")
	cmd.Flags().StringVar(&method, "method", "", "assessment method tag")
	cmd.Flags().StringVar(&scopeID, "scope", "", "assessment scope identifier")
	cmd.Flags().StringVar(&strategy, "strategy", chunk.StrategyHybrid, "chunking strategy (fixed|semantic|hybrid)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 512, "target chunk size in tokens")
	cmd.Flags().IntVar(&overlap, "overlap", 64, "chunk overlap in tokens")
	cmd.Flags().IntVar(&minSize, "min-size", 32, "minimum chunk size in tokens")
	cmd.Flags().BoolVar(&replace, "replace", false, "delete previously ingested records for the same source first")
	return cmd
}
