package cli

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/auditcortex/auditcortex/engine/evidence/embedder"
	"github.com/auditcortex/auditcortex/engine/evidence/vectordb"
	"github.com/auditcortex/auditcortex/pkg/logger"
)

type globalFlags struct {
	logLevel  string
	logJSON   bool
	provider  string
	dsn       string
	metric    string
	dimension int
	model     string
	batchSize int
}

var flags globalFlags

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "auditcortex",
		Short:         "Retrieval-augmented context engine for compliance evidence",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			// .env is optional; provider keys may come from the environment
			_ = godotenv.Load()
			logger.Init(&logger.Config{
				Level:      logger.LogLevel(flags.logLevel),
				Output:     os.Stderr,
				JSON:       flags.logJSON,
				TimeFormat: "15:04:05",
			})
		},
	}
	root.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	root.PersistentFlags().BoolVar(&flags.logJSON, "log-json", false, "emit logs as JSON")
	root.PersistentFlags().StringVar(&flags.provider, "store", "memory", "vector store provider (memory|pgvector)")
	root.PersistentFlags().StringVar(&flags.dsn, "dsn", os.Getenv("AUDITCORTEX_DSN"), "postgres DSN for the pgvector store")
	root.PersistentFlags().StringVar(&flags.metric, "metric", "cosine", "distance metric (cosine|euclidean|dot_product)")
	root.PersistentFlags().IntVar(&flags.dimension, "dimension", 1536, "embedding vector dimension")
	root.PersistentFlags().StringVar(&flags.model, "model", "text-embedding-3-small", "embedding model")
	root.PersistentFlags().IntVar(&flags.batchSize, "batch-size", 32, "embedding batch size")

	root.AddCommand(
		IngestCmd(),
		QueryCmd(),
		ScoreCmd(),
	)
	return root
}

func commandContext(cmd *cobra.Command) context.Context {
	return logger.ContextWithLogger(cmd.Context(), logger.FromContext(cmd.Context()))
}

func buildStore(ctx context.Context) (vectordb.Store, error) {
	return vectordb.New(ctx, &vectordb.Config{
		ID:        "cli",
		Provider:  vectordb.Provider(flags.provider),
		DSN:       flags.dsn,
		Metric:    vectordb.Metric(flags.metric),
		Dimension: flags.dimension,
	})
}

func buildEmbedder() (*embedder.Adapter, error) {
	return embedder.New(&embedder.Config{
		ID:        "cli",
		Provider:  embedder.ProviderOpenAI,
		Model:     flags.model,
		APIKey:    os.Getenv("OPENAI_API_KEY"),
		Dimension: flags.dimension,
		BatchSize: flags.batchSize,
		CacheSize: 256,
	})
}
