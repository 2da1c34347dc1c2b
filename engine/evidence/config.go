package evidence

const (
	MinChunkSize    = 16
	MaxChunkSize    = 8192
	maxRetrievalK   = 50
	MinScoreFloor   = 0.0
	MaxScoreCeiling = 1.0
)

// Defaults captures engine-wide defaults applied when a caller omits a knob.
type Defaults struct {
	ChunkSize         int
	ChunkOverlap      int
	ChunkMinSize      int
	EmbedderBatchSize int
	RetrievalTopK     int
	RetrievalPoolSize int
	RetrievalMinScore float64
	MMRLambda         float64
	ContextMaxTokens  int
}

// DefaultDefaults returns the built-in defaults.
func DefaultDefaults() Defaults {
	return Defaults{
		ChunkSize:         512,
		ChunkOverlap:      64,
		ChunkMinSize:      32,
		EmbedderBatchSize: 32,
		RetrievalTopK:     5,
		RetrievalPoolSize: 20,
		RetrievalMinScore: 0.0,
		MMRLambda:         0.7,
		ContextMaxTokens:  2000,
	}
}

// Sanitize clamps every default into its valid range, falling back to the
// built-in value when a field is unset or out of bounds.
func (d Defaults) Sanitize() Defaults {
	builtin := DefaultDefaults()
	out := d
	if out.ChunkSize < MinChunkSize || out.ChunkSize > MaxChunkSize {
		out.ChunkSize = builtin.ChunkSize
	}
	if out.ChunkOverlap < 0 || out.ChunkOverlap >= out.ChunkSize {
		out.ChunkOverlap = minInt(builtin.ChunkOverlap, out.ChunkSize-1)
	}
	if out.ChunkMinSize <= 0 {
		out.ChunkMinSize = builtin.ChunkMinSize
	}
	if out.EmbedderBatchSize <= 0 {
		out.EmbedderBatchSize = builtin.EmbedderBatchSize
	}
	if out.RetrievalTopK < 1 || out.RetrievalTopK > maxRetrievalK {
		out.RetrievalTopK = builtin.RetrievalTopK
	}
	if out.RetrievalPoolSize < out.RetrievalTopK {
		out.RetrievalPoolSize = maxInt(builtin.RetrievalPoolSize, out.RetrievalTopK)
	}
	if out.RetrievalMinScore < MinScoreFloor || out.RetrievalMinScore > MaxScoreCeiling {
		out.RetrievalMinScore = builtin.RetrievalMinScore
	}
	if out.MMRLambda < 0 || out.MMRLambda > 1 {
		out.MMRLambda = builtin.MMRLambda
	}
	if out.ContextMaxTokens <= 0 {
		out.ContextMaxTokens = builtin.ContextMaxTokens
	}
	return out
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
