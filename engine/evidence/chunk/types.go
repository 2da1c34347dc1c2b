package chunk

// Document represents normalized evidence text prior to chunking.
type Document struct {
	ID               string
	Title            string
	DocType          string
	ControlID        string
	AssessmentMethod string
	Text             string
	Metadata         map[string]any
}

// Settings configures chunking behavior. Size, Overlap and MinSize are
// expressed in estimated tokens (four characters per token).
type Settings struct {
	Strategy          string
	Size              int
	Overlap           int
	MinSize           int
	NormalizeNewlines bool
}

// Chunk represents one bounded excerpt of a document, ready for embedding.
// Start and End are byte offsets into the normalized source text; Index is
// the stable, gapless position of the chunk within its document.
type Chunk struct {
	ID         string
	Index      int
	Text       string
	Start      int
	End        int
	TokenCount int
	Metadata   map[string]any
}

// segment is a half-open [Start,End) byte range into normalized text.
type segment struct {
	start int
	end   int
}
