package evidence

// Metadata keys shared between ingestion and retrieval. Filters at the query
// boundary reference these keys; ingestion stamps them onto every record.
const (
	MetaSourceID         = "source_id"
	MetaTitle            = "title"
	MetaDocType          = "doc_type"
	MetaControlID        = "control_id"
	MetaObjectiveID      = "objective_id"
	MetaAssessmentMethod = "assessment_method"
	MetaScopeID          = "assessment_scope_id"
	MetaChunkIndex       = "chunk_index"
)

// RetrievedContext represents one chunk returned by the retrieval pipeline.
type RetrievedContext struct {
	Content       string
	SourceTitle   string
	SourceType    string
	Score         float64
	TokenEstimate int
	Metadata      map[string]any
}
