package domain

// Passage is a bounded unit of document text produced by refinement.
// Immutable once created; Text is non-empty and whitespace-normalized.
type Passage struct {
	ID          string
	SourceIndex int
	Order       int
	Text        string
	TokenCount  int
}

// VectorRecord pairs a passage with its embedding. Records are append-only;
// all records in one document index share the same dimensionality.
type VectorRecord struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Embedding []float32 `json:"embedding"`
}

// JobState is the lifecycle state of an embedding job.
type JobState string

const (
	JobProcessing JobState = "processing"
	JobDone       JobState = "done"
	JobError      JobState = "error"
)

// JobStatus tracks the progress of a document's embedding job.
// Processed is monotonically non-decreasing and never exceeds Total.
type JobStatus struct {
	DocumentID string   `json:"document_id"`
	Total      int      `json:"total"`
	Processed  int      `json:"processed"`
	State      JobState `json:"state"`
	Error      string   `json:"error,omitempty"`
}

// Terminal reports whether the job can no longer change state.
func (s JobStatus) Terminal() bool {
	return s.State == JobDone || s.State == JobError
}

// ScoredPassage is an ephemeral per-query retrieval result.
type ScoredPassage struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// Metadata holds optional document-level fields populated at extraction time.
type Metadata struct {
	Title  string   `json:"title,omitempty"`
	Author string   `json:"author,omitempty"`
	TOC    []string `json:"toc,omitempty"`
}

// Empty reports whether no metadata field is set.
func (m Metadata) Empty() bool {
	return m.Title == "" && m.Author == "" && len(m.TOC) == 0
}

// DocumentInfo summarizes one ingested document for listings.
type DocumentInfo struct {
	ID       string   `json:"id"`
	Name     string   `json:"name,omitempty"`
	Vectors  int      `json:"vectors"`
	Status   JobState `json:"status,omitempty"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// Diagnostics describes how a retrieval request was satisfied.
type Diagnostics struct {
	TopScore          float64 `json:"top_score"`
	IndexDimension    int     `json:"index_dimension"`
	QueryDimension    int     `json:"query_dimension"`
	DimensionMismatch bool    `json:"dimension_mismatch"`
	Lexical           bool    `json:"lexical"`
}

// RetrievalResult is the ranked output of one retrieval request.
type RetrievalResult struct {
	Passages    []ScoredPassage `json:"passages"`
	Diagnostics Diagnostics     `json:"diagnostics"`
}
