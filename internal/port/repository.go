package port

import "doclens/internal/domain"

// Repository stores per-document vector indexes, job statuses, and metadata.
//
// Implementations must publish every mutation atomically: a concurrent reader
// observes either the previous complete state or the new complete state,
// never a partial write. Reads return isolated snapshots.
type Repository interface {
	// AppendVectors appends records to the document's index. Records whose
	// dimensionality differs from the index's established dimensionality
	// are rejected.
	AppendVectors(docID string, records []domain.VectorRecord) error

	// ReadVectors returns a snapshot copy of the document's records,
	// unaffected by subsequent appends. Returns domain.ErrNotFound when no
	// index exists for the id.
	ReadVectors(docID string) ([]domain.VectorRecord, error)

	// Dimension returns the index's dimensionality, or 0 if it is empty
	// or absent.
	Dimension(docID string) (int, error)

	// PutStatus publishes the job status for the document.
	PutStatus(status domain.JobStatus) error

	// GetStatus returns the document's job status. Returns
	// domain.ErrNotFound only when no job was ever started; a status that
	// exists but is mid-write is reported as processing.
	GetStatus(docID string) (domain.JobStatus, error)

	// PutMetadata stores document metadata.
	PutMetadata(docID string, meta domain.Metadata) error

	// GetMetadata returns document metadata, or domain.ErrNotFound.
	GetMetadata(docID string) (domain.Metadata, error)

	// ListDocuments returns ids of all documents with any stored artifact.
	ListDocuments() ([]string, error)

	// Delete removes all persisted artifacts for the document.
	Delete(docID string) error

	// AcquireJob atomically marks an embedding job as in progress for the
	// document. Returns domain.ErrJobRunning if one is already marked.
	AcquireJob(docID string) error

	// ReleaseJob clears the document's in-progress mark.
	ReleaseJob(docID string) error

	Close() error
}
