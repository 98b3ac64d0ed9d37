package memstore

import (
	"fmt"
	"sync"

	"doclens/internal/domain"
)

// MemoryRepository is an in-memory Repository backend for tests and
// ephemeral runs. Reads return snapshot copies.
type MemoryRepository struct {
	mu       sync.RWMutex
	vectors  map[string][]domain.VectorRecord
	statuses map[string]domain.JobStatus
	metas    map[string]domain.Metadata
	jobs     map[string]struct{}
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		vectors:  make(map[string][]domain.VectorRecord),
		statuses: make(map[string]domain.JobStatus),
		metas:    make(map[string]domain.Metadata),
		jobs:     make(map[string]struct{}),
	}
}

func (r *MemoryRepository) AppendVectors(docID string, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	existing := r.vectors[docID]
	dim := 0
	if len(existing) > 0 {
		dim = len(existing[0].Embedding)
	} else {
		dim = len(records[0].Embedding)
	}
	for _, rec := range records {
		if len(rec.Embedding) != dim {
			return fmt.Errorf("record %s dimension mismatch: expected %d, got %d", rec.ID, dim, len(rec.Embedding))
		}
	}

	r.vectors[docID] = append(existing, records...)
	return nil
}

func (r *MemoryRepository) ReadVectors(docID string) ([]domain.VectorRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records, ok := r.vectors[docID]
	if !ok {
		return nil, fmt.Errorf("vectors for %s: %w", docID, domain.ErrNotFound)
	}

	snapshot := make([]domain.VectorRecord, len(records))
	copy(snapshot, records)
	return snapshot, nil
}

func (r *MemoryRepository) Dimension(docID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	records := r.vectors[docID]
	if len(records) == 0 {
		return 0, nil
	}
	return len(records[0].Embedding), nil
}

func (r *MemoryRepository) PutStatus(status domain.JobStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[status.DocumentID] = status
	return nil
}

func (r *MemoryRepository) GetStatus(docID string) (domain.JobStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	status, ok := r.statuses[docID]
	if !ok {
		return domain.JobStatus{}, fmt.Errorf("status for %s: %w", docID, domain.ErrNotFound)
	}
	return status, nil
}

func (r *MemoryRepository) PutMetadata(docID string, meta domain.Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metas[docID] = meta
	return nil
}

func (r *MemoryRepository) GetMetadata(docID string) (domain.Metadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	meta, ok := r.metas[docID]
	if !ok {
		return domain.Metadata{}, fmt.Errorf("metadata for %s: %w", docID, domain.ErrNotFound)
	}
	return meta, nil
}

func (r *MemoryRepository) ListDocuments() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var ids []string
	for id := range r.vectors {
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for id := range r.statuses {
		if _, ok := seen[id]; !ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *MemoryRepository) Delete(docID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.vectors, docID)
	delete(r.statuses, docID)
	delete(r.metas, docID)
	delete(r.jobs, docID)
	return nil
}

func (r *MemoryRepository) AcquireJob(docID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, running := r.jobs[docID]; running {
		return domain.ErrJobRunning
	}
	r.jobs[docID] = struct{}{}
	return nil
}

func (r *MemoryRepository) ReleaseJob(docID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, docID)
	return nil
}

func (r *MemoryRepository) Close() error {
	return nil
}
