package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"doclens/internal/domain"
)

// FileRepository persists per-document indexes as JSON files. Every update
// is written to a temporary file in the same directory and published with an
// atomic rename, so readers never observe a torn write. The partially built
// index stays queryable while an embedding job is still running.
type FileRepository struct {
	dir string
}

// NewFileRepository creates the storage layout under dir.
func NewFileRepository(dir string) (*FileRepository, error) {
	for _, d := range []string{dir, filepath.Join(dir, "status"), filepath.Join(dir, "meta"), filepath.Join(dir, "jobs")} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	return &FileRepository{dir: dir}, nil
}

func (r *FileRepository) vectorPath(docID string) string {
	return filepath.Join(r.dir, docID+".json")
}

func (r *FileRepository) statusPath(docID string) string {
	return filepath.Join(r.dir, "status", docID+".json")
}

func (r *FileRepository) metaPath(docID string) string {
	return filepath.Join(r.dir, "meta", docID+".json")
}

func (r *FileRepository) lockPath(docID string) string {
	return filepath.Join(r.dir, "jobs", docID+".lock")
}

// writeReplace publishes data at path via temp write + same-directory rename.
func writeReplace(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return &domain.PersistenceError{Op: "encode", Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return &domain.PersistenceError{Op: "write", Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &domain.PersistenceError{Op: "write", Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &domain.PersistenceError{Op: "write", Err: err}
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &domain.PersistenceError{Op: "publish", Err: err}
	}
	return nil
}

func (r *FileRepository) AppendVectors(docID string, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	existing, err := r.ReadVectors(docID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return err
	}

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

	return writeReplace(r.vectorPath(docID), append(existing, records...))
}

func (r *FileRepository) ReadVectors(docID string) ([]domain.VectorRecord, error) {
	data, err := os.ReadFile(r.vectorPath(docID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("vectors for %s: %w", docID, domain.ErrNotFound)
		}
		return nil, &domain.PersistenceError{Op: "read", Err: err}
	}

	var records []domain.VectorRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &domain.PersistenceError{Op: "decode", Err: err}
	}
	return records, nil
}

func (r *FileRepository) Dimension(docID string) (int, error) {
	records, err := r.ReadVectors(docID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}
	return len(records[0].Embedding), nil
}

func (r *FileRepository) PutStatus(status domain.JobStatus) error {
	return writeReplace(r.statusPath(status.DocumentID), status)
}

func (r *FileRepository) GetStatus(docID string) (domain.JobStatus, error) {
	data, err := os.ReadFile(r.statusPath(docID))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.JobStatus{}, fmt.Errorf("status for %s: %w", docID, domain.ErrNotFound)
		}
		return domain.JobStatus{}, &domain.PersistenceError{Op: "read", Err: err}
	}

	var status domain.JobStatus
	if len(data) == 0 || json.Unmarshal(data, &status) != nil {
		// The file exists but is empty or undecodable: the writer may be
		// mid-update, so the job is genuinely running.
		return domain.JobStatus{DocumentID: docID, State: domain.JobProcessing}, nil
	}
	return status, nil
}

func (r *FileRepository) PutMetadata(docID string, meta domain.Metadata) error {
	return writeReplace(r.metaPath(docID), meta)
}

func (r *FileRepository) GetMetadata(docID string) (domain.Metadata, error) {
	data, err := os.ReadFile(r.metaPath(docID))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Metadata{}, fmt.Errorf("metadata for %s: %w", docID, domain.ErrNotFound)
		}
		return domain.Metadata{}, &domain.PersistenceError{Op: "read", Err: err}
	}

	var meta domain.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return domain.Metadata{}, &domain.PersistenceError{Op: "decode", Err: err}
	}
	return meta, nil
}

func (r *FileRepository) ListDocuments() ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string

	add := func(entries []os.DirEntry) {
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.HasSuffix(name, ".json") {
				continue
			}
			id := strings.TrimSuffix(name, ".json")
			if _, ok := seen[id]; !ok {
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, &domain.PersistenceError{Op: "list", Err: err}
	}
	add(entries)

	if entries, err := os.ReadDir(filepath.Join(r.dir, "status")); err == nil {
		add(entries)
	}

	return ids, nil
}

func (r *FileRepository) Delete(docID string) error {
	paths := []string{
		r.vectorPath(docID),
		r.statusPath(docID),
		r.metaPath(docID),
		r.lockPath(docID),
	}

	var firstErr error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) && firstErr == nil {
			firstErr = &domain.PersistenceError{Op: "delete", Err: err}
		}
	}
	return firstErr
}

// AcquireJob uses exclusive file creation as the checked-and-set job flag.
func (r *FileRepository) AcquireJob(docID string) error {
	f, err := os.OpenFile(r.lockPath(docID), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return domain.ErrJobRunning
		}
		return &domain.PersistenceError{Op: "lock", Err: err}
	}
	return f.Close()
}

func (r *FileRepository) ReleaseJob(docID string) error {
	if err := os.Remove(r.lockPath(docID)); err != nil && !os.IsNotExist(err) {
		return &domain.PersistenceError{Op: "unlock", Err: err}
	}
	return nil
}

func (r *FileRepository) Close() error {
	return nil
}
