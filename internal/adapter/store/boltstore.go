package store

import (
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"doclens/internal/domain"
)

var (
	bucketVectors = []byte("vectors")
	bucketStatus  = []byte("status")
	bucketMeta    = []byte("meta")
	bucketJobs    = []byte("jobs")
)

// BoltRepository persists per-document indexes in a single bbolt database.
// Bolt transactions give the same no-torn-read guarantee as the file
// backend's write-replace.
type BoltRepository struct {
	db *bbolt.DB
}

func NewBoltRepository(path string) (*BoltRepository, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketVectors, bucketStatus, bucketMeta, bucketJobs} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltRepository{db: db}, nil
}

func (r *BoltRepository) AppendVectors(docID string, records []domain.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	err := r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)

		var existing []domain.VectorRecord
		if data := b.Get([]byte(docID)); data != nil {
			if err := json.Unmarshal(data, &existing); err != nil {
				return err
			}
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

		data, err := json.Marshal(append(existing, records...))
		if err != nil {
			return err
		}
		return b.Put([]byte(docID), data)
	})
	if err != nil {
		return &domain.PersistenceError{Op: "append", Err: err}
	}
	return nil
}

func (r *BoltRepository) ReadVectors(docID string) ([]domain.VectorRecord, error) {
	var records []domain.VectorRecord
	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketVectors).Get([]byte(docID))
		if data == nil {
			return fmt.Errorf("vectors for %s: %w", docID, domain.ErrNotFound)
		}
		return json.Unmarshal(data, &records)
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func (r *BoltRepository) Dimension(docID string) (int, error) {
	dim := 0
	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketVectors).Get([]byte(docID))
		if data == nil {
			return nil
		}
		var records []domain.VectorRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return err
		}
		if len(records) > 0 {
			dim = len(records[0].Embedding)
		}
		return nil
	})
	return dim, err
}

func (r *BoltRepository) PutStatus(status domain.JobStatus) error {
	err := r.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(status)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketStatus).Put([]byte(status.DocumentID), data)
	})
	if err != nil {
		return &domain.PersistenceError{Op: "status", Err: err}
	}
	return nil
}

func (r *BoltRepository) GetStatus(docID string) (domain.JobStatus, error) {
	var status domain.JobStatus
	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketStatus).Get([]byte(docID))
		if data == nil {
			return fmt.Errorf("status for %s: %w", docID, domain.ErrNotFound)
		}
		if json.Unmarshal(data, &status) != nil {
			status = domain.JobStatus{DocumentID: docID, State: domain.JobProcessing}
		}
		return nil
	})
	return status, err
}

func (r *BoltRepository) PutMetadata(docID string, meta domain.Metadata) error {
	err := r.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put([]byte(docID), data)
	})
	if err != nil {
		return &domain.PersistenceError{Op: "metadata", Err: err}
	}
	return nil
}

func (r *BoltRepository) GetMetadata(docID string) (domain.Metadata, error) {
	var meta domain.Metadata
	err := r.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get([]byte(docID))
		if data == nil {
			return fmt.Errorf("metadata for %s: %w", docID, domain.ErrNotFound)
		}
		return json.Unmarshal(data, &meta)
	})
	return meta, err
}

func (r *BoltRepository) ListDocuments() ([]string, error) {
	seen := make(map[string]struct{})
	var ids []string

	err := r.db.View(func(tx *bbolt.Tx) error {
		for _, bucket := range [][]byte{bucketVectors, bucketStatus} {
			err := tx.Bucket(bucket).ForEach(func(k, v []byte) error {
				id := string(k)
				if _, ok := seen[id]; !ok {
					seen[id] = struct{}{}
					ids = append(ids, id)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *BoltRepository) Delete(docID string) error {
	err := r.db.Update(func(tx *bbolt.Tx) error {
		key := []byte(docID)
		for _, bucket := range [][]byte{bucketVectors, bucketStatus, bucketMeta, bucketJobs} {
			if err := tx.Bucket(bucket).Delete(key); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &domain.PersistenceError{Op: "delete", Err: err}
	}
	return nil
}

// AcquireJob marks the job in progress inside one transaction, so the check
// and the set cannot interleave with another acquirer.
func (r *BoltRepository) AcquireJob(docID string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketJobs)
		if b.Get([]byte(docID)) != nil {
			return domain.ErrJobRunning
		}
		return b.Put([]byte(docID), []byte("1"))
	})
}

func (r *BoltRepository) ReleaseJob(docID string) error {
	return r.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketJobs).Delete([]byte(docID))
	})
}

func (r *BoltRepository) Close() error {
	return r.db.Close()
}
