package usecase

import (
	"errors"
	"fmt"
	"math"

	"doclens/internal/domain"
	"doclens/internal/port"
)

// ProgressFunc is called after each committed batch.
type ProgressFunc func(processed, total int)

// Job is the handle for one background embedding run. Done is closed when
// the run reaches a terminal state; Err reports the terminal error, if any.
type Job struct {
	DocID string

	done chan struct{}
	err  error
}

func (j *Job) Done() <-chan struct{} { return j.done }

// Err returns the job's terminal error. Only valid after Done is closed.
func (j *Job) Err() error { return j.err }

// Wait blocks until the job finishes and returns its terminal error.
func (j *Job) Wait() error {
	<-j.done
	return j.err
}

// EmbeddingPipeline turns refined passages into a growing per-document
// vector index. Each batch is embedded with a single provider call, every
// vector is L2-normalized before storage, and the index and job status are
// published after every batch, so a partially built index is safely
// queryable and a crash leaves the last fully published state intact.
type EmbeddingPipeline struct {
	repo      port.Repository
	embedder  port.Embedder
	batchSize int

	// Logf, when set, receives non-fatal warnings (failed status or
	// vector publishes that do not abort the run).
	Logf func(format string, args ...any)
}

func NewEmbeddingPipeline(repo port.Repository, embedder port.Embedder, batchSize int) *EmbeddingPipeline {
	if batchSize <= 0 {
		batchSize = 64
	}
	return &EmbeddingPipeline{
		repo:      repo,
		embedder:  embedder,
		batchSize: batchSize,
	}
}

// StartEmbedding launches the embedding job for the document in the
// background and returns its handle. A second start for the same document
// id while one is running fails with domain.ErrJobRunning.
func (p *EmbeddingPipeline) StartEmbedding(docID string, passages []domain.Passage, progress ProgressFunc) (*Job, error) {
	if docID == "" {
		return nil, &domain.ValidationError{Field: "document id", Msg: "must not be empty"}
	}
	if len(passages) == 0 {
		return nil, &domain.ValidationError{Field: "passages", Msg: "must not be empty"}
	}

	if err := p.repo.AcquireJob(docID); err != nil {
		return nil, err
	}

	initial := domain.JobStatus{
		DocumentID: docID,
		Total:      len(passages),
		Processed:  0,
		State:      domain.JobProcessing,
	}
	if err := p.repo.PutStatus(initial); err != nil {
		p.warnf("failed to publish initial status for %s: %v", docID, err)
	}

	job := &Job{DocID: docID, done: make(chan struct{})}
	go p.run(job, passages, progress)
	return job, nil
}

func (p *EmbeddingPipeline) run(job *Job, passages []domain.Passage, progress ProgressFunc) {
	defer close(job.done)
	defer func() {
		if err := p.repo.ReleaseJob(job.DocID); err != nil {
			p.warnf("failed to release job flag for %s: %v", job.DocID, err)
		}
	}()

	total := len(passages)
	processed := 0

	for start := 0; start < total; start += p.batchSize {
		end := start + p.batchSize
		if end > total {
			end = total
		}
		batch := passages[start:end]

		texts := make([]string, len(batch))
		for i, passage := range batch {
			texts[i] = passage.Text
		}

		vectors, err := p.embedder.Embed(texts)
		if err == nil && len(vectors) != len(batch) {
			err = fmt.Errorf("expected %d vectors, got %d", len(batch), len(vectors))
		}
		if err != nil {
			// Abort the run; earlier batches stay persisted, no rollback.
			provErr := &domain.ProviderError{Provider: "embedding", Err: err}
			job.err = provErr
			p.publishStatus(domain.JobStatus{
				DocumentID: job.DocID,
				Total:      total,
				Processed:  processed,
				State:      domain.JobError,
				Error:      provErr.Error(),
			})
			return
		}

		records := make([]domain.VectorRecord, len(batch))
		for i, passage := range batch {
			records[i] = domain.VectorRecord{
				ID:        passage.ID,
				Text:      passage.Text,
				Embedding: normalizeVector(vectors[i]),
			}
		}

		if err := p.repo.AppendVectors(job.DocID, records); err != nil {
			p.warnf("failed to publish batch for %s: %v", job.DocID, err)
		}

		processed += len(batch)
		state := domain.JobProcessing
		if processed == total {
			state = domain.JobDone
		}
		p.publishStatus(domain.JobStatus{
			DocumentID: job.DocID,
			Total:      total,
			Processed:  processed,
			State:      state,
		})

		if progress != nil {
			progress(processed, total)
		}
	}
}

func (p *EmbeddingPipeline) publishStatus(status domain.JobStatus) {
	if err := p.repo.PutStatus(status); err != nil {
		p.warnf("failed to publish status for %s: %v", status.DocumentID, err)
	}
}

func (p *EmbeddingPipeline) warnf(format string, args ...any) {
	if p.Logf != nil {
		p.Logf(format, args...)
	}
}

// Status reports the document's job status, distinguishing a never-started
// job from a running or terminal one.
func (p *EmbeddingPipeline) Status(docID string) (domain.JobStatus, error) {
	if docID == "" {
		return domain.JobStatus{}, &domain.ValidationError{Field: "document id", Msg: "must not be empty"}
	}
	status, err := p.repo.GetStatus(docID)
	if err != nil && errors.Is(err, domain.ErrNotFound) {
		return domain.JobStatus{}, err
	}
	return status, err
}

// normalizeVector scales the vector to unit L2 length, so later similarity
// is a pure dot product. A zero vector is returned unchanged.
func normalizeVector(vec []float32) []float32 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return vec
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(float64(v) / norm)
	}
	return out
}
