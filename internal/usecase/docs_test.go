package usecase

import (
	"testing"

	"doclens/internal/adapter/memstore"
	"doclens/internal/domain"
)

func TestListDocuments(t *testing.T) {
	repo := memstore.NewMemoryRepository()

	seedVectors(t, repo, "doc-b", []domain.VectorRecord{
		{ID: "a", Text: "first passage", Embedding: []float32{1, 0, 0}},
		{ID: "b", Text: "second passage", Embedding: []float32{0, 1, 0}},
	})
	if err := repo.PutStatus(domain.JobStatus{DocumentID: "doc-b", Total: 2, Processed: 2, State: domain.JobDone}); err != nil {
		t.Fatalf("PutStatus: %v", err)
	}
	if err := repo.PutMetadata("doc-b", domain.Metadata{Title: "Field Notes"}); err != nil {
		t.Fatalf("PutMetadata: %v", err)
	}

	// A document mid-ingest has a status but no vectors or metadata yet.
	if err := repo.PutStatus(domain.JobStatus{DocumentID: "doc-a", Total: 5, State: domain.JobProcessing}); err != nil {
		t.Fatalf("PutStatus: %v", err)
	}

	infos, err := ListDocuments(repo)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(infos) != 2 {
		t.Fatalf("got %d documents, want 2", len(infos))
	}
	if infos[0].ID != "doc-a" || infos[1].ID != "doc-b" {
		t.Errorf("order = %s, %s, want sorted by id", infos[0].ID, infos[1].ID)
	}

	b := infos[1]
	if b.Name != "Field Notes" {
		t.Errorf("Name = %q, want the metadata title", b.Name)
	}
	if b.Vectors != 2 {
		t.Errorf("Vectors = %d, want 2", b.Vectors)
	}
	if b.Status != domain.JobDone {
		t.Errorf("Status = %s, want %s", b.Status, domain.JobDone)
	}

	a := infos[0]
	if a.Name != "" {
		t.Errorf("Name = %q, want empty without metadata", a.Name)
	}
	if a.Vectors != 0 {
		t.Errorf("Vectors = %d, want 0", a.Vectors)
	}
	if a.Status != domain.JobProcessing {
		t.Errorf("Status = %s, want %s", a.Status, domain.JobProcessing)
	}
}

func TestListDocumentsEmpty(t *testing.T) {
	repo := memstore.NewMemoryRepository()
	infos, err := ListDocuments(repo)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(infos) != 0 {
		t.Errorf("got %d documents, want 0", len(infos))
	}
}
