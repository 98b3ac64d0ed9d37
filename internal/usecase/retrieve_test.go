package usecase

import (
	"errors"
	"math"
	"strings"
	"testing"

	"doclens/internal/adapter/analyzer"
	"doclens/internal/adapter/memstore"
	"doclens/internal/domain"
)

func seedVectors(t *testing.T, repo *memstore.MemoryRepository, docID string, records []domain.VectorRecord) {
	t.Helper()
	if err := repo.AppendVectors(docID, records); err != nil {
		t.Fatalf("AppendVectors: %v", err)
	}
}

func TestRetrieveRanksByDotProduct(t *testing.T) {
	repo := memstore.NewMemoryRepository()
	seedVectors(t, repo, "doc", []domain.VectorRecord{
		{ID: "a", Text: "alpha neural networks overview", Embedding: []float32{1, 0, 0}},
		{ID: "b", Text: "beta cooking recipes collection", Embedding: []float32{0, 1, 0}},
		{ID: "c", Text: "gamma mixed material", Embedding: []float32{0.6, 0.8, 0}},
	})

	emb := &stubEmbedder{dim: 3, vectors: map[string][]float32{
		"find alpha": {1, 0, 0},
	}}
	engine := NewRetrievalEngine(repo, emb, analyzer.NewTokenizer(), 0)

	result, err := engine.Retrieve("doc", "find alpha", "find alpha", 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(result.Passages) != 2 {
		t.Fatalf("got %d passages, want 2", len(result.Passages))
	}
	if !strings.HasPrefix(result.Passages[0].Text, "alpha") {
		t.Errorf("top passage = %q, want the alpha passage", result.Passages[0].Text)
	}
	if math.Abs(result.Passages[0].Score-1) > 1e-6 {
		t.Errorf("top score = %f, want 1", result.Passages[0].Score)
	}
	if result.Diagnostics.Lexical {
		t.Error("Lexical diagnostic set on a successful vector pass")
	}
	if result.Diagnostics.TopScore != result.Passages[0].Score {
		t.Errorf("TopScore diagnostic = %f, want %f", result.Diagnostics.TopScore, result.Passages[0].Score)
	}
}

func TestRetrieveDimensionMismatchFallsBackToLexical(t *testing.T) {
	repo := memstore.NewMemoryRepository()
	seedVectors(t, repo, "doc", []domain.VectorRecord{
		{ID: "a", Text: "alpha networks overview", Embedding: []float32{1, 0, 0}},
		{ID: "b", Text: "unrelated material", Embedding: []float32{0, 1, 0}},
	})

	// Query embeds at a different dimensionality than the index.
	emb := &stubEmbedder{dim: 4}
	engine := NewRetrievalEngine(repo, emb, analyzer.NewTokenizer(), 0)

	result, err := engine.Retrieve("doc", "alpha networks", "alpha networks", 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if !result.Diagnostics.DimensionMismatch {
		t.Error("DimensionMismatch diagnostic not set")
	}
	if !result.Diagnostics.Lexical {
		t.Error("Lexical diagnostic not set")
	}
	if len(result.Passages) != 1 {
		t.Fatalf("got %d passages, want 1", len(result.Passages))
	}
	if result.Passages[0].Score != 2 {
		t.Errorf("lexical score = %f, want 2 (both tokens present)", result.Passages[0].Score)
	}
}

func TestRetrieveEmbedFailureFallsBackToLexical(t *testing.T) {
	repo := memstore.NewMemoryRepository()
	seedVectors(t, repo, "doc", []domain.VectorRecord{
		{ID: "a", Text: "alpha networks overview", Embedding: []float32{1, 0, 0}},
	})

	emb := &stubEmbedder{dim: 3, failOnCall: 1}
	engine := NewRetrievalEngine(repo, emb, analyzer.NewTokenizer(), 0)

	result, err := engine.Retrieve("doc", "alpha overview", "alpha overview", 5)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if !result.Diagnostics.Lexical {
		t.Error("Lexical diagnostic not set after embed failure")
	}
	if len(result.Passages) != 1 {
		t.Fatalf("got %d passages, want 1", len(result.Passages))
	}
}

func TestRetrieveBackoffMergesPlainQueryPass(t *testing.T) {
	repo := memstore.NewMemoryRepository()
	seedVectors(t, repo, "doc", []domain.VectorRecord{
		{ID: "a", Text: "alpha section body", Embedding: []float32{1, 0, 0}},
		{ID: "b", Text: "beta section body", Embedding: []float32{0, 1, 0}},
	})

	// The expanded query lands far from everything; the plain query hits
	// the alpha passage squarely.
	emb := &stubEmbedder{dim: 3, vectors: map[string][]float32{
		"locate alpha passage hints hints": {0, 0, 1},
		"locate alpha passage":             {1, 0, 0},
	}}
	engine := NewRetrievalEngine(repo, emb, analyzer.NewTokenizer(), 0)

	result, err := engine.Retrieve("doc", "locate alpha passage", "locate alpha passage hints hints", 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(result.Passages) == 0 {
		t.Fatal("got no passages")
	}
	if !strings.HasPrefix(result.Passages[0].Text, "alpha") {
		t.Errorf("top passage = %q, want the alpha passage from the backoff pass", result.Passages[0].Text)
	}
	// The merged duplicate keeps the higher of the two scores.
	if math.Abs(result.Passages[0].Score-1) > 1e-6 {
		t.Errorf("top score = %f, want 1", result.Passages[0].Score)
	}
}

func TestRetrieveBoilerplatePenalty(t *testing.T) {
	repo := memstore.NewMemoryRepository()
	seedVectors(t, repo, "doc", []domain.VectorRecord{
		{ID: "a", Text: "Copyright notice. All rights reserved.", Embedding: []float32{1, 0, 0}},
		{ID: "b", Text: "substantive body content", Embedding: []float32{1, 0, 0}},
	})

	emb := &stubEmbedder{dim: 3, vectors: map[string][]float32{
		"body content": {1, 0, 0},
	}}
	engine := NewRetrievalEngine(repo, emb, analyzer.NewTokenizer(), 0)

	result, err := engine.Retrieve("doc", "body content", "body content", 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if result.Passages[0].Text != "substantive body content" {
		t.Errorf("top passage = %q, boilerplate should rank below equal-similarity content", result.Passages[0].Text)
	}
	if diff := result.Passages[0].Score - result.Passages[1].Score; math.Abs(diff-0.05) > 1e-6 {
		t.Errorf("score gap = %f, want 0.05", diff)
	}
}

func TestRetrieveFrontMatterBoost(t *testing.T) {
	repo := memstore.NewMemoryRepository()
	seedVectors(t, repo, "doc", []domain.VectorRecord{
		{ID: "p0", Text: "opening page material", Embedding: []float32{0.5, 0.866, 0}},
		{ID: "p1", Text: "middle content one", Embedding: []float32{0, 1, 0}},
		{ID: "p2", Text: "middle content two", Embedding: []float32{0, 1, 0}},
		{ID: "p3", Text: "late body content", Embedding: []float32{0.55, 0.835, 0}},
	})

	emb := &stubEmbedder{dim: 3, vectors: map[string][]float32{
		"who is the author of this": {1, 0, 0},
	}}
	engine := NewRetrievalEngine(repo, emb, analyzer.NewTokenizer(), 0)

	result, err := engine.Retrieve("doc", "who is the author of this", "who is the author of this", 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	// p3 has the higher raw similarity (0.55 vs 0.5), but p0 sits in the
	// front-matter window and the query asks about authorship.
	if result.Passages[0].Text != "opening page material" {
		t.Errorf("top passage = %q, want the boosted front-matter passage", result.Passages[0].Text)
	}
}

func TestRetrieveAbstractBoost(t *testing.T) {
	repo := memstore.NewMemoryRepository()
	seedVectors(t, repo, "doc", []domain.VectorRecord{
		{ID: "a", Text: "Abstract: this work studies retrieval", Embedding: []float32{1, 0, 0}},
		{ID: "b", Text: "methods chapter detail", Embedding: []float32{1, 0, 0}},
	})

	emb := &stubEmbedder{dim: 3, vectors: map[string][]float32{
		"what is this document about": {1, 0, 0},
	}}
	engine := NewRetrievalEngine(repo, emb, analyzer.NewTokenizer(), 0)

	result, err := engine.Retrieve("doc", "what is this document about", "what is this document about", 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if !strings.HasPrefix(result.Passages[0].Text, "Abstract") {
		t.Errorf("top passage = %q, want the abstract passage", result.Passages[0].Text)
	}
}

func TestRetrieveValidation(t *testing.T) {
	repo := memstore.NewMemoryRepository()
	engine := NewRetrievalEngine(repo, &stubEmbedder{dim: 3}, analyzer.NewTokenizer(), 0)

	if _, err := engine.Retrieve("", "query", "", 5); err == nil {
		t.Error("expected error for empty document id")
	}
	if _, err := engine.Retrieve("doc", "  ", "", 5); err == nil {
		t.Error("expected error for blank query")
	}
}

func TestRetrieveUnknownDocument(t *testing.T) {
	repo := memstore.NewMemoryRepository()
	engine := NewRetrievalEngine(repo, &stubEmbedder{dim: 3}, analyzer.NewTokenizer(), 0)

	_, err := engine.Retrieve("missing", "query", "", 5)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestMergeRankedKeepsHigherScoreOnce(t *testing.T) {
	long := strings.Repeat("x", mergeKeyLen)
	primary := []domain.ScoredPassage{
		{Text: long + " primary tail", Score: 0.4},
		{Text: "unique to primary", Score: 0.3},
	}
	backoff := []domain.ScoredPassage{
		{Text: long + " backoff tail", Score: 0.9},
		{Text: "unique to backoff", Score: 0.2},
	}

	merged := mergeRanked(primary, backoff, 10)
	if len(merged) != 3 {
		t.Fatalf("got %d merged passages, want 3 (prefix duplicates collapse)", len(merged))
	}
	if merged[0].Score != 0.9 {
		t.Errorf("top score = %f, want 0.9 (higher duplicate kept)", merged[0].Score)
	}
	// First-seen text wins; only the score is upgraded.
	if merged[0].Text != long+" primary tail" {
		t.Errorf("merged text = %q, want the first-seen variant", merged[0].Text)
	}
}

func TestRankTopStableTies(t *testing.T) {
	scored := []domain.ScoredPassage{
		{Text: "first", Score: 0.5},
		{Text: "second", Score: 0.5},
		{Text: "third", Score: 0.9},
	}
	ranked := rankTop(scored, 3)
	if ranked[0].Text != "third" {
		t.Errorf("top = %q, want third", ranked[0].Text)
	}
	if ranked[1].Text != "first" || ranked[2].Text != "second" {
		t.Errorf("ties reordered: %q, %q", ranked[1].Text, ranked[2].Text)
	}
}

func TestLexicalTokens(t *testing.T) {
	tokenizer := analyzer.NewTokenizer()

	tokens := lexicalTokens(tokenizer, "The THE cat sat on networks networks architecture")
	// Short tokens drop, duplicates collapse.
	want := []string{"networks", "architecture"}
	if len(tokens) != len(want) {
		t.Fatalf("tokens = %v, want %v", tokens, want)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("tokens[%d] = %q, want %q", i, tokens[i], want[i])
		}
	}

	var parts []string
	for i := 0; i < 20; i++ {
		parts = append(parts, strings.Repeat(string(rune('a'+i)), 5))
	}
	capped := lexicalTokens(tokenizer, strings.Join(parts, " "))
	if len(capped) != maxLexicalTokens {
		t.Errorf("got %d tokens, want cap of %d", len(capped), maxLexicalTokens)
	}
}

func TestRetrieveThresholdConfigurable(t *testing.T) {
	repo := memstore.NewMemoryRepository()
	seedVectors(t, repo, "doc", []domain.VectorRecord{
		{ID: "a", Text: "alpha section body", Embedding: []float32{1, 0, 0}},
	})

	// The expanded query scores weakly (~0.3); the plain query scores 1.
	vectors := map[string][]float32{
		"find alpha hints": {0.3, 0.954, 0},
		"find alpha":       {1, 0, 0},
	}

	// A permissive threshold accepts the weak primary pass outright.
	emb := &stubEmbedder{dim: 3, vectors: vectors}
	engine := NewRetrievalEngine(repo, emb, analyzer.NewTokenizer(), 0.2)

	result, err := engine.Retrieve("doc", "find alpha", "find alpha hints", 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if emb.calls != 1 {
		t.Errorf("embedder called %d times, want 1 (no backoff above threshold)", emb.calls)
	}
	if len(result.Passages) == 0 {
		t.Fatal("got no passages")
	}
	if math.Abs(result.Passages[0].Score-0.3) > 1e-3 {
		t.Errorf("top score = %f, want ~0.3 from the primary pass", result.Passages[0].Score)
	}

	// A strict threshold sends the same retrieval into the backoff pass.
	emb = &stubEmbedder{dim: 3, vectors: vectors}
	engine = NewRetrievalEngine(repo, emb, analyzer.NewTokenizer(), 0.9)

	result, err = engine.Retrieve("doc", "find alpha", "find alpha hints", 2)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if emb.calls != 2 {
		t.Errorf("embedder called %d times, want 2 (backoff below threshold)", emb.calls)
	}
	if len(result.Passages) == 0 {
		t.Fatal("got no passages")
	}
	if math.Abs(result.Passages[0].Score-1) > 1e-6 {
		t.Errorf("top score = %f, want 1 from the backoff pass", result.Passages[0].Score)
	}
}
