package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"doclens/config"
	"doclens/internal/adapter/analyzer"
	"doclens/internal/adapter/embedding"
	"doclens/internal/adapter/store"
	"doclens/internal/port"
	"doclens/internal/usecase"
)

func main() {
	dataDir := flag.String("data", ".doclens", "Path to the doclens data directory")
	docID := flag.String("doc", "", "Document id to benchmark against")
	query := flag.String("q", "", "Query to test")
	topK := flag.Int("k", 8, "Number of results")
	flag.Parse()

	if *query == "" || *docID == "" {
		fmt.Println("Usage: go run cmd/benchmark/main.go -data .doclens -doc <doc-id> -q \"query\"")
		fmt.Println("\nTests:")
		fmt.Println("  1. Embedding infrastructure (model connection, index dimensionality)")
		fmt.Println("  2. Retrieval latency and ranking for the query")
		os.Exit(1)
	}

	cfg, err := config.LoadFromDir(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	repo, err := openRepository(cfg, *dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening store: %v\n", err)
		os.Exit(1)
	}
	defer repo.Close()

	embedder, err := newEmbedder(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Embedding provider not available: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("RETRIEVAL BENCHMARK")
	fmt.Println(strings.Repeat("=", 70))

	records, err := repo.ReadVectors(*docID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading index: %v\n", err)
		os.Exit(1)
	}
	indexDim := 0
	if len(records) > 0 {
		indexDim = len(records[0].Embedding)
	}
	fmt.Printf("Vectors indexed: %d\n", len(records))
	fmt.Printf("Model: %s (%s)\n", cfg.Embedding.Model, cfg.Embedding.Provider)
	fmt.Printf("Index dimension: %d, provider dimension: %d\n", indexDim, embedder.Dimension())
	fmt.Println()

	engine := usecase.NewRetrievalEngine(repo, embedder, analyzer.NewTokenizer(), cfg.Retrieve.MinScore)

	fmt.Printf("Query: \"%s\"\n", *query)
	fmt.Println(strings.Repeat("-", 70))

	start := time.Now()
	result, err := engine.Retrieve(*docID, *query, usecase.ExpandQuery(*query), *topK)
	elapsed := time.Since(start)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Retrieval failed: %v\n", err)
		os.Exit(1)
	}

	for i, p := range result.Passages {
		fmt.Printf("%2d. [%.4f] %s\n", i+1, p.Score, truncate(p.Text, 120))
	}

	d := result.Diagnostics
	fmt.Println(strings.Repeat("-", 70))
	fmt.Printf("latency: %s, top score: %.4f, lexical fallback: %v, dim mismatch: %v\n",
		elapsed.Round(time.Millisecond), d.TopScore, d.Lexical, d.DimensionMismatch)
}

// truncate shortens s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

func openRepository(cfg *config.Config, dir string) (port.Repository, error) {
	switch cfg.Store.Backend {
	case "bolt":
		return store.NewBoltRepository(config.VectorDBPath(dir))
	default:
		return store.NewFileRepository(dir)
	}
}

func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "ollama":
		return embedding.NewOllamaEmbedder(cfg.Embedding.Model, cfg.Embedding.BaseURL)
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimension), nil
	default:
		return embedding.NewOpenAIEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model)
	}
}
