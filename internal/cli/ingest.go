package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"doclens/internal/adapter/analyzer"
	"doclens/internal/adapter/extract"
	"doclens/internal/adapter/fs"
	"doclens/internal/adapter/refiner"
	"doclens/internal/port"
	"doclens/internal/usecase"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>",
	Short: "Ingest a document (or every matching document in a directory)",
	Long: `Ingest reads a document, refines it into bounded passages, embeds them
in batches, and appends them to the document's vector index. Each batch is
persisted as it completes, so the index is queryable while embedding runs
and an interrupted ingest keeps everything already committed.

Examples:
  doclens ingest report.md       # Ingest one document
  doclens ingest ./papers        # Ingest every *.txt and *.md under ./papers`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	var paths []string
	if info.IsDir() {
		walker := fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes)
		paths, err = walker.Walk(path)
		if err != nil {
			return fmt.Errorf("failed to scan directory: %w", err)
		}
		if len(paths) == 0 {
			return fmt.Errorf("no matching documents under %s", path)
		}
	} else {
		paths = []string{path}
	}

	repo, err := openRepository()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer repo.Close()

	embedder, err := newEmbedder()
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	tokenizer := analyzer.NewTokenizer()
	ref := refiner.NewSentenceRefiner(cfg.Refine.MaxTokens, cfg.Refine.OverlapSentence, tokenizer)
	extractor := extract.NewTextExtractor()
	pipeline := usecase.NewEmbeddingPipeline(repo, embedder, cfg.Embedding.BatchSize)
	if cfg.Logging.ShowWarnings() {
		pipeline.Logf = func(format string, fmtArgs ...any) {
			fmt.Fprintf(os.Stderr, "warning: "+format+"\n", fmtArgs...)
		}
	}

	for _, docPath := range paths {
		if err := ingestOne(docPath, extractor, ref, pipeline, repo); err != nil {
			return err
		}
	}
	return nil
}

func ingestOne(path string, extractor *extract.TextExtractor, ref *refiner.SentenceRefiner, pipeline *usecase.EmbeddingPipeline, repo port.Repository) error {
	segments, meta, err := extractor.Extract(path)
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", path, err)
	}

	passages := ref.Refine(segments)
	if len(passages) == 0 {
		return fmt.Errorf("%s produced no passages", path)
	}

	docID := uuid.New().String()
	if meta.Title == "" {
		meta.Title = filepath.Base(path)
	}
	if err := repo.PutMetadata(docID, meta); err != nil {
		return fmt.Errorf("failed to store metadata: %w", err)
	}

	fmt.Printf("Ingesting %s (%d passages)\n", filepath.Base(path), len(passages))
	if cfg.Logging.Verbose() {
		tokens := 0
		for _, p := range passages {
			tokens += p.TokenCount
		}
		fmt.Printf("  %d segments refined into %d passages (%d tokens)\n", len(segments), len(passages), tokens)
	}

	bar := progressbar.NewOptions(len(passages),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Embedding[reset]"),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	job, err := pipeline.StartEmbedding(docID, passages, func(processed, total int) {
		bar.Set(processed)
	})
	if err != nil {
		return fmt.Errorf("failed to start embedding: %w", err)
	}
	if err := job.Wait(); err != nil {
		return fmt.Errorf("embedding failed for %s: %w", path, err)
	}

	// The index grew; anything cached for this document is stale.
	newQueryCache().Invalidate(docID)

	fmt.Printf("Document id: %s\n", docID)
	return nil
}
