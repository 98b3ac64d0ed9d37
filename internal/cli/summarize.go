package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"doclens/internal/adapter/analyzer"
	"doclens/internal/usecase"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <doc-id>",
	Short: "Generate a five-bullet summary of a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(cmd *cobra.Command, args []string) error {
	docID := args[0]

	repo, err := openRepository()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer repo.Close()

	embedder, err := newEmbedder()
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}
	generator, err := newGenerator()
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}

	engine := usecase.NewRetrievalEngine(repo, embedder, analyzer.NewTokenizer(), cfg.Retrieve.MinScore)
	synthesizer := usecase.NewAnswerSynthesizer(repo, engine, generator, newQueryCache(), cfg.Retrieve.TopK)

	summary, err := synthesizer.Summarize(docID)
	if err != nil {
		return err
	}

	fmt.Println(summary)
	return nil
}
