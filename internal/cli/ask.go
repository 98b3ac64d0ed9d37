package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"doclens/internal/adapter/analyzer"
	"doclens/internal/usecase"
)

var askShowSources bool

var askCmd = &cobra.Command{
	Use:   "ask <doc-id> <question>",
	Short: "Ask a question grounded in one document",
	Long: `Ask retrieves the most relevant passages from the document and generates
an answer grounded in them. Questions about the title, author, or chapters
are answered straight from extracted metadata when available.

Examples:
  doclens ask 4f1c... "What is the main conclusion?"
  doclens ask 4f1c... "Who wrote this?" --sources`,
	Args: cobra.ExactArgs(2),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askShowSources, "sources", false, "print the context passages the answer is grounded on")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	docID, question := args[0], args[1]

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

	answer, err := synthesizer.Ask(docID, question, "")
	if err != nil {
		return err
	}

	fmt.Println(answer.Text)

	if askShowSources && len(answer.Sources) > 0 {
		fmt.Println("\nSources:")
		for i, src := range answer.Sources {
			fmt.Printf("  %d. [%.3f] %s\n", i+1, src.Score, truncate(src.Text, 160))
		}
	}
	return nil
}
