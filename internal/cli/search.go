package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"doclens/internal/adapter/analyzer"
	"doclens/internal/usecase"
)

var (
	searchTopK   int
	searchJSON   bool
	searchExpand bool
)

var searchCmd = &cobra.Command{
	Use:   "search <doc-id> <query>",
	Short: "Retrieve the most relevant passages without generating an answer",
	Long: `Search runs the retrieval pipeline alone and prints the ranked passages
with their scores and diagnostics. Useful for inspecting why an answer was
grounded the way it was.

Examples:
  doclens search 4f1c... "liability clauses"
  doclens search 4f1c... "liability clauses" --json --top-k 12`,
	Args: cobra.ExactArgs(2),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of passages to return (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "emit the full result as JSON")
	searchCmd.Flags().BoolVar(&searchExpand, "expand", true, "expand the query with intent hint terms")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	docID, query := args[0], args[1]

	repo, err := openRepository()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer repo.Close()

	embedder, err := newEmbedder()
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	engine := usecase.NewRetrievalEngine(repo, embedder, analyzer.NewTokenizer(), cfg.Retrieve.MinScore)

	topK := searchTopK
	if topK <= 0 {
		topK = cfg.Retrieve.TopK
	}

	retrievalQuery := query
	if searchExpand {
		retrievalQuery = usecase.ExpandQuery(query)
	}

	result, err := engine.Retrieve(docID, query, retrievalQuery, topK)
	if err != nil {
		return err
	}

	if searchJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if len(result.Passages) == 0 {
		fmt.Println("No matching passages.")
		return nil
	}

	for i, p := range result.Passages {
		fmt.Printf("%d. [%.3f] %s\n", i+1, p.Score, truncate(p.Text, 200))
	}

	d := result.Diagnostics
	fmt.Printf("\ntop score %.3f, index dim %d", d.TopScore, d.IndexDimension)
	if d.DimensionMismatch {
		fmt.Printf(", query dim %d (mismatch)", d.QueryDimension)
	}
	if d.Lexical {
		fmt.Print(", lexical fallback")
	}
	fmt.Println()
	return nil
}
