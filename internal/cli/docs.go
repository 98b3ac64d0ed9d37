package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"doclens/internal/usecase"
)

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE:  runDocs,
}

func init() {
	rootCmd.AddCommand(docsCmd)
}

func runDocs(cmd *cobra.Command, args []string) error {
	repo, err := openRepository()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer repo.Close()

	infos, err := usecase.ListDocuments(repo)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	if len(infos) == 0 {
		fmt.Println("No documents ingested.")
		return nil
	}

	for _, info := range infos {
		name := info.Name
		if name == "" {
			name = "(untitled)"
		}
		fmt.Printf("%s  %-10s %5d vectors  %s\n", info.ID, info.Status, info.Vectors, name)
	}
	return nil
}
