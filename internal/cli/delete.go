package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <doc-id>",
	Short: "Delete a document's index, status, and metadata",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	docID := args[0]

	repo, err := openRepository()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer repo.Close()

	if err := repo.Delete(docID); err != nil {
		return fmt.Errorf("failed to delete %s: %w", docID, err)
	}
	newQueryCache().Invalidate(docID)

	fmt.Printf("Deleted %s\n", docID)
	return nil
}
