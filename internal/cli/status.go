package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"doclens/internal/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status <doc-id>",
	Short: "Show the embedding job status for a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	docID := args[0]

	repo, err := openRepository()
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer repo.Close()

	status, err := repo.GetStatus(docID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no ingestion recorded for %s", docID)
		}
		return err
	}

	fmt.Printf("Document: %s\n", docID)
	fmt.Printf("State:    %s\n", status.State)
	fmt.Printf("Progress: %d/%d passages\n", status.Processed, status.Total)
	if status.State == domain.JobError && status.Error != "" {
		fmt.Printf("Error:    %s\n", status.Error)
	}
	return nil
}
