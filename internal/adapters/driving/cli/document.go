package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage stored documents",
	Long:  `List, verify, or delete documents in the vector store.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

var documentVerifyCmd = &cobra.Command{
	Use:   "verify [doc-id] [expected-chunks]",
	Short: "Verify a document's stored chunk count",
	Args:  cobra.ExactArgs(2),
	RunE:  runDocumentVerify,
}

func init() {
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(documentVerifyCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if ingestionService == nil {
		return errNotConfigured
	}

	docs, err := ingestionService.ListDocuments(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents stored.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		cmd.Printf("  %s\n", docs[i].ID)
		cmd.Printf("    Name:     %s\n", docs[i].Name)
		cmd.Printf("    Chunks:   %d\n", docs[i].ChunkCount)
		cmd.Printf("    Ingested: %s\n", docs[i].IngestedAt.Format("2006-01-02 15:04:05"))
		cmd.Println()
	}

	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errNotConfigured
	}

	docID := args[0]
	deleted, err := ingestionService.Delete(context.Background(), docID)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	if deleted == 0 {
		cmd.Printf("No records found for document %s.\n", docID)
		return nil
	}

	cmd.Printf("Deleted %d records for document %s.\n", deleted, docID)
	return nil
}

func runDocumentVerify(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errNotConfigured
	}

	docID := args[0]
	expected, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid expected chunk count %q: %w", args[1], err)
	}

	ok, err := ingestionService.Verify(context.Background(), docID, expected)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	if !ok {
		return fmt.Errorf("document %s failed verification: expected %d chunks", docID, expected)
	}

	cmd.Printf("Document %s verified: %d chunks persisted.\n", docID, expected)
	return nil
}
