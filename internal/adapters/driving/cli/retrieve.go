package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragstore-cli/internal/core/domain"
)

var (
	retrieveDocs []string
	retrieveTopK int
	retrieveJSON bool
)

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Retrieve context for a query",
	Long: `Embeds the query and assembles a diversity-balanced context window
from the selected documents. All stored documents are candidates when
--docs is omitted.`,
	Args: cobra.ExactArgs(1),
	RunE: runRetrieve,
}

func init() {
	retrieveCmd.Flags().StringSliceVar(&retrieveDocs, "docs", nil, "candidate document ids (default: all stored documents)")
	retrieveCmd.Flags().IntVarP(&retrieveTopK, "top-k", "k", 0, "maximum chunks to select (default 15)")
	retrieveCmd.Flags().BoolVar(&retrieveJSON, "json", false, "output result as JSON")
	rootCmd.AddCommand(retrieveCmd)
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	if retrievalService == nil || ingestionService == nil {
		return errNotConfigured
	}

	ctx := context.Background()

	docIDs := retrieveDocs
	if len(docIDs) == 0 {
		infos, err := ingestionService.ListDocuments(ctx)
		if err != nil {
			return fmt.Errorf("listing documents: %w", err)
		}
		for _, info := range infos {
			docIDs = append(docIDs, info.ID)
		}
	}

	result, err := retrievalService.Retrieve(ctx, args[0], docIDs, retrieveTopK)
	if err != nil {
		return fmt.Errorf("retrieval failed: %w", err)
	}

	if retrieveJSON {
		return outputRetrieveJSON(cmd, result)
	}
	return outputRetrieveText(cmd, result)
}

func outputRetrieveJSON(cmd *cobra.Command, result domain.RetrievalResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputRetrieveText(cmd *cobra.Command, result domain.RetrievalResult) error {
	if result.ChunkCount == 0 {
		cmd.Println("No relevant material found.")
		return nil
	}

	cmd.Println(result.Context)
	cmd.Println()
	cmd.Printf("-- %d chunks, %d characters, %d documents covered (%.0f%%)\n",
		result.ChunkCount, result.CharCount, result.DocumentsCovered, result.CoveragePct)
	if len(result.UncoveredDocuments) > 0 {
		cmd.Printf("-- uncovered: %v\n", result.UncoveredDocuments)
	}
	return nil
}
