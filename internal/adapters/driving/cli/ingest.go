package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragstore-cli/internal/core/domain"
	"github.com/custodia-labs/ragstore-cli/internal/normaliser"
)

var (
	ingestID     string
	ingestName   string
	ingestModule string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Ingest a document into the store",
	Long: `Chunks a plain-text document, embeds the chunks and writes them to
the vector store. Reads from stdin when no file is given. Re-ingesting
an existing document id replaces its stored chunks.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestID, "id", "", "document id (generated when empty)")
	ingestCmd.Flags().StringVar(&ingestName, "name", "", "document display name (defaults to file name)")
	ingestCmd.Flags().StringVar(&ingestModule, "module", "", "module code to tag the document with")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errNotConfigured
	}

	text, defaultName, err := readIngestInput(args)
	if err != nil {
		return err
	}

	doc := domain.Document{
		ID:         ingestID,
		Name:       ingestName,
		ModuleCode: ingestModule,
	}
	if doc.ID == "" {
		doc.ID = NewDocumentID(time.Now())
	}
	if doc.Name == "" {
		doc.Name = defaultName
	}

	result, err := ingestionService.Ingest(context.Background(), doc, text)
	if err != nil {
		var ingestErr *domain.IngestError
		if errors.As(err, &ingestErr) {
			return fmt.Errorf("ingestion failed at %s stage: %w", ingestErr.Stage, ingestErr.Err)
		}
		return fmt.Errorf("ingestion failed: %w", err)
	}

	cmd.Printf("Ingested document %s (%q): %d chunks\n", result.DocumentID, doc.Name, result.ChunksCreated)
	return nil
}

// readIngestInput returns the document text and a default display name,
// from the file argument or stdin.
func readIngestInput(args []string) (string, string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), "stdin", nil
	}

	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("reading %s: %w", path, err)
	}

	text := string(data)
	name := filepath.Base(path)
	if normaliser.IsMarkdown(path) {
		name = normaliser.MarkdownTitle(text, path)
		text = normaliser.StripMarkdown(text)
	}
	return text, name, nil
}

// NewDocumentID generates a timestamped document id with a short random
// suffix, e.g. doc_20260115_093042_1a2b3c4d.
func NewDocumentID(now time.Time) string {
	return fmt.Sprintf("doc_%s_%s", now.Format("20060102_150405"), uuid.NewString()[:8])
}
