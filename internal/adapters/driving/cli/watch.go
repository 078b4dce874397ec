package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragstore-cli/internal/watcher"
)

var watchModule string

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Watch a directory and auto-ingest text files",
	Long: `Ingests the .txt and .md files in a directory and keeps them in sync:
file edits re-ingest, deletions remove the stored document. Runs until
interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchModule, "module", "", "module code to tag ingested documents with")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestionService == nil {
		return errNotConfigured
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w := watcher.New(ingestionService, args[0], watchModule)

	err := w.Run(ctx)
	if errors.Is(err, context.Canceled) {
		cmd.Println("Watch stopped.")
		return nil
	}
	return err
}
