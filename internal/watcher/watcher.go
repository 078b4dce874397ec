// Package watcher auto-ingests plain-text files from a watched
// directory. Create and write events re-ingest the file under a stable
// path-derived document id, so edits replace rather than duplicate;
// remove and rename events delete the document.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/ragstore-cli/internal/core/domain"
	"github.com/custodia-labs/ragstore-cli/internal/core/ports/driving"
	"github.com/custodia-labs/ragstore-cli/internal/logger"
	"github.com/custodia-labs/ragstore-cli/internal/normaliser"
)

// watchedExtensions are the file types picked up by the watcher.
var watchedExtensions = map[string]bool{
	".txt": true,
	".md":  true,
}

// Watcher ingests matching files from a directory as they change.
type Watcher struct {
	ingestor   driving.IngestionService
	dir        string
	moduleCode string
}

// New creates a watcher over the given directory.
func New(ingestor driving.IngestionService, dir, moduleCode string) *Watcher {
	return &Watcher{
		ingestor:   ingestor,
		dir:        dir,
		moduleCode: moduleCode,
	}
}

// Run ingests the existing matching files, then blocks processing
// filesystem events until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	if err := w.ingestExisting(ctx); err != nil {
		return err
	}

	logger.Info("Watching %s", w.dir)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// ingestExisting ingests the files already present in the directory.
func (w *Watcher) ingestExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", w.dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if !w.watchable(path) {
			continue
		}
		w.ingestFile(ctx, path)
	}
	return nil
}

// handleEvent maps a filesystem event to an ingest or delete.
func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !w.watchable(event.Name) {
		return
	}

	switch {
	case event.Op.Has(fsnotify.Create), event.Op.Has(fsnotify.Write):
		if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
			return
		}
		w.ingestFile(ctx, event.Name)

	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		docID := DocumentID(event.Name)
		if deleted, err := w.ingestor.Delete(ctx, docID); err != nil {
			logger.Warn("Deleting %s: %v", docID, err)
		} else if deleted > 0 {
			logger.Info("Removed %s (%d records)", docID, deleted)
		}
	}
}

// ingestFile reads and ingests one file. Failures are logged, not
// fatal: the watch loop keeps running.
func (w *Watcher) ingestFile(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("Reading %s: %v", path, err)
		return
	}

	text := string(data)
	name := filepath.Base(path)
	if normaliser.IsMarkdown(path) {
		name = normaliser.MarkdownTitle(text, path)
		text = normaliser.StripMarkdown(text)
	}

	doc := domain.Document{
		ID:         DocumentID(path),
		Name:       name,
		ModuleCode: w.moduleCode,
	}

	result, err := w.ingestor.Ingest(ctx, doc, text)
	if err != nil {
		logger.Warn("Ingesting %s: %v", path, err)
		return
	}
	logger.Info("Ingested %s: %d chunks", doc.Name, result.ChunksCreated)
}

// watchable reports whether the path is a visible file of a watched
// extension.
func (w *Watcher) watchable(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	return watchedExtensions[strings.ToLower(filepath.Ext(base))]
}

// DocumentID derives a stable document id from a file path, so
// re-ingesting the same file replaces its records.
func DocumentID(path string) string {
	base := filepath.Base(path)
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, base)
	return "file_" + slug
}
