// Package sqlite provides a persistent SQLite-backed vector store.
// Embeddings are stored as little-endian float32 blobs and ranked with
// a brute-force cosine scan over the filter-matched rows.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/ragstore-cli/internal/adapters/driven/vectorstore/sqlite/migrations"
	"github.com/custodia-labs/ragstore-cli/internal/core/domain"
	"github.com/custodia-labs/ragstore-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Store is a SQLite-backed implementation of driven.VectorStore.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite vector store at the specified data
// directory. If dataDir is empty, defaults to ~/.ragstore/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".ragstore", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "vectors.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// Add upserts records built from four parallel slices inside a single
// transaction, so a failed write leaves no partial batch behind.
func (s *Store) Add(ctx context.Context, ids []string, embeddings [][]float32, metadatas []domain.RecordMetadata, texts []string) error {
	if len(ids) != len(embeddings) || len(ids) != len(metadatas) || len(ids) != len(texts) {
		return fmt.Errorf("%w: ids=%d embeddings=%d metadatas=%d texts=%d",
			domain.ErrInvalidInput, len(ids), len(embeddings), len(metadatas), len(texts))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records (id, document_id, document_name, chunk_index, chunk_total, module_code, ingested_at, content, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			document_name = excluded.document_name,
			chunk_index = excluded.chunk_index,
			chunk_total = excluded.chunk_total,
			module_code = excluded.module_code,
			ingested_at = excluded.ingested_at,
			content = excluded.content,
			embedding = excluded.embedding
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, id := range ids {
		meta := metadatas[i]
		if _, err := stmt.ExecContext(ctx, id, meta.DocumentID, meta.DocumentName,
			meta.ChunkIndex, meta.ChunkTotal, meta.ModuleCode, meta.IngestedAt.UTC(),
			texts[i], float32SliceToBytes(embeddings[i])); err != nil {
			return fmt.Errorf("inserting record %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// Query loads the filter-matched records and ranks them by cosine
// similarity descending. Rows are scanned in rowid order, which keeps
// insertion order as the stable tie-break for equal similarities.
func (s *Store) Query(ctx context.Context, embedding []float32, topK int, filter domain.Filter) ([]domain.RetrievalMatch, error) {
	if topK <= 0 {
		return nil, nil
	}

	records, err := s.GetByFilter(ctx, filter)
	if err != nil {
		return nil, err
	}

	type scored struct {
		order      int
		similarity float64
		record     domain.StoredRecord
	}

	candidates := make([]scored, len(records))
	for i, rec := range records {
		candidates[i] = scored{
			order:      i,
			similarity: cosineSimilarity(embedding, rec.Embedding),
			record:     rec,
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].similarity > candidates[j].similarity
	})

	if topK > len(candidates) {
		topK = len(candidates)
	}

	matches := make([]domain.RetrievalMatch, topK)
	for i := 0; i < topK; i++ {
		matches[i] = domain.RetrievalMatch{
			VectorID:   candidates[i].record.VectorID,
			Similarity: candidates[i].similarity,
			Text:       candidates[i].record.Text,
			Metadata:   candidates[i].record.Metadata,
		}
	}

	return matches, nil
}

// GetByFilter returns every matching record in insertion order.
func (s *Store) GetByFilter(ctx context.Context, filter domain.Filter) ([]domain.StoredRecord, error) {
	where, args := filterClause(filter)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, document_name, chunk_index, chunk_total, module_code, ingested_at, content, embedding
		FROM records
	`+where+`
		ORDER BY rowid ASC
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	var records []domain.StoredRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	return records, nil
}

// DeleteByFilter removes all matching records and reports how many.
func (s *Store) DeleteByFilter(ctx context.Context, filter domain.Filter) (int, error) {
	where, args := filterClause(filter)

	result, err := s.db.ExecContext(ctx, "DELETE FROM records"+where, args...)
	if err != nil {
		return 0, fmt.Errorf("deleting records: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted records: %w", err)
	}
	return int(affected), nil
}

// filterClause translates a domain filter into a WHERE clause. An exact
// document id takes precedence over a document id set; a zero filter
// yields no clause and matches everything.
func filterClause(filter domain.Filter) (string, []any) {
	var conds []string
	var args []any

	switch {
	case filter.DocumentID != "":
		conds = append(conds, "document_id = ?")
		args = append(args, filter.DocumentID)
	case len(filter.DocumentIDs) > 0:
		placeholders := strings.Repeat("?, ", len(filter.DocumentIDs))
		conds = append(conds, "document_id IN ("+placeholders[:len(placeholders)-2]+")")
		for _, id := range filter.DocumentIDs {
			args = append(args, id)
		}
	}

	if filter.ModuleCode != "" {
		conds = append(conds, "module_code = ?")
		args = append(args, filter.ModuleCode)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// scanRecord scans a single record row.
func scanRecord(rows *sql.Rows) (domain.StoredRecord, error) {
	var rec domain.StoredRecord
	var embeddingBlob []byte

	if err := rows.Scan(&rec.VectorID, &rec.Metadata.DocumentID, &rec.Metadata.DocumentName,
		&rec.Metadata.ChunkIndex, &rec.Metadata.ChunkTotal, &rec.Metadata.ModuleCode,
		&rec.Metadata.IngestedAt, &rec.Text, &embeddingBlob); err != nil {
		return rec, fmt.Errorf("scanning record: %w", err)
	}

	rec.Embedding = bytesToFloat32Slice(embeddingBlob)
	return rec, nil
}

// float32SliceToBytes converts a float32 slice to a little-endian byte
// slice for BLOB storage.
func float32SliceToBytes(floats []float32) []byte {
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched dimensions or zero vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
