// Package migrations contains embedded SQL migration files for the
// SQLite vector store schema.
package migrations

import "embed"

// FS contains all migration files.
//
//go:embed *.sql
var FS embed.FS
