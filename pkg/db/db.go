// Package db owns the on-disk layout of a dictionary bundle: the entry
// table, its ordered extension fields, bundle metadata and the full-text
// index over the searchable columns.
package db

import (
	"database/sql"
	_ "embed"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// FormatVersion is stamped into dict_meta by the builder and checked on install.
const FormatVersion = "1"

// InitDB creates the bundle schema on the given DB connection.
func InitDB(db *sql.DB) error {
	stmts := strings.Split(schemaSQL, ";")
	for _, s := range stmts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// RebuildIndex repopulates the full-text index from dict_index. The index uses
// external content, so it must be rebuilt after rows are written.
func RebuildIndex(db DBExecutor) error {
	_, err := db.Exec(`INSERT INTO dict_fts(dict_fts) VALUES('rebuild')`)
	return err
}

// OptimizeIndex merges the full-text index b-trees. Bundles are read-only
// after building so this is run once at the end.
func OptimizeIndex(db DBExecutor) error {
	_, err := db.Exec(`INSERT INTO dict_fts(dict_fts) VALUES('optimize')`)
	return err
}
