package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// DBExecutor is an interface that allows methods to accept either *sql.DB or *sql.Tx
type DBExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// EntryColumns is the dict_index column list in ScanEntry order, qualified
// with the alias d.
const EntryColumns = `d.id, d.source, d.kanji, d.reading, d.furigana, d.romaji, d.meaning, d.tags, d.priority, d.rank`

// RowScanner is implemented by *sql.Row and *sql.Rows.
type RowScanner interface {
	Scan(dest ...interface{}) error
}

// ScanEntry reads one row selected with EntryColumns. Extension fields are
// not loaded; see LoadExtras.
func ScanEntry(r RowScanner) (Entry, error) {
	var e Entry
	var source, priority, rank sql.NullInt64
	var reading, furigana, romaji, tags sql.NullString
	if err := r.Scan(&e.ID, &source, &e.Kanji, &reading, &furigana, &romaji, &e.Meaning, &tags, &priority, &rank); err != nil {
		return Entry{}, err
	}
	if source.Valid {
		e.Source = Ptr(source.Int64)
	}
	e.Reading = nullString(reading)
	e.Furigana = nullString(furigana)
	e.Romaji = nullString(romaji)
	e.Tags = nullString(tags)
	e.Priority = nullInt(priority)
	e.Rank = nullInt(rank)
	return e, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return Ptr(s.String)
}

func nullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	return Ptr(int(n.Int64))
}

// nullable returns nil for a nil pointer so the driver stores NULL.
func nullable[T any](p *T) interface{} {
	if p == nil {
		return nil
	}
	return *p
}

// InsertEntry writes the entry and its extension fields. A zero ID lets
// SQLite assign one; the stored id is returned.
func InsertEntry(db DBExecutor, e Entry) (int64, error) {
	var id interface{}
	if e.ID > 0 {
		id = e.ID
	}
	res, err := db.Exec(`INSERT INTO dict_index (id, source, kanji, reading, furigana, romaji, meaning, tags, priority, rank)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, nullable(e.Source), e.Kanji, nullable(e.Reading), nullable(e.Furigana), nullable(e.Romaji),
		e.Meaning, nullable(e.Tags), nullable(e.Priority), nullable(e.Rank))
	if err != nil {
		return 0, fmt.Errorf("insert entry %q: %w", e.Headword(), err)
	}
	entryID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	for i, f := range e.Extra {
		if _, err := db.Exec(`INSERT INTO dict_extra (entry_id, position, key, value) VALUES (?, ?, ?, ?)`,
			entryID, i, f.Key, f.Value); err != nil {
			return 0, fmt.Errorf("insert extra %q for entry %d: %w", f.Key, entryID, err)
		}
	}
	return entryID, nil
}

// LoadExtras attaches extension fields to the given entries in place.
func LoadExtras(ctx context.Context, db DBExecutor, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	pos := make(map[int64]int, len(entries))
	for i, e := range entries {
		pos[e.ID] = i
	}
	for start := 0; start < len(entries); start += extrasChunk {
		end := min(start+extrasChunk, len(entries))
		if err := loadExtrasChunk(ctx, db, entries, entries[start:end], pos); err != nil {
			return err
		}
	}
	return nil
}

// extrasChunk bounds the number of bound parameters per query, well under
// SQLite's variable limit.
const extrasChunk = 500

func loadExtrasChunk(ctx context.Context, db DBExecutor, entries, chunk []Entry, pos map[int64]int) error {
	ids := make([]interface{}, 0, len(chunk))
	for _, e := range chunk {
		ids = append(ids, e.ID)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	rows, err := db.QueryContext(ctx,
		`SELECT entry_id, key, value FROM dict_extra WHERE entry_id IN (`+placeholders+`) ORDER BY entry_id, position`, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var f Field
		if err := rows.Scan(&id, &f.Key, &f.Value); err != nil {
			return err
		}
		if i, ok := pos[id]; ok {
			entries[i].Extra = append(entries[i].Extra, f)
		}
	}
	return rows.Err()
}

// UpdateTags replaces the tags of an entry.
func UpdateTags(db DBExecutor, id int64, tags string) error {
	if id <= 0 {
		return fmt.Errorf("entry id must be positive")
	}
	_, err := db.Exec(`UPDATE dict_index SET tags = ? WHERE id = ?`, tags, id)
	return err
}

// SetMeta upserts a metadata value.
func SetMeta(db DBExecutor, key, value string) error {
	_, err := db.Exec(`INSERT INTO dict_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// ReadMeta returns all metadata of a bundle.
func ReadMeta(ctx context.Context, db DBExecutor) (map[string]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT key, value FROM dict_meta`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

// CountEntries returns the number of rows in dict_index.
func CountEntries(ctx context.Context, db DBExecutor) (int, error) {
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dict_index`).Scan(&n)
	return n, err
}
