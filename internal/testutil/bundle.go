// Package testutil builds small dictionary bundles for tests.
package testutil

import (
	"compress/gzip"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/ianlewis/go-dictzip"

	"github.com/japaniel/jdict/pkg/db"
)

// SampleEntries returns a small multi-script fixture. IDs are fixed so tests
// can assert on them.
func SampleEntries() []db.Entry {
	return []db.Entry{
		{ID: 1, Kanji: "食べる", Reading: db.Ptr("たべる"), Furigana: db.Ptr("食[た]べる"), Romaji: db.Ptr("taberu"),
			Meaning: "to eat; to live on", Tags: db.Ptr("v1,vt"), Priority: db.Ptr(10),
			Source: db.Ptr(int64(1358280)), Rank: db.Ptr(1),
			Extra: []db.Field{{Key: "jmdict_id", Value: "1358280"}, {Key: "forms", Value: "喰べる"}}},
		{ID: 2, Kanji: "食事", Reading: db.Ptr("しょくじ"), Romaji: db.Ptr("shokuji"),
			Meaning: "meal; to eat a meal", Tags: db.Ptr("n,vs"), Priority: db.Ptr(4999)},
		{ID: 3, Kanji: "飲む", Reading: db.Ptr("のむ"), Romaji: db.Ptr("nomu"),
			Meaning: "to drink; to swallow", Priority: db.Ptr(20)},
		{ID: 4, Kanji: "", Reading: db.Ptr("たべもの"), Romaji: db.Ptr("tabemono"),
			Meaning: "food; provisions", Priority: db.Ptr(30)},
		{ID: 5, Kanji: "目的", Reading: db.Ptr("もくてき"), Romaji: db.Ptr("mokuteki"),
			Meaning: "purpose; goal; aim; object", Priority: db.Ptr(15)},
		{ID: 6, Kanji: "食べ物", Reading: db.Ptr("たべもの"), Romaji: db.Ptr("tabemono"),
			Meaning: "food; object to eat", Priority: db.Ptr(25)},
		{ID: 7, Kanji: "机", Reading: db.Ptr("つくえ"), Romaji: db.Ptr("tsukue"),
			Meaning: "desk"},
	}
}

// BuildBundle writes entries into a fresh bundle at path with the full-text
// index rebuilt and metadata stamped.
func BuildBundle(t testing.TB, path string, entries []db.Entry) {
	t.Helper()
	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open bundle: %v", err)
	}
	defer conn.Close()
	conn.SetMaxOpenConns(1)

	if err := db.InitDB(conn); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	tx, err := conn.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	for _, e := range entries {
		if _, err := db.InsertEntry(tx, e); err != nil {
			tx.Rollback()
			t.Fatalf("insert: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := db.RebuildIndex(conn); err != nil {
		t.Fatalf("rebuild index: %v", err)
	}
	if err := db.SetMeta(conn, db.MetaFormatVersion, db.FormatVersion); err != nil {
		t.Fatalf("meta: %v", err)
	}
	if err := db.SetMeta(conn, db.MetaSourceName, "testutil"); err != nil {
		t.Fatalf("meta: %v", err)
	}
}

// SampleBundle builds the sample fixture in a temp dir and returns its path.
func SampleBundle(t testing.TB) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bundle.db")
	BuildBundle(t, path, SampleEntries())
	return path
}

// Compress writes a compressed copy of src next to it and returns its path.
// With dz set the copy is a dictzip file, otherwise plain gzip.
func Compress(t testing.TB, src string, dz bool) string {
	t.Helper()
	in, err := os.Open(src)
	if err != nil {
		t.Fatal(err)
	}
	defer in.Close()

	ext := ".gz"
	if dz {
		ext = ".dz"
	}
	dst := src + ext
	out, err := os.Create(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer out.Close()

	var w io.WriteCloser
	if dz {
		w, err = dictzip.NewWriter(out)
		if err != nil {
			t.Fatal(err)
		}
	} else {
		w = gzip.NewWriter(out)
	}
	if _, err := io.Copy(w, in); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return dst
}
