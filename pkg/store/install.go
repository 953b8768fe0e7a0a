package store

import (
	"compress/gzip"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/japaniel/jdict/pkg/db"
)

var requiredTables = []string{"dict_index", "dict_extra", "dict_meta", "dict_fts"}

// install copies the bundle into place when the working index is missing.
// The copy lands in a temp file next to the target and is renamed only after
// it validates, so a crash never leaves a half-written index behind.
func (s *Store) install(ctx context.Context) error {
	target := s.opts.IndexPath
	if _, err := os.Stat(target); err == nil {
		s.log.Debug("working index present", "path", target)
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return newInstallError(PhaseCopy, target, err)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return newInstallError(PhaseCopy, target, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".jdict-install-*")
	if err != nil {
		return newInstallError(PhaseCopy, target, err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpPath)
		}
	}()

	n, err := copyBundle(ctx, tmp, s.opts.BundlePath)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return newInstallError(PhaseCopy, s.opts.BundlePath, err)
	}
	s.log.Debug("bundle copied", "from", s.opts.BundlePath, "bytes", n)

	if err := validateFile(ctx, tmpPath); err != nil {
		return newInstallError(PhaseValidate, s.opts.BundlePath, err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return newInstallError(PhaseRename, target, err)
	}
	committed = true
	s.log.Info("dictionary installed", "path", target)
	return nil
}

// copyBundle streams the bundle into w, decompressing .dz and .gz files.
// dictzip files are gzip members with an extra header field, so the gzip
// reader handles both.
func copyBundle(ctx context.Context, w io.Writer, bundle string) (int64, error) {
	f, err := os.Open(bundle)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var r io.Reader = f
	if ext := strings.ToLower(filepath.Ext(bundle)); ext == ".dz" || ext == ".gz" {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return 0, fmt.Errorf("creating bundle gzip reader: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	return io.Copy(w, &ctxReader{ctx: ctx, r: r})
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

func validateFile(ctx context.Context, path string) error {
	conn, err := openReadOnly(path)
	if err != nil {
		return err
	}
	defer conn.Close()
	return validate(ctx, conn)
}

// validate checks that the bundle carries the expected tables and format
// version, and that the full-text index answers queries.
func validate(ctx context.Context, conn *sql.DB) error {
	for _, name := range requiredTables {
		var found string
		err := conn.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE name = ? AND type = 'table'`, name).Scan(&found)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("missing table %s", name)
		}
		if err != nil {
			return fmt.Errorf("reading schema: %w", err)
		}
	}
	meta, err := db.ReadMeta(ctx, conn)
	if err != nil {
		return fmt.Errorf("reading meta: %w", err)
	}
	if v := meta[db.MetaFormatVersion]; v != db.FormatVersion {
		return fmt.Errorf("unsupported bundle format %q, want %q", v, db.FormatVersion)
	}
	var n int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM dict_fts WHERE dict_fts MATCH 'a*'`).Scan(&n); err != nil {
		return fmt.Errorf("probing full-text index: %w", err)
	}
	return nil
}

func openReadOnly(path string) (*sql.DB, error) {
	dsn, err := readOnlyDSN(path)
	if err != nil {
		return nil, err
	}
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

// readOnlyDSN builds a file: URI for path with reserved characters escaped.
func readOnlyDSN(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	p := filepath.ToSlash(abs)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p, RawQuery: "mode=ro"}
	return u.String(), nil
}
