package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ianlewis/go-dictzip"

	"github.com/japaniel/jdict/internal/logger"
	"github.com/japaniel/jdict/pkg/db"
	"github.com/japaniel/jdict/pkg/dictionary"
)

// BuildOptions configures Build.
type BuildOptions struct {
	// SourcePath is a jmdict-simplified JSON file.
	SourcePath string
	// OutPath is the bundle to write. An existing file is replaced only
	// after the new bundle is complete.
	OutPath string
	// JLPTDir holds VocabList.N*.csv files; empty skips tagging.
	JLPTDir string
	// DictZip also writes OutPath+".dz".
	DictZip   bool
	Workers   int
	BatchSize int
	Readings  ReadingSource
	Logger    *log.Logger
}

// BuildResult describes a finished bundle.
type BuildResult struct {
	Path     string
	DictZip  string
	Stats    IngestStats
	Source   dictionary.SourceInfo
	JLPT     *dictionary.TagStats
	Duration time.Duration
}

// Build converts the source into a new bundle.
func Build(ctx context.Context, opts BuildOptions) (BuildResult, error) {
	start := time.Now()
	res := BuildResult{Path: opts.OutPath}
	l := opts.Logger
	if l == nil {
		l = logger.New("build")
	}

	src, err := os.Open(opts.SourcePath)
	if err != nil {
		return res, err
	}
	defer src.Close()

	if err := os.MkdirAll(filepath.Dir(opts.OutPath), 0o755); err != nil {
		return res, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(opts.OutPath), ".jdict-build-*")
	if err != nil {
		return res, err
	}
	tmpPath := tmp.Name()
	tmp.Close()
	defer os.Remove(tmpPath)

	conn, err := sql.Open("sqlite3", tmpPath)
	if err != nil {
		return res, err
	}
	defer conn.Close()
	conn.SetMaxOpenConns(1)
	for _, pragma := range []string{`PRAGMA journal_mode = OFF`, `PRAGMA synchronous = OFF`} {
		if _, err := conn.Exec(pragma); err != nil {
			return res, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := db.InitDB(conn); err != nil {
		return res, fmt.Errorf("creating schema: %w", err)
	}

	ig := NewIngester(conn)
	if opts.Workers > 0 {
		ig.Workers = opts.Workers
	}
	if opts.BatchSize > 0 {
		ig.BatchSize = opts.BatchSize
	}
	ig.Logger = l
	ig.Readings = opts.Readings
	logged := 0
	ig.OnProgress = func(n int) {
		if n-logged >= 10000 {
			logged = n
			l.Info("written", "entries", n)
		}
	}

	var info dictionary.SourceInfo
	res.Stats, err = ig.Ingest(ctx, func(fn func(dictionary.JMdictEntry) error) error {
		var err error
		info, err = dictionary.StreamJMdict(src, fn)
		return err
	})
	if err != nil {
		return res, err
	}
	res.Source = info

	if opts.JLPTDir != "" {
		vocab, err := dictionary.BuildVocabMap(opts.JLPTDir)
		if err != nil {
			return res, fmt.Errorf("jlpt lists: %w", err)
		}
		stats, err := dictionary.TagJLPT(ctx, conn, vocab)
		if err != nil {
			return res, fmt.Errorf("jlpt tagging: %w", err)
		}
		res.JLPT = &stats
	}

	if err := finalize(conn, opts.SourcePath, info, res.Stats.Written); err != nil {
		return res, err
	}
	if err := conn.Close(); err != nil {
		return res, err
	}
	if err := os.Rename(tmpPath, opts.OutPath); err != nil {
		return res, err
	}

	if opts.DictZip {
		res.DictZip = opts.OutPath + ".dz"
		if err := PackDictzip(opts.OutPath, res.DictZip); err != nil {
			return res, fmt.Errorf("dictzip: %w", err)
		}
	}
	res.Duration = time.Since(start)
	l.Info("bundle built", "path", opts.OutPath, "entries", res.Stats.Written,
		"skipped", res.Stats.Skipped, "took", res.Duration.Round(time.Millisecond))
	return res, nil
}

// finalize rebuilds the full-text index and stamps the bundle metadata.
func finalize(conn *sql.DB, sourcePath string, info dictionary.SourceInfo, count int) error {
	if err := db.RebuildIndex(conn); err != nil {
		return fmt.Errorf("rebuilding index: %w", err)
	}
	if err := db.OptimizeIndex(conn); err != nil {
		return fmt.Errorf("optimizing index: %w", err)
	}
	name := filepath.Base(sourcePath)
	if info.Version != "" {
		name += " " + info.Version
	}
	meta := [][2]string{
		{db.MetaFormatVersion, db.FormatVersion},
		{db.MetaSourceName, name},
		{db.MetaBuiltAt, time.Now().UTC().Format(time.RFC3339)},
		{db.MetaEntryCount, strconv.Itoa(count)},
	}
	for _, kv := range meta {
		if err := db.SetMeta(conn, kv[0], kv[1]); err != nil {
			return fmt.Errorf("writing meta %s: %w", kv[0], err)
		}
	}
	_, err := conn.Exec(`VACUUM`)
	return err
}

// PackDictzip compresses src into a dictzip file at dst. The store reads
// both .dz and plain gzip bundles.
func PackDictzip(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dst)
		}
	}()

	z, err := dictzip.NewWriter(out)
	if err != nil {
		return err
	}
	if _, err := io.Copy(z, in); err != nil {
		z.Close()
		return err
	}
	return z.Close()
}
