package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/japaniel/jdict/pkg/annotate"
	"github.com/japaniel/jdict/pkg/dictionary"
	"github.com/japaniel/jdict/pkg/ingest"
)

var buildCommand = &cli.Command{
	Name:         "build",
	Usage:        "build a bundle from jmdict-simplified JSON",
	OnUsageError: usageError,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "source",
			Usage: "jmdict-simplified JSON `FILE` (default: build.source_path)",
		},
		&cli.StringFlag{
			Name:    "out",
			Usage:   "write the bundle to `FILE` (default: store.bundle_path)",
			Aliases: []string{"o"},
		},
		&cli.StringFlag{
			Name:  "jlpt-dir",
			Usage: "tag JLPT levels from VocabList.N*.csv files in `DIR`",
		},
		&cli.BoolFlag{
			Name:  "dictzip",
			Usage: "also write a dictzip-compressed copy",
		},
		&cli.BoolFlag{
			Name:  "fetch",
			Usage: "download the latest source when it is missing",
		},
		&cli.BoolFlag{
			Name:  "watch",
			Usage: "rebuild whenever the source changes",
		},
		&cli.BoolFlag{
			Name:  "no-readings",
			Usage: "do not fill missing readings with the morphological analyzer",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "convert entries on `N` workers (default: build.workers)",
		},
		&cli.IntFlag{
			Name:  "batch-size",
			Usage: "commit every `N` rows (default: build.batch_size)",
		},
	},
	Action: func(c *cli.Context) error {
		e := getEnv(c)
		opts := ingest.BuildOptions{
			SourcePath: firstNonEmpty(c.String("source"), e.cfg.Build.SourcePath),
			OutPath:    firstNonEmpty(c.String("out"), e.cfg.Store.BundlePath),
			JLPTDir:    firstNonEmpty(c.String("jlpt-dir"), e.cfg.Build.JLPTDir),
			DictZip:    c.Bool("dictzip"),
			Workers:    firstPositive(c.Int("workers"), e.cfg.Build.Workers),
			BatchSize:  firstPositive(c.Int("batch-size"), e.cfg.Build.BatchSize),
			Logger:     e.log.WithPrefix("build"),
		}
		if !c.Bool("no-readings") {
			analyzer, err := annotate.NewAnalyzer()
			if err != nil {
				return fmt.Errorf("creating analyzer: %w", err)
			}
			opts.Readings = analyzer
		}

		build := func(ctx context.Context) error {
			if c.Bool("fetch") {
				if err := dictionary.EnsureDictionary(ctx, opts.SourcePath); err != nil {
					return err
				}
			}
			if _, err := os.Stat(opts.SourcePath); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("%w: %s (use --fetch to download it)", ErrNoSource, opts.SourcePath)
			}
			res, err := ingest.Build(ctx, opts)
			if err != nil {
				return err
			}
			printBuildResult(c, res)
			return nil
		}

		if err := build(c.Context); err != nil {
			return err
		}
		if !c.Bool("watch") {
			return nil
		}
		w := &ingest.SourceWatcher{
			Path:    opts.SourcePath,
			Settle:  time.Second,
			Rebuild: build,
			Logger:  e.log.WithPrefix("watch"),
		}
		return w.Run(c.Context)
	},
}

func printBuildResult(c *cli.Context, res ingest.BuildResult) {
	tbl := newTable(c.App.Writer, "Key", "Value")
	tbl.AddRow("bundle", res.Path)
	if res.DictZip != "" {
		tbl.AddRow("dictzip", res.DictZip)
	}
	if res.Source.Version != "" {
		tbl.AddRow("source version", res.Source.Version)
	}
	tbl.AddRow("read", res.Stats.Read)
	tbl.AddRow("written", res.Stats.Written)
	tbl.AddRow("skipped", res.Stats.Skipped)
	if res.JLPT != nil {
		tbl.AddRow("jlpt tagged", res.JLPT.Updated)
	}
	tbl.AddRow("took", res.Duration.Round(time.Millisecond))
	tbl.Print()
}

var tagJLPTCommand = &cli.Command{
	Name:         "tag-jlpt",
	Usage:        "add JLPT level tags to an existing bundle",
	ArgsUsage:    "[BUNDLE]",
	OnUsageError: usageError,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "jlpt-dir",
			Usage: "read VocabList.N*.csv files from `DIR` (default: build.jlpt_dir)",
		},
	},
	Action: func(c *cli.Context) error {
		e := getEnv(c)
		dir := firstNonEmpty(c.String("jlpt-dir"), e.cfg.Build.JLPTDir)
		if dir == "" {
			return fmt.Errorf("%w: --jlpt-dir is required", ErrFlagParse)
		}
		path := firstNonEmpty(c.Args().First(), e.cfg.Store.BundlePath)
		if _, err := os.Stat(path); err != nil {
			return err
		}

		vocab, err := dictionary.BuildVocabMap(dir)
		if err != nil {
			return err
		}
		conn, err := sql.Open("sqlite3", path)
		if err != nil {
			return err
		}
		defer conn.Close()
		conn.SetMaxOpenConns(1)

		stats, err := dictionary.TagJLPT(c.Context, conn, vocab)
		if err != nil {
			return err
		}
		tbl := newTable(c.App.Writer, "Match", "Rows")
		tbl.AddRow("processed", stats.Processed)
		tbl.AddRow("kanji", stats.KanjiMatches)
		tbl.AddRow("kana only", stats.KanaOnlyMatches)
		tbl.AddRow("ambiguous accepted", stats.AmbiguousAccepted)
		tbl.AddRow("ambiguous rejected", stats.AmbiguousRejected)
		tbl.AddRow("no match", stats.NoMatch)
		tbl.AddRow("already tagged", stats.AlreadyTagged)
		tbl.AddRow("updated", stats.Updated)
		tbl.Print()
		return nil
	},
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
