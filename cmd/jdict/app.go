package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/rodaine/table"
	"github.com/urfave/cli/v2"

	"github.com/japaniel/jdict/internal/logger"
	"github.com/japaniel/jdict/pkg/config"
	"github.com/japaniel/jdict/pkg/lookup"
	"github.com/japaniel/jdict/pkg/store"
)

const (
	// ExitCodeSuccess is successful error code.
	ExitCodeSuccess int = iota

	// ExitCodeFlagParseError is the exit code for a flag parsing error.
	ExitCodeFlagParseError

	// ExitCodeUnknownError is the exit code for an unknown error.
	ExitCodeUnknownError

	// ExitCodeInstallError is the exit code when the bundle cannot be installed.
	ExitCodeInstallError

	// ExitCodeNotFound is the exit code when a requested entry does not exist.
	ExitCodeNotFound
)

// ErrJdict is a parent error for all command errors.
var ErrJdict = errors.New("jdict")

// ErrFlagParse is a flag parsing error.
var ErrFlagParse = fmt.Errorf("%w: parsing flags", ErrJdict)

// ErrNotFound indicates a requested entry does not exist.
var ErrNotFound = fmt.Errorf("%w: not found", ErrJdict)

// ErrNoSource indicates the build source is missing and fetching is off.
var ErrNoSource = fmt.Errorf("%w: dictionary source not found", ErrJdict)

const envKey = "env"

// env is the per-invocation state shared by commands.
type env struct {
	cfg     *config.Config
	cfgPath string
	log     *log.Logger
}

func getEnv(c *cli.Context) *env {
	if e, ok := c.App.Metadata[envKey].(*env); ok {
		return e
	}
	// Before did not run, e.g. when a command is invoked directly in tests.
	return loadEnv(c)
}

func loadEnv(c *cli.Context) *env {
	cfg, path := config.LoadWithPriority(c.String("config"))
	level := cfg.Log.Level
	if c.Bool("debug") {
		level = "debug"
	}
	if !logger.SetLevel(level) {
		log.Warn("unknown log level, keeping default", "level", level)
	}
	if dir := c.String("data-dir"); dir != "" {
		cfg.Store.DataDir = dir
	}
	if bundle := c.String("bundle"); bundle != "" {
		cfg.Store.BundlePath = bundle
	}
	return &env{cfg: cfg, cfgPath: path, log: logger.New("jdict")}
}

// openStore installs the bundle if needed and opens the index.
func (e *env) openStore(ctx context.Context) (*store.Store, error) {
	st := store.New(store.Options{
		BundlePath: e.cfg.Store.BundlePath,
		IndexPath:  e.cfg.Store.IndexPath(),
		OrderBy:    e.cfg.Search.OrderBy,
		Logger:     logger.New("store"),
	})
	if err := st.Initialize(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

func (e *env) newService(st *store.Store) *lookup.Service {
	return lookup.NewService(st, lookup.Options{
		ResultCap:      e.cfg.Search.ResultCap,
		BrowseCap:      e.cfg.Search.BrowseCap,
		CandidateLimit: e.cfg.Search.CandidateLimit,
		Logger:         logger.New("lookup"),
	})
}

func newTable(w io.Writer, headers ...interface{}) table.Table {
	return table.New(headers...).
		WithWriter(w).
		WithHeaderFormatter(func(format string, vals ...interface{}) string {
			return strings.ToUpper(fmt.Sprintf(format, vals...))
		})
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "jdict",
		Usage: "Offline Japanese-English dictionary.",
		Description: strings.Join([]string{
			"Search an installed JMdict bundle by Japanese script, romaji or English.",
			"Build bundles from jmdict-simplified JSON with the build command.",
		}, "\n"),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "load configuration from `FILE`",
				Aliases: []string{"c"},
				EnvVars: []string{"JDICT_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "bundle",
				Usage: "dictionary bundle `PATH` (.db, .db.dz or .db.gz)",
			},
			&cli.StringFlag{
				Name:  "data-dir",
				Usage: "install the working index in `DIR`",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "enable debug logging",
				Aliases: []string{"d"},
			},
			&cli.BoolFlag{
				Name:               "version",
				Usage:              "print version information and exit",
				Aliases:            []string{"V"},
				DisableDefaultText: true,
			},
		},
		HideVersion: true,
		Metadata:    map[string]interface{}{},
		Writer:      os.Stdout,
		ErrWriter:   os.Stderr,
		Reader:      os.Stdin,
		Before: func(c *cli.Context) error {
			c.App.Metadata[envKey] = loadEnv(c)
			return nil
		},
		OnUsageError: func(_ *cli.Context, err error, _ bool) error {
			return fmt.Errorf("%w: %w", ErrFlagParse, err)
		},
		Action: func(c *cli.Context) error {
			if c.Bool("version") {
				return printVersion(c)
			}
			return cli.ShowAppHelp(c)
		},
		Commands: []*cli.Command{
			installCommand,
			lookupCommand,
			getCommand,
			browseCommand,
			completeCommand,
			annotateCommand,
			serveCommand,
			buildCommand,
			tagJLPTCommand,
			versionCommand,
		},
	}
}
