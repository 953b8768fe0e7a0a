package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/japaniel/jdict/pkg/db"
)

func usageError(_ *cli.Context, err error, _ bool) error {
	return fmt.Errorf("%w: %w", ErrFlagParse, err)
}

var installCommand = &cli.Command{
	Name:         "install",
	Usage:        "install the bundle into the data directory",
	OnUsageError: usageError,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "force",
			Usage: "replace an existing working index",
		},
	},
	Action: func(c *cli.Context) error {
		e := getEnv(c)
		idx := e.cfg.Store.IndexPath()
		if c.Bool("force") {
			if err := os.Remove(idx); err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}
		}
		st, err := e.openStore(c.Context)
		if err != nil {
			return err
		}
		defer st.Close()

		meta, err := st.Meta(c.Context)
		if err != nil {
			return err
		}
		tbl := newTable(c.App.Writer, "Key", "Value")
		tbl.AddRow("index", idx)
		for _, k := range []string{db.MetaFormatVersion, db.MetaSourceName, db.MetaBuiltAt, db.MetaEntryCount} {
			if v, ok := meta[k]; ok {
				tbl.AddRow(k, v)
			}
		}
		tbl.Print()
		return nil
	},
}
