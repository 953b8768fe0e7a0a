package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/japaniel/jdict/pkg/db"
	"github.com/japaniel/jdict/pkg/suggest"
)

const meaningWidth = 60

var lookupCommand = &cli.Command{
	Name:         "lookup",
	Aliases:      []string{"l"},
	Usage:        "search the dictionary",
	ArgsUsage:    "QUERY...",
	OnUsageError: usageError,
	Action: func(c *cli.Context) error {
		e := getEnv(c)
		st, err := e.openStore(c.Context)
		if err != nil {
			return err
		}
		defer st.Close()

		q := strings.Join(c.Args().Slice(), " ")
		entries := e.newService(st).Lookup(c.Context, q)
		if err := c.Context.Err(); err != nil {
			return err
		}
		printEntries(c.App.Writer, entries)
		return nil
	},
}

var browseCommand = &cli.Command{
	Name:         "browse",
	Usage:        "list entries in natural order",
	OnUsageError: usageError,
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "limit",
			Usage:   "show at most `N` entries (default: the configured browse cap)",
			Aliases: []string{"n"},
		},
	},
	Action: func(c *cli.Context) error {
		e := getEnv(c)
		st, err := e.openStore(c.Context)
		if err != nil {
			return err
		}
		defer st.Close()

		printEntries(c.App.Writer, e.newService(st).Browse(c.Context, c.Int("limit")))
		return nil
	},
}

var getCommand = &cli.Command{
	Name:         "get",
	Usage:        "show one entry",
	ArgsUsage:    "ID",
	OnUsageError: usageError,
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return fmt.Errorf("%w: expected one entry id", ErrFlagParse)
		}
		id, err := strconv.ParseInt(c.Args().First(), 10, 64)
		if err != nil {
			return fmt.Errorf("%w: invalid id %q", ErrFlagParse, c.Args().First())
		}

		e := getEnv(c)
		st, err := e.openStore(c.Context)
		if err != nil {
			return err
		}
		defer st.Close()

		entry, ok := e.newService(st).GetByID(c.Context, id)
		if !ok {
			return fmt.Errorf("%w: entry %d", ErrNotFound, id)
		}
		printEntry(c.App.Writer, entry)
		return nil
	},
}

var completeCommand = &cli.Command{
	Name:         "complete",
	Usage:        "complete a headword prefix",
	ArgsUsage:    "PREFIX",
	OnUsageError: usageError,
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "limit",
			Usage:   "show at most `N` headwords",
			Aliases: []string{"n"},
			Value:   10,
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return fmt.Errorf("%w: expected one prefix", ErrFlagParse)
		}
		e := getEnv(c)
		st, err := e.openStore(c.Context)
		if err != nil {
			return err
		}
		defer st.Close()

		comp := suggest.NewCompleter(e.log.WithPrefix("suggest"))
		if err := comp.Load(c.Context, st); err != nil {
			return err
		}
		tbl := newTable(c.App.Writer, "Word", "Priority")
		for _, s := range comp.Complete(c.Args().First(), c.Int("limit")) {
			tbl.AddRow(s.Word, s.Priority)
		}
		tbl.Print()
		return nil
	},
}

func printEntries(w io.Writer, entries []db.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no entries")
		return
	}
	tbl := newTable(w, "ID", "Word", "Reading", "Romaji", "Meaning", "Tags")
	for _, e := range entries {
		tbl.AddRow(e.ID, e.Headword(), db.Deref(e.Reading), db.Deref(e.Romaji),
			truncate(e.Meaning, meaningWidth), db.Deref(e.Tags))
	}
	tbl.Print()
}

func printEntry(w io.Writer, e db.Entry) {
	tbl := newTable(w, "Field", "Value")
	tbl.AddRow("id", e.ID)
	tbl.AddRow("kanji", e.Kanji)
	for _, f := range []struct {
		name string
		v    *string
	}{{"reading", e.Reading}, {"furigana", e.Furigana}, {"romaji", e.Romaji}, {"tags", e.Tags}} {
		if f.v != nil {
			tbl.AddRow(f.name, *f.v)
		}
	}
	if e.Priority != nil {
		tbl.AddRow("priority", *e.Priority)
	}
	for i, s := range e.Senses() {
		tbl.AddRow(fmt.Sprintf("sense %d", i+1), s)
	}
	for _, f := range e.Extra {
		tbl.AddRow(f.Key, f.Value)
	}
	tbl.Print()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
