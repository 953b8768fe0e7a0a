package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/japaniel/jdict/pkg/annotate"
)

var annotateCommand = &cli.Command{
	Name:         "annotate",
	Usage:        "gloss the words of a local HTML or text document",
	ArgsUsage:    "FILE",
	OnUsageError: usageError,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "all",
			Usage: "list every occurrence instead of distinct entries",
		},
		&cli.BoolFlag{
			Name:  "text",
			Usage: "treat FILE as plain text",
		},
	},
	Action: func(c *cli.Context) error {
		if c.NArg() != 1 {
			return fmt.Errorf("%w: expected one file", ErrFlagParse)
		}
		path := c.Args().First()
		e := getEnv(c)

		text, title, err := readDocument(path, c.Bool("text"))
		if err != nil {
			return err
		}

		st, err := e.openStore(c.Context)
		if err != nil {
			return err
		}
		defer st.Close()

		analyzer, err := annotate.NewAnalyzer()
		if err != nil {
			return fmt.Errorf("creating analyzer: %w", err)
		}
		anns, err := annotate.New(analyzer, st, e.log.WithPrefix("annotate")).Annotate(c.Context, text)
		if err != nil {
			return err
		}

		if title != "" {
			fmt.Fprintf(c.App.Writer, "%s\n\n", title)
		}
		if c.Bool("all") {
			tbl := newTable(c.App.Writer, "Surface", "Lemma", "Reading", "ID", "Meaning")
			for _, a := range anns {
				if a.Entry == nil {
					tbl.AddRow(a.Surface, a.Lemma, a.Reading, "-", "")
					continue
				}
				tbl.AddRow(a.Surface, a.Lemma, a.Reading, a.Entry.ID, truncate(a.Entry.PrimarySense(), meaningWidth))
			}
			tbl.Print()
			return nil
		}
		printEntries(c.App.Writer, annotate.Glossary(anns))
		return nil
	},
}

func readDocument(path string, plain bool) (text, title string, err error) {
	if plain {
		b, err := os.ReadFile(path)
		if err != nil {
			return "", "", err
		}
		return string(b), "", nil
	}
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", "", err
	}
	doc, err := annotate.Extract(f, &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)})
	if err != nil {
		return "", "", fmt.Errorf("extracting %s: %w", path, err)
	}
	return doc.Text, doc.Title, nil
}
