package main

import (
	"github.com/urfave/cli/v2"

	"github.com/japaniel/jdict/pkg/server"
	"github.com/japaniel/jdict/pkg/suggest"
)

var serveCommand = &cli.Command{
	Name:         "serve",
	Usage:        "answer msgpack requests on stdin/stdout",
	OnUsageError: usageError,
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "no-complete",
			Usage: "skip loading the headword completer",
		},
	},
	Action: func(c *cli.Context) error {
		e := getEnv(c)
		st, err := e.openStore(c.Context)
		if err != nil {
			return err
		}
		defer st.Close()

		opts := server.Options{
			Debounce: e.cfg.Session.Debounce(),
			Ready:    st.Ready,
			Logger:   e.log.WithPrefix("server"),
		}
		if opts.Debounce == 0 {
			// A configured zero window runs lookups immediately.
			opts.Debounce = -1
		}
		if !c.Bool("no-complete") {
			comp := suggest.NewCompleter(e.log.WithPrefix("suggest"))
			if err := comp.Load(c.Context, st); err != nil {
				return err
			}
			stats := comp.Stats()
			e.log.Debug("completer ready", "words", stats["totalWords"], "max_priority", stats["maxPriority"])
			opts.Completer = comp
		}
		return server.New(e.newService(st), c.App.Reader, c.App.Writer, opts).Serve(c.Context)
	},
}
