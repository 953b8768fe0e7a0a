package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
	"sigs.k8s.io/release-utils/version"
)

var versionCommand = &cli.Command{
	Name:   "version",
	Usage:  "print version information",
	Action: printVersion,
}

func printVersion(c *cli.Context) error {
	info := version.GetVersionInfo()
	fmt.Fprintln(c.App.Writer, info.String())
	return nil
}
