package main

import (
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/leopaglia/blumen-installer/internal/cli/newcmd"
	"github.com/leopaglia/blumen-installer/internal/cli/self"
)

// version is overridden at release time with -ldflags "-X main.version=...".
var version = "v0.1.0"

func main() {
	app := &cli.App{
		Name:    "blumen",
		Usage:   "Scaffold a new application from a template archive",
		Version: version,
		Action: func(c *cli.Context) error {
			// Default action if no command is specified
			_ = cli.ShowAppHelp(c)
			return nil
		},
		Commands: []*cli.Command{
			newcmd.NewNewCommand(),
			self.NewSelfCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
