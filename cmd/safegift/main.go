package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "safegift",
		Usage: "Deploy a Safe with the gift module on a forked chain and run the gift scenarios",
		Commands: []*cli.Command{
			runCmd,
			signCmd,
			forkCmd,
			accountsCmd,
			configCmd,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%+v\n", err)
		os.Exit(1)
	}
}
