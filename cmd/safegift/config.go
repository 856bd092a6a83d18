package main

import (
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

var configCmd = &cli.Command{
	Name:  "config",
	Usage: "print the resolved project file",
	Action: func(cctx *cli.Context) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		enc := yaml.NewEncoder(cctx.App.Writer)
		enc.SetIndent(2)
		if err := enc.Encode(e.project); err != nil {
			return err
		}
		return enc.Close()
	},
}
