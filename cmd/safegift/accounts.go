package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v2"
)

var roleNames = []string{"deployer", "owner1", "owner2", "taker", "second taker"}

var accountsCmd = &cli.Command{
	Name:  "accounts",
	Usage: "list the accounts derived from MNEMONIC and HD_PATH",
	Action: func(cctx *cli.Context) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cctx.App.Writer, 0, 0, 2, ' ', 0)
		for _, acc := range e.ring.Accounts() {
			role := ""
			if acc.Index < len(roleNames) {
				role = roleNames[acc.Index]
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\n", acc.Index, acc.Address, role)
		}
		return tw.Flush()
	},
}
