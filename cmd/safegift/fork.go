package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/arnac-io/safegift/pkg/chain"
)

var forkCmd = &cli.Command{
	Name:  "fork",
	Usage: "reset the node to a fork of ETH_URL (or PROVIDER_URL) at FORK_BLOCK",
	Flags: []cli.Flag{
		&cli.Uint64Flag{Name: "block", Usage: "overrides FORK_BLOCK, 0 forks the latest block"},
		&cli.Uint64Flag{Name: "timestamp", Usage: "mine one block with this timestamp after the reset"},
	},
	Action: func(cctx *cli.Context) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		backend, _, err := e.backend(cctx.Context)
		if err != nil {
			return err
		}
		defer backend.Close()
		block := e.cfg.Node.ForkBlock
		if cctx.IsSet("block") {
			block = cctx.Uint64("block")
		}
		number, err := forkNode(cctx.Context, backend, e.forkURL(), block, cctx.Uint64("timestamp"))
		if err != nil {
			return err
		}
		e.log.Info("node forked", zap.Uint64("block", number))
		fmt.Fprintln(cctx.App.Writer, number)
		return nil
	},
}

// forkNode resets backend to a fork of url at block and returns the latest block number.
// A non-zero timestamp is given to one freshly mined block.
func forkNode(ctx context.Context, backend chain.Backend, url string, block, timestamp uint64) (uint64, error) {
	forker, ok := backend.(chain.Forker)
	if !ok {
		return 0, fmt.Errorf("backend %T cannot fork", backend)
	}
	if err := forker.Fork(ctx, url, block); err != nil {
		return 0, err
	}
	if timestamp != 0 {
		clock, ok := backend.(chain.Clock)
		if !ok {
			return 0, fmt.Errorf("backend %T cannot set block timestamps", backend)
		}
		if err := clock.SetNextBlockTimestamp(ctx, timestamp); err != nil {
			return 0, err
		}
		if err := clock.Mine(ctx); err != nil {
			return 0, err
		}
	}
	return backend.BlockNumber(ctx)
}
