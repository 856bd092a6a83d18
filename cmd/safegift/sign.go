package main

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"github.com/arnac-io/safegift/pkg/core"
	"github.com/arnac-io/safegift/pkg/safe"
)

var signCmd = &cli.Command{
	Name:      "sign",
	Usage:     "sign a Safe transaction with owner keys and print the aggregated signatures",
	ArgsUsage: "[safeTxHash]",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "safe", Usage: "Safe proxy address"},
		&cli.Int64Flag{Name: "chain-id", Value: 31337, Usage: "0 hashes with the legacy domain"},
		&cli.StringFlag{Name: "to", Usage: "transaction target, defaults to the Safe itself"},
		&cli.StringFlag{Name: "value", Value: "0", Usage: "wei"},
		&cli.StringFlag{Name: "data", Value: "0x"},
		&cli.Uint64Flag{Name: "nonce"},
		&cli.IntSliceFlag{Name: "owner", Value: cli.NewIntSlice(1, 2), Usage: "account indexes of the signing owners"},
		&cli.BoolFlag{Name: "eth-sign", Usage: "sign with the eth_sign prefix"},
	},
	Action: func(cctx *cli.Context) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		hash, err := signHash(cctx)
		if err != nil {
			return err
		}
		var signers []safe.Signer
		for _, i := range cctx.IntSlice("owner") {
			acc, err := e.ring.Account(i)
			if err != nil {
				return err
			}
			signers = append(signers, acc.Signer())
		}
		mode := safe.DigestMode
		if cctx.Bool("eth-sign") {
			mode = safe.EthSignMode
		}
		blob, err := safe.NewAggregator(safe.WithSignMode(mode)).SignBlob(hash, signers...)
		if err != nil {
			return err
		}
		fmt.Fprintf(cctx.App.Writer, "safeTxHash: %s\nsignatures: %s\n", hash, hexutil.Encode(blob))
		return nil
	},
}

func signHash(cctx *cli.Context) (common.Hash, error) {
	if cctx.Args().Present() {
		b, err := hexutil.Decode(cctx.Args().First())
		if err != nil || len(b) != common.HashLength {
			return common.Hash{}, fmt.Errorf("invalid safeTxHash %q", cctx.Args().First())
		}
		return common.BytesToHash(b), nil
	}
	if !common.IsHexAddress(cctx.String("safe")) {
		return common.Hash{}, fmt.Errorf("--safe is required without a safeTxHash argument")
	}
	safeAddr := common.HexToAddress(cctx.String("safe"))
	to := safeAddr
	if s := cctx.String("to"); s != "" {
		if !common.IsHexAddress(s) {
			return common.Hash{}, fmt.Errorf("invalid --to %q", s)
		}
		to = common.HexToAddress(s)
	}
	value, err := parseUint256(cctx.String("value"))
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid --value: %w", err)
	}
	data, err := hexutil.Decode(cctx.String("data"))
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid --data: %w", err)
	}
	var chainID *big.Int
	if id := cctx.Int64("chain-id"); id != 0 {
		chainID = big.NewInt(id)
	}
	tx := core.NewCall(to, data, new(big.Int).SetUint64(cctx.Uint64("nonce")))
	tx.Value = value
	return safe.NewDomain(chainID, safeAddr).TransactionHash(tx), nil
}

// parseUint256 parses a decimal value that fits a uint256 word.
func parseUint256(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("%q is not a decimal number", s)
	}
	if v.Sign() < 0 || v.BitLen() > 256 {
		return nil, fmt.Errorf("%s is out of the uint256 range", s)
	}
	return v, nil
}
