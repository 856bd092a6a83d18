package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/arnac-io/safegift/pkg/artifacts"
)

// CallMsg is a read-only contract call.
type CallMsg struct {
	From  common.Address
	To    common.Address
	Value *big.Int
	Data  []byte
}

// TxRequest is a state changing call sent from one of the backend's accounts.
type TxRequest struct {
	From  common.Address
	To    common.Address
	Value *big.Int
	Data  []byte
}

// Backend executes calls and transactions against a chain.
// Reverts are reported as *core.RevertError.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	// Call runs msg against the latest state without changing it.
	Call(ctx context.Context, msg CallMsg) ([]byte, error)
	// Transact sends the transaction and waits for its receipt.
	Transact(ctx context.Context, req TxRequest) (*types.Receipt, error)
	// Deploy creates a contract from an artifact, args is the ABI encoded constructor input.
	Deploy(ctx context.Context, from common.Address, artifact artifacts.Artifact, args []byte) (common.Address, *types.Receipt, error)
	// BlockTime is the timestamp of the latest block.
	BlockTime(ctx context.Context) (uint64, error)
	BlockNumber(ctx context.Context) (uint64, error)
	Close()
}

// Forker resets the chain to a fork of another network.
// block 0 forks at the latest block, an empty url resets to a fresh local chain.
type Forker interface {
	Fork(ctx context.Context, url string, block uint64) error
}

// Clock controls block timestamps on development nodes.
type Clock interface {
	SetNextBlockTimestamp(ctx context.Context, ts uint64) error
	Mine(ctx context.Context) error
}
